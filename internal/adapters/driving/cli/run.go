package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/actharvest/internal/adapters/apitypes"
	"github.com/custodia-labs/actharvest/internal/core/domain"
)

var runJSON bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once",
	Long: `Scrapes the registry for the configured look-back window, normalises every
row and submits the batch through the configured gateway. The run is
recorded in the run history whatever its outcome.`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	report, runErr := a.Pipeline.Run(ctx)
	if report != nil {
		if err := printReport(cmd, report); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	if report.Summary != nil && report.Summary.Status == domain.RunError {
		return fmt.Errorf("run failed: %s", report.Summary.ErrorMessage)
	}
	return nil
}

func printReport(cmd *cobra.Command, report *domain.PipelineReport) error {
	if runJSON {
		data, err := json.MarshalIndent(apitypes.FromReport(*report), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Rows extracted: %d\n", report.ExtractedRows)
	if report.SubmitStatus != 0 {
		cmd.Printf("Submit status:  %d\n", report.SubmitStatus)
	}
	if s := report.Summary; s != nil {
		cmd.Printf("Status:         %s\n", s.Status)
		cmd.Printf("Persisted:      %d\n", s.RecordsPersisted)
		if s.ErrorMessage != "" {
			cmd.Printf("Error:          %s\n", s.ErrorMessage)
		}
	}
	cmd.Printf("Took:           %s\n", report.Duration.Round(time.Millisecond))
	return nil
}
