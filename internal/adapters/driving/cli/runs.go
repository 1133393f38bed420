package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/actharvest/internal/adapters/apitypes"
	"github.com/custodia-labs/actharvest/internal/core/domain"
)

var (
	runsPage   int
	runsSize   int
	runsStatus string
	runsFrom   string
	runsTo     string
	runsJSON   bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the run history",
	Long:  `Lists recorded pipeline runs, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsPage, "page", 1, "page number, starting at 1")
	runsCmd.Flags().IntVar(&runsSize, "size", domain.DefaultPageSize, "entries per page")
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "only SUCCESS or ERROR runs")
	runsCmd.Flags().StringVar(&runsFrom, "from", "", "first day, YYYY-MM-DD")
	runsCmd.Flags().StringVar(&runsTo, "to", "", "last day, YYYY-MM-DD")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	query, err := runsQuery()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	page, err := a.Runs.ListRuns(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if runsJSON {
		data, err := json.MarshalIndent(apitypes.FromRunPage(*page), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal runs: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(page.Items) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}
	cmd.Printf("Runs %d-%d of %d:\n\n", query.Offset()+1, query.Offset()+len(page.Items), page.Total)
	for _, e := range page.Items {
		cmd.Printf("  %s  %-7s  %5d persisted  %7.2fs\n",
			e.ExecutedAt.Local().Format(time.DateTime), e.Status, e.RecordsPersisted, e.DurationSeconds)
		if e.ErrorMessage != "" {
			cmd.Printf("      %s\n", e.ErrorMessage)
		}
	}
	return nil
}

func runsQuery() (domain.RunQuery, error) {
	query := domain.RunQuery{Page: runsPage, Size: runsSize}
	if runsStatus != "" {
		status, err := domain.ParseRunStatus(runsStatus)
		if err != nil {
			return query, err
		}
		query.Status = status
	}
	for _, f := range []struct {
		value string
		dst   **time.Time
	}{{runsFrom, &query.From}, {runsTo, &query.To}} {
		if f.value == "" {
			continue
		}
		d, err := domain.ParseDate(f.value)
		if err != nil {
			return query, err
		}
		*f.dst = &d
	}
	return query, query.Validate()
}
