package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var jobsHistory int

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List scheduled jobs",
	Long:  `Lists the persisted schedules with their next fire time and recent fires.`,
	Args:  cobra.NoArgs,
	RunE:  runJobs,
}

func init() {
	jobsCmd.Flags().IntVar(&jobsHistory, "history", 5, "recent fires to show per job (0 hides them)")
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	jobs, err := a.Scheduler.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	if len(jobs) == 0 {
		cmd.Println("No jobs scheduled.")
		return nil
	}

	for _, job := range jobs {
		cmd.Printf("%s\n", job.ID)
		cmd.Printf("  Trigger:  %s\n", job.Trigger)
		cmd.Printf("  Next run: %s\n", job.NextRun.Local().Format(time.DateTime))

		if jobsHistory <= 0 {
			continue
		}
		fires, err := a.Scheduler.History(ctx, job.ID, jobsHistory)
		if err != nil {
			return fmt.Errorf("failed to read history of %s: %w", job.ID, err)
		}
		for _, f := range fires {
			outcome := "ok"
			if !f.Success {
				outcome = "failed: " + f.Error
			}
			cmd.Printf("    %s  %d persisted  %s\n",
				f.StartedAt.Local().Format(time.DateTime), f.RecordsPersisted, outcome)
		}
	}
	return nil
}
