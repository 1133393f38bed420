package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the resolved settings",
	Long: `Shows the settings after defaults, the config file and ACTHARVEST_*
environment overrides are applied. Secrets are masked.`,
	Args: cobra.NoArgs,
	RunE: runSettingsShow,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := settingsSvc()
		if err != nil {
			return err
		}
		cmd.Println(svc.Path())
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsPathCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address:    %s\n", settings.Server.Addr)
	cmd.Printf("  Rate limit: %d req/s, burst %d\n", settings.Server.RateLimitRPS, settings.Server.RateLimitBurst)
	cmd.Println()

	cmd.Println("[Auth]")
	cmd.Printf("  Secret key: %s\n", maskSecret(settings.Auth.SecretKey))
	cmd.Printf("  Token TTL:  %s\n", settings.Auth.TokenTTL)
	cmd.Printf("  Admin:      %s\n", orNotSet(settings.Auth.AdminUsername))
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Driver: %s\n", settings.Storage.Driver)
	if settings.Storage.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Storage.DataDir)
	}
	if settings.Storage.DSN != "" {
		cmd.Printf("  DSN: %s\n", maskSecret(settings.Storage.DSN))
	}
	cmd.Println()

	cmd.Println("[Pipeline]")
	cmd.Printf("  Mode:          %s\n", settings.Pipeline.Mode)
	cmd.Printf("  API base URL:  %s\n", settings.Pipeline.APIBaseURL)
	cmd.Printf("  Chunk size:    %d\n", settings.Pipeline.ChunkSize)
	cmd.Printf("  Single flight: %s\n", settings.Pipeline.SingleFlight)
	cmd.Println()

	cmd.Println("[Extractor]")
	cmd.Printf("  URL:            %s\n", settings.Extractor.URL)
	cmd.Printf("  Look-back days: %d\n", settings.Extractor.LookbackDays)
	cmd.Printf("  Render timeout: %s\n", settings.Extractor.RenderTimeout)
	cmd.Printf("  Page rate:      %.1f/s\n", settings.Extractor.PageRate)
	cmd.Println()

	cmd.Println("[Jobs]")
	if len(settings.Jobs) == 0 {
		cmd.Println("  (none declared)")
	}
	for i, job := range settings.Jobs {
		id := job.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i)
		}
		cmd.Printf("  %s: %s\n", id, job.Trigger)
	}
	return nil
}

func maskSecret(key string) string {
	if len(key) <= 8 {
		if key == "" {
			return "(not set)"
		}
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
