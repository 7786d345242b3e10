package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "radar",
	Short: "Account Radar - life-science buying signal backend",
	Long: `Account Radar CLI

Ranks target accounts per organization by buying pressure, ingests RSS
signals and emails the daily digest.

Usage:
  go run ./cmd/radar [command]

Examples:
  go run ./cmd/radar api
  go run ./cmd/radar scheduler start
  go run ./cmd/radar digest preview --org <org-id>
  go run ./cmd/radar ingest rss
  go run ./cmd/radar migrate`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Flags override the environment before config.Load reads it
		if cmd.Flags().Changed("env") {
			os.Setenv("ENV", env) //nolint:errcheck
		}
		if verbose {
			os.Setenv("LOG_LEVEL", "debug")    //nolint:errcheck
			os.Setenv("LOG_FORMAT", "console") //nolint:errcheck
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose console logging")
}
