package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest external signal sources",
}

var ingestRSSCmd = &cobra.Command{
	Use:   "rss",
	Short: "Poll every enabled RSS feed once",
	Long: `Fetch every enabled rss_sources feed, record new items and turn
them into classified signals.

Example:
  go run ./cmd/radar ingest rss
  INGEST_RULES_PATH=rules.yaml go run ./cmd/radar ingest rss`,
	RunE: runIngestRSS,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestRSSCmd)
}

func runIngestRSS(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ingester, err := a.ingester()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := ingester.Run(ctx)
	if err != nil {
		return fmt.Errorf("❌ ingest failed: %w", err)
	}

	if result.Message != "" {
		fmt.Println(result.Message)
		return nil
	}

	for _, fr := range result.Results {
		status := "✅"
		if len(fr.Errors) > 0 {
			status = "⚠️ "
		}
		fmt.Printf("%s %-30s fetched=%d new=%d\n", status, fr.Feed, fr.Fetched, fr.Inserted)
		for _, e := range fr.Errors {
			fmt.Printf("     %s\n", e)
		}
	}

	fmt.Printf("\nFeeds: %d  Fetched: %d  New: %d\n", result.TotalFeeds, result.TotalFetched, result.TotalNew)
	return result.Err()
}
