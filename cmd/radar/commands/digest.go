package commands

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/internal/digest"
)

// digestCmd represents the digest command
var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Run or preview the daily digest",
	Long: `Run the daily digest or preview what it would send.

Subcommands:
  run      - send today's digest to every organization
  preview  - prepare digests without sending or claiming

Example:
  go run ./cmd/radar digest run
  go run ./cmd/radar digest preview --org <org-id>
  go run ./cmd/radar digest preview --org <org-id> --html`,
}

var (
	digestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Send today's digest",
		RunE:  runDigest,
	}

	digestPreviewCmd = &cobra.Command{
		Use:   "preview",
		Short: "Preview digests without sending",
		RunE:  previewDigest,
	}

	previewOrg  string
	previewHTML bool
)

func init() {
	rootCmd.AddCommand(digestCmd)
	digestCmd.AddCommand(digestRunCmd)
	digestCmd.AddCommand(digestPreviewCmd)

	digestPreviewCmd.Flags().StringVar(&previewOrg, "org", "", "only preview this organization id")
	digestPreviewCmd.Flags().BoolVar(&previewHTML, "html", false, "print the rendered email HTML")
}

func runDigest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	result, err := a.digestJob().Run(ctx)
	if err != nil {
		return fmt.Errorf("❌ digest failed: %w", err)
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println("  Daily Digest")
	fmt.Println("───────────────────────────────────────────────────────────")
	fmt.Printf("  Run ID    : %s\n", result.RunID)
	fmt.Printf("  Date      : %s\n", result.DigestDate)
	fmt.Printf("  Sent      : %d\n", result.Sent)
	fmt.Printf("  Skipped   : %d\n", result.Skipped)

	reasons := make([]string, 0, len(result.SkipReasons))
	for reason := range result.SkipReasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Printf("    %-20s %d\n", reason, result.SkipReasons[reason])
	}

	for _, f := range result.Failures {
		fmt.Printf("  ❌ %s (%s): %s\n", f.OrgName, f.OrgID, f.Error)
	}
	fmt.Println("───────────────────────────────────────────────────────────")

	if err := result.Err(); err != nil {
		return fmt.Errorf("%d organization(s) failed", len(result.Failures))
	}

	fmt.Printf("✅ Digest completed in %.2fs\n", time.Since(start).Seconds())
	return nil
}

func previewDigest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()

	var orgs []contracts.Org
	if previewOrg != "" {
		org, err := a.orgs.GetOrg(ctx, previewOrg)
		if err != nil {
			return fmt.Errorf("get org: %w", err)
		}
		orgs = []contracts.Org{*org}
	} else {
		orgs, err = a.orgs.ListOrgs(ctx)
		if err != nil {
			return fmt.Errorf("list orgs: %w", err)
		}
	}

	job := a.digestJob()
	now := time.Now().UTC()

	for _, org := range orgs {
		d, err := job.Prepare(ctx, org, now)
		if err != nil {
			fmt.Printf("❌ %s (%s): %v\n\n", org.Name, org.ID, err)
			continue
		}
		printDigest(d)

		if previewHTML && d.SkipReason == "" {
			msg, err := digest.Render(d, a.cfg.Mail.Brand)
			if err != nil {
				return err
			}
			fmt.Printf("Subject: %s\n\n%s\n\n", msg.Subject, msg.HTML)
		}
	}

	return nil
}

func printDigest(d *digest.Digest) {
	fmt.Printf("📬 %s (%s)\n", d.Org.Name, d.Org.ID)
	if d.SkipReason != "" {
		fmt.Printf("   Skipped: %s\n\n", d.SkipReason)
		return
	}

	fmt.Printf("   Filter: %s\n", d.Filter.Name)
	fmt.Printf("   Recipients: %s\n", strings.Join(d.Recipients, ", "))
	for _, item := range d.Items {
		fmt.Printf("   %3d  %s\n", item.Score, item.Account.Name)
		for _, s := range item.Signals {
			fmt.Printf("          - [%s] %s (%s)\n", s.Type, s.Title, s.OccurredAt.Format(time.DateOnly))
		}
	}
	fmt.Println()
}
