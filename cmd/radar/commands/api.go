package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lifesciencesignals/radar/internal/api"
	"github.com/lifesciencesignals/radar/internal/api/handlers"
	"github.com/lifesciencesignals/radar/internal/events"
	"github.com/lifesciencesignals/radar/internal/scheduler"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Start the REST API server.

This command:
- serves the radar, drill-down and filter endpoints
- exposes the cron trigger endpoints for digest and RSS ingestion
- optionally runs the scheduler in-process (--with-scheduler)

Endpoints:
  GET    /health
  GET    /metrics
  GET    /ws/jobs
  GET    /api/taxonomy
  GET    /api/ingest/jobs
  GET    /api/digest                                   (x-cron-secret)
  GET    /api/ingest/rss                               (x-cron-secret)
  POST   /api/orgs/bootstrap
  GET    /api/orgs/{orgID}/radar
  GET    /api/orgs/{orgID}/accounts/{accountID}/signals
  GET    /api/orgs/{orgID}/accounts/{accountID}/breakdown
  GET    /api/orgs/{orgID}/filters
  POST   /api/orgs/{orgID}/filters
  GET    /api/orgs/{orgID}/filters/active
  DELETE /api/orgs/{orgID}/filters/{filterID}
  POST   /api/orgs/{orgID}/filters/{filterID}/activate

Example:
  go run ./cmd/radar api
  go run ./cmd/radar api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort       string
	withScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (defaults to PORT)")
	apiCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "run the digest and ingest schedules in this process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Account Radar API Server ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	cfg, log := a.cfg, a.log
	if apiPort != "" {
		cfg.Port = apiPort
	}

	digestJob := a.digestJob()
	ingester, err := a.ingester()
	if err != nil {
		return err
	}

	hub := events.NewHub()

	// Job stats are only meaningful when the scheduler runs here
	var stats handlers.JobStatsProvider
	var sched *scheduler.Scheduler
	if withScheduler {
		sched, err = a.scheduler(digestJob, ingester)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.OnResult(func(result scheduler.JobResult) {
			evt := events.Event{Type: "job_result", At: result.EndTime, Data: result}
			if err := hub.Publish(evt); err != nil {
				log.WithError(err).Warn("Failed to publish job result")
			}
		})
		stats = sched
	}

	h := api.Handlers{
		Radar:   handlers.NewRadarHandler(a.pipeline(), a.drilldown(), a.explainer(), log),
		Filters: handlers.NewFilterHandler(a.filterService(), log),
		Orgs:    handlers.NewOrgHandler(a.bootstrapper(), log),
		Jobs:    handlers.NewJobsHandler(digestJob, ingester, stats, hub, log),
	}

	router := api.NewRouter(h, api.RouterOptions{
		CronSecret:  cfg.CronSecret,
		RateLimiter: a.rateLimiter(),
		Metrics:     a.metrics,
		Logger:      log,
	})

	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()
	if sched != nil {
		sched.Start()
	}

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	if cfg.CronSecret == "" {
		fmt.Println("⚠️  CRON_SECRET is empty, trigger endpoints are unauthenticated")
	}
	if sched != nil {
		fmt.Println("\nScheduled jobs:")
		for _, name := range sched.GetAllJobs() {
			fmt.Printf("  - %s\n", name)
		}
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	if sched != nil {
		sched.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
