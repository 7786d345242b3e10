package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lifesciencesignals/radar/pkg/config"
	"github.com/lifesciencesignals/radar/pkg/database"
	"github.com/lifesciencesignals/radar/pkg/logger"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Create the tables, views and procedures the backend reads and writes.
The schema is idempotent and safe to apply repeatedly.

Example:
  go run ./cmd/radar migrate
  go run ./cmd/radar migrate --env production`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	if err := database.Migrate(ctx, db.Pool); err != nil {
		return fmt.Errorf("❌ migration failed: %w", err)
	}

	log.Info("Schema applied")
	fmt.Println("✅ Schema applied")
	return nil
}
