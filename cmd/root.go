package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/core/config"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/core/logger"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/database"
)

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logger.NewLogger(cfg.App.Env)
		defer log.Sync()

		migrationDir, _ := cmd.Flags().GetString("dir")
		if migrationDir == "" {
			migrationDir = cfg.Database.MigrationsDir
		}

		if err := database.RunMigrations(cfg.Database.URL, migrationDir, log); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		return nil
	},
}

func Execute(ctx context.Context) {
	rootCmd := &cobra.Command{
		Use:           "scanner",
		Short:         "Toyota shipment scanner service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	MigrateCmd.Flags().String("dir", "", "Directory containing the migration files (default MIGRATIONS_DIR)")
	ServeCmd.Flags().Bool("migrate", true, "Apply pending migrations before serving")
	rootCmd.AddCommand(MigrateCmd, ServeCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
