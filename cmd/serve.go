package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/core/config"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/core/container"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/core/logger"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/core/routes"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/database"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/security"
)

const shutdownTimeout = 15 * time.Second

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scanner HTTP API.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logger.NewLogger(cfg.App.Env)
		defer log.Sync()

		if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
			if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir, log); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
		}

		return serve(cmd.Context(), cfg, log)
	},
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if err := security.Configure(cfg.JWTSecret); err != nil {
		return err
	}
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgresConnection(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("Connected to the database")

	c, err := container.NewAppContainer(ctx, db, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	server := &http.Server{
		Addr:              cfg.App.Host,
		Handler:           routes.NewRouter(c),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("addr", cfg.App.Host))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
