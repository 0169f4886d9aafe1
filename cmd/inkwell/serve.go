package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"

	"github.com/thebtf/inkwell/internal/db"
	"github.com/thebtf/inkwell/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  `Run the HTTP API until interrupted. The schema is migrated on startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Info().
			Str("version", Version).
			Str("driver", cfg.Database.Driver).
			Msg("Starting inkwell")

		store, err := db.NewStore(db.Config{
			Driver:          cfg.Database.Driver,
			DSN:             cfg.Database.BuildDSN(),
			MaxConns:        cfg.Database.MaxConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			LogLevel:        gormLogLevel(cfg.LogLevel),
		})
		if err != nil {
			return err
		}

		svc := server.NewService(cfg, store)

		errCh := make(chan error, 1)
		go func() { errCh <- svc.Start() }()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-quit:
			log.Info().Msg("Received shutdown signal")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := svc.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
			return err
		}

		log.Info().Msg("Shutdown complete")
		return nil
	},
}

// gormLogLevel maps the application log level onto GORM's logger.
func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug", "trace":
		return logger.Info
	case "warn":
		return logger.Warn
	default:
		return logger.Silent
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
