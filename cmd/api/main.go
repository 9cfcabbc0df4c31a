package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/georgemunganga/marketplace-api/internal/platform/config"
	"github.com/georgemunganga/marketplace-api/internal/platform/database"
	"github.com/georgemunganga/marketplace-api/internal/platform/logger"
)

func main() {
	var (
		cfgPath string
		cfg     *config.Config
	)

	root := &cobra.Command{
		Use:           "marketplace-api",
		Short:         "Marketplace HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath == "" {
				cfgPath = os.Getenv("CONFIG_FILE")
			}
			c, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			cfg = c
			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "marketplace-api"})
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to the YAML config file (env CONFIG_FILE)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and seed roles and order statuses",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.Open(cmd.Context(), cfg.Database.URL, database.Options{})
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			logger.L().Info("schema applied")
			return nil
		},
	}

	root.AddCommand(serveCmd, migrateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		if cfg != nil {
			logger.L().Error("command failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}
