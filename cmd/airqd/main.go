package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"airquality-backend/config"
	"airquality-backend/internal/db"
	"airquality-backend/internal/logging"
)

var configPath string

// rootCmd runs the HTTP server when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "airqd",
	Short: "Air quality monitoring backend",
	Long: `airqd serves the sensor registry and air quality measurements over HTTP.

Without a subcommand it behaves like "airqd serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "./config/config.yaml" // Default path for local development
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultPath, "path to the YAML configuration file")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads the configuration, installs the process logger and opens
// the database. The caller owns the returned connection.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	level, err := config.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(os.Stdout, cfg.AppEnv, level)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "path", configPath, "driver", cfg.Database.Driver)

	gormDB, err := db.Open(&cfg.Database, logging.GormLevel(level))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, gormDB, nil
}
