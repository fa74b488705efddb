package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"photonix/photo-portal/internal/config"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "photonix",
	Short: "Self-hosted photo library",
	Long: `photonix serves a web photo library. It imports photos from local
folders or S3-compatible storage, reads their EXIF data and tags them by
dominant color.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "config file (JSON or YAML)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newClassifyCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger every command uses
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	zc := zap.NewProductionConfig()
	if cfg.Debug() {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level

	logger, err := zc.Build()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
