package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"playstore-analytics/config"
	"playstore-analytics/models"
	"playstore-analytics/services"
	"playstore-analytics/storage"
	"playstore-analytics/utils"
)

var (
	rootLogLevel string
	rootDataPath string

	cfg    *config.Config
	logger *utils.Logger
)

var rootCmd = &cobra.Command{
	Use:   "playstore-analytics",
	Short: "Play Store ads analytics: preprocessing and reactive chart specs",
	Long: `Cleans the Google Play Store export, derives a popularity score and
turns filter selections into declarative chart specifications, summary
statistics and a word cloud for an external dashboard renderer.

Examples:
  playstore-analytics preprocess --input data/raw/googleplaystore.csv --format parquet
  playstore-analytics render --category GAME --category SOCIAL --min-rating 4
  playstore-analytics watch < events.jsonl > bundles.jsonl`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if rootLogLevel != "" {
			cfg.LogLevel = rootLogLevel
		}
		if rootDataPath != "" {
			cfg.DataPath = rootDataPath
		}
		logger = utils.NewLoggerLevel(cfg.LogLevel, os.Stderr)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "log level: debug, info, warn, error (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&rootDataPath, "data", "", "cleaned dataset: .csv, .parquet, .xlsx or a postgres source (default from DATA_PATH)")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func retryConfig() *utils.RetryConfig {
	return &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 500 * time.Millisecond, Logger: logger}
}

func loadOptions() storage.LoadOptions {
	return storage.LoadOptions{
		DSN: cfg.DSN(),
		Connect: func(ctx context.Context, dsn string) (storage.AppStore, error) {
			return storage.NewPostgresStore(ctx, dsn, retryConfig())
		},
	}
}

// loadTable reads the configured dataset once.
func loadTable(ctx context.Context) (*models.Table, error) {
	t, err := storage.Load(ctx, cfg.DataPath, loadOptions())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.DataPath, err)
	}
	logger.Info("[load] %d apps over %d categories from %s (popularity score: %v)",
		t.Len(), len(t.Categories()), cfg.DataPath, t.HasScore())
	return t, nil
}

func loadPalette(t *models.Table) (*config.Palette, error) {
	base, err := config.LoadPalette(cfg.PaletteFile)
	if err != nil {
		return nil, err
	}
	return config.NewPalette(base, t.Categories()), nil
}

// newCache returns Redis when configured and reachable, and an in-memory
// cache otherwise. The closer is never nil.
func newCache(ctx context.Context) (storage.Cache, io.Closer) {
	if cfg.RedisAddr != "" {
		rc, err := storage.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL, retryConfig())
		if err == nil {
			logger.Info("[cache] Using Redis at %s", cfg.RedisAddr)
			return rc, rc
		}
		logger.Warn("[cache] Redis unavailable, using in-memory cache: %v", err)
	}
	return storage.NewMemoryCache(128), nopCloser{}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newController loads the dataset and wires the reactive controller.
func newController(ctx context.Context) (*services.Controller, *models.Table, io.Closer, error) {
	t, err := loadTable(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	palette, err := loadPalette(t)
	if err != nil {
		return nil, nil, nil, err
	}
	cache, closer := newCache(ctx)
	return services.NewController(t, palette, cfg, cache, logger), t, closer, nil
}
