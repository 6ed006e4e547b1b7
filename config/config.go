package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Apply modes of the reactive controller.
const (
	ApplyLive    = "live"
	ApplyBatched = "batched"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DataPath     string
	RawDataPath  string
	OutputDir    string
	OutputFormat string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	PostgresEnabled  bool
	MaxRetries       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	CategoryLimit   int
	TopN            int
	EngagementTopN  int
	HistogramBins   int
	TopCategories   int
	RenderWorkers   int
	ApplyMode       string
	WordCloudWidth  int
	WordCloudHeight int

	PaletteFile string
	LogLevel    string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	return &Config{
		DataPath:     getEnv("DATA_PATH", "./data/preprocessed/clean_data_score.parquet"),
		RawDataPath:  getEnv("RAW_DATA_PATH", "./data/raw/googleplaystore.csv"),
		OutputDir:    getEnv("OUTPUT_DIR", "./data/preprocessed"),
		OutputFormat: strings.ToLower(getEnv("OUTPUT_FORMAT", "csv")),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "analyst"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "analyst123"),
		PostgresDB:       getEnv("POSTGRES_DB", "playstore"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		MaxRetries:       getEnvInt("MAX_RETRIES", 3),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,

		CategoryLimit:   getEnvInt("CATEGORY_LIMIT", 4),
		TopN:            getEnvInt("TOP_N", 10),
		EngagementTopN:  getEnvInt("ENGAGEMENT_TOP_N", 50),
		HistogramBins:   getEnvInt("HISTOGRAM_BINS", 25),
		TopCategories:   getEnvInt("TOP_CATEGORIES", 10),
		RenderWorkers:   getEnvInt("RENDER_WORKERS", 1),
		ApplyMode:       strings.ToLower(getEnv("APPLY_MODE", ApplyLive)),
		WordCloudWidth:  getEnvInt("WORDCLOUD_WIDTH", 800),
		WordCloudHeight: getEnvInt("WORDCLOUD_HEIGHT", 400),

		PaletteFile: getEnv("PALETTE_FILE", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// Batched reports whether filter changes wait for the Apply button.
func (c *Config) Batched() bool {
	return c.ApplyMode == ApplyBatched
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
