package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Data formats accepted by DATA_FORMAT
const (
	FormatCSV      = "csv"
	FormatParquet  = "parquet"
	FormatPostgres = "postgres"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Bar archive
	DataDir    string
	DataFormat string // csv, parquet, postgres

	// Concept / name caches
	ConceptCache string
	NameCache    string

	// Optional YAML override of classifier thresholds
	StrategyConfig string

	// Scan
	Scan ScanConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	Eastmoney EastmoneyConfig

	// Cron expressions (with seconds)
	Schedule ScheduleConfig

	// Output
	ReportPath string

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// ScanConfig holds scan orchestrator settings
type ScanConfig struct {
	Workers    int // concurrent classifications
	MinBars    int // series shorter than this are skipped
	Strategies []string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	Enabled   bool
	ResultTTL time.Duration // cached scan results
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ScheduleConfig holds cron expressions of the scheduled jobs and their retry policy
type ScheduleConfig struct {
	DailyScan   string
	ConceptSync string
	MaxRetries  int           // retries after a failed run
	RetryDelay  time.Duration // pause between attempts
}

// EastmoneyConfig holds the concept board endpoint settings
type EastmoneyConfig struct {
	BaseURL       string
	MaxBoards     int     // top N concept boards by change
	TagsPerCode   int     // concept tags kept per instrument
	RatePerSecond float64 // outbound request rate
	Timeout       time.Duration
}

// LoadFile loads path into the environment before Load.
// Variables already set in the process take precedence.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return Load()
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "5000"),
		Env:  getEnv("ENV", "development"),

		DataDir:        getEnv("DATA_DIR", "./stock_data"),
		DataFormat:     getEnv("DATA_FORMAT", FormatCSV),
		ConceptCache:   getEnv("CONCEPT_CACHE", "concept_cache.json"),
		NameCache:      getEnv("NAME_CACHE", "stock_name_cache.json"),
		StrategyConfig: getEnv("STRATEGY_CONFIG", ""),

		Scan: ScanConfig{
			Workers:    getEnvAsInt("SCAN_WORKERS", 40),
			MinBars:    getEnvAsInt("SCAN_MIN_BARS", 5),
			Strategies: getEnvAsList("SCAN_STRATEGIES", []string{"ma5", "volume_breakout", "breakout_pullback"}),
		},

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnv("REDIS_PORT", "6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			Enabled:   getEnvAsBool("REDIS_ENABLED", false),
			ResultTTL: getEnvAsDuration("REDIS_RESULT_TTL", "10m"),
		},

		// External APIs
		Eastmoney: EastmoneyConfig{
			BaseURL:       getEnv("EASTMONEY_BASE_URL", "https://push2.eastmoney.com"),
			MaxBoards:     getEnvAsInt("EASTMONEY_MAX_BOARDS", 150),
			TagsPerCode:   getEnvAsInt("EASTMONEY_TAGS_PER_CODE", 3),
			RatePerSecond: getEnvAsFloat("EASTMONEY_RATE", 5),
			Timeout:       getEnvAsDuration("EASTMONEY_TIMEOUT", "10s"),
		},

		Schedule: ScheduleConfig{
			DailyScan:   getEnv("SCHEDULE_DAILY_SCAN", "0 30 15 * * 1-5"), // 장 마감 후
			ConceptSync: getEnv("SCHEDULE_CONCEPT_SYNC", "0 0 8 * * *"),
			MaxRetries:  getEnvAsInt("SCHEDULE_MAX_RETRIES", 3),
			RetryDelay:  getEnvAsDuration("SCHEDULE_RETRY_DELAY", "1m"),
		},

		ReportPath: getEnv("REPORT_PATH", "scan_report.html"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// RedisAddr returns host:port
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.DataFormat {
	case FormatCSV, FormatParquet:
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required for %s data", c.DataFormat)
		}
	case FormatPostgres:
		// Database URL is required only when bars live in PostgreSQL
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATA_FORMAT=postgres")
		}
	default:
		return fmt.Errorf("DATA_FORMAT must be one of: csv, parquet, postgres")
	}

	if c.Scan.Workers <= 0 {
		return fmt.Errorf("SCAN_WORKERS must be positive, got %d", c.Scan.Workers)
	}

	if c.Schedule.MaxRetries < 0 {
		return fmt.Errorf("SCHEDULE_MAX_RETRIES must not be negative, got %d", c.Schedule.MaxRetries)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",             // Current directory
		"patternscan/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
