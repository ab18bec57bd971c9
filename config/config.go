package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Control plane
	ManagementURL    string
	HTTPTimeout      time.Duration
	HTTPRetryMax     int
	HTTPRetryWaitMin time.Duration
	HTTPRetryWaitMax time.Duration

	// Data plane
	AMQPHost string
	AMQPPort int
	AMQPTLS  bool

	// Credentials, shared by both planes
	Username string
	Password string
	VHost    string

	// Relocation
	InactivityTimeout time.Duration
	ProgressBatch     int
	ConfirmDelivery   bool

	// Output
	ReportPath   string
	ReportFormat string
	JournalPath  string
	MetricsFile  string

	// Logging
	LogFile  string
	LogLevel string

	Version string
}

// LoadConfig loads configuration from .env file, environment variables, or defaults
// Priority: environment variables > .env file > default values
func LoadConfig(version string) *Config {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	return &Config{
		ManagementURL:    getEnv("QHOP_MANAGEMENT_URL", "http://localhost:15672"),
		HTTPTimeout:      getEnvAsDuration("QHOP_HTTP_TIMEOUT", 5*time.Second),
		HTTPRetryMax:     getEnvAsInt("QHOP_HTTP_RETRY_MAX", 3),
		HTTPRetryWaitMin: getEnvAsDuration("QHOP_HTTP_RETRY_WAIT_MIN", 300*time.Millisecond),
		HTTPRetryWaitMax: getEnvAsDuration("QHOP_HTTP_RETRY_WAIT_MAX", 5*time.Second),

		AMQPHost: getEnv("QHOP_AMQP_HOST", "localhost"),
		AMQPPort: getEnvAsInt("QHOP_AMQP_PORT", 5672),
		AMQPTLS:  getEnvAsBool("QHOP_AMQP_TLS", false),

		Username: getEnv("QHOP_USERNAME", "guest"),
		Password: getEnv("QHOP_PASSWORD", "guest"),
		VHost:    getEnv("QHOP_VHOST", "/"),

		InactivityTimeout: getEnvAsDuration("QHOP_INACTIVITY_TIMEOUT", 3*time.Second),
		ProgressBatch:     getEnvAsInt("QHOP_PROGRESS_BATCH", 1000),
		ConfirmDelivery:   getEnvAsBool("QHOP_CONFIRM_DELIVERY", true),

		ReportPath:   getEnv("QHOP_REPORT_PATH", "migration_report.json"),
		ReportFormat: getEnv("QHOP_REPORT_FORMAT", "json"),
		JournalPath:  getEnvAllowEmpty("QHOP_JOURNAL_PATH", "qhop.db"),
		MetricsFile:  getEnv("QHOP_METRICS_FILE", ""),

		LogFile:  getEnvAllowEmpty("QHOP_LOG_FILE", "migration_log.txt"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Version: version,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty is getEnv for settings where an explicitly empty value
// turns a feature off.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
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
		fmt.Printf("Warning: Invalid value for %s: %s, using default: %d\n", key, valueStr, defaultValue)
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
		fmt.Printf("Warning: Invalid value for %s: %s, using default: %t\n", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("750ms", "5s") and plain numbers,
// which are read as seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil && value >= 0 {
		return value
	}
	if secs, err := strconv.ParseFloat(valueStr, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	fmt.Printf("Warning: Invalid value for %s: %s, using default: %s\n", key, valueStr, defaultValue)
	return defaultValue
}
