package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

type Config struct {
	Addr                string
	LogLevel            string
	StoreDriver         string
	DBPath              string
	RedisURL            string
	StoreNamespace      string
	BankSources         []string
	BankBlueprint       string
	BankRefreshInterval time.Duration
	BankFetchTimeout    time.Duration
	WorkerCount         int
	QueueSize           int
	RateLimitRPS        float64
	RateLimitBurst      int
	DailyGoalDefault    int
	NewPerDayDefault    int
	ExamDuration        time.Duration
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:                envOr("ADDR", ":8080"),
		LogLevel:            envOr("LOG_LEVEL", "INFO"),
		StoreDriver:         strings.ToLower(envOr("STORE_DRIVER", DriverSQLite)),
		DBPath:              envOr("DB_PATH", "file:ctiprep.db"),
		RedisURL:            envOr("REDIS_URL", "redis://localhost:6379/0"),
		StoreNamespace:      envOr("STORE_NAMESPACE", "cti2026:"),
		BankSources:         envListOr("BANK_SOURCES", nil),
		BankBlueprint:       envOr("BANK_BLUEPRINT", ""),
		BankRefreshInterval: envDurationOr("BANK_REFRESH_INTERVAL", 30*time.Minute),
		BankFetchTimeout:    envDurationOr("BANK_FETCH_TIMEOUT", 15*time.Second),
		WorkerCount:         envIntOr("WORKER_COUNT", 2),
		QueueSize:           envIntOr("QUEUE_SIZE", 16),
		RateLimitRPS:        envFloatOr("RATE_LIMIT_RPS", 20),
		RateLimitBurst:      envIntOr("RATE_LIMIT_BURST", 40),
		DailyGoalDefault:    envIntOr("DAILY_GOAL_DEFAULT", 20),
		NewPerDayDefault:    envIntOr("NEW_PER_DAY_DEFAULT", 10),
		ExamDuration:        envDurationOr("EXAM_DURATION", 16200*time.Second),
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Addr) == "" {
		problems = append(problems, "ADDR cannot be empty")
	}

	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR (got %q)", c.LogLevel))
	}

	switch c.StoreDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			problems = append(problems, "DB_PATH cannot be empty when STORE_DRIVER=sqlite")
		}
	case DriverRedis:
		if _, err := url.Parse(c.RedisURL); err != nil || !strings.HasPrefix(c.RedisURL, "redis") {
			problems = append(problems, fmt.Sprintf("REDIS_URL is not a redis url (got %q)", c.RedisURL))
		}
	case DriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("STORE_DRIVER must be sqlite, redis or memory (got %q)", c.StoreDriver))
	}

	if c.StoreNamespace == "" {
		problems = append(problems, "STORE_NAMESPACE cannot be empty")
	}
	if len(c.BankSources) > 0 && c.BankRefreshInterval < time.Second {
		problems = append(problems, "BANK_REFRESH_INTERVAL must be at least 1s")
	}
	if c.BankFetchTimeout <= 0 {
		problems = append(problems, "BANK_FETCH_TIMEOUT must be positive")
	}
	if c.WorkerCount < 1 {
		problems = append(problems, "WORKER_COUNT must be at least 1")
	}
	if c.QueueSize < 1 {
		problems = append(problems, "QUEUE_SIZE must be at least 1")
	}
	if c.RateLimitRPS <= 0 {
		problems = append(problems, "RATE_LIMIT_RPS must be positive")
	}
	if c.RateLimitBurst < 1 {
		problems = append(problems, "RATE_LIMIT_BURST must be at least 1")
	}
	if c.DailyGoalDefault < 5 || c.DailyGoalDefault > 100 {
		problems = append(problems, "DAILY_GOAL_DEFAULT must be between 5 and 100")
	}
	if c.NewPerDayDefault < 0 || c.NewPerDayDefault > 50 {
		problems = append(problems, "NEW_PER_DAY_DEFAULT must be between 0 and 50")
	}
	if c.ExamDuration <= 0 {
		problems = append(problems, "EXAM_DURATION must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envFloatOr(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("invalid value for %s=%q, using default %g", key, v, def)
	}
	return def
}

// envDurationOr accepts Go durations ("90s") or a bare number of seconds.
func envDurationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("invalid value for %s=%q, using default %s", key, v, def)
	return def
}

func envListOr(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
