package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Store
	StoreDriver        string
	DatabaseURL        string
	DatabaseServiceURL string
	SQLitePath         string
	CatalogFile        string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Inference
	InferenceProvider       string
	RealModelTag            string
	InferenceTimeout        time.Duration
	InferenceConcurrentReqs int
	GeminiAPIKey            string
	OpenAIBaseURL           string
	OpenAIAPIKey            string
	OpenAIModel             string

	// Limits
	SendRatePerMinute int

	// Frontend
	FrontendURL string

	// Observability
	LogLevel slog.Level
	LogFile  string
	Tracing  bool
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

func Load() *Config {
	cfg := LoadStore()

	cfg.Port = getEnvOrDefault("PORT", "8080")
	cfg.Env = getEnvOrDefault("ENV", "development")
	cfg.RedisURL = getEnvOrDefault("REDIS_URL", "")
	cfg.JWTSecret = mustGetEnv("JWT_SECRET")
	cfg.InferenceProvider = strings.ToLower(getEnvOrDefault("INFERENCE_PROVIDER", ProviderGemini))
	cfg.RealModelTag = getEnvOrDefault("REAL_MODEL_TAG", "gemini-2.0-flash-exp")
	cfg.InferenceTimeout = getEnvAsDurationOrDefault("INFERENCE_TIMEOUT", 30*time.Second)
	cfg.InferenceConcurrentReqs = getEnvAsIntOrDefault("INFERENCE_CONCURRENT_REQUESTS", 5)
	cfg.GeminiAPIKey = getEnvOrDefault("GEMINI_API_KEY", "")
	cfg.OpenAIBaseURL = getEnvOrDefault("OPENAI_BASE_URL", "")
	cfg.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", "")
	cfg.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", "")
	cfg.SendRatePerMinute = getEnvAsIntOrDefault("SEND_RATE_PER_MINUTE", 20)
	cfg.FrontendURL = getEnvOrDefault("FRONTEND_URL", "http://localhost:3000")
	cfg.Tracing = getEnvOrDefault("TRACING", "false") == "true"

	return cfg
}

// LoadStore reads only the store, catalog and logging settings. Admin
// tooling uses it so it does not need server secrets.
func LoadStore() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		StoreDriver:        strings.ToLower(getEnvOrDefault("STORE_DRIVER", DriverPostgres)),
		DatabaseServiceURL: getEnvOrDefault("DATABASE_SERVICE_URL", ""),
		SQLitePath:         getEnvOrDefault("SQLITE_PATH", "modelchat.db"),
		CatalogFile:        getEnvOrDefault("CATALOG_FILE", ""),
		LogLevel:           parseLogLevel(getEnvOrDefault("LOG_LEVEL", "INFO")),
		LogFile:            getEnvOrDefault("LOG_FILE", ""),
	}

	// The anon URL is only mandatory when postgres is the store.
	if cfg.StoreDriver == DriverPostgres {
		cfg.DatabaseURL = mustGetEnv("DATABASE_URL")
	} else {
		cfg.DatabaseURL = getEnvOrDefault("DATABASE_URL", "")
	}

	return cfg
}

// HasRealInference reports whether the designated tag can reach a remote
// endpoint. Without credentials it answers with the simulated template.
func (c *Config) HasRealInference() bool {
	switch c.InferenceProvider {
	case ProviderOpenAI:
		return c.OpenAIBaseURL != "" || c.OpenAIAPIKey != ""
	default:
		return c.GeminiAPIKey != ""
	}
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
