package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Relay   RelayConfig
	Client  ClientConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type RelayConfig struct {
	UpstreamURL    string        // chatbot backend base URL
	RequestTimeout time.Duration // per upstream call
	BodyLimit      int
}

type ClientConfig struct {
	RelayURL       string
	IdentityStore  string // "file" | "redis" | "memory"
	IdentityFile   string
	LogFilePath    string
	RequestTimeout time.Duration
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	timeout := getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second)

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Relay: RelayConfig{
			UpstreamURL:    getEnv("UPSTREAM_API_URL", "http://localhost:8000"),
			RequestTimeout: timeout,
			BodyLimit:      getEnvAsInt("BODY_LIMIT", 1024*1024),
		},
		Client: ClientConfig{
			RelayURL:       getEnv("RELAY_URL", "http://localhost:3000/api"),
			IdentityStore:  getEnv("IDENTITY_STORE", "file"),
			IdentityFile:   getEnv("IDENTITY_FILE", defaultIdentityFile()),
			LogFilePath:    getEnv("CLIENT_LOG_FILE_PATH", "logs/chat.log"),
			RequestTimeout: timeout,
		},
		Tracing: TracingConfig{
			Enabled:  getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

// IsProduction reports whether the relay should log in JSON only.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func defaultIdentityFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "ai-chatbot-client", "identity.yaml")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
