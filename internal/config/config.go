package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HL7ListenPort   int
	WebPort         int
	DatabaseURL     string
	DataDir         string
	IdleTimeout     time.Duration
	MaxMessageBytes int
	LogLevel        string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HL7ListenPort:   getEnvAsInt("HL7_LISTEN_PORT", 2576),
		WebPort:         getEnvAsInt("WEB_PORT", 5678),
		DatabaseURL:     getEnv("DATABASE_URL", "postgres://localhost/sho?sslmode=disable"),
		DataDir:         getEnv("DATA_DIR", "./data"),
		IdleTimeout:     time.Duration(getEnvAsInt("IDLE_TIMEOUT_SECONDS", 300)) * time.Second,
		MaxMessageBytes: getEnvAsInt("MAX_MESSAGE_BYTES", 1<<20),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	setupLogger(cfg.LogLevel)

	slog.Info("Configuration loaded",
		"hl7Port", cfg.HL7ListenPort,
		"webPort", cfg.WebPort,
		"idleTimeout", cfg.IdleTimeout,
		"maxMessageBytes", cfg.MaxMessageBytes,
	)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	slog.SetDefault(logger)
}
