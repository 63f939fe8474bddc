package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL       string
	HTTPAddr          string
	LogLevel          string
	Environment       string
	ReferenceTimezone string // Fixed zone all cycle date boundaries are evaluated in
	AdminEmail        string
	JWTSecret         string
	EmailAPIURL       string
	EmailAPIKey       string
	EmailFromName     string
	IdentityAPIURL    string
	IdentityAPIKey    string
	TelegramToken     string // Optional: ops escalation channel
	AdminChatID       int64  // Optional: chat paged on fatal reconciliation errors
	CronSpecDispatch  string // For the due-sequence-email dispatch pass
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	cfg.AdminEmail = os.Getenv("ADMIN_EMAIL")
	if cfg.AdminEmail == "" {
		return nil, fmt.Errorf("ADMIN_EMAIL is not set")
	}

	cfg.EmailAPIURL = os.Getenv("EMAIL_API_URL")
	if cfg.EmailAPIURL == "" {
		return nil, fmt.Errorf("EMAIL_API_URL is not set")
	}
	cfg.EmailAPIKey = os.Getenv("EMAIL_API_KEY")
	if cfg.EmailAPIKey == "" {
		return nil, fmt.Errorf("EMAIL_API_KEY is not set")
	}
	cfg.EmailFromName = os.Getenv("EMAIL_FROM_NAME")
	if cfg.EmailFromName == "" {
		cfg.EmailFromName = "Grant Portal"
	}

	cfg.IdentityAPIURL = os.Getenv("IDENTITY_API_URL")
	if cfg.IdentityAPIURL == "" {
		return nil, fmt.Errorf("IDENTITY_API_URL is not set")
	}
	cfg.IdentityAPIKey = os.Getenv("IDENTITY_API_KEY")

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.ReferenceTimezone = os.Getenv("REFERENCE_TIMEZONE")
	if cfg.ReferenceTimezone == "" {
		cfg.ReferenceTimezone = "America/New_York" // Portal's reference zone for date boundaries
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	// Escalation channel is optional: without a token, fatal reconciliation
	// errors are logged only.
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	adminChatStr := os.Getenv("ADMIN_CHAT_ID")
	if adminChatStr != "" {
		var err error
		cfg.AdminChatID, err = strconv.ParseInt(adminChatStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_CHAT_ID: %w", err)
		}
	}

	cfg.CronSpecDispatch = os.Getenv("CRON_SPEC_SEQUENCE_DISPATCH")
	if cfg.CronSpecDispatch == "" {
		cfg.CronSpecDispatch = "*/10 * * * *" // Default: every 10 minutes
	}

	return cfg, nil
}
