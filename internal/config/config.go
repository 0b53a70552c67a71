package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port             string
	DBConn           string
	LogLevel         string
	JWTSecret        string
	Timezone         string
	SMTPHost         string
	SMTPPort         string
	SMTPUsername     string
	SMTPPassword     string
	SenderEmail      string
	ReminderSchedule string

	// Location resolved from Timezone. Every due-date comparison happens in it.
	Location *time.Location
}

// NewConfig loads configuration from a local .env file (if present) and
// environment variables
func NewConfig() (*Config, error) {
	// A missing .env is fine; deployed environments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DBConn:           getEnv("DB_CONN", "host=localhost port=5432 user=taskmate password=taskmate dbname=taskmate sslmode=disable"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:        getEnv("JWT_SECRET", "secret"),
		Timezone:         getEnv("APP_TIMEZONE", "Asia/Kolkata"),
		SMTPHost:         getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:         getEnv("SMTP_PORT", "587"),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		SenderEmail:      getEnv("SENDER_EMAIL", "noreply@taskmate.local"),
		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "@every 1h"),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
