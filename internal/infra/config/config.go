package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken      string
	DatabaseURL        string
	OwnerTelegramID    int64 // only user allowed to manage birthdays; also receives reminders
	LogLevel           string
	Environment        string
	CronSpecReschedule string
	CronSpecDispatch   string
	PlanningHorizon    time.Duration
	ReminderIDPrefix   string
	MetricsAddr        string // empty disables the /metrics listener
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	ownerIDStr := os.Getenv("OWNER_TELEGRAM_ID")
	if ownerIDStr == "" {
		return nil, fmt.Errorf("OWNER_TELEGRAM_ID is not set")
	}
	cfg.OwnerTelegramID, err = strconv.ParseInt(ownerIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OWNER_TELEGRAM_ID: %w", err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.CronSpecReschedule = os.Getenv("CRON_SPEC_RESCHEDULE")
	if cfg.CronSpecReschedule == "" {
		cfg.CronSpecReschedule = "5 0 * * *" // Default: 00:05 daily
	}

	cfg.CronSpecDispatch = os.Getenv("CRON_SPEC_DISPATCH")
	if cfg.CronSpecDispatch == "" {
		cfg.CronSpecDispatch = "* * * * *" // Default: every minute
	}

	cfg.PlanningHorizon = 365 * 24 * time.Hour
	if raw := os.Getenv("PLANNING_HORIZON"); raw != "" {
		cfg.PlanningHorizon, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PLANNING_HORIZON: %w", err)
		}
	}

	cfg.ReminderIDPrefix = os.Getenv("REMINDER_ID_PREFIX")
	if cfg.ReminderIDPrefix == "" {
		cfg.ReminderIDPrefix = "birthday_"
	}

	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	return cfg, nil
}
