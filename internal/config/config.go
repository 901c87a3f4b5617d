package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Port is the HTTP listen port.
	Port string
	// Driver and DSN select the storage backend.
	Driver string
	DSN    string
	// AutoMigrate runs `goose up` on startup when set.
	AutoMigrate bool
	// TariffPDFPath optionally points at a tariff order PDF whose rates
	// override the built-in constants.
	TariffPDFPath string
	// SweepInterval is the overdue sweep interval: integer seconds or a
	// cron expression.
	SweepInterval string
	// SweepGraceDays is how long a bill may sit unpaid before the sweep
	// accrues a late surcharge on it.
	SweepGraceDays int
}

// FromEnv builds a Config from environment variables, with sane defaults.
func FromEnv() Config {
	cfg := Config{
		Port:           os.Getenv("PORT"),
		Driver:         os.Getenv("BILLMANAGER_DB_DRIVER"),
		DSN:            os.Getenv("BILLMANAGER_DB_DSN"),
		TariffPDFPath:  os.Getenv("BILLMANAGER_TARIFF_PDF_PATH"),
		SweepInterval:  os.Getenv("BILLMANAGER_SWEEP_INTERVAL_SECONDS"),
		SweepGraceDays: 30,
	}

	if cfg.Port == "" {
		cfg.Port = "8000"
	}
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.DSN == "" {
		cfg.DSN = "billmanager.db"
	}
	if cfg.SweepInterval == "" {
		cfg.SweepInterval = "86400"
	}

	autoMig := strings.ToLower(os.Getenv("BILLMANAGER_AUTO_MIGRATE"))
	cfg.AutoMigrate = autoMig == "1" || autoMig == "true" || autoMig == "yes"

	if raw := os.Getenv("BILLMANAGER_SWEEP_GRACE_DAYS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.SweepGraceDays = v
		}
	}

	return cfg
}
