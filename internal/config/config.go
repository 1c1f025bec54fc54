package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseDSN   string `env:"DATABASE_DSN" envDefault:"host=localhost port=5432 dbname=bank_ledger user=postgres password=postgres sslmode=disable"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	// Optional YAML fee schedule applied at bootstrap on top of the
	// migration-seeded defaults. Skipped when the file is absent.
	FeeScheduleFile string `env:"FEE_SCHEDULE_FILE" envDefault:"fees.yaml"`

	// Upper bound on waiting for a row lock inside a unit of work.
	// Zero disables the bound and restores indefinite blocking.
	LockWaitTimeout time.Duration `env:"LOCK_WAIT_TIMEOUT" envDefault:"5s"`

	// Operator seeded at bootstrap so audit entries written by
	// scheduled jobs have an actor. Seeding is skipped when the
	// password is empty.
	SystemOperatorUsername string `env:"SYSTEM_OPERATOR_USERNAME" envDefault:"system"`
	SystemOperatorPassword string `env:"SYSTEM_OPERATOR_PASSWORD"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
