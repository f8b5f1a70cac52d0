package config

import (
	"fmt"
	"runtime"
	"strings"

	"powersim/domain/power"
	"powersim/internal/errors"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Simulation SimulationConfig `envPrefix:"POWERSIM_"`
	Storage    StorageConfig    `envPrefix:"POWERSIM_"`
	Server     ServerConfig     `envPrefix:"POWERSIM_"`
	Log        LogConfig
}

// SimulationConfig holds the defaults applied to every estimate and sweep
type SimulationConfig struct {
	Seed          int64   `env:"SEED" envDefault:"20240917"`
	Replicates    int     `env:"REPLICATES" envDefault:"1000" validate:"gte=1"`
	Alpha         float64 `env:"ALPHA" envDefault:"0.05" validate:"gt=0,lt=1"`
	Confidence    float64 `env:"CONFIDENCE" envDefault:"0.95" validate:"gt=0,lt=1"`
	Target        float64 `env:"TARGET" envDefault:"0.8" validate:"gt=0,lte=1"`
	NMin          int     `env:"N_MIN" envDefault:"2" validate:"gte=2"`
	NMax          int     `env:"N_MAX" envDefault:"100" validate:"gtefield=NMin"`
	NStep         int     `env:"N_STEP" envDefault:"1" validate:"gte=1"`
	Test          string  `env:"TEST" envDefault:"student" validate:"oneof=student pooled welch"`
	Workers       int     `env:"WORKERS" validate:"gte=0"`
	ScenariosFile string  `env:"SCENARIOS_FILE"`
}

// StorageConfig holds persistence and export settings
type StorageConfig struct {
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:powersim.db"`
	OutputDir   string `env:"OUTPUT_DIR" envDefault:"results"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr string `env:"ADDR" envDefault:":8080" validate:"required"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"INFO"`
	Format string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
}

// Load reads a .env file when present, then the environment, then validates.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv parses and validates the current environment only.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("parse env: %w", err))
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Simulation.Test = strings.ToLower(cfg.Simulation.Test)

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	if cfg.Simulation.Workers == 0 {
		cfg.Simulation.Workers = runtime.GOMAXPROCS(0)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateConfig(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if cfg.Storage.DatabaseURL == "" && cfg.Storage.OutputDir == "" {
		return errors.ConfigInvalid("either POWERSIM_DATABASE_URL or POWERSIM_OUTPUT_DIR is required")
	}
	return nil
}

// BaseParams returns trial parameters carrying the configured alpha,
// replicate count, confidence and test. Means, sd and N come from the caller.
func (c *Config) BaseParams() power.TrialParams {
	p := power.DefaultParams()
	p.Alpha = c.Simulation.Alpha
	p.Replicates = c.Simulation.Replicates
	p.Confidence = c.Simulation.Confidence
	if kind, err := power.ParseTestKind(c.Simulation.Test); err == nil {
		p.Test = kind
	}
	return p
}

// Range returns the configured sample size sweep.
func (c *Config) Range() power.SampleRange {
	return power.SampleRange{Min: c.Simulation.NMin, Max: c.Simulation.NMax, Step: c.Simulation.NStep}
}
