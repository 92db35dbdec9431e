// Package config loads the function's environment-level configuration once at
// cold start. The resulting Config is immutable and handed to constructors.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds every recognized environment option.
type Config struct {
	TableName    string  `env:"DYNAMODB_TABLE" envDefault:"nyx-dev-records"`
	Environment  string  `env:"ENVIRONMENT"    envDefault:"dev"`
	ChaosEnabled bool    `env:"CHAOS_ENABLED"  envDefault:"false"`
	ChaosRate    float64 `env:"CHAOS_RATE"     envDefault:"0.5"`
	LogLevel     string  `env:"LOG_LEVEL"      envDefault:"info"`

	Region   string `env:"AWS_REGION"       envDefault:"us-east-1"`
	Endpoint string `env:"AWS_ENDPOINT_URL"`
}

// Load parses the process environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c Config) Validate() error {
	if c.TableName == "" {
		return errors.New("DYNAMODB_TABLE must not be empty")
	}
	if c.ChaosRate < 0 || c.ChaosRate > 1 {
		return errors.Errorf("CHAOS_RATE must be within [0, 1], got %v", c.ChaosRate)
	}
	return nil
}
