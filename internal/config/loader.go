package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Load builds the session configuration: defaults, then the TOML file when
// path is non-empty, then CLOBCORE_* environment overrides. A .env file in
// the working directory is read first if present.
func Load(path string) (Config, error) {
	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	cfg := Defaults()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("CLOBCORE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CLOBCORE_RISK_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: CLOBCORE_RISK_ENABLED: %w", err)
		}
		cfg.Risk.Enabled = b
	}
	if v := os.Getenv("CLOBCORE_ENGINE_PARALLEL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: CLOBCORE_ENGINE_PARALLEL: %w", err)
		}
		cfg.Engine.ParallelEvaluation = b
	}
	for _, override := range []struct {
		env    string
		target *decimal.Decimal
	}{
		{"CLOBCORE_RISK_MAX_ORDER_SIZE", &cfg.Risk.MaxOrderSize},
		{"CLOBCORE_RISK_MAX_TOTAL_EXPOSURE", &cfg.Risk.MaxTotalExposure},
		{"CLOBCORE_RISK_MAX_DAILY_LOSS", &cfg.Risk.MaxDailyLoss},
	} {
		v := os.Getenv(override.env)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("config: %s: invalid decimal %q", override.env, v)
		}
		*override.target = d
	}
	return nil
}
