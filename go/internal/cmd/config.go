package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pennant-sim/pennant/go/internal/draft/eligibility"
	"github.com/pennant-sim/pennant/go/internal/draft/engine"
	"github.com/pennant-sim/pennant/go/internal/draft/pool"
	"github.com/pennant-sim/pennant/go/internal/draft/selector"
	"github.com/pennant-sim/pennant/go/internal/models"
)

// Config is the engine tuning file (config/engine.yaml). Every section has
// working defaults, so a missing or partial file is fine; env vars cover
// deployment concerns (DB, NATS, port) and this file covers gameplay tuning.
type Config struct {
	Selector   selector.Config        `yaml:"selector"`
	Thresholds eligibility.Thresholds `yaml:"eligibility"`
	PoolQuotas pool.Quotas            `yaml:"pool_quotas"`
	Retry      retrySettings          `yaml:"retry"`
	Roster     models.RosterQuota     `yaml:"roster"`

	// SelectorSeed of 0 seeds from the clock at startup.
	SelectorSeed int64 `yaml:"selector_seed"`
}

// retrySettings is the yaml shape of the commit retry policy. Delays are
// milliseconds in the file.
type retrySettings struct {
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelayMs int `yaml:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms"`
}

// RetryPolicy converts the yaml settings to the engine's policy.
func (c *Config) RetryPolicy() engine.RetryPolicy {
	return engine.RetryPolicy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   time.Duration(c.Retry.BaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.Retry.MaxDelayMs) * time.Millisecond,
	}
}

func defaultConfig() *Config {
	retry := engine.DefaultRetryPolicy()
	return &Config{
		Selector:   selector.DefaultConfig(),
		Thresholds: eligibility.DefaultThresholds(),
		PoolQuotas: pool.DefaultQuotas(),
		Retry: retrySettings{
			MaxAttempts: retry.MaxAttempts,
			BaseDelayMs: int(retry.BaseDelay / time.Millisecond),
			MaxDelayMs:  int(retry.MaxDelay / time.Millisecond),
		},
		Roster: models.DefaultQuota(),
	}
}

// loadConfig reads the yaml tuning file, overlaying it on the defaults.
// A missing file returns the defaults unchanged.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(config.Roster) == 0 {
		config.Roster = models.DefaultQuota()
	}
	return config, nil
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
