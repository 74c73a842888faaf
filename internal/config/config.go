package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file at the root of a ledger repository.
const FileName = "ledger.yaml"

// Config represents the top-level ledger.yaml configuration.
type Config struct {
	Ledger   LedgerConfig   `yaml:"ledger"`
	Feeds    []Feed         `yaml:"feeds,omitempty"`
	Matching MatchingConfig `yaml:"matching"`
	Budget   BudgetConfig   `yaml:"budget"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
}

// LedgerConfig identifies the ledger.
type LedgerConfig struct {
	Name              string `yaml:"name"`
	ReportingCurrency string `yaml:"reporting_currency"`
}

// Feed maps an import feed to a registered account.
type Feed struct {
	Name       string `yaml:"name"`
	Format     string `yaml:"format"`                // "chase" or "ofx"
	ExternalID string `yaml:"external_id,omitempty"` // account number at the institution
	AccountID  string `yaml:"account_id"`
}

// MatchingConfig tunes transfer matching.
type MatchingConfig struct {
	WindowDays int `yaml:"window_days"` // 0 means unbounded
}

// Window returns the matching window as a duration.
func (m MatchingConfig) Window() time.Duration {
	return time.Duration(m.WindowDays) * 24 * time.Hour
}

// BudgetConfig controls envelope reporting.
type BudgetConfig struct {
	HistoryCycles int `yaml:"history_cycles"` // prior cycles replayed for rollover
}

// LoggingConfig controls the CLI logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// StorageConfig controls on-disk caches and history.
type StorageConfig struct {
	Snapshot bool `yaml:"snapshot"`
	Git      bool `yaml:"git"` // commit every change to the repository's git history
}

// Load reads a ledger.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Feed returns the feed with the given name.
func (c *Config) Feed(name string) (Feed, bool) {
	for _, f := range c.Feeds {
		if f.Name == name {
			return f, true
		}
	}
	return Feed{}, false
}

// Default returns a Config with sensible defaults for a new ledger.
func Default(name, currency string) *Config {
	return &Config{
		Ledger: LedgerConfig{
			Name:              name,
			ReportingCurrency: currency,
		},
		Matching: MatchingConfig{
			WindowDays: 5,
		},
		Budget: BudgetConfig{
			HistoryCycles: 12,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Storage: StorageConfig{
			Snapshot: true,
		},
	}
}
