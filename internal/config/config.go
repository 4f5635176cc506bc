package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the top-level TOML structure. Command-line flags override
// anything set here. Hour/minute values are floats to match the
// historical CLI contract.
type Config struct {
	MinimumAgeHours   float64  `toml:"minimum_age_hours" mapstructure:"minimum_age_hours"`
	MaximumAgeHours   float64  `toml:"maximum_age_hours" mapstructure:"maximum_age_hours"`
	RandomWaitMinutes float64  `toml:"random_wait_minutes" mapstructure:"random_wait_minutes"`
	StateFile         string   `toml:"state_file" mapstructure:"state_file"`
	LockFile          string   `toml:"lock_file" mapstructure:"lock_file"`
	PackageManager    string   `toml:"package_manager" mapstructure:"package_manager"`
	RepoqueryBin      string   `toml:"repoquery_bin" mapstructure:"repoquery_bin"`
	Packages          []string `toml:"packages" mapstructure:"packages"`

	Log     LogConfig     `toml:"log" mapstructure:"log"`
	History HistoryConfig `toml:"history" mapstructure:"history"`
	Metrics MetricsConfig `toml:"metrics" mapstructure:"metrics"`
}

type LogConfig struct {
	File       string `toml:"file" mapstructure:"file"`
	Syslog     bool   `toml:"syslog" mapstructure:"syslog"`
	Facility   string `toml:"syslog_facility" mapstructure:"syslog_facility"`
	Address    string `toml:"syslog_address" mapstructure:"syslog_address"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

type MetricsConfig struct {
	Textfile string `toml:"textfile" mapstructure:"textfile"`
}

// Default returns the built-in configuration. Thresholds default to
// zero: always update, and treat every failed update as reportable,
// matching the historical behavior when the flags are absent.
func Default() Config {
	return Config{
		StateFile:      "/var/lib/caupdater/lastrun.json",
		PackageManager: "yum",
	}
}

// Load reads a TOML config file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the scheduler cannot act on.
func (c Config) Validate() error {
	if c.MinimumAgeHours < 0 {
		return fmt.Errorf("minimum_age_hours must be non-negative, got %g", c.MinimumAgeHours)
	}
	if c.MaximumAgeHours < 0 {
		return fmt.Errorf("maximum_age_hours must be non-negative, got %g", c.MaximumAgeHours)
	}
	if c.RandomWaitMinutes < 0 {
		return fmt.Errorf("random_wait_minutes must be non-negative, got %g", c.RandomWaitMinutes)
	}
	if c.StateFile == "" {
		return fmt.Errorf("state_file must not be empty")
	}
	return nil
}
