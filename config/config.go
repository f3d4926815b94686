package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/custodian/valuation"
)

// Config is the complete custodian configuration.
type Config struct {
	Ledger   LedgerConfig   `json:"ledger" yaml:"ledger"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	HTTP     HTTPConfig     `json:"http" yaml:"http"`
	Snapshot SnapshotConfig `json:"snapshot" yaml:"snapshot"`
	// Authorized lists the caller identities allowed to register price sources.
	Authorized []string `json:"authorized" yaml:"authorized"`
	// Assets seeds the price source registry at startup.
	Assets []AssetConfig `json:"assets,omitempty" yaml:"assets,omitempty"`
}

// LedgerConfig fixes the two caps and the common-unit precision. Caps are
// decimal strings in the reference currency ("1000.00"), parsed into
// common-unit integers at load.
type LedgerConfig struct {
	CustodyCap      string `json:"custody_cap" yaml:"custody_cap"`
	WithdrawalCap   string `json:"withdrawal_cap" yaml:"withdrawal_cap"`
	TargetPrecision uint32 `json:"target_precision" yaml:"target_precision"`
}

// StoreConfig selects the vault store backend.
type StoreConfig struct {
	Driver string `json:"driver" yaml:"driver"` // "memory", "sqlite3" or "postgres"
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// JournalConfig selects the operation journal backend.
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

type HTTPConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// SnapshotConfig schedules periodic accounted-total snapshots into the
// journal. Spec is a cron expression ("@hourly", "*/5 * * * *"); empty
// disables snapshots.
type SnapshotConfig struct {
	Spec string `json:"spec,omitempty" yaml:"spec,omitempty"`
}

// AssetConfig seeds one price source. Source is a source spec understood by
// the resolver, e.g. "static:1.00@8".
type AssetConfig struct {
	Asset          string `json:"asset" yaml:"asset"`
	Source         string `json:"source" yaml:"source"`
	NativeDecimals uint32 `json:"native_decimals" yaml:"native_decimals"`
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Ledger.TargetPrecision == 0 {
		return fmt.Errorf("ledger.target_precision is required")
	}
	if _, err := c.CustodyCapUnits(); err != nil {
		return fmt.Errorf("ledger.custody_cap: %w", err)
	}
	if _, err := c.WithdrawalCapUnits(); err != nil {
		return fmt.Errorf("ledger.withdrawal_cap: %w", err)
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite3", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver must be 'memory', 'sqlite3' or 'postgres'")
	}

	switch c.Journal.Type {
	case "none":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite journal")
		}
	case "csv":
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal.dir required for csv journal")
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}

	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if len(c.Authorized) == 0 {
		return fmt.Errorf("at least one authorized caller is required")
	}

	for i, a := range c.Assets {
		if a.Asset == "" {
			return fmt.Errorf("assets[%d].asset is required", i)
		}
		if !strings.HasPrefix(a.Source, "static:") {
			return fmt.Errorf("assets[%d].source: unknown source spec %q", i, a.Source)
		}
	}
	return nil
}

// CustodyCapUnits returns the custody cap as a common-unit integer.
func (c *Config) CustodyCapUnits() (*big.Int, error) {
	return valuation.ParseCommon(c.Ledger.CustodyCap, c.Ledger.TargetPrecision)
}

// WithdrawalCapUnits returns the withdrawal cap as a common-unit integer.
func (c *Config) WithdrawalCapUnits() (*big.Int, error) {
	return valuation.ParseCommon(c.Ledger.WithdrawalCap, c.Ledger.TargetPrecision)
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			CustodyCap:      "1000000.00",
			WithdrawalCap:   "50000.00",
			TargetPrecision: valuation.DefaultTargetPrecision,
		},
		Store: StoreConfig{
			Driver: "sqlite3",
			DSN:    "./custodian.db",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./journal.db",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Snapshot: SnapshotConfig{
			Spec: "@hourly",
		},
		Authorized: []string{"ops"},
	}
}
