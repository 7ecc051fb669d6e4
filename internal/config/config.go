package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teller-ledger/teller/internal/id"
	"github.com/teller-ledger/teller/internal/ledgerfile"
)

// DefaultPath is the config file looked up when no --config flag is given.
const DefaultPath = "teller.yaml"

// Environment variables that override the config file.
const (
	EnvLedgerPath   = "TELLER_LEDGER_PATH"
	EnvLedgerFormat = "TELLER_LEDGER_FORMAT"
	EnvLogLevel     = "TELLER_LOG_LEVEL"
	EnvLogOutput    = "TELLER_LOG_OUTPUT"
)

// Config represents the top-level teller.yaml configuration.
type Config struct {
	Ledger   LedgerConfig   `yaml:"ledger"`
	Accounts AccountsConfig `yaml:"accounts"`
	Log      LogConfig      `yaml:"log"`
}

// LedgerConfig locates the persisted ledger.
type LedgerConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // "tagged" or "legacy"
}

// AccountsConfig controls account number allocation.
type AccountsConfig struct {
	FirstNumber int `yaml:"first_number"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads a teller.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Resolve loads path if it exists (defaults otherwise), then applies a .env
// file from envFile (or ./.env when empty, if present) and the TELLER_*
// environment variables.
func Resolve(path, envFile string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	} else {
		// A missing .env is fine.
		_ = godotenv.Load()
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
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

// Default returns a Config with sensible defaults for a new ledger.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Path:   "bank_users.txt",
			Format: ledgerfile.FormatTagged,
		},
		Accounts: AccountsConfig{
			FirstNumber: id.DefaultFirstAccountNumber,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Ledger.Path == "" {
		return errors.New("config: ledger.path is empty")
	}
	if ledgerfile.DefaultRegistry().Get(c.Ledger.Format) == nil {
		return fmt.Errorf("config: unknown ledger.format %q (want one of %s)",
			c.Ledger.Format, strings.Join(ledgerfile.DefaultRegistry().Formats(), ", "))
	}
	if c.Accounts.FirstNumber < 1 {
		return fmt.Errorf("config: accounts.first_number must be positive, got %d", c.Accounts.FirstNumber)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLedgerPath); v != "" {
		c.Ledger.Path = v
	}
	if v := os.Getenv(EnvLedgerFormat); v != "" {
		c.Ledger.Format = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogOutput); v != "" {
		c.Log.Output = v
	}
}
