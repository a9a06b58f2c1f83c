// Package config reads and writes depositmatch.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/depositmatch/internal/ledger"
)

// FileName is the project configuration file.
const FileName = "depositmatch.yaml"

// Config represents the top-level depositmatch.yaml configuration.
type Config struct {
	Business     BusinessConfig `yaml:"business"`
	BankAccounts []BankAccount  `yaml:"bank_accounts,omitempty"`
	Ledger       LedgerConfig   `yaml:"ledger"`
	Matching     MatchingConfig `yaml:"matching"`
	Store        StoreConfig    `yaml:"store"`
	Vision       VisionConfig   `yaml:"vision"`
	Logging      LoggingConfig  `yaml:"logging"`
}

// BusinessConfig identifies the business receiving deposits.
type BusinessConfig struct {
	Name string `yaml:"name"`
}

// BankAccount is an account receipts may be deposited into.
type BankAccount struct {
	Name   string `yaml:"name"`
	Number string `yaml:"number"`
}

// LedgerConfig controls statement ingestion.
type LedgerConfig struct {
	HeaderKeywords       []string `yaml:"header_keywords"`
	MinHeaderMatches     int      `yaml:"min_header_matches"`
	FallbackHeaderRow    int      `yaml:"fallback_header_row"` // 1-based, 0 disables
	DescriptionMinLength int      `yaml:"description_min_length"`
	SnapshotDir          string   `yaml:"snapshot_dir"`
	ImportDir            string   `yaml:"import_dir"`
}

// MatchingConfig controls the receipt matcher.
type MatchingConfig struct {
	AmountTolerance string `yaml:"amount_tolerance"`
}

// StoreConfig locates the receipt workflow database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// VisionConfig selects the receipt scanning service.
type VisionConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	Timeout   string `yaml:"timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Load reads a depositmatch.yaml file from disk. Missing sections keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
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

// Default returns a Config with sensible defaults for a new project.
func Default(businessName string) *Config {
	opts := ledger.DefaultOptions()
	return &Config{
		Business: BusinessConfig{Name: businessName},
		Ledger: LedgerConfig{
			HeaderKeywords:       append([]string(nil), opts.HeaderKeywords...),
			MinHeaderMatches:     opts.MinHeaderMatches,
			FallbackHeaderRow:    opts.FallbackHeaderRow,
			DescriptionMinLength: opts.DescriptionMinLength,
			SnapshotDir:          "ledger",
			ImportDir:            "import",
		},
		Matching: MatchingConfig{AmountTolerance: "0.01"},
		Store:    StoreConfig{Path: "depositmatch.db"},
		Vision: VisionConfig{
			Provider:  "gemini",
			Model:     "gemini-1.5-flash",
			APIKeyEnv: "GEMINI_API_KEY",
			Timeout:   "60s",
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// ExtractorOptions returns the ledger detection settings.
func (c *Config) ExtractorOptions() ledger.ExtractorOptions {
	return ledger.ExtractorOptions{
		HeaderKeywords:       c.Ledger.HeaderKeywords,
		MinHeaderMatches:     c.Ledger.MinHeaderMatches,
		FallbackHeaderRow:    c.Ledger.FallbackHeaderRow,
		DescriptionMinLength: c.Ledger.DescriptionMinLength,
	}
}

// Tolerance parses the matching amount tolerance.
func (c *Config) Tolerance() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Matching.AmountTolerance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount_tolerance %q: %w", c.Matching.AmountTolerance, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount_tolerance must be positive, got %s", d)
	}
	return d, nil
}

// VisionTimeout parses the per-call vision timeout.
func (c *Config) VisionTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Vision.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parsing vision timeout %q: %w", c.Vision.Timeout, err)
	}
	return d, nil
}

// Resolve returns p relative to the project root unless it is absolute.
func Resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// KnowsAccount reports whether number is a configured bank account. Any
// number is accepted when no accounts are configured.
func (c *Config) KnowsAccount(number string) bool {
	if len(c.BankAccounts) == 0 || number == "" {
		return true
	}
	for _, a := range c.BankAccounts {
		if a.Number == number {
			return true
		}
	}
	return false
}
