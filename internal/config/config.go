package config

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ledgeraudit/internal/amount"
	"github.com/cleared-dev/ledgeraudit/internal/anomaly"
	"github.com/cleared-dev/ledgeraudit/internal/ledger"
)

// FileName is the config file written by `ledgeraudit init`.
const FileName = "ledgeraudit.yaml"

// maxDecimals bounds configured precision.
const maxDecimals = 12

// Config represents the top-level ledgeraudit.yaml configuration.
type Config struct {
	Ledger   LedgerConfig   `yaml:"ledger"`
	Detector DetectorConfig `yaml:"detector"`
	Report   ReportConfig   `yaml:"report"`
	Workers  int            `yaml:"workers"` // 0 = GOMAXPROCS
}

// LedgerConfig controls balance reconciliation.
type LedgerConfig struct {
	Decimals         int32            `yaml:"decimals"`
	Tolerance        decimal.Decimal  `yaml:"tolerance"`
	CurrencyDecimals map[string]int32 `yaml:"currency_decimals,omitempty"`
}

// DetectorConfig controls the anomaly heuristics.
type DetectorConfig struct {
	MADThreshold     decimal.Decimal `yaml:"mad_threshold"`
	DupWindowSeconds float64         `yaml:"dup_window_seconds"`
}

// ReportConfig controls the rendered output.
type ReportConfig struct {
	LedgerColumns string `yaml:"ledger_columns"` // accounting, full, or a JSON file path
	RawCSV        bool   `yaml:"raw_csv"`
	Timestamped   bool   `yaml:"timestamped"`
}

// ValidationError describes a single invalid setting.
type ValidationError struct {
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// Default returns a Config with the standard audit settings.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Decimals:         2,
			Tolerance:        amount.MustParse("0.005"),
			CurrencyDecimals: maps.Clone(amount.DefaultCurrencyDecimals),
		},
		Detector: DetectorConfig{
			MADThreshold:     decimal.NewFromInt(6),
			DupWindowSeconds: 60,
		},
		Report: ReportConfig{
			LedgerColumns: "accounting",
			Timestamped:   true,
		},
	}
}

// Load reads a ledgeraudit.yaml file from disk. Settings the file leaves
// out keep their defaults.
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

// Validate checks every setting and returns all problems found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Ledger.Decimals < 0 || c.Ledger.Decimals > maxDecimals {
		errs = append(errs, ValidationError{
			Field:       "ledger.decimals",
			Description: fmt.Sprintf("must be between 0 and %d, got %d", maxDecimals, c.Ledger.Decimals),
		})
	}
	if c.Ledger.Tolerance.IsNegative() {
		errs = append(errs, ValidationError{
			Field:       "ledger.tolerance",
			Description: fmt.Sprintf("must not be negative, got %s", c.Ledger.Tolerance),
		})
	}
	for cur, dps := range c.Ledger.CurrencyDecimals {
		if dps < 0 || dps > maxDecimals {
			errs = append(errs, ValidationError{
				Field:       "ledger.currency_decimals." + cur,
				Description: fmt.Sprintf("must be between 0 and %d, got %d", maxDecimals, dps),
			})
		}
	}
	if !c.Detector.MADThreshold.IsPositive() {
		errs = append(errs, ValidationError{
			Field:       "detector.mad_threshold",
			Description: fmt.Sprintf("must be positive, got %s", c.Detector.MADThreshold),
		})
	}
	if c.Detector.DupWindowSeconds < 0 {
		errs = append(errs, ValidationError{
			Field:       "detector.dup_window_seconds",
			Description: fmt.Sprintf("must not be negative, got %g", c.Detector.DupWindowSeconds),
		})
	}
	if c.Workers < 0 {
		errs = append(errs, ValidationError{
			Field:       "workers",
			Description: fmt.Sprintf("must not be negative, got %d", c.Workers),
		})
	}
	return errs
}

// Err joins the validation problems into one error, or returns nil.
func (c *Config) Err() error {
	verrs := c.Validate()
	if len(verrs) == 0 {
		return nil
	}
	errs := make([]error, len(verrs))
	for i, v := range verrs {
		errs[i] = v
	}
	return fmt.Errorf("invalid config: %w", errors.Join(errs...))
}

// LedgerOptions converts the ledger section into builder options.
func (c *Config) LedgerOptions(log *slog.Logger) ledger.Options {
	return ledger.Options{
		Decimals:         c.Ledger.Decimals,
		Tolerance:        c.Ledger.Tolerance,
		CurrencyDecimals: maps.Clone(c.Ledger.CurrencyDecimals),
		Workers:          c.Workers,
		Logger:           log,
	}
}

// DetectorOptions converts the detector section into detector options.
func (c *Config) DetectorOptions(log *slog.Logger) anomaly.Options {
	return anomaly.Options{
		MADThreshold: c.Detector.MADThreshold,
		DupWindow:    time.Duration(c.Detector.DupWindowSeconds * float64(time.Second)),
		Workers:      c.Workers,
		Logger:       log,
	}
}
