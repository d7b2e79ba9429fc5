package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vitos/bybit_trade_journal/internal/domain"
)

const (
	mainnetREST = "https://api.bybit.com"
	testnetREST = "https://api-testnet.bybit.com"
	mainnetWS   = "wss://stream.bybit.com/v5/private"
	testnetWS   = "wss://stream-testnet.bybit.com/v5/private"

	dateLayout = "2006-01-02"

	// The exchange serves at most two years of history.
	maxHistoryDays = 730

	defaultStartBack = 7 * 24 * time.Hour
)

type Config struct {
	Bybit struct {
		APIKey       string `yaml:"api_key"`
		APISecret    string `yaml:"api_secret"`
		UseTestnet   bool   `yaml:"use_testnet"`
		RESTEndpoint string `yaml:"rest_endpoint"`
		WSEndpoint   string `yaml:"ws_endpoint"`
	} `yaml:"bybit"`
	Sync struct {
		SpotStartDate     string `yaml:"spot_start_date"`     // YYYY-MM-DD
		FuturesStartDate  string `yaml:"futures_start_date"`  // YYYY-MM-DD
		TransferStartDate string `yaml:"transfer_start_date"` // YYYY-MM-DD
		WalletDaysBack    int    `yaml:"wallet_days_back"`
		CallDelayMs       int    `yaml:"call_delay_ms"`
	} `yaml:"sync"`
	Output struct {
		Dir    string `yaml:"dir"`
		DBPath string `yaml:"db_path"`
	} `yaml:"output"`
	Logging struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
	} `yaml:"logging"`
}

// Load reads the yaml config and overlays API credentials from the
// environment (.env is loaded if present, missing is fine).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if v := os.Getenv("BYBIT_API_KEY"); v != "" {
		cfg.Bybit.APIKey = v
	}
	if v := os.Getenv("BYBIT_API_SECRET"); v != "" {
		cfg.Bybit.APISecret = v
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Bybit.RESTEndpoint == "" {
		if c.Bybit.UseTestnet {
			c.Bybit.RESTEndpoint = testnetREST
		} else {
			c.Bybit.RESTEndpoint = mainnetREST
		}
	}
	if c.Bybit.WSEndpoint == "" {
		if c.Bybit.UseTestnet {
			c.Bybit.WSEndpoint = testnetWS
		} else {
			c.Bybit.WSEndpoint = mainnetWS
		}
	}
	if c.Sync.WalletDaysBack <= 0 {
		c.Sync.WalletDaysBack = 365
	}
	if c.Sync.CallDelayMs <= 0 {
		c.Sync.CallDelayMs = 200
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "report"
	}
	if c.Output.DBPath == "" {
		c.Output.DBPath = "journal.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate collects all configuration errors; any error aborts the run
// before the first fetch.
func (c *Config) Validate() error {
	var errs []string

	if c.Bybit.APIKey == "" {
		errs = append(errs, "BYBIT_API_KEY is required")
	}
	if c.Bybit.APISecret == "" {
		errs = append(errs, "BYBIT_API_SECRET is required")
	}
	// Start dates are deliberately not validated here: an unparseable date
	// falls back to a default range at fetch time instead of aborting.

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// CallDelay is the fixed minimum delay between retrieval calls.
func (c *Config) CallDelay() time.Duration {
	return time.Duration(c.Sync.CallDelayMs) * time.Millisecond
}

// RangeFrom builds the fetch range for a configured start date. An empty or
// unparseable date falls back to the last seven days; ranges longer than the
// exchange's two-year history limit are capped.
func RangeFrom(startDate string, now time.Time) (domain.TimeRange, bool) {
	start, err := time.Parse(dateLayout, startDate)
	ok := err == nil && startDate != ""
	if !ok {
		start = now.Add(-defaultStartBack)
	}
	if now.Sub(start) > maxHistoryDays*24*time.Hour {
		start = now.Add(-maxHistoryDays * 24 * time.Hour)
	}
	return domain.TimeRange{Start: start, End: now}, ok
}
