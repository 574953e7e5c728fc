package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
// It is constructed once in main and passed down explicitly — no package-level
// config state anywhere in the agent.
type Config struct {
	// Server (local shell API)
	Port int    `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"` // development | production
	// ShellAPIToken, when set, is required in the X-Agent-Token header on
	// every /v1 route. Empty disables the check (loopback deployments).
	ShellAPIToken string `mapstructure:"SHELL_API_TOKEN"`

	// POS source database
	POSType      string `mapstructure:"POS_TYPE"` // HDPOS | QUICKBILL
	SQLServerDSN string `mapstructure:"SQLSERVER_DSN"`

	// Redis (durable cursor/stats store)
	RedisURL string `mapstructure:"REDIS_URL"`

	// Remote receipt ledger
	LedgerBaseURL        string `mapstructure:"LEDGER_BASE_URL"`
	LedgerAPIKey         string `mapstructure:"LEDGER_API_KEY"`
	LedgerTimeoutSeconds int    `mapstructure:"LEDGER_TIMEOUT_SECONDS"`

	// Sync behaviour
	SyncEnabled         bool   `mapstructure:"SYNC_ENABLED"`
	SyncIntervalMinutes int    `mapstructure:"SYNC_INTERVAL_MINUTES"`
	SyncBatchSize       int    `mapstructure:"SYNC_BATCH_SIZE"`
	SyncRetryAttempts   int    `mapstructure:"SYNC_RETRY_ATTEMPTS"`
	ReceiptPrefixes     string `mapstructure:"RECEIPT_PREFIXES"`    // comma-separated allow-list, e.g. "ANN/S/"
	ReceiptCutoffDate   string `mapstructure:"RECEIPT_CUTOFF_DATE"` // RFC3339; empty disables the cutoff rule
	// DateOffsetMinutes is subtracted from source timestamps before emitting
	// them as UTC instants. The POS stores local wall-clock time without zone
	// info; 330 corresponds to IST.
	DateOffsetMinutes int `mapstructure:"RECEIPT_DATE_OFFSET_MINUTES"`

	// Store identity — carried into logs and payloads, never validated here
	StoreID        string `mapstructure:"STORE_ID"`
	OrganizationID string `mapstructure:"ORGANIZATION_ID"`
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Sensible defaults for development
	viper.SetDefault("PORT", 8321)
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("POS_TYPE", "HDPOS")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("LEDGER_TIMEOUT_SECONDS", 30)
	viper.SetDefault("SYNC_ENABLED", true)
	viper.SetDefault("SYNC_INTERVAL_MINUTES", 5)
	viper.SetDefault("SYNC_BATCH_SIZE", 50)
	viper.SetDefault("SYNC_RETRY_ATTEMPTS", 3)
	viper.SetDefault("RECEIPT_DATE_OFFSET_MINUTES", 330)

	// Optional .env file for local development — does not fail if missing
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate collects every missing required value instead of failing on the
// first one, so a fresh install surfaces the whole checklist at once.
func (c *Config) Validate() error {
	var missing []string
	if c.SQLServerDSN == "" {
		missing = append(missing, "SQLSERVER_DSN")
	}
	if c.LedgerBaseURL == "" {
		missing = append(missing, "LEDGER_BASE_URL")
	}
	if c.LedgerAPIKey == "" {
		missing = append(missing, "LEDGER_API_KEY")
	}
	switch strings.ToUpper(c.POSType) {
	case "HDPOS", "QUICKBILL":
	default:
		return fmt.Errorf("POS_TYPE must be HDPOS or QUICKBILL, got %q", c.POSType)
	}
	if c.ReceiptCutoffDate != "" {
		if _, err := time.Parse(time.RFC3339, c.ReceiptCutoffDate); err != nil {
			return fmt.Errorf("RECEIPT_CUTOFF_DATE is not RFC3339: %w", err)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// PrefixList splits the configured receipt prefix allow-list.
// An empty list means the prefix rule accepts everything.
func (c *Config) PrefixList() []string {
	if c.ReceiptPrefixes == "" {
		return nil
	}
	parts := strings.Split(c.ReceiptPrefixes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CutoffDate returns the parsed cutoff instant, or zero time when disabled.
// Validate has already checked the format.
func (c *Config) CutoffDate() time.Time {
	if c.ReceiptCutoffDate == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, c.ReceiptCutoffDate)
	return t
}

// LedgerTimeout returns the per-request HTTP timeout for ledger calls.
func (c *Config) LedgerTimeout() time.Duration {
	return time.Duration(c.LedgerTimeoutSeconds) * time.Second
}
