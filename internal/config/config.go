package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string   `mapstructure:"PORT"`
	Env             string   `mapstructure:"ENV"`
	DatabaseURL     string   `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
	ChatWebhookURL  string   `mapstructure:"CHAT_WEBHOOK_URL"`
	AlertEmailTo    string   `mapstructure:"ALERT_EMAIL_TO"`
	AlertEmailFrom  string   `mapstructure:"ALERT_EMAIL_FROM"`
	SMTPAddr        string   `mapstructure:"SMTP_ADDR"`
	DedupeTTLDays   int      `mapstructure:"DEDUPE_TTL_DAYS"`
	PollIntervalMS  int      `mapstructure:"POLL_INTERVAL_MS"`
	PollBatchSize   int      `mapstructure:"POLL_BATCH_SIZE"`
	NotifyTimeoutMS int      `mapstructure:"NOTIFY_TIMEOUT_MS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("DEDUPE_TTL_DAYS", 30)
	v.SetDefault("POLL_INTERVAL_MS", 2000)
	v.SetDefault("POLL_BATCH_SIZE", 100)
	v.SetDefault("NOTIFY_TIMEOUT_MS", 5000)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("CHAT_WEBHOOK_URL")
	v.BindEnv("ALERT_EMAIL_TO")
	v.BindEnv("ALERT_EMAIL_FROM")
	v.BindEnv("SMTP_ADDR")
	v.BindEnv("DEDUPE_TTL_DAYS")
	v.BindEnv("POLL_INTERVAL_MS")
	v.BindEnv("POLL_BATCH_SIZE")
	v.BindEnv("NOTIFY_TIMEOUT_MS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DedupeTTL returns the processed-event retention window as a duration.
func (c *Config) DedupeTTL() time.Duration {
	days := c.DedupeTTLDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// PollInterval returns the event listener polling interval.
func (c *Config) PollInterval() time.Duration {
	ms := c.PollIntervalMS
	if ms <= 0 {
		ms = 2000
	}
	return time.Duration(ms) * time.Millisecond
}

// NotifyTimeout returns the per-call deadline for outbound notifications.
func (c *Config) NotifyTimeout() time.Duration {
	ms := c.NotifyTimeoutMS
	if ms <= 0 {
		ms = 5000
	}
	return time.Duration(ms) * time.Millisecond
}

// Validate checks that the configuration is safe to run. Notification
// channels are optional, but a partially configured email channel is a
// misconfiguration rather than an intentionally disabled one.
func (c *Config) Validate() error {
	if c.AlertEmailTo != "" && c.SMTPAddr == "" {
		return fmt.Errorf("SMTP_ADDR is required when ALERT_EMAIL_TO is set")
	}
	if c.SMTPAddr != "" && c.AlertEmailTo == "" {
		return fmt.Errorf("ALERT_EMAIL_TO is required when SMTP_ADDR is set")
	}
	if c.DedupeTTLDays < 0 {
		return fmt.Errorf("DEDUPE_TTL_DAYS must not be negative, got %d", c.DedupeTTLDays)
	}
	return nil
}
