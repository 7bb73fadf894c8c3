// Package config defines the top-level configuration for the spike
// watcher and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SPIKEWATCH_* environment variables.
type Config struct {
	Detector   DetectorConfig   `toml:"detector"`
	Market     MarketConfig     `toml:"market"`
	Feed       FeedConfig       `toml:"feed"`
	Fyers      FyersConfig      `toml:"fyers"`
	Supervisor SupervisorConfig `toml:"supervisor"`
	Telegram   TelegramConfig   `toml:"telegram"`
	Notify     NotifyConfig     `toml:"notify"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	Server     ServerConfig     `toml:"server"`
	LogLevel   string           `toml:"log_level"`
}

// DetectorConfig holds the spike detection thresholds.
type DetectorConfig struct {
	// MinVolumeSpike is the cumulative volume delta a tick must exceed.
	MinVolumeSpike float64 `toml:"min_volume_spike"`
	// LargeTradeThreshold is the minimum delta*price trade value, in rupees.
	LargeTradeThreshold float64 `toml:"large_trade_threshold"`
	// Cooldown suppresses repeat alerts per symbol.
	Cooldown duration `toml:"cooldown"`
}

// MarketConfig holds the trading session bounds.
type MarketConfig struct {
	Timezone    string `toml:"timezone"`
	WindowStart string `toml:"window_start"` // "HH:MM", inclusive
	WindowEnd   string `toml:"window_end"`   // "HH:MM", exclusive
}

// FeedConfig holds the data-socket parameters.
type FeedConfig struct {
	WSURL string `toml:"ws_url"`
	// Symbols is the watchlist subscribed as one batch. Empty means the
	// built-in NSE watchlist.
	Symbols             []string `toml:"symbols"`
	MaxReconnectRetries int      `toml:"max_reconnect_retries"`
	ReconnectDelay      duration `toml:"reconnect_delay"`
}

// FyersConfig holds the broker credentials for the TOTP login flow.
type FyersConfig struct {
	ClientID    string `toml:"client_id"`
	SecretKey   string `toml:"secret_key"`
	RedirectURI string `toml:"redirect_uri"`
	TOTPSecret  string `toml:"totp_secret"`
	PIN         string `toml:"pin"`
}

// SupervisorConfig holds the lifecycle cadences.
type SupervisorConfig struct {
	PollInterval      duration `toml:"poll_interval"`
	CommandInterval   duration `toml:"command_interval"`
	AuthCheckInterval duration `toml:"auth_check_interval"`
	HeartbeatInterval duration `toml:"heartbeat_interval"`
}

// TelegramConfig holds the operator command channel.
type TelegramConfig struct {
	BotToken string `toml:"bot_token"`
	ChatID   int64  `toml:"chat_id"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	// SummaryTopN caps the daily summary length.
	SummaryTopN int `toml:"summary_top_n"`
	// SummaryResendInterval is the cadence for unacknowledged summaries.
	SummaryResendInterval duration `toml:"summary_resend_interval"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Detector: DetectorConfig{
			MinVolumeSpike:      1000,
			LargeTradeThreshold: 30_000_000,
			Cooldown:            duration{60 * time.Second},
		},
		Market: MarketConfig{
			Timezone:    "Asia/Kolkata",
			WindowStart: "09:13",
			WindowEnd:   "16:00",
		},
		Feed: FeedConfig{
			WSURL:               "wss://api-t1.fyers.in/socket/v2/dataSock",
			MaxReconnectRetries: 5,
			ReconnectDelay:      duration{2 * time.Second},
		},
		Supervisor: SupervisorConfig{
			PollInterval:      duration{5 * time.Second},
			CommandInterval:   duration{3 * time.Second},
			AuthCheckInterval: duration{time.Hour},
			HeartbeatInterval: duration{5 * time.Minute},
		},
		Notify: NotifyConfig{
			Events:                []string{"spike", "summary", "lifecycle"},
			SummaryTopN:           15,
			SummaryResendInterval: duration{5 * time.Minute},
		},
		Postgres: PostgresConfig{
			Enabled:       true,
			Host:          "localhost",
			Port:          5432,
			Database:      "spikewatch",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8000,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Detector
	if c.Detector.MinVolumeSpike <= 0 {
		errs = append(errs, "detector: min_volume_spike must be > 0")
	}
	if c.Detector.LargeTradeThreshold <= 0 {
		errs = append(errs, "detector: large_trade_threshold must be > 0")
	}
	if c.Detector.Cooldown.Duration <= 0 {
		errs = append(errs, "detector: cooldown must be > 0")
	}

	// Market
	if _, err := time.LoadLocation(c.Market.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("market: unknown timezone %q", c.Market.Timezone))
	}
	if c.Market.WindowStart == "" || c.Market.WindowEnd == "" {
		errs = append(errs, "market: window_start and window_end must be set")
	}

	// Feed
	if c.Feed.WSURL == "" {
		errs = append(errs, "feed: ws_url must not be empty")
	}
	if c.Feed.MaxReconnectRetries < 1 {
		errs = append(errs, "feed: max_reconnect_retries must be >= 1")
	}

	// Fyers: the full credential set is required to log in.
	if c.Fyers.ClientID == "" {
		errs = append(errs, "fyers: client_id must not be empty")
	}
	if c.Fyers.TOTPSecret == "" {
		errs = append(errs, "fyers: totp_secret must not be empty")
	}
	if c.Fyers.PIN == "" {
		errs = append(errs, "fyers: pin must not be empty")
	}

	// Telegram: token and chat must come together, or both be empty.
	tt := c.Telegram.BotToken != ""
	tc := c.Telegram.ChatID != 0
	if tt != tc {
		errs = append(errs, "telegram: bot_token and chat_id must both be set together")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Notify
	if c.Notify.SummaryTopN < 1 {
		errs = append(errs, "notify: summary_top_n must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
