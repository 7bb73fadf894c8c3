package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SPIKEWATCH_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SPIKEWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Detector ──
	setFloat64(&cfg.Detector.MinVolumeSpike, "SPIKEWATCH_DETECTOR_MIN_VOLUME_SPIKE")
	setFloat64(&cfg.Detector.LargeTradeThreshold, "SPIKEWATCH_DETECTOR_LARGE_TRADE_THRESHOLD")
	setDuration(&cfg.Detector.Cooldown, "SPIKEWATCH_DETECTOR_COOLDOWN")

	// ── Market ──
	setStr(&cfg.Market.Timezone, "SPIKEWATCH_MARKET_TIMEZONE")
	setStr(&cfg.Market.WindowStart, "SPIKEWATCH_MARKET_WINDOW_START")
	setStr(&cfg.Market.WindowEnd, "SPIKEWATCH_MARKET_WINDOW_END")

	// ── Feed ──
	setStr(&cfg.Feed.WSURL, "SPIKEWATCH_FEED_WS_URL")
	setStringSlice(&cfg.Feed.Symbols, "SPIKEWATCH_FEED_SYMBOLS")
	setInt(&cfg.Feed.MaxReconnectRetries, "SPIKEWATCH_FEED_MAX_RECONNECT_RETRIES")
	setDuration(&cfg.Feed.ReconnectDelay, "SPIKEWATCH_FEED_RECONNECT_DELAY")

	// ── Fyers ──
	setStr(&cfg.Fyers.ClientID, "SPIKEWATCH_FYERS_CLIENT_ID")
	setStr(&cfg.Fyers.SecretKey, "SPIKEWATCH_FYERS_SECRET_KEY")
	setStr(&cfg.Fyers.RedirectURI, "SPIKEWATCH_FYERS_REDIRECT_URI")
	setStr(&cfg.Fyers.TOTPSecret, "SPIKEWATCH_FYERS_TOTP_SECRET")
	setStr(&cfg.Fyers.PIN, "SPIKEWATCH_FYERS_PIN")

	// ── Supervisor ──
	setDuration(&cfg.Supervisor.PollInterval, "SPIKEWATCH_SUPERVISOR_POLL_INTERVAL")
	setDuration(&cfg.Supervisor.CommandInterval, "SPIKEWATCH_SUPERVISOR_COMMAND_INTERVAL")
	setDuration(&cfg.Supervisor.AuthCheckInterval, "SPIKEWATCH_SUPERVISOR_AUTH_CHECK_INTERVAL")
	setDuration(&cfg.Supervisor.HeartbeatInterval, "SPIKEWATCH_SUPERVISOR_HEARTBEAT_INTERVAL")

	// ── Telegram ──
	setStr(&cfg.Telegram.BotToken, "SPIKEWATCH_TELEGRAM_BOT_TOKEN")
	setInt64(&cfg.Telegram.ChatID, "SPIKEWATCH_TELEGRAM_CHAT_ID")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SPIKEWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SPIKEWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SPIKEWATCH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SPIKEWATCH_NOTIFY_EVENTS")
	setInt(&cfg.Notify.SummaryTopN, "SPIKEWATCH_NOTIFY_SUMMARY_TOP_N")
	setDuration(&cfg.Notify.SummaryResendInterval, "SPIKEWATCH_NOTIFY_SUMMARY_RESEND_INTERVAL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "SPIKEWATCH_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SPIKEWATCH_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SPIKEWATCH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SPIKEWATCH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SPIKEWATCH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SPIKEWATCH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SPIKEWATCH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SPIKEWATCH_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SPIKEWATCH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SPIKEWATCH_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SPIKEWATCH_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SPIKEWATCH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SPIKEWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SPIKEWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SPIKEWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SPIKEWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SPIKEWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SPIKEWATCH_REDIS_TLS_ENABLED")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SPIKEWATCH_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SPIKEWATCH_SERVER_PORT")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "SPIKEWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
