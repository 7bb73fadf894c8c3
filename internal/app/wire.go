package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spikewatch/internal/alert"
	"spikewatch/internal/cache/redis"
	"spikewatch/internal/command"
	"spikewatch/internal/config"
	"spikewatch/internal/detector"
	"spikewatch/internal/domain"
	"spikewatch/internal/feed"
	"spikewatch/internal/notify"
	"spikewatch/internal/platform/fyers"
	"spikewatch/internal/sector"
	"spikewatch/internal/server"
	"spikewatch/internal/server/handler"
	"spikewatch/internal/store/postgres"
	"spikewatch/internal/summary"
	"spikewatch/internal/supervisor"
)

// sessionLockTTL bounds how long a crashed process can block a
// replacement from taking over the broker session.
const sessionLockTTL = 15 * time.Minute

// sessionRunner resets detection baselines before each run so a new
// session never inherits a previous day's volumes.
type sessionRunner struct {
	manager  *feed.Manager
	detector *detector.Detector
}

func (r sessionRunner) Run(ctx context.Context, streamToken string) error {
	r.detector.Reset()
	return r.manager.Run(ctx, streamToken)
}

// Dependencies bundles everything the run loop needs. It is constructed
// by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	AlertStore  domain.AlertStore // nil when postgres is disabled
	TokenCache  domain.TokenCache // nil when redis is disabled
	Notifier    *notify.Notifier
	Detector    *detector.Detector
	Sink        *alert.Sink
	FeedManager *feed.Manager
	Commands    supervisor.CommandSource // nil when telegram commands are not configured
	Summary     *summary.Service
	Supervisor  *supervisor.Supervisor
	Server      *server.Server // nil when the HTTP server is disabled
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.AlertStore = postgres.NewAlertStore(pgClient.Pool())
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		// One process per broker account: a duplicate data socket login
		// kicks the existing one.
		locks := redis.NewLockManager(redisClient)
		unlock, err := locks.Acquire(ctx, "session", sessionLockTTL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: session lock: %w", err)
		}
		closers = append(closers, unlock)

		deps.TokenCache = redis.NewTokenCache(redisClient)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Detection pipeline ---
	deps.Detector = detector.New(detector.Config{
		MinVolumeSpike:      cfg.Detector.MinVolumeSpike,
		LargeTradeThreshold: cfg.Detector.LargeTradeThreshold,
		Cooldown:            cfg.Detector.Cooldown.Duration,
	}, detector.NewStateStore(), logger)

	deps.Sink = alert.NewSink(deps.Notifier, deps.AlertStore, logger)

	symbols := cfg.Feed.Symbols
	if len(symbols) == 0 {
		symbols = sector.Symbols()
	}
	ingestor := feed.NewIngestor(logger)
	deps.FeedManager = feed.NewManager(feed.ManagerConfig{
		WSURL:          cfg.Feed.WSURL,
		Symbols:        symbols,
		MaxRetries:     cfg.Feed.MaxReconnectRetries,
		ReconnectDelay: cfg.Feed.ReconnectDelay.Duration,
	}, ingestor, func(tick domain.Tick) {
		if event := deps.Detector.Process(tick); event != nil {
			deps.Sink.Deliver(*event)
		}
	}, logger)
	closers = append(closers, deps.Sink.Close)

	// --- Operator commands ---
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		deps.Commands = command.NewTelegramSource(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
	}

	// --- Daily summary ---
	loc, err := time.LoadLocation(cfg.Market.Timezone)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: market timezone: %w", err)
	}
	if deps.AlertStore != nil {
		deps.Summary = summary.NewService(summary.Config{
			TopN:           cfg.Notify.SummaryTopN,
			ResendInterval: cfg.Notify.SummaryResendInterval.Duration,
			Location:       loc,
		}, deps.AlertStore, deps.Notifier, logger)
	}

	// --- Supervisor ---
	window, err := supervisor.NewWindow(cfg.Market.WindowStart, cfg.Market.WindowEnd, loc)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: market window: %w", err)
	}
	authenticator := fyers.NewAuthenticator(fyers.AuthConfig{
		ClientID:    cfg.Fyers.ClientID,
		SecretKey:   cfg.Fyers.SecretKey,
		RedirectURI: cfg.Fyers.RedirectURI,
		TOTPSecret:  cfg.Fyers.TOTPSecret,
		PIN:         cfg.Fyers.PIN,
	}, logger)

	var summaryCtl supervisor.SummaryControl
	if deps.Summary != nil {
		summaryCtl = deps.Summary
	}
	deps.Supervisor = supervisor.New(supervisor.Config{
		PollInterval:      cfg.Supervisor.PollInterval.Duration,
		CommandInterval:   cfg.Supervisor.CommandInterval.Duration,
		AuthCheckInterval: cfg.Supervisor.AuthCheckInterval.Duration,
		HeartbeatInterval: cfg.Supervisor.HeartbeatInterval.Duration,
		Window:            window,
	}, authenticator, sessionRunner{manager: deps.FeedManager, detector: deps.Detector}, deps.Commands, summaryCtl,
		deps.Notifier, deps.TokenCache, deps.Detector, logger)

	// --- HTTP server ---
	if cfg.Server.Enabled {
		health := handler.NewHealthHandler(deps.Supervisor.Status, deps.FeedManager.State, logger)
		deps.Server = server.NewServer(server.Config{Port: cfg.Server.Port}, health, logger)
	}

	return deps, cleanup, nil
}
