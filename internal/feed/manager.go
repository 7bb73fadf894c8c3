package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"spikewatch/internal/domain"
	"spikewatch/internal/platform/fyers"
)

// Connection states reported by the manager.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateSubscribed   = "subscribed"
)

// streamConn is the slice of the websocket client the manager drives.
type streamConn interface {
	OnMessage(fyers.MessageHandler)
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string) error
	Err() <-chan error
	Close() error
}

// TickHandler receives every normalized tick from the stream.
type TickHandler func(domain.Tick)

// ManagerConfig configures one stream session.
type ManagerConfig struct {
	WSURL          string
	Symbols        []string
	MaxRetries     int
	ReconnectDelay time.Duration
}

// Manager owns the websocket connection for one trading session. It
// connects, subscribes the full symbol batch, and pumps frames through
// the ingestor to the tick handler. A dropped connection is retried with
// a fixed short delay; a successful connect resets the retry budget.
// After MaxRetries consecutive failures the manager gives up and returns
// ErrRetriesExhausted, leaving the escalation decision to the caller.
type Manager struct {
	cfg      ManagerConfig
	ingestor *Ingestor
	onTick   TickHandler
	logger   *slog.Logger

	state atomic.Value // string

	// newConn is swapped out in tests.
	newConn func(streamToken string) streamConn
}

// NewManager creates a connection manager.
func NewManager(cfg ManagerConfig, ingestor *Ingestor, onTick TickHandler, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		ingestor: ingestor,
		onTick:   onTick,
		logger:   logger.With(slog.String("component", "feed_manager")),
		newConn: func(streamToken string) streamConn {
			return fyers.NewWSClient(cfg.WSURL, streamToken)
		},
	}
	m.state.Store(StateDisconnected)
	return m
}

// State returns the current connection state.
func (m *Manager) State() string {
	return m.state.Load().(string)
}

// Run drives the connection until the context is cancelled or the retry
// budget is spent. streamToken is the "clientID:token" credential for
// the data socket. Returns ctx.Err() on cancellation and
// domain.ErrRetriesExhausted when MaxRetries consecutive connect or read
// failures occur.
func (m *Manager) Run(ctx context.Context, streamToken string) error {
	defer m.state.Store(StateDisconnected)

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		subscribed, err := m.runConnection(ctx, streamToken)
		if subscribed {
			attempts = 0
		}
		if err == nil {
			// Clean shutdown via context.
			return ctx.Err()
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		attempts++
		m.logger.Warn("stream connection lost",
			slog.String("error", err.Error()),
			slog.Int("attempt", attempts),
			slog.Int("max_retries", m.cfg.MaxRetries),
		)
		if attempts >= m.cfg.MaxRetries {
			return fmt.Errorf("feed: %d consecutive failures: %w", attempts, domain.ErrRetriesExhausted)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.cfg.ReconnectDelay):
		}
	}
}

// runConnection performs one connect-subscribe-read cycle. subscribed
// reports whether the session reached the subscribed state; the error is
// nil only when the context ended while the connection was healthy.
func (m *Manager) runConnection(ctx context.Context, streamToken string) (bool, error) {
	m.state.Store(StateConnecting)

	conn := m.newConn(streamToken)
	conn.OnMessage(func(raw []byte) {
		if tick, ok := m.ingestor.Normalize(raw); ok {
			m.onTick(tick)
		}
	})

	if err := conn.Connect(ctx); err != nil {
		conn.Close()
		return false, err
	}
	if err := conn.Subscribe(ctx, m.cfg.Symbols); err != nil {
		conn.Close()
		return false, err
	}

	m.state.Store(StateSubscribed)
	m.logger.Info("subscribed to stream", slog.Int("symbols", len(m.cfg.Symbols)))

	defer conn.Close()
	select {
	case <-ctx.Done():
		return true, nil
	case err := <-conn.Err():
		m.state.Store(StateConnecting)
		return true, err
	}
}
