// Package supervisor owns the session lifecycle: authenticating with the
// broker, starting and stopping the detection run around the market
// window, reacting to operator commands, and escalating stream failures.
// The supervisor loop never terminates on its own; only context
// cancellation stops it.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"spikewatch/internal/command"
	"spikewatch/internal/domain"
)

// Phase is the supervisor lifecycle state.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseAuthenticating
	PhaseRunning
	PhaseThrottled
	PhaseStopping
)

// String returns the phase name used in logs and the health endpoint.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseRunning:
		return "running"
	case PhaseThrottled:
		return "throttled_waiting_for_window"
	case PhaseStopping:
		return "stopping"
	}
	return "unknown"
}

// Authenticator is the broker login surface the supervisor drives.
type Authenticator interface {
	Authenticate(ctx context.Context) (domain.AccessToken, error)
	Validate(ctx context.Context, tok domain.AccessToken) error
	StreamToken(tok domain.AccessToken) string
}

// Runner is one detection run: it blocks streaming ticks until the
// context ends or the stream fails terminally.
type Runner interface {
	Run(ctx context.Context, streamToken string) error
}

// CommandSource yields pending operator commands.
type CommandSource interface {
	Drain(ctx context.Context) ([]command.Command, error)
}

// SummaryControl is the slice of the summary service the supervisor
// steers with operator commands.
type SummaryControl interface {
	Request(ctx context.Context)
	Acknowledge()
}

// Notifier carries lifecycle notifications to the operator.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// StatsProvider exposes detection counters for the heartbeat.
type StatsProvider interface {
	Stats() (ticksSeen, eventsEmitted int64, symbolsTracked int)
}

// eventLifecycle is the notifier event type for session lifecycle messages.
const eventLifecycle = "lifecycle"

// tokenMaxAge is how long a broker token is trusted before a fresh login
// is forced regardless of what the profile endpoint says. Fyers tokens
// are day-scoped.
const tokenMaxAge = 24 * time.Hour

// Config tunes the supervisor cadences.
type Config struct {
	// PollInterval is how often the window and run state are re-evaluated.
	PollInterval time.Duration
	// CommandInterval is how often the command source is drained.
	CommandInterval time.Duration
	// AuthCheckInterval is how often a running session's token is revalidated.
	AuthCheckInterval time.Duration
	// HeartbeatInterval is how often a liveness line is logged.
	HeartbeatInterval time.Duration
	// Window is the market session the run is gated on.
	Window Window
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.CommandInterval <= 0 {
		c.CommandInterval = 3 * time.Second
	}
	if c.AuthCheckInterval <= 0 {
		c.AuthCheckInterval = time.Hour
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 5 * time.Minute
	}
}

// Status is a point-in-time view for the health endpoint.
type Status struct {
	Phase         string    `json:"phase"`
	ForceActive   bool      `json:"force_active"`
	Restarts      int64     `json:"restarts"`
	AuthFailures  int64     `json:"auth_failures"`
	TokenIssuedAt time.Time `json:"token_issued_at,omitempty"`
	LastRunError  string    `json:"last_run_error,omitempty"`
}

// Supervisor coordinates authentication, the detection run, operator
// commands and the market window.
type Supervisor struct {
	cfg      Config
	auth     Authenticator
	runner   Runner
	commands CommandSource
	summary  SummaryControl
	notifier Notifier
	tokens   domain.TokenCache
	stats    StatsProvider
	logger   *slog.Logger
	now      func() time.Time

	phase atomic.Int32

	mu           sync.Mutex
	token        *domain.AccessToken
	force        bool
	windowClosed bool // the current run is being stopped because the window closed
	runCancel    context.CancelFunc
	lastRunErr   error

	restarts     atomic.Int64
	authFailures atomic.Int64

	runDone chan error
}

// New creates a Supervisor. tokens and stats may be nil.
func New(cfg Config, auth Authenticator, runner Runner, commands CommandSource,
	summary SummaryControl, notifier Notifier, tokens domain.TokenCache,
	stats StatsProvider, logger *slog.Logger) *Supervisor {

	cfg.applyDefaults()
	return &Supervisor{
		cfg:      cfg,
		auth:     auth,
		runner:   runner,
		commands: commands,
		summary:  summary,
		notifier: notifier,
		tokens:   tokens,
		stats:    stats,
		logger:   logger.With(slog.String("component", "supervisor")),
		now:      time.Now,
		runDone:  make(chan error, 1),
	}
}

// Phase returns the current lifecycle phase.
func (s *Supervisor) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *Supervisor) setPhase(p Phase) {
	old := Phase(s.phase.Swap(int32(p)))
	if old != p {
		s.logger.Info("phase change",
			slog.String("from", old.String()),
			slog.String("to", p.String()),
		)
	}
}

// Status returns a snapshot for the health endpoint.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Phase:        s.Phase().String(),
		ForceActive:  s.force,
		Restarts:     s.restarts.Load(),
		AuthFailures: s.authFailures.Load(),
	}
	if s.token != nil {
		st.TokenIssuedAt = s.token.IssuedAt
	}
	if s.lastRunErr != nil {
		st.LastRunError = s.lastRunErr.Error()
	}
	return st
}

// Run drives the lifecycle until ctx is cancelled. Every iteration is
// wrapped in a recover so a panic in a handler cannot kill the loop.
func (s *Supervisor) Run(ctx context.Context) error {
	s.setPhase(PhaseIdle)

	pollTicker := time.NewTicker(s.cfg.PollInterval)
	defer pollTicker.Stop()
	cmdTicker := time.NewTicker(s.cfg.CommandInterval)
	defer cmdTicker.Stop()
	authTicker := time.NewTicker(s.cfg.AuthCheckInterval)
	defer authTicker.Stop()
	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	// Evaluate immediately instead of waiting a full poll interval.
	s.safely(func() { s.poll(ctx) })

	for {
		select {
		case <-ctx.Done():
			s.stopRun()
			s.drainRunExit()
			return ctx.Err()
		case <-pollTicker.C:
			s.safely(func() { s.poll(ctx) })
		case <-cmdTicker.C:
			s.safely(func() { s.drainCommands(ctx) })
		case <-authTicker.C:
			s.safely(func() { s.recheckAuth(ctx) })
		case <-heartbeat.C:
			s.safely(func() { s.logHeartbeat() })
		case err := <-s.runDone:
			s.safely(func() { s.onRunExit(ctx, err) })
		}
	}
}

// safely runs fn, logging a panic instead of letting it unwind the loop.
func (s *Supervisor) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("supervisor handler panicked", slog.Any("panic", r))
		}
	}()
	fn()
}

// poll re-evaluates the window and starts or stops the run accordingly.
func (s *Supervisor) poll(ctx context.Context) {
	now := s.now()
	inWindow := s.cfg.Window.Contains(now)

	s.mu.Lock()
	force := s.force
	s.mu.Unlock()

	switch s.Phase() {
	case PhaseRunning:
		if !inWindow && !force {
			s.logger.Info("market window closed, stopping run")
			s.mu.Lock()
			s.windowClosed = true
			s.mu.Unlock()
			s.setPhase(PhaseStopping)
			s.stopRun()
		}
	case PhaseIdle, PhaseThrottled:
		if inWindow || force {
			s.startRun(ctx, force)
		} else if s.Phase() == PhaseIdle {
			s.setPhase(PhaseThrottled)
			s.logger.Info("outside market window",
				slog.Time("next_open", s.cfg.Window.NextOpen(now)),
			)
		}
	}
}

// startRun authenticates if needed and launches the runner goroutine.
func (s *Supervisor) startRun(ctx context.Context, forced bool) {
	s.setPhase(PhaseAuthenticating)

	tok, err := s.ensureToken(ctx)
	if err != nil {
		s.authFailures.Add(1)
		s.logger.Error("authentication failed, will retry",
			slog.String("error", err.Error()),
			slog.Int64("failures", s.authFailures.Load()),
		)
		s.setPhase(PhaseIdle)
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.runCancel = cancel
	s.windowClosed = false
	s.mu.Unlock()

	streamToken := s.auth.StreamToken(tok)
	s.setPhase(PhaseRunning)
	s.logger.Info("detection run started", slog.Bool("forced", forced))

	go func() {
		s.runDone <- s.runner.Run(runCtx, streamToken)
	}()
}

// ensureToken returns a valid access token, reusing the cached one when
// the broker still accepts it.
func (s *Supervisor) ensureToken(ctx context.Context) (domain.AccessToken, error) {
	s.mu.Lock()
	cached := s.token
	s.mu.Unlock()

	if cached != nil {
		err := s.checkToken(ctx, *cached)
		if err == nil {
			return *cached, nil
		}
		s.logger.Warn("held token rejected, re-authenticating",
			slog.String("reason", err.Error()))
		s.clearToken(ctx)
	}

	if s.tokens != nil {
		tok, err := s.tokens.Load(ctx)
		switch {
		case err == nil:
			checkErr := s.checkToken(ctx, tok)
			if checkErr == nil {
				s.logger.Info("reusing cached token", slog.Time("issued_at", tok.IssuedAt))
				s.setToken(tok)
				return tok, nil
			}
			s.logger.Info("cached token rejected",
				slog.String("reason", checkErr.Error()))
			_ = s.tokens.Clear(ctx)
		case !errors.Is(err, domain.ErrNotFound):
			s.logger.Warn("token cache unavailable", slog.String("error", err.Error()))
		}
	}

	tok, err := s.auth.Authenticate(ctx)
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("supervisor: authenticate: %w", err)
	}
	s.setToken(tok)
	if s.tokens != nil {
		if err := s.tokens.Save(ctx, tok); err != nil {
			s.logger.Warn("token cache save failed", slog.String("error", err.Error()))
		}
	}
	s.notifyLifecycle(ctx, "Logged In", "Fresh broker session established.")
	return tok, nil
}

// checkToken reports why a token cannot be used: domain.ErrTokenExpired
// when it is older than tokenMaxAge, otherwise whatever the broker's
// profile endpoint says. nil means the token is serviceable.
func (s *Supervisor) checkToken(ctx context.Context, tok domain.AccessToken) error {
	if s.now().Sub(tok.IssuedAt) > tokenMaxAge {
		return domain.ErrTokenExpired
	}
	return s.auth.Validate(ctx, tok)
}

func (s *Supervisor) setToken(tok domain.AccessToken) {
	s.mu.Lock()
	s.token = &tok
	s.mu.Unlock()
}

func (s *Supervisor) clearToken(ctx context.Context) {
	s.mu.Lock()
	s.token = nil
	s.mu.Unlock()
	if s.tokens != nil {
		_ = s.tokens.Clear(ctx)
	}
}

// stopRun cancels the runner context if a run is active.
func (s *Supervisor) stopRun() {
	s.mu.Lock()
	cancel := s.runCancel
	s.runCancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// drainRunExit consumes a pending run exit during shutdown.
func (s *Supervisor) drainRunExit() {
	select {
	case <-s.runDone:
	default:
	}
}

// onRunExit handles the runner goroutine finishing for any reason.
func (s *Supervisor) onRunExit(ctx context.Context, err error) {
	s.stopRun()

	s.mu.Lock()
	windowClosed := s.windowClosed
	s.windowClosed = false
	s.force = false
	s.lastRunErr = err
	s.mu.Unlock()

	switch {
	case err == nil || errors.Is(err, context.Canceled):
		s.logger.Info("detection run stopped")
	case errors.Is(err, domain.ErrRetriesExhausted):
		s.logger.Error("stream retries exhausted, clearing session")
		// A dead stream after repeated reconnects usually means the
		// token went bad; force a fresh login on the next start.
		s.clearToken(ctx)
		s.restarts.Add(1)
		s.notifyLifecycle(ctx, "Stream Exhausted",
			"Reconnect budget spent; will re-authenticate and resume on the next poll.")
	default:
		s.logger.Error("detection run failed", slog.String("error", err.Error()))
		s.restarts.Add(1)
	}

	s.setPhase(PhaseIdle)

	if windowClosed && s.summary != nil {
		s.summary.Request(ctx)
	}
}

// drainCommands fetches and applies pending operator commands.
func (s *Supervisor) drainCommands(ctx context.Context) {
	if s.commands == nil {
		return
	}
	cmds, err := s.commands.Drain(ctx)
	if err != nil {
		s.logger.Warn("command drain failed", slog.String("error", err.Error()))
	}
	for _, cmd := range cmds {
		s.apply(ctx, cmd)
	}
}

func (s *Supervisor) apply(ctx context.Context, cmd command.Command) {
	switch cmd.Kind {
	case command.Force:
		s.mu.Lock()
		s.force = true
		s.mu.Unlock()
		s.logger.Info("force start requested")
		s.poll(ctx)
	case command.Restart:
		s.logger.Info("restart requested")
		s.restarts.Add(1)
		if s.Phase() == PhaseRunning {
			// The run exit handler brings the next poll back up inside
			// the window without a fresh login.
			s.setPhase(PhaseStopping)
			s.stopRun()
		}
	case command.SendSummary:
		if s.summary != nil {
			s.summary.Request(ctx)
		}
	case command.SummaryDone:
		if s.summary != nil {
			s.summary.Acknowledge()
		}
	}
}

// recheckAuth revalidates the held token while a run is active. A
// rejected token stops the run; the next poll re-authenticates.
func (s *Supervisor) recheckAuth(ctx context.Context) {
	if s.Phase() != PhaseRunning {
		return
	}
	s.mu.Lock()
	tok := s.token
	s.mu.Unlock()
	if tok == nil {
		return
	}

	err := s.auth.Validate(ctx, *tok)
	if err == nil {
		s.logger.Debug("token still valid")
		return
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		s.logger.Warn("token rejected mid-session, restarting run")
		s.clearToken(ctx)
		s.setPhase(PhaseStopping)
		s.stopRun()
		return
	}
	s.logger.Warn("token validation inconclusive", slog.String("error", err.Error()))
}

func (s *Supervisor) logHeartbeat() {
	attrs := []any{
		slog.String("phase", s.Phase().String()),
		slog.Int64("restarts", s.restarts.Load()),
	}
	if s.stats != nil {
		ticks, events, symbols := s.stats.Stats()
		attrs = append(attrs,
			slog.Int64("ticks_seen", ticks),
			slog.Int64("spikes_emitted", events),
			slog.Int("symbols_tracked", symbols),
		)
	}
	s.logger.Info("heartbeat", attrs...)
}

func (s *Supervisor) notifyLifecycle(ctx context.Context, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, eventLifecycle, title, message); err != nil {
		s.logger.Warn("lifecycle notification failed", slog.String("error", err.Error()))
	}
}
