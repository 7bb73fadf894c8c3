package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spikewatch/internal/command"
	"spikewatch/internal/domain"
)

var (
	insideWindow  = time.Date(2025, 3, 14, 11, 0, 0, 0, time.UTC)
	outsideWindow = time.Date(2025, 3, 14, 20, 0, 0, 0, time.UTC)
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type fakeAuth struct {
	mu          sync.Mutex
	authCalls   int
	authErr     error
	validateErr error
}

func (f *fakeAuth) Authenticate(ctx context.Context) (domain.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	if f.authErr != nil {
		return domain.AccessToken{}, f.authErr
	}
	return domain.AccessToken{Token: "tok", IssuedAt: time.Now()}, nil
}

func (f *fakeAuth) Validate(ctx context.Context, tok domain.AccessToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateErr
}

func (f *fakeAuth) StreamToken(tok domain.AccessToken) string {
	return "APP-100:" + tok.Token
}

func (f *fakeAuth) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls
}

// fakeRunner blocks until the test pushes a result or the run context is
// cancelled.
type fakeRunner struct {
	started chan string
	result  chan error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{started: make(chan string, 8), result: make(chan error, 8)}
}

func (f *fakeRunner) Run(ctx context.Context, streamToken string) error {
	f.started <- streamToken
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-f.result:
		return err
	}
}

type fakeCommands struct {
	mu   sync.Mutex
	next []command.Command
}

func (f *fakeCommands) push(kind command.Kind) {
	f.mu.Lock()
	f.next = append(f.next, command.Command{Kind: kind})
	f.mu.Unlock()
}

func (f *fakeCommands) Drain(ctx context.Context) ([]command.Command, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmds := f.next
	f.next = nil
	return cmds, nil
}

type fakeSummary struct {
	mu       sync.Mutex
	requests int
	acks     int
}

func (f *fakeSummary) Request(ctx context.Context) {
	f.mu.Lock()
	f.requests++
	f.mu.Unlock()
}

func (f *fakeSummary) Acknowledge() {
	f.mu.Lock()
	f.acks++
	f.mu.Unlock()
}

func (f *fakeSummary) requested() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

type fakeTokenCache struct {
	mu     sync.Mutex
	tok    *domain.AccessToken
	clears int
}

func (f *fakeTokenCache) Save(ctx context.Context, tok domain.AccessToken) error {
	f.mu.Lock()
	f.tok = &tok
	f.mu.Unlock()
	return nil
}

func (f *fakeTokenCache) Load(ctx context.Context) (domain.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tok == nil {
		return domain.AccessToken{}, domain.ErrNotFound
	}
	return *f.tok, nil
}

func (f *fakeTokenCache) Clear(ctx context.Context) error {
	f.mu.Lock()
	f.tok = nil
	f.clears++
	f.mu.Unlock()
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (f *fakeNotifier) Notify(ctx context.Context, event, title, message string) error {
	f.mu.Lock()
	f.titles = append(f.titles, title)
	f.mu.Unlock()
	return nil
}

type harness struct {
	sup      *Supervisor
	clock    *fakeClock
	auth     *fakeAuth
	runner   *fakeRunner
	commands *fakeCommands
	summary  *fakeSummary
	tokens   *fakeTokenCache
	notifier *fakeNotifier
}

func newHarness(t *testing.T, start time.Time) *harness {
	t.Helper()

	win, err := NewWindow("09:13", "16:00", time.UTC)
	require.NoError(t, err)

	h := &harness{
		clock:    &fakeClock{t: start},
		auth:     &fakeAuth{},
		runner:   newFakeRunner(),
		commands: &fakeCommands{},
		summary:  &fakeSummary{},
		tokens:   &fakeTokenCache{},
		notifier: &fakeNotifier{},
	}
	cfg := Config{
		PollInterval:      2 * time.Millisecond,
		CommandInterval:   2 * time.Millisecond,
		AuthCheckInterval: time.Hour,
		HeartbeatInterval: time.Hour,
		Window:            win,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.sup = New(cfg, h.auth, h.runner, h.commands, h.summary, h.notifier, h.tokens, nil, logger)
	h.sup.now = h.clock.Now
	return h
}

func (h *harness) start(t *testing.T) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.sup.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("supervisor did not stop")
		}
	})
	return cancel
}

func waitStarted(t *testing.T, r *fakeRunner) string {
	t.Helper()
	select {
	case tok := <-r.started:
		return tok
	case <-time.After(time.Second):
		t.Fatal("runner did not start")
		return ""
	}
}

func TestStartsRunInsideWindow(t *testing.T) {
	h := newHarness(t, insideWindow)
	h.start(t)

	tok := waitStarted(t, h.runner)
	assert.Equal(t, "APP-100:tok", tok)
	require.Eventually(t, func() bool { return h.sup.Phase() == PhaseRunning }, time.Second, time.Millisecond)
	assert.Equal(t, 1, h.auth.calls())
}

func TestThrottledOutsideWindowAndForceStarts(t *testing.T) {
	h := newHarness(t, outsideWindow)
	h.start(t)

	require.Eventually(t, func() bool { return h.sup.Phase() == PhaseThrottled }, time.Second, time.Millisecond)

	h.commands.push(command.Force)
	waitStarted(t, h.runner)
	require.Eventually(t, func() bool { return h.sup.Phase() == PhaseRunning }, time.Second, time.Millisecond)
	assert.True(t, h.sup.Status().ForceActive)

	// Force applies to the current run only.
	h.runner.result <- nil
	require.Eventually(t, func() bool { return !h.sup.Status().ForceActive }, time.Second, time.Millisecond)
}

func TestExhaustedStreamClearsSessionAndResumes(t *testing.T) {
	h := newHarness(t, insideWindow)
	h.start(t)

	waitStarted(t, h.runner)
	h.runner.result <- domain.ErrRetriesExhausted

	// The next poll starts a fresh run with a fresh login.
	waitStarted(t, h.runner)
	require.Eventually(t, func() bool { return h.auth.calls() == 2 }, time.Second, time.Millisecond)

	st := h.sup.Status()
	assert.GreaterOrEqual(t, st.Restarts, int64(1))

	h.notifier.mu.Lock()
	defer h.notifier.mu.Unlock()
	assert.Contains(t, h.notifier.titles, "Stream Exhausted")
}

func TestLoopSurvivesFailingAuth(t *testing.T) {
	h := newHarness(t, insideWindow)
	h.auth.authErr = errors.New("broker down")
	h.start(t)

	require.Eventually(t, func() bool {
		return h.sup.Status().AuthFailures >= 3
	}, time.Second, time.Millisecond)
	assert.NotEqual(t, PhaseRunning, h.sup.Phase())
}

func TestRestartCommandRecyclesRunWithoutRelogin(t *testing.T) {
	h := newHarness(t, insideWindow)
	h.start(t)

	waitStarted(t, h.runner)
	h.commands.push(command.Restart)
	waitStarted(t, h.runner)

	// Held token is revalidated, not re-issued.
	assert.Equal(t, 1, h.auth.calls())
	assert.GreaterOrEqual(t, h.sup.Status().Restarts, int64(1))
}

func TestWindowCloseStopsRunAndSendsSummary(t *testing.T) {
	h := newHarness(t, insideWindow)
	h.start(t)

	waitStarted(t, h.runner)
	h.clock.Set(outsideWindow)

	require.Eventually(t, func() bool { return h.summary.requested() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return h.sup.Phase() == PhaseThrottled }, time.Second, time.Millisecond)
}

func TestSummaryCommands(t *testing.T) {
	h := newHarness(t, outsideWindow)
	h.start(t)

	h.commands.push(command.SendSummary)
	require.Eventually(t, func() bool { return h.summary.requested() == 1 }, time.Second, time.Millisecond)

	h.commands.push(command.SummaryDone)
	require.Eventually(t, func() bool {
		h.summary.mu.Lock()
		defer h.summary.mu.Unlock()
		return h.summary.acks == 1
	}, time.Second, time.Millisecond)
}

func TestStaleTokenForcesFreshLogin(t *testing.T) {
	h := newHarness(t, insideWindow)
	// Broker still answers OK for the cached token, but it is older than
	// a day and must not be reused.
	h.tokens.tok = &domain.AccessToken{
		Token:    "stale",
		IssuedAt: insideWindow.Add(-25 * time.Hour),
	}
	h.start(t)

	tok := waitStarted(t, h.runner)
	assert.Equal(t, "APP-100:tok", tok, "fresh login, not the cached token")
	assert.Equal(t, 1, h.auth.calls())
}

func TestCheckTokenAgeAndBrokerRejection(t *testing.T) {
	h := newHarness(t, insideWindow)
	ctx := context.Background()

	fresh := domain.AccessToken{Token: "t", IssuedAt: insideWindow.Add(-time.Hour)}
	require.NoError(t, h.sup.checkToken(ctx, fresh))

	// Older than a day: expired before the broker is even asked.
	stale := domain.AccessToken{Token: "t", IssuedAt: insideWindow.Add(-25 * time.Hour)}
	require.ErrorIs(t, h.sup.checkToken(ctx, stale), domain.ErrTokenExpired)

	// Young but rejected by the profile endpoint.
	h.auth.validateErr = domain.ErrUnauthorized
	require.ErrorIs(t, h.sup.checkToken(ctx, fresh), domain.ErrUnauthorized)
}

func TestWindowBounds(t *testing.T) {
	win, err := NewWindow("09:13", "16:00", time.UTC)
	require.NoError(t, err)

	day := func(h, m int) time.Time {
		return time.Date(2025, 3, 14, h, m, 0, 0, time.UTC)
	}
	assert.False(t, win.Contains(day(9, 12)))
	assert.True(t, win.Contains(day(9, 13)))
	assert.True(t, win.Contains(day(15, 59)))
	assert.False(t, win.Contains(day(16, 0)))

	next := win.NextOpen(day(16, 30))
	assert.Equal(t, day(9, 13).AddDate(0, 0, 1), next)
	assert.Equal(t, day(9, 13), win.NextOpen(day(8, 0)))
}

func TestWindowParseErrors(t *testing.T) {
	_, err := NewWindow("9am", "16:00", time.UTC)
	require.Error(t, err)
	_, err = NewWindow("16:00", "09:13", time.UTC)
	require.Error(t, err)
}
