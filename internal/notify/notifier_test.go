package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name  string
	err   error
	calls int
}

func (r *recordingSender) Send(ctx context.Context, title, message string) error {
	r.calls++
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFansOutToAllSenders(t *testing.T) {
	a := &recordingSender{name: "telegram"}
	b := &recordingSender{name: "discord"}
	n := NewNotifier([]Sender{a, b}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), "spike", "t", "m"))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestNotifyOneSenderFailingDoesNotStopOthers(t *testing.T) {
	a := &recordingSender{name: "telegram", err: errors.New("boom")}
	b := &recordingSender{name: "discord"}
	n := NewNotifier([]Sender{a, b}, nil, testLogger())

	err := n.Notify(context.Background(), "spike", "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	assert.Equal(t, 1, b.calls, "second sender still delivered")
}

func TestNotifyEventFilter(t *testing.T) {
	a := &recordingSender{name: "telegram"}
	n := NewNotifier([]Sender{a}, []string{"summary"}, testLogger())

	require.NoError(t, n.Notify(context.Background(), "spike", "t", "m"))
	assert.Equal(t, 0, a.calls, "filtered event is not sent")

	require.NoError(t, n.Notify(context.Background(), "summary", "t", "m"))
	assert.Equal(t, 1, a.calls)

	require.NoError(t, n.NotifyAll(context.Background(), "t", "m"))
	assert.Equal(t, 2, a.calls, "NotifyAll bypasses the filter")
}
