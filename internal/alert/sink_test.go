package alert

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

	"spikewatch/internal/domain"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string // formatted messages
	err   error
}

func (f *fakeNotifier) Notify(ctx context.Context, event, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, message)
	return f.err
}

type fakeStore struct {
	mu      sync.Mutex
	records []domain.AlertRecord
	err     error
}

func (f *fakeStore) Insert(ctx context.Context, rec domain.AlertRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return f.err
}

func (f *fakeStore) TopByValue(ctx context.Context, date string, limit int) ([]domain.SymbolTotal, error) {
	return nil, nil
}

func (f *fakeStore) CountForDate(ctx context.Context, date string) (int64, error) {
	return 0, nil
}

func testEvent() domain.SpikeEvent {
	return domain.SpikeEvent{
		ID:               "evt-1",
		Symbol:           "NSE:RELIANCE-EQ",
		Price:            2843.5,
		VolumeDelta:      120000,
		PreviousVolume:   1000000,
		CumulativeVolume: 1120000,
		TradeValue:       120000 * 2843.5,
		Class:            domain.MediumSpike,
		ObservedAt:       time.Date(2025, 3, 14, 10, 42, 7, 0, time.UTC),
	}
}

func newTestSink(n *fakeNotifier, st *fakeStore) *Sink {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var store domain.AlertStore
	if st != nil {
		store = st
	}
	return NewSink(n, store, logger)
}

func TestSinkDeliversToNotifierAndStore(t *testing.T) {
	n := &fakeNotifier{}
	st := &fakeStore{}
	s := newTestSink(n, st)

	s.Deliver(testEvent())
	s.Close()

	require.Len(t, n.calls, 1)
	assert.Contains(t, n.calls[0], "RELIANCE")
	assert.Contains(t, n.calls[0], "MS")

	require.Len(t, st.records, 1)
	rec := st.records[0]
	assert.Equal(t, "14-03-2025", rec.Date)
	assert.Equal(t, "10:42:07", rec.Time)
	assert.Equal(t, "NSE:RELIANCE-EQ", rec.Symbol)
	assert.InDelta(t, 34.12, rec.TradeValueCrores, 0.01)
}

func TestSinkNotifierFailureStillPersists(t *testing.T) {
	n := &fakeNotifier{err: errors.New("telegram down")}
	st := &fakeStore{}
	s := newTestSink(n, st)

	s.Deliver(testEvent())
	s.Close()

	require.Len(t, st.records, 1)
}

func TestSinkWithoutStore(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestSink(n, nil)

	s.Deliver(testEvent())
	s.Close()

	require.Len(t, n.calls, 1)
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage(testEvent(), "Oil & Gas")
	assert.Contains(t, msg, "RELIANCE (Oil & Gas)")
	assert.Contains(t, msg, "Class: MS")
	assert.Contains(t, msg, "LTP: 2843.50")
	assert.Contains(t, msg, "Volume spike: 120000")
	assert.Contains(t, msg, "Time: 10:42:07")
}

func TestDisplaySymbol(t *testing.T) {
	assert.Equal(t, "RELIANCE", displaySymbol("NSE:RELIANCE-EQ"))
	assert.Equal(t, "M&M", displaySymbol("NSE:M&M-EQ"))
	assert.Equal(t, "TCS", displaySymbol("TCS"))
}