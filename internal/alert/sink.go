package alert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"spikewatch/internal/domain"
	"spikewatch/internal/sector"
)

// eventSpike is the notifier event type for spike alerts.
const eventSpike = "spike"

// deliverTimeout bounds one fan-out so a slow channel cannot back up the
// tick path.
const deliverTimeout = 10 * time.Second

// Notifier is the outbound message fan-out the sink publishes through.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Sink fans a detected spike out to the notifier and the alert store.
// Delivery is fire-and-forget: each event is handled on its own
// goroutine and failures are logged, never returned, so a slow or broken
// channel cannot stall detection.
type Sink struct {
	notifier Notifier
	store    domain.AlertStore
	logger   *slog.Logger

	wg sync.WaitGroup
}

// NewSink creates a Sink. store may be nil when persistence is disabled.
func NewSink(notifier Notifier, store domain.AlertStore, logger *slog.Logger) *Sink {
	return &Sink{
		notifier: notifier,
		store:    store,
		logger:   logger.With(slog.String("component", "alert_sink")),
	}
}

// Deliver publishes one spike event. It returns immediately; the actual
// sends run in the background with a bounded timeout.
func (s *Sink) Deliver(event domain.SpikeEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		defer cancel()
		s.deliver(ctx, event)
	}()
}

// Close waits for in-flight deliveries to finish.
func (s *Sink) Close() {
	s.wg.Wait()
}

func (s *Sink) deliver(ctx context.Context, event domain.SpikeEvent) {
	sec := sector.Lookup(event.Symbol)

	if err := s.notifier.Notify(ctx, eventSpike, "Volume Spike", FormatMessage(event, sec)); err != nil {
		s.logger.Error("spike notification failed",
			slog.String("symbol", event.Symbol),
			slog.String("error", err.Error()),
		)
	}

	if s.store == nil {
		return
	}
	rec := domain.AlertRecord{
		EventID:          event.ID,
		Date:             event.ObservedAt.Format("02-01-2006"),
		Time:             event.ObservedAt.Format("15:04:05"),
		Symbol:           event.Symbol,
		LTP:              event.Price,
		VolumeDelta:      event.VolumeDelta,
		TradeValueCrores: event.TradeValueCrores(),
		Classification:   event.Class,
		Sector:           sec,
		CreatedAt:        event.ObservedAt,
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		s.logger.Error("alert persistence failed",
			slog.String("symbol", event.Symbol),
			slog.String("error", err.Error()),
		)
	}
}

// FormatMessage renders the operator-facing alert text for one spike.
func FormatMessage(event domain.SpikeEvent, sec string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", displaySymbol(event.Symbol), sec)
	fmt.Fprintf(&b, "Class: %s\n", event.Class)
	fmt.Fprintf(&b, "LTP: %.2f\n", event.Price)
	fmt.Fprintf(&b, "Volume spike: %.0f\n", event.VolumeDelta)
	fmt.Fprintf(&b, "Trade value: %.2f Cr\n", event.TradeValueCrores())
	fmt.Fprintf(&b, "Time: %s", event.ObservedAt.Format("15:04:05"))
	return b.String()
}

// displaySymbol strips the exchange prefix and instrument suffix for the
// operator message: "NSE:RELIANCE-EQ" reads as "RELIANCE".
func displaySymbol(symbol string) string {
	if i := strings.IndexByte(symbol, ':'); i >= 0 {
		symbol = symbol[i+1:]
	}
	if i := strings.LastIndexByte(symbol, '-'); i > 0 {
		symbol = symbol[:i]
	}
	return symbol
}
