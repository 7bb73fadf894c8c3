// Package summary builds and delivers the end-of-day top-movers report.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"spikewatch/internal/domain"
)

// eventSummary is the notifier event type for summary reports.
const eventSummary = "summary"

// Notifier is the outbound fan-out the report is published through.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config controls report shape and resend behaviour.
type Config struct {
	// TopN caps the number of symbols in the report.
	TopN int
	// ResendInterval is how often an unacknowledged report is sent again.
	ResendInterval time.Duration
	// Location is the market timezone the report date is derived in.
	Location *time.Location
}

// Service produces the daily summary: the symbols with the highest total
// alerted trade value for the day. An operator requests it with the
// "send" command; the service keeps resending on a fixed cadence until
// the operator acknowledges with "done".
type Service struct {
	cfg      Config
	store    domain.AlertStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending bool
}

// NewService creates a summary Service.
func NewService(cfg Config, store domain.AlertStore, notifier Notifier, logger *slog.Logger) *Service {
	if cfg.TopN <= 0 {
		cfg.TopN = 15
	}
	if cfg.ResendInterval <= 0 {
		cfg.ResendInterval = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "summary")),
		now:      time.Now,
	}
}

// Request marks the report as wanted and sends it immediately. It keeps
// being resent by Run until Acknowledge is called.
func (s *Service) Request(ctx context.Context) {
	s.mu.Lock()
	s.pending = true
	s.mu.Unlock()
	s.send(ctx)
}

// Acknowledge stops the resend cadence.
func (s *Service) Acknowledge() {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
	s.logger.Info("summary acknowledged")
}

// Pending reports whether an unacknowledged summary is outstanding.
func (s *Service) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Run resends the pending report on the configured cadence until the
// context ends. It always returns ctx.Err().
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.ResendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.Pending() {
				s.send(ctx)
			}
		}
	}
}

func (s *Service) send(ctx context.Context) {
	date := s.now().In(s.cfg.Location).Format("02-01-2006")

	totals, err := s.store.TopByValue(ctx, date, s.cfg.TopN)
	if err != nil {
		s.logger.Error("summary query failed", slog.String("error", err.Error()))
		return
	}
	count, err := s.store.CountForDate(ctx, date)
	if err != nil {
		s.logger.Error("summary count failed", slog.String("error", err.Error()))
		return
	}

	msg := FormatReport(date, count, totals)
	if err := s.notifier.Notify(ctx, eventSummary, "Daily Summary", msg); err != nil {
		s.logger.Error("summary delivery failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("summary sent",
		slog.String("date", date),
		slog.Int("symbols", len(totals)),
		slog.Int64("alerts", count),
	)
}

// FormatReport renders the operator-facing summary text.
func FormatReport(date string, totalAlerts int64, totals []domain.SymbolTotal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Top movers for %s (%d alerts)\n", date, totalAlerts)
	if len(totals) == 0 {
		b.WriteString("No alerts recorded today.")
		return b.String()
	}
	for i, t := range totals {
		fmt.Fprintf(&b, "%d. %s: %.2f Cr across %d alerts\n", i+1, t.Symbol, t.TradeValueCrores, t.AlertCount)
	}
	b.WriteString("Reply \"done\" to acknowledge.")
	return b.String()
}
