// Package detector implements tick-to-tick volume spike detection. A
// spike is a single-tick jump in cumulative traded volume whose implied
// trade value crosses the configured threshold; each qualifying spike is
// rate-limited per symbol by a cooldown window.
package detector

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"spikewatch/internal/domain"
)

// Config holds the detection thresholds.
type Config struct {
	// MinVolumeSpike is the smallest tick-to-tick volume delta worth
	// considering. A delta equal to the threshold does not qualify.
	MinVolumeSpike float64
	// LargeTradeThreshold is the minimum price*delta trade value, in
	// currency units, for a spike to be alerted.
	LargeTradeThreshold float64
	// Cooldown is the minimum time between two alerts for one symbol.
	Cooldown time.Duration
}

// Detector consumes normalized ticks and decides whether each one
// represents a qualifying large-trade event. The volume baseline advances
// on every valid tick, whether or not the tick qualifies.
type Detector struct {
	cfg    Config
	store  *StateStore
	logger *slog.Logger
	now    func() time.Time

	ticksSeen     atomic.Int64
	eventsEmitted atomic.Int64
}

// New creates a Detector over the given state store.
func New(cfg Config, store *StateStore, logger *slog.Logger) *Detector {
	return &Detector{
		cfg:    cfg,
		store:  store,
		logger: logger.With(slog.String("component", "detector")),
		now:    time.Now,
	}
}

// Process evaluates one tick. It returns a SpikeEvent when the tick
// qualifies and nil otherwise. Invalid ticks (empty symbol, non-positive
// price or volume) are rejected without touching the baseline.
func (d *Detector) Process(tick domain.Tick) *domain.SpikeEvent {
	d.ticksSeen.Add(1)

	if tick.Symbol == "" || tick.LTP <= 0 || tick.CumulativeVolume <= 0 {
		return nil
	}

	prevVolume, prevPrice, seen := d.store.Update(tick.Symbol, tick.CumulativeVolume, tick.LTP)
	if !seen {
		// First observation only establishes the baseline.
		return nil
	}

	delta := tick.CumulativeVolume - prevVolume
	if delta <= d.cfg.MinVolumeSpike {
		return nil
	}

	tradeValue := tick.LTP * delta
	if tradeValue < d.cfg.LargeTradeThreshold {
		return nil
	}

	now := d.now()
	if last := d.store.LastAlertAt(tick.Symbol); !last.IsZero() && now.Sub(last) <= d.cfg.Cooldown {
		// Suppressed by cooldown. The baseline already advanced above;
		// the alert clock is not reset by suppressed candidates.
		d.logger.Debug("spike suppressed by cooldown",
			slog.String("symbol", tick.Symbol),
			slog.Float64("delta", delta),
		)
		return nil
	}

	var spikePct float64
	if prevVolume > 0 {
		spikePct = delta / prevVolume * 100
	}
	class := classify(spikePct)

	d.store.MarkAlerted(tick.Symbol, now)
	d.eventsEmitted.Add(1)

	return &domain.SpikeEvent{
		ID:               uuid.NewString(),
		Symbol:           tick.Symbol,
		Price:            tick.LTP,
		PreviousPrice:    prevPrice,
		VolumeDelta:      delta,
		PreviousVolume:   prevVolume,
		CumulativeVolume: tick.CumulativeVolume,
		TradeValue:       tradeValue,
		Class:            class,
		ObservedAt:       now,
	}
}

// classify buckets a spike by its size relative to the prior cumulative
// volume: >50% large, >20% medium, otherwise a plain volume increase.
func classify(spikePct float64) domain.SpikeClass {
	switch {
	case spikePct > 50:
		return domain.LargeSpike
	case spikePct > 20:
		return domain.MediumSpike
	default:
		return domain.VolumeIncrease
	}
}

// Reset clears per-symbol baselines for a fresh session.
func (d *Detector) Reset() {
	d.store.Reset()
}

// Stats reports counters for heartbeat logging.
func (d *Detector) Stats() (ticksSeen, eventsEmitted int64, symbolsTracked int) {
	return d.ticksSeen.Load(), d.eventsEmitted.Load(), d.store.Len()
}
