package domain

import "time"

// Tick is one normalized market-data update for a single instrument:
// the last traded price together with the cumulative volume traded today.
type Tick struct {
	Symbol           string
	LTP              float64
	CumulativeVolume float64
	ReceivedAt       time.Time
}

// SpikeClass labels how large a volume spike is relative to the volume
// already traded before it.
type SpikeClass string

const (
	// LargeSpike is a delta of more than 50% of the prior cumulative volume.
	LargeSpike SpikeClass = "LS"
	// MediumSpike is a delta between 20% (exclusive) and 50% (inclusive).
	MediumSpike SpikeClass = "MS"
	// VolumeIncrease is any qualifying spike below the medium band.
	VolumeIncrease SpikeClass = "VI"
)

// SpikeEvent is emitted once per qualifying single-tick volume surge.
// It is handed to the alert sink and not retained by the detector.
type SpikeEvent struct {
	ID               string
	Symbol           string
	Price            float64
	PreviousPrice    float64
	VolumeDelta      float64
	PreviousVolume   float64
	CumulativeVolume float64
	TradeValue       float64
	Class            SpikeClass
	ObservedAt       time.Time
}

// TradeValueCrores returns the trade value expressed in crores
// (units of 10,000,000), the convention used in alert records.
func (e SpikeEvent) TradeValueCrores() float64 {
	return e.TradeValue / 1e7
}

// SymbolState tracks the most recently seen volume/price for one symbol
// together with the last time an alert was emitted for it. LastAlertAt is
// the zero time until the first alert.
type SymbolState struct {
	Symbol      string
	LastVolume  float64
	LastPrice   float64
	LastAlertAt time.Time
}
