package feed

import (
	"encoding/json"
	"log/slog"
	"time"

	"spikewatch/internal/domain"
	"spikewatch/internal/platform/fyers"
)

// tickFrame is the wire shape of a symbol update on the data socket.
type tickFrame struct {
	Symbol         string  `json:"symbol"`
	LTP            float64 `json:"ltp"`
	VolTradedToday float64 `json:"vol_traded_today"`
	Type           string  `json:"type"`
}

// Ingestor normalizes raw stream frames into ticks. Control frames
// (connection and subscription acks) are dropped silently; malformed or
// partially populated data frames are dropped with a debug log. The
// ingestor holds no state and never returns an error into the stream
// path.
type Ingestor struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewIngestor creates an Ingestor.
func NewIngestor(logger *slog.Logger) *Ingestor {
	return &Ingestor{
		logger: logger.With(slog.String("component", "ingestor")),
		now:    time.Now,
	}
}

// Normalize parses one raw frame. ok is false when the frame carries no
// usable tick.
func (i *Ingestor) Normalize(raw []byte) (domain.Tick, bool) {
	var frame tickFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		i.logger.Debug("dropping unparseable frame", slog.String("error", err.Error()))
		return domain.Tick{}, false
	}

	if fyers.IsControlFrame(frame.Type) {
		return domain.Tick{}, false
	}

	if frame.Symbol == "" || frame.LTP <= 0 || frame.VolTradedToday <= 0 {
		i.logger.Debug("dropping malformed data frame",
			slog.String("symbol", frame.Symbol),
			slog.Float64("ltp", frame.LTP),
			slog.Float64("vol", frame.VolTradedToday),
		)
		return domain.Tick{}, false
	}

	return domain.Tick{
		Symbol:           frame.Symbol,
		LTP:              frame.LTP,
		CumulativeVolume: frame.VolTradedToday,
		ReceivedAt:       i.now(),
	}, true
}
