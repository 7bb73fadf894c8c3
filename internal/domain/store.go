package domain

import (
	"context"
	"time"
)

// AlertRecord is one persisted row per qualifying spike, mirroring the
// sheet layout the alerts were originally written to.
type AlertRecord struct {
	ID               int64
	EventID          string // detection event UUID
	Date             string // DD-MM-YYYY in the market timezone
	Time             string // HH:MM:SS in the market timezone
	Symbol           string
	LTP              float64
	VolumeDelta      float64
	TradeValueCrores float64
	Classification   SpikeClass
	Sector           string
	CreatedAt        time.Time
}

// SymbolTotal aggregates a symbol's alerted trade value for summary reports.
type SymbolTotal struct {
	Symbol           string
	AlertCount       int64
	TradeValueCrores float64
}

// AlertStore persists alert records.
type AlertStore interface {
	Insert(ctx context.Context, rec AlertRecord) error
	// TopByValue returns the symbols with the highest total alerted trade
	// value for the given date, descending, at most limit entries.
	TopByValue(ctx context.Context, date string, limit int) ([]SymbolTotal, error)
	CountForDate(ctx context.Context, date string) (int64, error)
}

// AccessToken is a broker session token together with its issue time,
// used to decide when a re-login is due.
type AccessToken struct {
	Token    string
	IssuedAt time.Time
}

// TokenCache persists the broker access token across process restarts.
type TokenCache interface {
	Save(ctx context.Context, tok AccessToken) error
	// Load returns ErrNotFound when no token has been saved.
	Load(ctx context.Context) (AccessToken, error)
	Clear(ctx context.Context) error
}
