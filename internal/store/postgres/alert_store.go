package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"spikewatch/internal/domain"
)

// AlertStore implements domain.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *pgxpool.Pool
}

// NewAlertStore creates a new AlertStore backed by the given connection pool.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Insert persists one alert row. A replayed event (same event_id) is
// silently skipped via ON CONFLICT DO NOTHING.
func (s *AlertStore) Insert(ctx context.Context, rec domain.AlertRecord) error {
	const query = `
		INSERT INTO alerts (
			event_id, alert_date, alert_time, symbol,
			ltp, volume_delta, trade_value_crores,
			classification, sector
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9
		) ON CONFLICT (event_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		rec.EventID, rec.Date, rec.Time, rec.Symbol,
		rec.LTP, rec.VolumeDelta, rec.TradeValueCrores,
		string(rec.Classification), rec.Sector,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert alert %s: %w", rec.Symbol, err)
	}
	return nil
}

// TopByValue returns the symbols with the highest total alerted trade
// value for the given date, descending, at most limit entries.
func (s *AlertStore) TopByValue(ctx context.Context, date string, limit int) ([]domain.SymbolTotal, error) {
	const query = `
		SELECT symbol, COUNT(*), SUM(trade_value_crores)
		FROM alerts
		WHERE alert_date = $1
		GROUP BY symbol
		ORDER BY SUM(trade_value_crores) DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, date, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: top alerts by value: %w", err)
	}
	defer rows.Close()

	var totals []domain.SymbolTotal
	for rows.Next() {
		var t domain.SymbolTotal
		if err := rows.Scan(&t.Symbol, &t.AlertCount, &t.TradeValueCrores); err != nil {
			return nil, fmt.Errorf("postgres: scan alert total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: top alerts by value: %w", err)
	}
	return totals, nil
}

// CountForDate returns the number of alerts recorded for the given date.
func (s *AlertStore) CountForDate(ctx context.Context, date string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM alerts WHERE alert_date = $1", date,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count alerts for %s: %w", date, err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.AlertStore = (*AlertStore)(nil)
