package detector

import (
	"sync"
	"time"

	"spikewatch/internal/domain"
)

// StateStore holds per-symbol last-seen volume, price, and alert time.
// Baselines survive reconnects: the feed carries cumulative daily
// volume, so a pre-disconnect baseline stays valid within the same day.
// Safe for concurrent use from the tick path and any reporting path.
type StateStore struct {
	mu     sync.Mutex
	states map[string]*domain.SymbolState
}

// NewStateStore creates an empty StateStore.
func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]*domain.SymbolState)}
}

// Get returns a copy of the state for symbol, or false if the symbol has
// not been seen this run.
func (s *StateStore) Get(symbol string) (domain.SymbolState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[symbol]
	if !ok {
		return domain.SymbolState{}, false
	}
	return *st, true
}

// Update atomically records the new volume/price for symbol and returns
// the previous pair. seen is false on the first observation, in which
// case the previous values are the new ones (delta zero by definition).
func (s *StateStore) Update(symbol string, volume, price float64) (prevVolume, prevPrice float64, seen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[symbol]
	if !ok {
		s.states[symbol] = &domain.SymbolState{
			Symbol:     symbol,
			LastVolume: volume,
			LastPrice:  price,
		}
		return volume, price, false
	}
	prevVolume, prevPrice = st.LastVolume, st.LastPrice
	st.LastVolume = volume
	st.LastPrice = price
	return prevVolume, prevPrice, true
}

// LastAlertAt returns the time of the last emitted alert for symbol, or
// the zero time if none.
func (s *StateStore) LastAlertAt(symbol string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[symbol]; ok {
		return st.LastAlertAt
	}
	return time.Time{}
}

// MarkAlerted records that an alert was emitted for symbol at t.
func (s *StateStore) MarkAlerted(symbol string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[symbol]; ok {
		st.LastAlertAt = t
	}
}

// Len returns the number of symbols tracked this run.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// Reset drops all per-symbol state. Called at the start of a detection
// run so yesterday's baselines never bleed into a new session.
func (s *StateStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[string]*domain.SymbolState)
}
