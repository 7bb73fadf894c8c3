package detector

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStoreFirstObservation(t *testing.T) {
	s := NewStateStore()

	prevVol, prevPrice, seen := s.Update("NSE:TCS-EQ", 5000, 4000)
	assert.False(t, seen)
	assert.Equal(t, float64(5000), prevVol)
	assert.Equal(t, float64(4000), prevPrice)
}

func TestStateStoreUpdateReturnsPriorPair(t *testing.T) {
	s := NewStateStore()

	s.Update("NSE:TCS-EQ", 5000, 4000)
	prevVol, prevPrice, seen := s.Update("NSE:TCS-EQ", 6000, 4010)
	require.True(t, seen)
	assert.Equal(t, float64(5000), prevVol)
	assert.Equal(t, float64(4000), prevPrice)

	st, ok := s.Get("NSE:TCS-EQ")
	require.True(t, ok)
	assert.Equal(t, float64(6000), st.LastVolume)
	assert.Equal(t, float64(4010), st.LastPrice)
}

func TestStateStoreAlertTracking(t *testing.T) {
	s := NewStateStore()

	assert.True(t, s.LastAlertAt("NSE:SBIN-EQ").IsZero())

	s.Update("NSE:SBIN-EQ", 1000, 800)
	at := time.Date(2025, 10, 15, 10, 30, 0, 0, time.UTC)
	s.MarkAlerted("NSE:SBIN-EQ", at)
	assert.Equal(t, at, s.LastAlertAt("NSE:SBIN-EQ"))
}

func TestStateStoreConcurrentUpdates(t *testing.T) {
	s := NewStateStore()

	const workers = 16
	const updates = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			sym := fmt.Sprintf("NSE:SYM%d-EQ", w%4)
			for i := 1; i <= updates; i++ {
				s.Update(sym, float64(i), float64(i))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 4, s.Len())
	st, ok := s.Get("NSE:SYM0-EQ")
	require.True(t, ok)
	assert.Equal(t, float64(updates), st.LastVolume)
}
