package detector

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spikewatch/internal/domain"
)

func testConfig() Config {
	return Config{
		MinVolumeSpike:      1000,
		LargeTradeThreshold: 30_000_000,
		Cooldown:            60 * time.Second,
	}
}

func newTestDetector(t *testing.T, cfg Config) (*Detector, *StateStore, *time.Time) {
	t.Helper()
	store := NewStateStore()
	d := New(cfg, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	now := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	clock := &now
	d.now = func() time.Time { return *clock }
	return d, store, clock
}

func tick(symbol string, price, volume float64) domain.Tick {
	return domain.Tick{Symbol: symbol, LTP: price, CumulativeVolume: volume}
}

func TestFirstTickNeverQualifies(t *testing.T) {
	d, store, _ := newTestDetector(t, testConfig())

	// Even an enormous first tick only establishes the baseline.
	ev := d.Process(tick("NSE:TCS-EQ", 4000, 90_000_000))
	assert.Nil(t, ev)

	st, ok := store.Get("NSE:TCS-EQ")
	require.True(t, ok)
	assert.Equal(t, float64(90_000_000), st.LastVolume)
	assert.Equal(t, float64(4000), st.LastPrice)
}

func TestInvalidTicksRejectedWithoutStateChange(t *testing.T) {
	d, store, _ := newTestDetector(t, testConfig())

	assert.Nil(t, d.Process(tick("", 100, 5000)))
	assert.Nil(t, d.Process(tick("NSE:X-EQ", 0, 5000)))
	assert.Nil(t, d.Process(tick("NSE:X-EQ", -5, 5000)))
	assert.Nil(t, d.Process(tick("NSE:X-EQ", 100, 0)))

	_, ok := store.Get("NSE:X-EQ")
	assert.False(t, ok, "rejected ticks must not create state")
}

func TestBaselineAdvancesOnEveryTick(t *testing.T) {
	d, store, _ := newTestDetector(t, testConfig())

	volumes := []float64{5000, 5100, 5200, 900_000, 900_500}
	for _, v := range volumes {
		d.Process(tick("NSE:SBIN-EQ", 100, v))
		st, ok := store.Get("NSE:SBIN-EQ")
		require.True(t, ok)
		assert.Equal(t, v, st.LastVolume)
	}
}

func TestVolumeSpikeThresholdBoundary(t *testing.T) {
	cfg := testConfig()
	d, _, _ := newTestDetector(t, cfg)

	d.Process(tick("NSE:INFY-EQ", 40_000, 10_000))

	// Delta of exactly MinVolumeSpike does not qualify.
	assert.Nil(t, d.Process(tick("NSE:INFY-EQ", 40_000, 11_000)))

	// Delta of MinVolumeSpike+1 with sufficient trade value does.
	ev := d.Process(tick("NSE:INFY-EQ", 40_000, 12_001))
	require.NotNil(t, ev)
	assert.Equal(t, float64(1001), ev.VolumeDelta)
}

func TestTradeValueThreshold(t *testing.T) {
	d, _, _ := newTestDetector(t, testConfig())

	d.Process(tick("NSE:ITC-EQ", 100, 10_000))

	// delta=2000, value=200,000: large delta but small value.
	assert.Nil(t, d.Process(tick("NSE:ITC-EQ", 100, 12_000)))

	// delta=300,000, value=30,000,000: exactly at the threshold qualifies.
	ev := d.Process(tick("NSE:ITC-EQ", 100, 312_000))
	require.NotNil(t, ev)
	assert.Equal(t, float64(30_000_000), ev.TradeValue)
}

func TestClassificationBoundaries(t *testing.T) {
	cases := []struct {
		name       string
		baseline   float64
		delta      float64
		wantClass  domain.SpikeClass
	}{
		{"exactly 50pct is medium", 1_000_000, 500_000, domain.MediumSpike},
		{"just over 50pct is large", 1_000_000, 500_001, domain.LargeSpike},
		{"exactly 20pct is volume increase", 1_000_000, 200_000, domain.VolumeIncrease},
		{"just over 20pct is medium", 1_000_000, 200_001, domain.MediumSpike},
		{"tiny relative delta is volume increase", 100_000_000, 300_000, domain.VolumeIncrease},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, _, _ := newTestDetector(t, testConfig())
			d.Process(tick("NSE:VEDL-EQ", 500, tc.baseline))
			ev := d.Process(tick("NSE:VEDL-EQ", 500, tc.baseline+tc.delta))
			require.NotNil(t, ev)
			assert.Equal(t, tc.wantClass, ev.Class)
		})
	}
}

func TestCooldownSuppresssRepeatAlerts(t *testing.T) {
	d, store, clock := newTestDetector(t, testConfig())

	d.Process(tick("NSE:RELIANCE-EQ", 100, 5000))

	ev := d.Process(tick("NSE:RELIANCE-EQ", 100, 305_100))
	require.NotNil(t, ev)

	// Second qualifying spike one second later is suppressed, but the
	// baseline still advances.
	*clock = clock.Add(time.Second)
	assert.Nil(t, d.Process(tick("NSE:RELIANCE-EQ", 100, 610_200)))
	st, _ := store.Get("NSE:RELIANCE-EQ")
	assert.Equal(t, float64(610_200), st.LastVolume)

	// Suppression did not reset the alert clock: once the window elapses
	// from the first alert, the next qualifying spike fires.
	*clock = clock.Add(61 * time.Second)
	ev2 := d.Process(tick("NSE:RELIANCE-EQ", 100, 915_300))
	require.NotNil(t, ev2)
}

func TestCooldownBoundaryIsSuppressed(t *testing.T) {
	d, _, clock := newTestDetector(t, testConfig())

	d.Process(tick("NSE:LT-EQ", 100, 5000))
	require.NotNil(t, d.Process(tick("NSE:LT-EQ", 100, 400_000)))

	// Exactly at the cooldown boundary still counts as inside the window.
	*clock = clock.Add(60 * time.Second)
	assert.Nil(t, d.Process(tick("NSE:LT-EQ", 100, 800_000)))
}

func TestExampleScenario(t *testing.T) {
	d, store, clock := newTestDetector(t, testConfig())

	// Tick 1: baseline set, no event.
	assert.Nil(t, d.Process(tick("NSE:X-EQ", 100, 5000)))

	// Tick 2: delta=300,100, value=30,010,000 >= threshold, pct=6002%.
	ev := d.Process(tick("NSE:X-EQ", 100, 305_100))
	require.NotNil(t, ev)
	assert.Equal(t, float64(300_100), ev.VolumeDelta)
	assert.Equal(t, float64(30_010_000), ev.TradeValue)
	assert.Equal(t, domain.LargeSpike, ev.Class)

	// Tick 3 one second later: same delta, suppressed by cooldown.
	*clock = clock.Add(time.Second)
	assert.Nil(t, d.Process(tick("NSE:X-EQ", 100, 610_200)))
	st, _ := store.Get("NSE:X-EQ")
	assert.Equal(t, float64(610_200), st.LastVolume)
}

func TestZeroPreviousVolumeClassifiesAsVolumeIncrease(t *testing.T) {
	// A baseline of zero cannot happen through Process (volume must be
	// positive), but classify must still be total.
	assert.Equal(t, domain.VolumeIncrease, classify(0))
}

func TestStatsCounters(t *testing.T) {
	d, _, _ := newTestDetector(t, testConfig())

	d.Process(tick("NSE:A-EQ", 100, 1000))
	d.Process(tick("NSE:A-EQ", 100, 400_000))
	d.Process(tick("NSE:B-EQ", 50, 2000))

	ticks, events, symbols := d.Stats()
	assert.Equal(t, int64(3), ticks)
	assert.Equal(t, int64(1), events)
	assert.Equal(t, 2, symbols)
}
