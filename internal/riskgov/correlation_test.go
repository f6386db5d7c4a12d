package riskgov

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantfabric/tradecore/pkg/logger"
)

func newTestGovernor() *Governor {
	return NewGovernor(DefaultConfig(), logger.NewNop())
}

func TestPearson(t *testing.T) {
	xs := []float64{0.01, -0.02, 0.03, 0.01, -0.01}
	ys := make([]float64, len(xs))
	neg := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 2 * x
		neg[i] = -x
	}

	assert.InDelta(t, 1.0, pearson(xs, ys), 1e-9)
	assert.InDelta(t, -1.0, pearson(xs, neg), 1e-9)
	assert.Zero(t, pearson(nil, nil))

	flat := []float64{0.01, 0.01, 0.01, 0.01, 0.01}
	assert.Zero(t, pearson(xs, flat))
}

func TestCorrelation_MeasuredFromSharedHistory(t *testing.T) {
	g := newTestGovernor()

	// Identical return series in both symbols: coefficient of one.
	prices := []float64{100, 102, 101, 105, 104, 108, 107}
	for _, p := range prices {
		g.TrackPrice("AAA", p)
		g.TrackPrice("BBB", p*3)
	}

	assert.InDelta(t, 1.0, g.Correlation("AAA", "BBB"), 1e-9)
}

func TestCorrelation_GroupFallbackWithThinHistory(t *testing.T) {
	g := newTestGovernor()

	assert.InDelta(t, groupCorrelation, g.Correlation("XAUUSD", "BTCUSDT"), 1e-9)
	assert.InDelta(t, groupCorrelation, g.Correlation("SPX500", "NAS100"), 1e-9)
}

func TestCorrelation_UnknownPairFailsOpen(t *testing.T) {
	g := newTestGovernor()
	assert.Zero(t, g.Correlation("EURUSD", "GBPUSD"))
}

func TestCorrelation_SameSymbol(t *testing.T) {
	g := newTestGovernor()
	assert.Equal(t, 1.0, g.Correlation("EURUSD", "EURUSD"))
}

func TestCorrelation_SymmetricPairKey(t *testing.T) {
	g := newTestGovernor()
	assert.Equal(t, g.Correlation("XAUUSD", "BTCUSDT"), g.Correlation("BTCUSDT", "XAUUSD"))
}

func TestCorrelation_FreshPricesInvalidateCache(t *testing.T) {
	g := newTestGovernor()

	// First query caches the group assumption.
	assert.InDelta(t, groupCorrelation, g.Correlation("BTCUSDT", "ETHUSDT"), 1e-9)

	// Enough shared history replaces the assumption with a measurement.
	prices := []float64{100, 102, 101, 105, 104, 108, 107}
	for _, p := range prices {
		g.TrackPrice("BTCUSDT", p)
		g.TrackPrice("ETHUSDT", p)
	}
	assert.InDelta(t, 1.0, g.Correlation("BTCUSDT", "ETHUSDT"), 1e-9)
}

func TestTrackPrice_WindowTruncation(t *testing.T) {
	g := newTestGovernor()

	for i := 0; i < 2*g.cfg.Lookback+1; i++ {
		g.TrackPrice("EURUSD", 1.0+float64(i)/1000)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Len(t, g.history["EURUSD"], g.cfg.Lookback)
}

func TestTrackPrice_IgnoresNonPositive(t *testing.T) {
	g := newTestGovernor()
	g.TrackPrice("EURUSD", 0)
	g.TrackPrice("EURUSD", -1)

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Empty(t, g.history["EURUSD"])
}

func TestSimpleReturns(t *testing.T) {
	assert.Nil(t, simpleReturns([]float64{100}))

	returns := simpleReturns([]float64{100, 110, 99})
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)
}
