package ensemble

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantfabric/tradecore/internal/agent"
)

var barrierCfg = BarrierConfig{
	TakeProfitPercent: 2.0,
	StopLossPercent:   1.0,
	TimeLimit:         time.Hour,
}

func pathAt(entry time.Time, prices ...float64) []PricePoint {
	path := make([]PricePoint, len(prices))
	for i, p := range prices {
		path[i] = PricePoint{Price: p, Timestamp: entry.Add(time.Duration(i+1) * time.Minute)}
	}
	return path
}

func TestLabelTrade_UpperBarrierFirst(t *testing.T) {
	entry := time.Now()
	// Touches 102 before ever reaching 99.
	label := LabelTrade(100, agent.DirectionBuy, entry, pathAt(entry, 100.5, 101.2, 102.0, 99.0), barrierCfg)

	assert.Equal(t, OutcomeWin, label.Outcome)
	assert.Equal(t, BarrierUpper, label.Barrier)
	assert.InDelta(t, 2.0, label.PnLPercent, 1e-9)
	assert.Equal(t, 3*time.Minute, label.Duration)
}

func TestLabelTrade_LowerBarrierFirst(t *testing.T) {
	entry := time.Now()
	label := LabelTrade(100, agent.DirectionBuy, entry, pathAt(entry, 99.5, 98.9, 103.0), barrierCfg)

	assert.Equal(t, OutcomeLoss, label.Outcome)
	assert.Equal(t, BarrierLower, label.Barrier)
	assert.InDelta(t, -1.0, label.PnLPercent, 1e-9)
}

func TestLabelTrade_ShortDirectionMirrored(t *testing.T) {
	entry := time.Now()
	// For a short, profit is downward: 98 is the 2% target.
	label := LabelTrade(100, agent.DirectionSell, entry, pathAt(entry, 99.5, 98.0), barrierCfg)

	assert.Equal(t, OutcomeWin, label.Outcome)
	assert.Equal(t, BarrierUpper, label.Barrier)
	assert.InDelta(t, 2.0, label.PnLPercent, 1e-9)
}

func TestLabelTrade_VerticalBarrier(t *testing.T) {
	entry := time.Now()
	path := []PricePoint{
		{Price: 100.4, Timestamp: entry.Add(30 * time.Minute)},
		{Price: 100.8, Timestamp: entry.Add(2 * time.Hour)}, // past the limit
	}

	label := LabelTrade(100, agent.DirectionBuy, entry, path, barrierCfg)

	assert.Equal(t, OutcomeNeutral, label.Outcome)
	assert.Equal(t, BarrierVertical, label.Barrier)
	// Actual mark-to-market PnL at the vertical hit, not the barrier width.
	assert.InDelta(t, 0.8, label.PnLPercent, 1e-9)
}

func TestLabelTrade_VerticalSignCorrectedForShorts(t *testing.T) {
	entry := time.Now()
	path := []PricePoint{{Price: 100.5, Timestamp: entry.Add(2 * time.Hour)}}

	label := LabelTrade(100, agent.DirectionSell, entry, path, barrierCfg)

	assert.Equal(t, BarrierVertical, label.Barrier)
	assert.InDelta(t, -0.5, label.PnLPercent, 1e-9)
}

func TestLabelTrade_ExhaustedPathIsVerticalHit(t *testing.T) {
	entry := time.Now()
	label := LabelTrade(100, agent.DirectionBuy, entry, pathAt(entry, 100.2, 100.6), barrierCfg)

	assert.Equal(t, OutcomeNeutral, label.Outcome)
	assert.Equal(t, BarrierVertical, label.Barrier)
	assert.InDelta(t, 0.6, label.PnLPercent, 1e-9)
}

func TestLabelTrade_DegenerateInputs(t *testing.T) {
	label := LabelTrade(0, agent.DirectionBuy, time.Now(), nil, barrierCfg)
	assert.Equal(t, OutcomeNeutral, label.Outcome)
	assert.Equal(t, BarrierVertical, label.Barrier)
	assert.Zero(t, label.PnLPercent)
}
