package riskgov

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfabric/tradecore/internal/agent"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestEvaluateTrade_WithinLimitsApproved(t *testing.T) {
	g := newTestGovernor()

	a := g.EvaluateTrade("EURUSD", dec(500), agent.DirectionBuy, dec(10000), nil)

	assert.True(t, a.Approved)
	assert.True(t, a.AdjustedSize.Equal(dec(500)))
	assert.Equal(t, "approved: within risk limits", a.Reason)
}

func TestEvaluateTrade_PerTradeCapShrinks(t *testing.T) {
	g := newTestGovernor()
	// Lift the portfolio cap so the per-trade rule acts alone.
	g.cfg.PortfolioRiskPercent = 10

	// Risk budget 200 at a 2% assumed stop: max size 10000.
	a := g.EvaluateTrade("EURUSD", dec(25000), agent.DirectionBuy, dec(10000), nil)

	assert.True(t, a.Approved)
	assert.True(t, a.AdjustedSize.Equal(dec(10000)), "got %s", a.AdjustedSize)
	assert.Contains(t, a.Reason, "per-trade risk cap")
}

func TestEvaluateTrade_CorrelatedSameDirectionHalved(t *testing.T) {
	g := newTestGovernor()
	open := []Position{{Symbol: "BTCUSDT", Direction: agent.DirectionBuy, Size: dec(400)}}

	// XAUUSD and BTCUSDT share the safe-haven group: assumed 0.85.
	a := g.EvaluateTrade("XAUUSD", dec(400), agent.DirectionBuy, dec(10000), open)

	assert.True(t, a.Approved)
	assert.True(t, a.AdjustedSize.Equal(dec(200)), "got %s", a.AdjustedSize)
	assert.Contains(t, a.Reason, "size halved")
	assert.InDelta(t, groupCorrelation, a.Correlations["BTCUSDT"], 1e-9)
}

func TestEvaluateTrade_CorrelatedOppositeDirectionUntouched(t *testing.T) {
	g := newTestGovernor()
	open := []Position{{Symbol: "BTCUSDT", Direction: agent.DirectionSell, Size: dec(400)}}

	a := g.EvaluateTrade("XAUUSD", dec(400), agent.DirectionBuy, dec(10000), open)

	assert.True(t, a.Approved)
	assert.True(t, a.AdjustedSize.Equal(dec(400)), "got %s", a.AdjustedSize)
}

func TestEvaluateTrade_PortfolioBudgetShrinksToRemaining(t *testing.T) {
	g := newTestGovernor()
	// Uncorrelated pair so only the budget rule applies. Cap is 1000,
	// 900 already deployed: exactly 100 remains.
	open := []Position{{Symbol: "EURUSD", Direction: agent.DirectionBuy, Size: dec(900)}}

	a := g.EvaluateTrade("GBPUSD", dec(500), agent.DirectionBuy, dec(10000), open)

	assert.True(t, a.Approved)
	assert.True(t, a.AdjustedSize.Equal(dec(100)), "got %s", a.AdjustedSize)
	assert.Contains(t, a.Reason, "remaining budget")
}

func TestEvaluateTrade_ExhaustedBudgetRejects(t *testing.T) {
	g := newTestGovernor()
	open := []Position{{Symbol: "EURUSD", Direction: agent.DirectionBuy, Size: dec(1000)}}

	a := g.EvaluateTrade("GBPUSD", dec(50), agent.DirectionBuy, dec(10000), open)

	assert.False(t, a.Approved)
	assert.True(t, a.AdjustedSize.IsZero())
	assert.Contains(t, a.Reason, "budget exhausted")
}

func TestEvaluateTrade_NonPositiveInputsRejected(t *testing.T) {
	g := newTestGovernor()

	a := g.EvaluateTrade("EURUSD", decimal.Zero, agent.DirectionBuy, dec(10000), nil)
	assert.False(t, a.Approved)

	a = g.EvaluateTrade("EURUSD", dec(100), agent.DirectionBuy, decimal.Zero, nil)
	assert.False(t, a.Approved)
}

func TestEvaluateTrade_Idempotent(t *testing.T) {
	g := newTestGovernor()
	open := []Position{{Symbol: "BTCUSDT", Direction: agent.DirectionBuy, Size: dec(400)}}

	first := g.EvaluateTrade("XAUUSD", dec(400), agent.DirectionBuy, dec(10000), open)
	second := g.EvaluateTrade("XAUUSD", dec(400), agent.DirectionBuy, dec(10000), open)

	assert.Equal(t, first, second)
}

func TestEvaluateTrade_RiskScoreBounded(t *testing.T) {
	g := newTestGovernor()
	open := []Position{{Symbol: "BTCUSDT", Direction: agent.DirectionBuy, Size: dec(950)}}

	a := g.EvaluateTrade("XAUUSD", dec(800), agent.DirectionBuy, dec(10000), open)

	require.GreaterOrEqual(t, a.RiskScore, 0.0)
	require.LessOrEqual(t, a.RiskScore, 1.0)
}

func TestEmergencyCheck(t *testing.T) {
	g := newTestGovernor()

	halt := g.EmergencyCheck(0.06)
	assert.True(t, halt.Halt)
	assert.InDelta(t, 6.0, halt.DrawdownPercent, 1e-9)
	assert.Contains(t, halt.Reason, "hard limit")

	ok := g.EmergencyCheck(0.01)
	assert.False(t, ok.Halt)

	// The threshold itself trips the halt.
	boundary := g.EmergencyCheck(0.05)
	assert.True(t, boundary.Halt)
}

func TestPortfolioKey(t *testing.T) {
	assert.Equal(t, "portfolio:live", PortfolioKey("live"))
}
