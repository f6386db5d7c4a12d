// Package riskgov implements the correlation-aware risk governor. Every
// proposed trade passes through EvaluateTrade before order submission,
// regardless of which path produced it: the governor enforces the
// per-trade risk cap, halves doubled-up exposure to correlated
// instruments, and keeps total exposure inside the portfolio budget.
package riskgov

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantfabric/tradecore/internal/agent"
	"github.com/quantfabric/tradecore/pkg/metrics"
)

// Config tunes the risk governor.
type Config struct {
	Lookback             int     // rolling price window per symbol
	MinCorrelationPoints int     // fewer shared return points fails open
	CorrelationThreshold float64 // coefficient treated as "correlated"
	PerTradeRiskPercent  float64 // per-trade risk cap, fraction of balance
	PortfolioRiskPercent float64 // total exposure cap, fraction of balance
	StopDistancePercent  float64 // assumed stop distance for the risk model
	MaxDrawdownPercent   float64 // emergency halt threshold
}

// DefaultConfig returns the production risk limits.
func DefaultConfig() Config {
	return Config{
		Lookback:             30,
		MinCorrelationPoints: 5,
		CorrelationThreshold: 0.80,
		PerTradeRiskPercent:  0.02,
		PortfolioRiskPercent: 0.10,
		StopDistancePercent:  0.02,
		MaxDrawdownPercent:   0.05,
	}
}

// Position is an open position the governor evaluates new trades against.
type Position struct {
	Symbol    string          `json:"symbol"`
	Direction agent.Direction `json:"direction"`
	Size      decimal.Decimal `json:"size"`
}

// Assessment is the governor's verdict. Callers must check Approved and
// place orders with AdjustedSize, never OriginalSize. Identical inputs
// produce identical assessments.
type Assessment struct {
	Approved     bool               `json:"approved"`
	OriginalSize decimal.Decimal    `json:"original_size"`
	AdjustedSize decimal.Decimal    `json:"adjusted_size"`
	RiskScore    float64            `json:"risk_score"`
	Reason       string             `json:"reason"`
	Correlations map[string]float64 `json:"correlations"`
}

// HaltSignal is the portfolio-wide emergency stop, distinct from a
// per-cycle "no decision": on Halt the caller stops scheduling cycles.
type HaltSignal struct {
	Halt            bool    `json:"halt"`
	DrawdownPercent float64 `json:"drawdown_percent"`
	LimitPercent    float64 `json:"limit_percent"`
	Reason          string  `json:"reason"`
}

// Governor owns the rolling price history and correlation cache for one
// portfolio.
type Governor struct {
	cfg    Config
	logger *zap.Logger

	mu        sync.Mutex
	history   map[string][]float64
	corrCache map[pairKey]float64
}

// NewGovernor creates a risk governor.
func NewGovernor(cfg Config, logger *zap.Logger) *Governor {
	return &Governor{
		cfg:       cfg,
		logger:    logger.Named("riskgov"),
		history:   make(map[string][]float64),
		corrCache: make(map[pairKey]float64),
	}
}

// TrackPrice records a price observation for correlation measurement.
func (g *Governor) TrackPrice(symbol string, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trackPrice(symbol, price)
	g.invalidateCorrelations(symbol)
}

// Correlation exposes the measured or assumed coefficient for a pair.
func (g *Governor) Correlation(x, y string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.correlation(x, y)
}

// EvaluateTrade sizes a proposed trade against the per-trade cap, the
// correlated-exposure rule and the portfolio budget. It always returns an
// assessment and never mutates price history, so identical inputs yield
// identical results.
func (g *Governor) EvaluateTrade(symbol string, proposedSize decimal.Decimal, side agent.Direction, balance decimal.Decimal, open []Position) Assessment {
	g.mu.Lock()
	defer g.mu.Unlock()

	assessment := Assessment{
		OriginalSize: proposedSize,
		AdjustedSize: proposedSize,
		Correlations: make(map[string]float64, len(open)),
	}
	var reasons []string

	if proposedSize.Sign() <= 0 || balance.Sign() <= 0 {
		assessment.AdjustedSize = decimal.Zero
		assessment.Reason = "rejected: non-positive size or balance"
		return assessment
	}

	stopDistance := decimal.NewFromFloat(g.cfg.StopDistancePercent)
	riskCap := balance.Mul(decimal.NewFromFloat(g.cfg.PerTradeRiskPercent))

	// 1. Per-trade cap: shrink to the exact size whose implied risk
	// (assumed stop distance) fits the budget.
	impliedRisk := assessment.AdjustedSize.Mul(stopDistance)
	if impliedRisk.GreaterThan(riskCap) {
		assessment.AdjustedSize = riskCap.Div(stopDistance)
		reasons = append(reasons, fmt.Sprintf("per-trade risk cap: size reduced to %s", assessment.AdjustedSize.StringFixed(2)))
		metrics.RiskAdjustments.WithLabelValues("per_trade_cap").Inc()
	}

	// 2. Correlated exposure: doubling down on the same risk factor in
	// the same direction halves the size.
	var maxCorr float64
	var maxCorrSameSide bool
	for _, pos := range open {
		c := g.correlation(symbol, pos.Symbol)
		assessment.Correlations[pos.Symbol] = c
		if c > maxCorr {
			maxCorr = c
			maxCorrSameSide = pos.Direction == side
		}
	}
	if maxCorr >= g.cfg.CorrelationThreshold && maxCorrSameSide {
		assessment.AdjustedSize = assessment.AdjustedSize.Div(decimal.NewFromInt(2))
		reasons = append(reasons, fmt.Sprintf("correlated same-direction exposure (%.2f): size halved", maxCorr))
		metrics.RiskAdjustments.WithLabelValues("correlation").Inc()
	}

	// 3. Portfolio budget: shrink to the remaining budget, or reject
	// outright when none remains.
	portfolioCap := balance.Mul(decimal.NewFromFloat(g.cfg.PortfolioRiskPercent))
	var exposure decimal.Decimal
	for _, pos := range open {
		exposure = exposure.Add(pos.Size.Abs())
	}
	remaining := portfolioCap.Sub(exposure)
	if remaining.Sign() <= 0 {
		assessment.AdjustedSize = decimal.Zero
		reasons = append(reasons, "portfolio risk budget exhausted: rejected")
		metrics.RiskAdjustments.WithLabelValues("portfolio_cap").Inc()
	} else if assessment.AdjustedSize.GreaterThan(remaining) {
		assessment.AdjustedSize = remaining
		reasons = append(reasons, fmt.Sprintf("portfolio risk cap: size reduced to remaining budget %s", remaining.StringFixed(2)))
		metrics.RiskAdjustments.WithLabelValues("portfolio_cap").Inc()
	}

	assessment.Approved = assessment.AdjustedSize.Sign() > 0
	assessment.RiskScore = g.riskScore(exposure.Add(assessment.AdjustedSize), portfolioCap, maxCorr)
	if len(reasons) == 0 {
		assessment.Reason = "approved: within risk limits"
	} else {
		assessment.Reason = strings.Join(reasons, "; ")
	}

	g.logger.Info("trade evaluated",
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Bool("approved", assessment.Approved),
		zap.String("original_size", assessment.OriginalSize.String()),
		zap.String("adjusted_size", assessment.AdjustedSize.String()),
		zap.Float64("risk_score", assessment.RiskScore))

	return assessment
}

// EmergencyCheck is the portfolio-wide hard stop on drawdown, independent
// of the per-agent circuit breaker.
func (g *Governor) EmergencyCheck(drawdown float64) HaltSignal {
	signal := HaltSignal{
		DrawdownPercent: drawdown * 100,
		LimitPercent:    g.cfg.MaxDrawdownPercent * 100,
	}
	if drawdown >= g.cfg.MaxDrawdownPercent {
		signal.Halt = true
		signal.Reason = fmt.Sprintf("drawdown %.2f%% breached hard limit %.2f%%", signal.DrawdownPercent, signal.LimitPercent)
		g.logger.Error("emergency halt triggered", zap.String("reason", signal.Reason))
		return signal
	}
	signal.Reason = "drawdown within limits"
	return signal
}

// riskScore summarizes how much of the risk budget the trade consumes.
func (g *Governor) riskScore(newExposure, portfolioCap decimal.Decimal, maxCorr float64) float64 {
	var utilization float64
	if portfolioCap.Sign() > 0 {
		utilization, _ = newExposure.Div(portfolioCap).Float64()
	}
	score := 0.6*utilization + 0.4*maxCorr
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}
