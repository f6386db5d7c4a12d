package ensemble

import (
	"math"
	"time"
)

const (
	// avgPnLAlpha is the exponential smoothing factor for average PnL.
	avgPnLAlpha = 0.1
	// minTradesForScore is the record size below which the weight score
	// stays at its neutral default.
	minTradesForScore = 3
	// neutralWeightScore is the cold-start weight score.
	neutralWeightScore = 0.25
)

// PerformanceRecord tracks one agent's historical performance on one symbol.
// It is mutated only by ApplyLabel and persisted as JSON.
type PerformanceRecord struct {
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	Neutrals      int       `json:"neutral"`
	AvgPnLPercent float64   `json:"avg_pnl"`
	Sharpe        float64   `json:"sharpe"`
	WeightScore   float64   `json:"weight_score"`
	LastUpdated   time.Time `json:"last_updated"`
}

// RecordSet is the persisted per-symbol layout: agent ID to record.
type RecordSet map[string]*PerformanceRecord

// TotalTrades returns the number of labeled trades on record.
func (r *PerformanceRecord) TotalTrades() int {
	return r.Wins + r.Losses + r.Neutrals
}

// WinRate returns wins over total labeled trades, 0 when empty.
func (r *PerformanceRecord) WinRate() float64 {
	total := r.TotalTrades()
	if total == 0 {
		return 0
	}
	return float64(r.Wins) / float64(total)
}

// ApplyLabel folds a resolved trade outcome into the record: counter
// increment, exponentially smoothed PnL, then the derived Sharpe-like
// score and normalized weight score.
func (r *PerformanceRecord) ApplyLabel(label TradeLabel, now time.Time) {
	switch label.Outcome {
	case OutcomeWin:
		r.Wins++
	case OutcomeLoss:
		r.Losses++
	default:
		r.Neutrals++
	}

	r.AvgPnLPercent = (1-avgPnLAlpha)*r.AvgPnLPercent + avgPnLAlpha*label.PnLPercent

	winRate := r.WinRate()
	r.Sharpe = r.AvgPnLPercent / math.Max(0.1, 1-winRate)

	if r.TotalTrades() < minTradesForScore {
		r.WeightScore = neutralWeightScore
	} else {
		r.WeightScore = 0.5*winRate + 0.5*NormalizeSharpe(r.Sharpe)
	}
	r.LastUpdated = now
}

// NormalizeSharpe maps a Sharpe-like score onto [0,1] via clamp((s+2)/4).
func NormalizeSharpe(sharpe float64) float64 {
	return clamp01((sharpe + 2) / 4)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
