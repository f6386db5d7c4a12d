package ensemble

import (
	"time"

	"github.com/quantfabric/tradecore/internal/agent"
)

// Barrier identifies which boundary resolved a trade.
type Barrier string

const (
	BarrierUpper    Barrier = "UPPER"
	BarrierLower    Barrier = "LOWER"
	BarrierVertical Barrier = "VERTICAL"
)

// Outcome is the label assigned to a resolved trade.
type Outcome int

const (
	OutcomeWin     Outcome = 1
	OutcomeLoss    Outcome = -1
	OutcomeNeutral Outcome = 0
)

// TradeLabel is the result of triple-barrier labeling. It is applied to the
// originating agent's record exactly once and then discarded.
type TradeLabel struct {
	Outcome    Outcome       `json:"outcome"`
	Barrier    Barrier       `json:"barrier"`
	PnLPercent float64       `json:"pnl_percent"`
	Duration   time.Duration `json:"duration"`
}

// PricePoint is one observation on the price path following an entry.
type PricePoint struct {
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// BarrierConfig sets the three barriers for outcome labeling.
type BarrierConfig struct {
	TakeProfitPercent float64       // upper barrier distance, e.g. 2.0
	StopLossPercent   float64       // lower barrier distance, e.g. 1.0
	TimeLimit         time.Duration // vertical barrier
}

// LabelTrade walks the price path in order and returns the label for
// whichever barrier is touched first. An exhausted path counts as a
// vertical-barrier hit at the final point; vertical hits carry the actual
// direction-signed mark-to-market PnL at that instant.
func LabelTrade(entry float64, direction agent.Direction, entryTime time.Time, path []PricePoint, cfg BarrierConfig) TradeLabel {
	if entry <= 0 || len(path) == 0 {
		return TradeLabel{Outcome: OutcomeNeutral, Barrier: BarrierVertical}
	}

	long := direction != agent.DirectionSell
	upper := entry * (1 + cfg.TakeProfitPercent/100)
	lower := entry * (1 - cfg.StopLossPercent/100)
	if !long {
		upper = entry * (1 - cfg.TakeProfitPercent/100)
		lower = entry * (1 + cfg.StopLossPercent/100)
	}

	deadline := entryTime.Add(cfg.TimeLimit)
	for _, point := range path {
		elapsed := point.Timestamp.Sub(entryTime)

		if cfg.TimeLimit > 0 && point.Timestamp.After(deadline) {
			return verticalLabel(entry, point, long, elapsed)
		}

		if long {
			if point.Price >= upper {
				return TradeLabel{Outcome: OutcomeWin, Barrier: BarrierUpper, PnLPercent: cfg.TakeProfitPercent, Duration: elapsed}
			}
			if point.Price <= lower {
				return TradeLabel{Outcome: OutcomeLoss, Barrier: BarrierLower, PnLPercent: -cfg.StopLossPercent, Duration: elapsed}
			}
		} else {
			if point.Price <= upper {
				return TradeLabel{Outcome: OutcomeWin, Barrier: BarrierUpper, PnLPercent: cfg.TakeProfitPercent, Duration: elapsed}
			}
			if point.Price >= lower {
				return TradeLabel{Outcome: OutcomeLoss, Barrier: BarrierLower, PnLPercent: -cfg.StopLossPercent, Duration: elapsed}
			}
		}
	}

	last := path[len(path)-1]
	return verticalLabel(entry, last, long, last.Timestamp.Sub(entryTime))
}

func verticalLabel(entry float64, point PricePoint, long bool, elapsed time.Duration) TradeLabel {
	pnl := (point.Price - entry) / entry * 100
	if !long {
		pnl = -pnl
	}
	return TradeLabel{Outcome: OutcomeNeutral, Barrier: BarrierVertical, PnLPercent: pnl, Duration: elapsed}
}
