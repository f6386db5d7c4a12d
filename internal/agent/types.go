// Package agent defines the strategy agent contract consumed by the
// ensemble engine and the contest orchestrator. Agents themselves live
// outside this core; only their signals enter it.
package agent

import (
	"time"
)

// Direction is the trade direction voted by an agent.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// Regime tags the prevailing market regime for a symbol.
type Regime string

const (
	RegimeTrending      Regime = "trending"
	RegimeMeanReverting Regime = "mean_reverting"
	RegimeRandomWalk    Regime = "random_walk"
)

// Signal is a single agent's opinion for one symbol. Immutable once emitted.
type Signal struct {
	AgentID    string    `json:"agent_id"`
	Kind       Kind      `json:"kind"`
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Timestamp  time.Time `json:"timestamp"`
	Regime     Regime    `json:"regime"`
}

// MarketSnapshot carries the market context agents and gates read each cycle.
type MarketSnapshot struct {
	Symbol          string    `json:"symbol"`
	Price           float64   `json:"price"`
	ATR             float64   `json:"atr"`
	BarTimestamp    time.Time `json:"bar_timestamp"`
	Regime          Regime    `json:"regime"`
	SqueezeBreakout bool      `json:"squeeze_breakout"`
}

// ATRPercent returns ATR as a fraction of the current price.
func (m MarketSnapshot) ATRPercent() float64 {
	if m.Price <= 0 {
		return 0
	}
	return m.ATR / m.Price
}
