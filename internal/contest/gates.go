package contest

import (
	"fmt"
	"time"

	"github.com/quantfabric/tradecore/internal/agent"
)

// GateResult explains why a cycle was allowed or blocked.
type GateResult struct {
	Passed    bool      `json:"passed"`
	Reason    string    `json:"reason"`
	CheckedAt time.Time `json:"checked_at"`
}

// CheckFreshness rejects the cycle when the most recent data bar is older
// than the configured threshold.
func CheckFreshness(barTimestamp, now time.Time, maxAge time.Duration) GateResult {
	age := now.Sub(barTimestamp)
	if age > maxAge {
		return GateResult{
			Passed:    false,
			Reason:    fmt.Sprintf("market data is stale: bar age %s exceeds %s", age.Round(time.Second), maxAge),
			CheckedAt: now,
		}
	}
	return GateResult{Passed: true, Reason: "data fresh", CheckedAt: now}
}

// OrderType selects how the eventual order should be priced.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderPlan is the slippage-control recommendation attached to a decision.
type OrderPlan struct {
	Type       OrderType `json:"type"`
	LimitPrice float64   `json:"limit_price,omitempty"`
}

// PlanOrder prefers a LIMIT order when volatility (ATR as a fraction of
// price) is high enough that market-order slippage becomes expensive. The
// limit price pads the current price by the slippage buffer, above for
// buys and below for sells.
func PlanOrder(direction agent.Direction, price, atrPercent, atrLimitThreshold, slippageBuffer float64) OrderPlan {
	if atrPercent < atrLimitThreshold {
		return OrderPlan{Type: OrderTypeMarket}
	}

	limit := price * (1 + slippageBuffer)
	if direction == agent.DirectionSell {
		limit = price * (1 - slippageBuffer)
	}
	return OrderPlan{Type: OrderTypeLimit, LimitPrice: limit}
}
