package riskgov

import (
	"github.com/shopspring/decimal"
)

// PortfolioState is the snapshot the external portfolio layer publishes
// through the store: the governor and scheduler read it, never write it.
type PortfolioState struct {
	Balance   decimal.Decimal `json:"balance"`
	Drawdown  float64         `json:"drawdown"`
	Positions []Position      `json:"positions"`
}

// PortfolioKey is the store key for a trading context's portfolio state.
func PortfolioKey(contextName string) string {
	return "portfolio:" + contextName
}
