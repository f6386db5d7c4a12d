package riskgov

// trackPrice appends a price observation to the symbol's rolling window,
// truncating once the buffer grows past twice the configured lookback.
// Callers hold g.mu and are responsible for invalidating cached
// correlations involving the symbol.
func (g *Governor) trackPrice(symbol string, price float64) {
	if price <= 0 {
		return
	}

	window := g.cfg.Lookback
	prices := append(g.history[symbol], price)
	if len(prices) > 2*window {
		prices = prices[len(prices)-window:]
	}
	g.history[symbol] = prices
}

// recentPrices returns up to lookback most recent prices for a symbol.
func (g *Governor) recentPrices(symbol string) []float64 {
	prices := g.history[symbol]
	if len(prices) > g.cfg.Lookback {
		prices = prices[len(prices)-g.cfg.Lookback:]
	}
	return prices
}

// simpleReturns converts a price series into period-over-period returns.
func simpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	return returns
}
