package riskgov

import "math"

// groupCorrelation is the assumed coefficient for two instruments in the
// same static correlation group when price history is too thin to measure.
const groupCorrelation = 0.85

// correlationGroups lists instruments assumed to move together. Used only
// as a fallback before enough shared price history accumulates.
var correlationGroups = map[string][]string{
	"safe_haven":    {"XAUUSD", "XAGUSD", "BTCUSD", "BTCUSDT"},
	"crypto_majors": {"BTCUSDT", "ETHUSDT", "SOLUSDT", "BNBUSDT"},
	"us_indices":    {"SPX500", "NAS100", "US30"},
}

type pairKey struct {
	a, b string
}

func newPairKey(x, y string) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// correlation returns the measured or assumed correlation between two
// symbols, caching measured values until fresh prices arrive. Callers
// hold g.mu.
func (g *Governor) correlation(x, y string) float64 {
	if x == y {
		return 1
	}

	key := newPairKey(x, y)
	if c, ok := g.corrCache[key]; ok {
		return c
	}

	rx := simpleReturns(g.recentPrices(x))
	ry := simpleReturns(g.recentPrices(y))
	n := len(rx)
	if len(ry) < n {
		n = len(ry)
	}

	if n < g.cfg.MinCorrelationPoints {
		// Not enough shared history: fall back to the static groups,
		// failing open (zero) when the pair matches none.
		if sameGroup(x, y) {
			g.corrCache[key] = groupCorrelation
			return groupCorrelation
		}
		g.corrCache[key] = 0
		return 0
	}

	c := pearson(rx[len(rx)-n:], ry[len(ry)-n:])
	g.corrCache[key] = c
	return c
}

// invalidateCorrelations drops cached coefficients involving symbol.
// Callers hold g.mu.
func (g *Governor) invalidateCorrelations(symbol string) {
	for key := range g.corrCache {
		if key.a == symbol || key.b == symbol {
			delete(g.corrCache, key)
		}
	}
}

// pearson computes the Pearson correlation coefficient of two equal-length
// series, returning 0 when either side has no variance.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n == 0 {
		return 0
	}

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

func sameGroup(x, y string) bool {
	for _, members := range correlationGroups {
		var hasX, hasY bool
		for _, m := range members {
			if m == x {
				hasX = true
			}
			if m == y {
				hasY = true
			}
		}
		if hasX && hasY {
			return true
		}
	}
	return false
}
