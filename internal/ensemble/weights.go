package ensemble

import (
	"math"

	"github.com/quantfabric/tradecore/internal/agent"
)

// DefaultBeta is the softmax temperature; higher is more winner-take-all.
const DefaultBeta = 2.0

// Regime adjustment multipliers. Squeeze breakouts invalidate the
// mean-reversion premise entirely, hence the hard zero.
const (
	regimeBoost   = 1.5
	regimePenalty = 0.7
)

// SoftmaxWeights converts per-agent performance scores into normalized
// voting weights. The max score is subtracted before exponentiation for
// numerical stability. An empty score map yields equal weights over the
// known agent set.
func SoftmaxWeights(scores map[string]float64, beta float64, knownAgents []string) map[string]float64 {
	weights := make(map[string]float64)

	if len(scores) == 0 {
		if len(knownAgents) == 0 {
			return weights
		}
		equal := 1.0 / float64(len(knownAgents))
		for _, id := range knownAgents {
			weights[id] = equal
		}
		return weights
	}

	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}

	var sum float64
	for id, s := range scores {
		w := math.Exp(beta * (s - maxScore))
		weights[id] = w
		sum += w
	}
	for id := range weights {
		weights[id] /= sum
	}
	return weights
}

// AdjustForRegime multiplicatively reshapes weights for the prevailing
// regime and re-normalizes. Pure function: the input map is not modified.
func AdjustForRegime(weights map[string]float64, kinds map[string]agent.Kind, regime agent.Regime, squeezeBreakout bool) map[string]float64 {
	adjusted := make(map[string]float64, len(weights))
	for id, w := range weights {
		factor := 1.0
		switch kinds[id] {
		case agent.KindMomentum:
			if regime == agent.RegimeTrending {
				factor = regimeBoost
			} else if regime == agent.RegimeMeanReverting {
				factor = regimePenalty
			}
		case agent.KindMeanReversion:
			if squeezeBreakout {
				factor = 0
			} else if regime == agent.RegimeMeanReverting {
				factor = regimeBoost
			} else if regime == agent.RegimeTrending {
				factor = regimePenalty
			}
		}
		adjusted[id] = w * factor
	}

	var sum float64
	for _, w := range adjusted {
		sum += w
	}
	if sum <= 0 {
		// Everything zeroed out; fall back to the untouched weights.
		for id, w := range weights {
			adjusted[id] = w
		}
		return adjusted
	}
	for id := range adjusted {
		adjusted[id] /= sum
	}
	return adjusted
}

// signalValue maps a signal onto [-1, 1]: BUY contributes +confidence,
// SELL contributes -confidence, HOLD contributes nothing.
func signalValue(s agent.Signal) float64 {
	switch s.Direction {
	case agent.DirectionBuy:
		return s.Confidence
	case agent.DirectionSell:
		return -s.Confidence
	default:
		return 0
	}
}
