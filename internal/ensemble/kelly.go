package ensemble

import "math"

const (
	// halfKellyFactor reduces variance relative to full Kelly.
	halfKellyFactor = 0.5
	// maxKellyFraction caps the capital fraction regardless of edge.
	maxKellyFraction = 0.25
	// coldStartTrades is the aggregate record size below which the Kelly
	// estimate is too unstable to trust.
	coldStartTrades = 10
	// coldStartFraction is the flat conservative size used before that.
	coldStartFraction = 0.05
	// defaultRewardRisk is used when no signal carries usable stop/target levels.
	defaultRewardRisk = 1.5
)

// KellyFraction computes the half-Kelly capital fraction for win
// probability p and reward:risk ratio b, clamped to [0, maxKellyFraction].
func KellyFraction(p, b float64) float64 {
	if b <= 0 {
		return 0
	}
	full := (p*(b+1) - 1) / b
	frac := full * halfKellyFactor
	return math.Max(0, math.Min(maxKellyFraction, frac))
}

// positionFraction sizes the position from the aggregate record. Below the
// cold-start threshold it short-circuits to a flat conservative fraction.
func positionFraction(records RecordSet, rewardRisk float64) float64 {
	var wins, total int
	for _, rec := range records {
		wins += rec.Wins
		total += rec.TotalTrades()
	}
	if total < coldStartTrades {
		return coldStartFraction
	}

	p := float64(wins) / float64(total)
	if rewardRisk <= 0 {
		rewardRisk = defaultRewardRisk
	}
	return KellyFraction(p, rewardRisk)
}
