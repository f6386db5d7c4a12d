package contest

import (
	"sort"

	"github.com/quantfabric/tradecore/internal/agent"
	"github.com/quantfabric/tradecore/internal/ensemble"
)

// Ranking weight multipliers: the top two performers get boosted, the
// rest get a mild penalty, silenced agents are zeroed out entirely.
const (
	topRankBoost     = 1.2
	lowerRankPenalty = 0.9
	topRankCount     = 2

	// silenceMinTrades / silenceWinRate gate the performance-based silence.
	silenceMinTrades = 10
	silenceWinRate   = 0.30
)

// Ranking is one agent's standing for the current cycle. Recomputed every
// cycle from the live records, so a silenced agent whose win rate recovers
// is automatically un-silenced.
type Ranking struct {
	Rank             int     `json:"rank"`
	AgentID          string  `json:"agent_id"`
	Score            float64 `json:"score"`
	WeightMultiplier float64 `json:"weight_multiplier"`
	Silenced         bool    `json:"silenced"`
}

// RankAgents scores every agent from its performance record, sorts
// descending and assigns weight multipliers. Silencing overrides the
// multiplier to zero when an agent's premise contradicts the regime or its
// track record is demonstrably poor.
func RankAgents(ids []string, records ensemble.RecordSet, kinds map[string]agent.Kind, regime agent.Regime) []Ranking {
	rankings := make([]Ranking, 0, len(ids))
	for _, id := range ids {
		var score float64
		rec := records[id]
		if rec != nil {
			score = 0.6*ensemble.NormalizeSharpe(rec.Sharpe) + 0.4*rec.WinRate()
		}
		rankings = append(rankings, Ranking{AgentID: id, Score: score})
	}

	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Score != rankings[j].Score {
			return rankings[i].Score > rankings[j].Score
		}
		return rankings[i].AgentID < rankings[j].AgentID
	})

	for i := range rankings {
		r := &rankings[i]
		r.Rank = i + 1
		if r.Rank <= topRankCount {
			r.WeightMultiplier = topRankBoost
		} else {
			r.WeightMultiplier = lowerRankPenalty
		}

		if silenced(kinds[r.AgentID], records[r.AgentID], regime) {
			r.WeightMultiplier = 0
			r.Silenced = true
		}
	}
	return rankings
}

// silenced applies the regime-mismatch and poor-track-record rules.
func silenced(kind agent.Kind, rec *ensemble.PerformanceRecord, regime agent.Regime) bool {
	if kind == agent.KindMomentum && regime == agent.RegimeMeanReverting {
		return true
	}
	if kind == agent.KindMeanReversion && regime == agent.RegimeTrending {
		return true
	}
	if rec != nil && rec.TotalTrades() >= silenceMinTrades && rec.WinRate() < silenceWinRate {
		return true
	}
	return false
}
