// Package ensemble implements the signal ensemble engine: it weighs
// competing agent signals by historical performance, combines them into a
// single decision, sizes the position via half-Kelly, and labels closed
// trades with the triple-barrier method to keep the records current.
package ensemble

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quantfabric/tradecore/internal/agent"
	"github.com/quantfabric/tradecore/internal/store"
)

// DefaultDecisionThreshold discretizes the composite signal into a direction.
const DefaultDecisionThreshold = 0.3

// Decision is the ensemble's output for one cycle. Created fresh each
// cycle and handed to the risk governor; never persisted as an entity.
type Decision struct {
	ID           uuid.UUID          `json:"id"`
	Symbol       string             `json:"symbol"`
	Composite    float64            `json:"composite"`
	Direction    agent.Direction    `json:"direction"`
	PositionSize float64            `json:"position_size"`
	Confidence   float64            `json:"confidence"`
	Weights      map[string]float64 `json:"weights"`
	Regime       agent.Regime       `json:"regime"`
	Reasoning    string             `json:"reasoning"`
	Timestamp    time.Time          `json:"timestamp"`
}

// Config holds the tunable parameters of the ensemble engine.
type Config struct {
	Context           string
	Beta              float64
	DecisionThreshold float64
	Barriers          BarrierConfig
}

// DefaultConfig returns the production defaults.
func DefaultConfig(contextName string) Config {
	return Config{
		Context:           contextName,
		Beta:              DefaultBeta,
		DecisionThreshold: DefaultDecisionThreshold,
		Barriers: BarrierConfig{
			TakeProfitPercent: 2.0,
			StopLossPercent:   1.0,
			TimeLimit:         4 * time.Hour,
		},
	}
}

// Engine combines agent signals into position-sized decisions.
type Engine struct {
	cfg    Config
	store  store.Store
	logger *zap.Logger
}

// NewEngine creates an ensemble engine backed by the given store.
func NewEngine(cfg Config, st store.Store, logger *zap.Logger) *Engine {
	if cfg.Beta == 0 {
		cfg.Beta = DefaultBeta
	}
	if cfg.DecisionThreshold == 0 {
		cfg.DecisionThreshold = DefaultDecisionThreshold
	}
	return &Engine{cfg: cfg, store: st, logger: logger.Named("ensemble")}
}

func (e *Engine) recordsKey(symbol string) string {
	return fmt.Sprintf("records:%s:%s", e.cfg.Context, symbol)
}

// LoadRecords fetches the per-symbol performance records. A persistence
// failure degrades to an empty set (equal weighting downstream) so a store
// outage cannot halt trading, but it is logged loudly because it silently
// disables learning.
func (e *Engine) LoadRecords(ctx context.Context, symbol string) RecordSet {
	records := make(RecordSet)
	found, err := e.store.GetJSON(ctx, e.recordsKey(symbol), &records)
	if err != nil {
		e.logger.Error("failed to load performance records, degrading to equal weights",
			zap.String("symbol", symbol),
			zap.Error(err))
		return make(RecordSet)
	}
	if !found {
		return make(RecordSet)
	}
	return records
}

// Decide runs the full pipeline: records -> softmax weights -> regime
// adjustment -> ranking multipliers -> weighted vote -> Kelly sizing ->
// decision. The multipliers map comes from the contest ranking and may be
// nil.
func (e *Engine) Decide(ctx context.Context, symbol string, signals []agent.Signal, snapshot agent.MarketSnapshot, multipliers map[string]float64) (*Decision, error) {
	if len(signals) == 0 {
		return nil, fmt.Errorf("no signals to ensemble for %s", symbol)
	}

	records := e.LoadRecords(ctx, symbol)

	ids := make([]string, 0, len(signals))
	kinds := make(map[string]agent.Kind, len(signals))
	scores := make(map[string]float64, len(signals))
	for _, s := range signals {
		ids = append(ids, s.AgentID)
		kinds[s.AgentID] = s.Kind
		if rec, ok := records[s.AgentID]; ok {
			scores[s.AgentID] = rec.WeightScore
		} else {
			scores[s.AgentID] = neutralWeightScore
		}
	}

	weights := SoftmaxWeights(scores, e.cfg.Beta, ids)
	weights = AdjustForRegime(weights, kinds, snapshot.Regime, snapshot.SqueezeBreakout)
	weights = applyMultipliers(weights, multipliers)

	var composite float64
	for _, s := range signals {
		composite += weights[s.AgentID] * signalValue(s)
	}

	direction := agent.DirectionHold
	if composite > e.cfg.DecisionThreshold {
		direction = agent.DirectionBuy
	} else if composite < -e.cfg.DecisionThreshold {
		direction = agent.DirectionSell
	}

	confidence := composite
	if confidence < 0 {
		confidence = -confidence
	}

	size := positionFraction(records, averageRewardRisk(signals)) * confidence

	decision := &Decision{
		ID:           uuid.New(),
		Symbol:       symbol,
		Composite:    composite,
		Direction:    direction,
		PositionSize: size,
		Confidence:   confidence,
		Weights:      weights,
		Regime:       snapshot.Regime,
		Reasoning:    buildReasoning(signals, weights),
		Timestamp:    time.Now().UTC(),
	}

	e.logger.Info("ensemble decision",
		zap.String("symbol", symbol),
		zap.String("direction", string(direction)),
		zap.Float64("composite", composite),
		zap.Float64("size", size),
		zap.Int("signals", len(signals)))

	return decision, nil
}

// LabelAndRecord resolves a trade outcome via the triple barrier, folds it
// into the originating agent's record and persists the record set through
// an optimistic update. The returned label lets the caller feed loss
// magnitudes into the circuit breaker's daily loss accumulator.
func (e *Engine) LabelAndRecord(ctx context.Context, sig agent.Signal, path []PricePoint) (TradeLabel, error) {
	label := LabelTrade(sig.EntryPrice, sig.Direction, sig.Timestamp, path, e.cfg.Barriers)

	records := make(RecordSet)
	err := e.store.UpdateJSON(ctx, e.recordsKey(sig.Symbol), &records, func() error {
		rec := records[sig.AgentID]
		if rec == nil {
			rec = &PerformanceRecord{}
			records[sig.AgentID] = rec
		}
		rec.ApplyLabel(label, time.Now().UTC())
		return nil
	})
	if err != nil {
		e.logger.Error("failed to persist performance record",
			zap.String("symbol", sig.Symbol),
			zap.String("agent", sig.AgentID),
			zap.Error(err))
		return label, err
	}

	e.logger.Debug("trade labeled",
		zap.String("symbol", sig.Symbol),
		zap.String("agent", sig.AgentID),
		zap.String("barrier", string(label.Barrier)),
		zap.Float64("pnl_percent", label.PnLPercent))

	return label, nil
}

// applyMultipliers scales weights by the contest ranking multipliers and
// re-normalizes. Agents absent from the map keep their weight.
func applyMultipliers(weights, multipliers map[string]float64) map[string]float64 {
	if len(multipliers) == 0 {
		return weights
	}

	scaled := make(map[string]float64, len(weights))
	var sum float64
	for id, w := range weights {
		m, ok := multipliers[id]
		if !ok {
			m = 1
		}
		scaled[id] = w * m
		sum += scaled[id]
	}
	if sum <= 0 {
		return scaled
	}
	for id := range scaled {
		scaled[id] /= sum
	}
	return scaled
}

// averageRewardRisk derives the reward:risk ratio from signals carrying
// usable stop and target levels.
func averageRewardRisk(signals []agent.Signal) float64 {
	var sum float64
	var n int
	for _, s := range signals {
		if s.EntryPrice <= 0 || s.StopLoss <= 0 || s.TakeProfit <= 0 {
			continue
		}
		risk := s.EntryPrice - s.StopLoss
		reward := s.TakeProfit - s.EntryPrice
		if s.Direction == agent.DirectionSell {
			risk, reward = -risk, -reward
		}
		if risk <= 0 || reward <= 0 {
			continue
		}
		sum += reward / risk
		n++
	}
	if n == 0 {
		return defaultRewardRisk
	}
	return sum / float64(n)
}

// buildReasoning renders the per-agent vote and weight trace.
func buildReasoning(signals []agent.Signal, weights map[string]float64) string {
	sorted := make([]agent.Signal, len(signals))
	copy(sorted, signals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AgentID < sorted[j].AgentID })

	var b strings.Builder
	for i, s := range sorted {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s voted %s (conf %.2f, weight %.2f)",
			s.AgentID, s.Direction, s.Confidence, weights[s.AgentID])
	}
	return b.String()
}
