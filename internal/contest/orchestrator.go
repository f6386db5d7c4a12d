// Package contest implements the safety and competition orchestrator: it
// ranks agents by track record, gates every cycle behind a circuit breaker
// and a data freshness check, collects signals concurrently with
// per-agent timeouts, and hands the survivors to the ensemble engine.
package contest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantfabric/tradecore/internal/agent"
	"github.com/quantfabric/tradecore/internal/ensemble"
	"github.com/quantfabric/tradecore/pkg/metrics"
)

// Config tunes the orchestrator gates and signal collection.
type Config struct {
	MaxDataAge        time.Duration // freshness gate threshold
	AgentTimeout      time.Duration // per-agent signal call budget
	MaxConcurrent     int           // signal collection worker bound
	ATRLimitThreshold float64       // ATR/price fraction at which LIMIT orders kick in
	SlippageBuffer    float64       // limit price padding fraction
}

// DefaultConfig returns the production orchestrator settings.
func DefaultConfig() Config {
	return Config{
		MaxDataAge:        60 * time.Second,
		AgentTimeout:      5 * time.Second,
		MaxConcurrent:     4,
		ATRLimitThreshold: 0.03,
		SlippageBuffer:    0.001,
	}
}

// CycleResult bundles the ensemble decision with the slippage-safe order
// plan for it.
type CycleResult struct {
	Decision *ensemble.Decision `json:"decision"`
	Order    OrderPlan          `json:"order"`
	Rankings []Ranking          `json:"rankings"`
}

// Orchestrator runs the per-cycle contest for one trading context. A cycle
// is single-flight: overlapping scheduler ticks serialize on the cycle
// lock so gate checks and breaker mutations cannot interleave.
type Orchestrator struct {
	cfg      Config
	engine   *ensemble.Engine
	breaker  *CircuitBreaker
	registry *agent.Registry
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastGate GateResult
}

// NewOrchestrator wires the orchestrator together.
func NewOrchestrator(cfg Config, engine *ensemble.Engine, breaker *CircuitBreaker, registry *agent.Registry, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		engine:   engine,
		breaker:  breaker,
		registry: registry,
		logger:   logger.Named("contest"),
		now:      time.Now,
	}
}

// LastGate returns the most recent gate result, explaining a nil cycle
// outcome.
func (o *Orchestrator) LastGate() GateResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastGate
}

// RunCycle executes one full contest cycle. A nil result with a nil error
// means "do not trade this cycle"; the reason is available via LastGate.
func (o *Orchestrator) RunCycle(ctx context.Context, symbol string, snapshot agent.MarketSnapshot) (*CycleResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.breaker.Check(ctx) {
		o.lastGate = GateResult{Passed: false, Reason: "circuit breaker open", CheckedAt: o.now()}
		o.logger.Warn("cycle blocked by circuit breaker", zap.String("symbol", symbol))
		metrics.CyclesTotal.WithLabelValues("blocked").Inc()
		return nil, nil
	}

	if gate := CheckFreshness(snapshot.BarTimestamp, o.now(), o.cfg.MaxDataAge); !gate.Passed {
		o.lastGate = gate
		o.logger.Warn("cycle blocked by stale data",
			zap.String("symbol", symbol),
			zap.String("reason", gate.Reason))
		metrics.CyclesTotal.WithLabelValues("blocked").Inc()
		return nil, nil
	}

	records := o.engine.LoadRecords(ctx, symbol)
	agents := o.registry.List()

	ids := make([]string, len(agents))
	kinds := make(map[string]agent.Kind, len(agents))
	for i, a := range agents {
		ids[i] = a.ID()
		kinds[a.ID()] = a.Kind()
	}

	rankings := RankAgents(ids, records, kinds, snapshot.Regime)
	multipliers := make(map[string]float64, len(rankings))
	silencedIDs := make(map[string]bool)
	for _, r := range rankings {
		multipliers[r.AgentID] = r.WeightMultiplier
		if r.Silenced {
			silencedIDs[r.AgentID] = true
		}
	}

	active := make([]agent.Agent, 0, len(agents))
	for _, a := range agents {
		if !silencedIDs[a.ID()] {
			active = append(active, a)
		}
	}

	signals := o.collectSignals(ctx, active, symbol, snapshot)
	if len(signals) == 0 {
		o.lastGate = GateResult{Passed: false, Reason: "no agent signals survived collection", CheckedAt: o.now()}
		o.logger.Info("cycle ended with no surviving signals", zap.String("symbol", symbol))
		metrics.CyclesTotal.WithLabelValues("empty").Inc()
		return nil, nil
	}

	// A completed collection with at least one signal counts as an API
	// success and resets the failure streak.
	o.breaker.RecordSuccess(ctx)

	decision, err := o.engine.Decide(ctx, symbol, signals, snapshot, multipliers)
	if err != nil {
		return nil, err
	}

	o.lastGate = GateResult{Passed: true, Reason: "decision emitted", CheckedAt: o.now()}
	metrics.CyclesTotal.WithLabelValues("decision").Inc()
	metrics.DecisionsEmitted.WithLabelValues(string(decision.Direction)).Inc()

	return &CycleResult{
		Decision: decision,
		Order:    PlanOrder(decision.Direction, snapshot.Price, snapshot.ATRPercent(), o.cfg.ATRLimitThreshold, o.cfg.SlippageBuffer),
		Rankings: rankings,
	}, nil
}

// collectSignals fans out to the active agents with a bounded worker pool
// and a per-agent timeout. A failing or straggling agent is excluded and
// recorded as an API failure; it never aborts the cycle.
func (o *Orchestrator) collectSignals(ctx context.Context, agents []agent.Agent, symbol string, snapshot agent.MarketSnapshot) []agent.Signal {
	if len(agents) == 0 {
		return nil
	}

	workers := o.cfg.MaxConcurrent
	if workers <= 0 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	results := make(chan *agent.Signal, len(agents))
	var wg sync.WaitGroup

	for _, a := range agents {
		wg.Add(1)
		go func(a agent.Agent) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			callCtx, cancel := context.WithTimeout(ctx, o.cfg.AgentTimeout)
			defer cancel()

			sig, err := a.Signal(callCtx, symbol, snapshot)
			if err != nil {
				o.logger.Warn("agent signal failed, excluding from ensemble",
					zap.String("agent", a.ID()),
					zap.String("symbol", symbol),
					zap.Error(err))
				metrics.AgentSignalFailures.WithLabelValues(a.ID()).Inc()
				o.breaker.RecordFailure(ctx)
				return
			}
			if sig != nil {
				results <- sig
			}
		}(a)
	}

	wg.Wait()
	close(results)

	signals := make([]agent.Signal, 0, len(agents))
	for sig := range results {
		signals = append(signals, *sig)
	}
	return signals
}

// ProcessTradeOutcome is the fire-and-forget feedback hook called once per
// closed trade: it labels the outcome, updates the originating agent's
// record and feeds realized losses into the breaker's daily loss budget.
func (o *Orchestrator) ProcessTradeOutcome(ctx context.Context, sig agent.Signal, path []ensemble.PricePoint) {
	label, err := o.engine.LabelAndRecord(ctx, sig, path)
	if err != nil {
		o.logger.Error("trade outcome processing failed",
			zap.String("symbol", sig.Symbol),
			zap.String("agent", sig.AgentID),
			zap.Error(err))
	}

	if label.PnLPercent < 0 {
		o.breaker.AddDailyLoss(ctx, -label.PnLPercent)
	}
}

// DailyReset runs at session open: zeroes the daily loss budget and moves
// an OPEN breaker into its recovery probe.
func (o *Orchestrator) DailyReset(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.breaker.DailyReset(ctx)
}
