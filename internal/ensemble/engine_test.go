package ensemble

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfabric/tradecore/internal/agent"
	"github.com/quantfabric/tradecore/internal/store"
	"github.com/quantfabric/tradecore/pkg/logger"
)

func newTestEngine(st store.Store) *Engine {
	return NewEngine(DefaultConfig("test"), st, logger.NewNop())
}

func testSnapshot(regime agent.Regime) agent.MarketSnapshot {
	return agent.MarketSnapshot{
		Symbol:       "BTCUSDT",
		Price:        50000,
		ATR:          500,
		BarTimestamp: time.Now(),
		Regime:       regime,
	}
}

func buySignal(id string, kind agent.Kind, conf float64) agent.Signal {
	return agent.Signal{
		AgentID:    id,
		Kind:       kind,
		Symbol:     "BTCUSDT",
		Direction:  agent.DirectionBuy,
		Confidence: conf,
		EntryPrice: 50000,
		StopLoss:   49500,
		TakeProfit: 51000,
		Timestamp:  time.Now(),
	}
}

func TestDecide_UnanimousBuy(t *testing.T) {
	engine := newTestEngine(store.NewMemoryStore())

	signals := []agent.Signal{
		buySignal("momentum-1", agent.KindMomentum, 0.9),
		buySignal("liquidity-1", agent.KindLiquidity, 0.8),
	}

	decision, err := engine.Decide(context.Background(), "BTCUSDT", signals, testSnapshot(agent.RegimeTrending), nil)
	require.NoError(t, err)

	assert.Equal(t, agent.DirectionBuy, decision.Direction)
	assert.Greater(t, decision.Composite, 0.3)
	assert.InDelta(t, decision.Composite, decision.Confidence, 1e-9)
	assert.Greater(t, decision.PositionSize, 0.0)

	var weightSum float64
	for _, w := range decision.Weights {
		weightSum += w
	}
	assert.InDelta(t, 1.0, weightSum, 1e-9)

	assert.Contains(t, decision.Reasoning, "momentum-1 voted BUY")
	assert.Contains(t, decision.Reasoning, "liquidity-1 voted BUY")
}

func TestDecide_ConflictingSignalsHold(t *testing.T) {
	engine := newTestEngine(store.NewMemoryStore())

	sell := buySignal("reversion-1", agent.KindMeanReversion, 0.85)
	sell.Direction = agent.DirectionSell

	signals := []agent.Signal{
		buySignal("momentum-1", agent.KindMomentum, 0.85),
		sell,
	}

	decision, err := engine.Decide(context.Background(), "BTCUSDT", signals, testSnapshot(agent.RegimeRandomWalk), nil)
	require.NoError(t, err)

	// Equal weights, equal confidence, opposite votes: composite is 0.
	assert.Equal(t, agent.DirectionHold, decision.Direction)
	assert.InDelta(t, 0.0, decision.Composite, 1e-9)
}

func TestDecide_ColdStartPositionSize(t *testing.T) {
	engine := newTestEngine(store.NewMemoryStore())

	signals := []agent.Signal{buySignal("momentum-1", agent.KindMomentum, 1.0)}
	decision, err := engine.Decide(context.Background(), "BTCUSDT", signals, testSnapshot(agent.RegimeTrending), nil)
	require.NoError(t, err)

	// No records at all: flat conservative fraction times confidence.
	assert.InDelta(t, 0.05*decision.Confidence, decision.PositionSize, 1e-9)
}

func TestDecide_MultipliersSilenceAgent(t *testing.T) {
	engine := newTestEngine(store.NewMemoryStore())

	sell := buySignal("reversion-1", agent.KindMeanReversion, 0.9)
	sell.Direction = agent.DirectionSell

	signals := []agent.Signal{
		buySignal("momentum-1", agent.KindMomentum, 0.9),
		sell,
	}
	multipliers := map[string]float64{"momentum-1": 1.2, "reversion-1": 0}

	decision, err := engine.Decide(context.Background(), "BTCUSDT", signals, testSnapshot(agent.RegimeRandomWalk), multipliers)
	require.NoError(t, err)

	assert.Equal(t, agent.DirectionBuy, decision.Direction)
	assert.Zero(t, decision.Weights["reversion-1"])
}

func TestDecide_NoSignals(t *testing.T) {
	engine := newTestEngine(store.NewMemoryStore())
	_, err := engine.Decide(context.Background(), "BTCUSDT", nil, testSnapshot(agent.RegimeTrending), nil)
	assert.Error(t, err)
}

func TestLabelAndRecord_PersistsRecord(t *testing.T) {
	st := store.NewMemoryStore()
	engine := newTestEngine(st)

	sig := buySignal("momentum-1", agent.KindMomentum, 0.9)
	path := []PricePoint{{Price: 51000, Timestamp: sig.Timestamp.Add(10 * time.Minute)}}

	label, err := engine.LabelAndRecord(context.Background(), sig, path)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWin, label.Outcome)
	assert.Equal(t, BarrierUpper, label.Barrier)

	records := engine.LoadRecords(context.Background(), "BTCUSDT")
	require.Contains(t, records, "momentum-1")
	assert.Equal(t, 1, records["momentum-1"].Wins)
}

func TestLoadRecords_StoreFailureDegradesToEmpty(t *testing.T) {
	engine := newTestEngine(failingStore{})
	records := engine.LoadRecords(context.Background(), "BTCUSDT")
	assert.Empty(t, records)
}

type failingStore struct{}

func (failingStore) GetJSON(context.Context, string, interface{}) (bool, error) {
	return false, assert.AnError
}

func (failingStore) PutJSON(context.Context, string, interface{}) error {
	return assert.AnError
}

func (failingStore) UpdateJSON(context.Context, string, interface{}, func() error) error {
	return assert.AnError
}
