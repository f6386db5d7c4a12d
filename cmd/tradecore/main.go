package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantfabric/tradecore/internal/agent"
	"github.com/quantfabric/tradecore/internal/config"
	"github.com/quantfabric/tradecore/internal/contest"
	"github.com/quantfabric/tradecore/internal/ensemble"
	"github.com/quantfabric/tradecore/internal/riskgov"
	"github.com/quantfabric/tradecore/internal/store"
	"github.com/quantfabric/tradecore/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st store.Store
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Degrade to in-memory state rather than refusing to trade, but
		// say so loudly: nothing learned this session will survive it.
		zapLogger.Error("redis unreachable, falling back to in-memory store; learning will not persist",
			zap.String("addr", cfg.Redis.Addr),
			zap.Error(err))
		st = store.NewMemoryStore()
	} else {
		st = store.NewRedisStore(rdb, zapLogger)
	}

	registry := agent.NewRegistry()
	// Strategy agents live outside this core and are registered here by
	// the embedding platform before Run is called.

	engine := ensemble.NewEngine(ensemble.Config{
		Context:           cfg.ContextName,
		Beta:              cfg.Ensemble.Beta,
		DecisionThreshold: cfg.Ensemble.DecisionThreshold,
		Barriers: ensemble.BarrierConfig{
			TakeProfitPercent: cfg.Ensemble.TakeProfitPercent,
			StopLossPercent:   cfg.Ensemble.StopLossPercent,
			TimeLimit:         cfg.Ensemble.TimeLimit,
		},
	}, st, zapLogger)

	breaker := contest.NewCircuitBreaker(ctx, contest.BreakerConfig{
		MaxFailures:         cfg.Contest.BreakerMaxFailures,
		MaxDailyLossPercent: cfg.Contest.BreakerMaxDailyLoss,
		Cooldown:            cfg.Contest.BreakerCooldown,
	}, cfg.ContextName, st, zapLogger)

	orchestrator := contest.NewOrchestrator(contest.Config{
		MaxDataAge:        cfg.Contest.MaxDataAge,
		AgentTimeout:      cfg.Contest.AgentTimeout,
		MaxConcurrent:     cfg.Contest.MaxConcurrent,
		ATRLimitThreshold: cfg.Contest.ATRLimitThreshold,
		SlippageBuffer:    cfg.Contest.SlippageBuffer,
	}, engine, breaker, registry, zapLogger)

	governor := riskgov.NewGovernor(riskgov.Config{
		Lookback:             cfg.Risk.Lookback,
		MinCorrelationPoints: cfg.Risk.MinCorrelationPoints,
		CorrelationThreshold: cfg.Risk.CorrelationThreshold,
		PerTradeRiskPercent:  cfg.Risk.PerTradeRiskPercent,
		PortfolioRiskPercent: cfg.Risk.PortfolioRiskPercent,
		StopDistancePercent:  cfg.Risk.StopDistancePercent,
		MaxDrawdownPercent:   cfg.Risk.MaxDrawdownPercent,
	}, zapLogger)

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil && err != http.ErrServerClosed {
			zapLogger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	scheduler := &scheduler{
		cfg:          cfg,
		logger:       zapLogger.Named("scheduler"),
		rdb:          rdb,
		st:           st,
		orchestrator: orchestrator,
		governor:     governor,
	}
	go scheduler.run(ctx)

	zapLogger.Info("tradecore started",
		zap.String("context", cfg.ContextName),
		zap.Strings("symbols", cfg.Symbols),
		zap.Duration("cycle_interval", cfg.CycleInterval))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	zapLogger.Info("shutting down")
	cancel()
}

// scheduler drives the contest cycle on a fixed tick and enforces the
// portfolio-wide emergency halt.
type scheduler struct {
	cfg          *config.Config
	logger       *zap.Logger
	rdb          *redis.Client
	st           store.Store
	orchestrator *contest.Orchestrator
	governor     *riskgov.Governor

	lastSession time.Time
}

func (s *scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick(ctx) {
				return
			}
		}
	}
}

// tick runs one scheduling pass; a false return stops the scheduler for
// good (portfolio emergency halt).
func (s *scheduler) tick(ctx context.Context) bool {
	now := time.Now().UTC()
	if s.lastSession.IsZero() || now.Day() != s.lastSession.Day() {
		s.orchestrator.DailyReset(ctx)
		s.lastSession = now
	}

	portfolio := s.loadPortfolio(ctx)

	if halt := s.governor.EmergencyCheck(portfolio.Drawdown); halt.Halt {
		// Hard halt is not a per-cycle skip: stop scheduling entirely.
		s.logger.Error("portfolio emergency halt, scheduler stopping",
			zap.String("reason", halt.Reason))
		return false
	}

	for _, symbol := range s.cfg.Symbols {
		snapshot, ok := s.loadSnapshot(ctx, symbol)
		if !ok {
			continue
		}
		s.governor.TrackPrice(symbol, snapshot.Price)

		result, err := s.orchestrator.RunCycle(ctx, symbol, snapshot)
		if err != nil {
			s.logger.Error("cycle failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if result == nil {
			s.logger.Debug("no decision this cycle",
				zap.String("symbol", symbol),
				zap.String("reason", s.orchestrator.LastGate().Reason))
			continue
		}

		decision := result.Decision
		if decision.Direction == agent.DirectionHold {
			continue
		}

		proposed := portfolio.Balance.Mul(decimal.NewFromFloat(decision.PositionSize))
		assessment := s.governor.EvaluateTrade(symbol, proposed, decision.Direction, portfolio.Balance, portfolio.Positions)
		if !assessment.Approved {
			s.logger.Warn("trade rejected by risk governor",
				zap.String("symbol", symbol),
				zap.String("reason", assessment.Reason))
			continue
		}

		// Order transmission belongs to the external execution layer; the
		// approved intent is published for it to pick up.
		s.publishIntent(ctx, symbol, result, assessment)
	}
	return true
}

func (s *scheduler) loadPortfolio(ctx context.Context) riskgov.PortfolioState {
	state := riskgov.PortfolioState{Balance: decimal.NewFromInt(10000)}
	found, err := s.st.GetJSON(ctx, riskgov.PortfolioKey(s.cfg.ContextName), &state)
	if err != nil {
		s.logger.Error("failed to load portfolio state", zap.Error(err))
	} else if !found {
		s.logger.Debug("no portfolio state published yet, using defaults")
	}
	return state
}

func (s *scheduler) loadSnapshot(ctx context.Context, symbol string) (agent.MarketSnapshot, bool) {
	var snapshot agent.MarketSnapshot
	found, err := s.st.GetJSON(ctx, "market:data:"+symbol, &snapshot)
	if err != nil {
		s.logger.Error("failed to load market snapshot",
			zap.String("symbol", symbol),
			zap.Error(err))
		return snapshot, false
	}
	if !found {
		s.logger.Debug("no market data for symbol", zap.String("symbol", symbol))
		return snapshot, false
	}
	snapshot.Symbol = symbol
	return snapshot, true
}

func (s *scheduler) publishIntent(ctx context.Context, symbol string, result *contest.CycleResult, assessment riskgov.Assessment) {
	intent := map[string]interface{}{
		"decision_id":  result.Decision.ID,
		"symbol":       symbol,
		"direction":    result.Decision.Direction,
		"size":         assessment.AdjustedSize.String(),
		"order_type":   result.Order.Type,
		"limit_price":  result.Order.LimitPrice,
		"risk_score":   assessment.RiskScore,
		"reasoning":    result.Decision.Reasoning,
		"published_at": time.Now().UTC(),
	}

	data, err := json.Marshal(intent)
	if err != nil {
		s.logger.Error("failed to marshal order intent", zap.Error(err))
		return
	}
	if err := s.rdb.Publish(ctx, "orders:intents", data).Err(); err != nil {
		s.logger.Error("failed to publish order intent", zap.Error(err))
	}

	s.logger.Info("order intent published",
		zap.String("symbol", symbol),
		zap.String("direction", string(result.Decision.Direction)),
		zap.String("size", assessment.AdjustedSize.String()),
		zap.String("order_type", string(result.Order.Type)))
}
