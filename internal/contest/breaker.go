package contest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantfabric/tradecore/internal/store"
	"github.com/quantfabric/tradecore/pkg/metrics"
)

// BreakerStatus is the circuit breaker state, persisted as a string.
type BreakerStatus string

const (
	BreakerClosed   BreakerStatus = "CLOSED"
	BreakerOpen     BreakerStatus = "OPEN"
	BreakerHalfOpen BreakerStatus = "HALF_OPEN"
)

// BreakerState is the persisted singleton per trading context.
type BreakerState struct {
	State               BreakerStatus `json:"state"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	DailyLossPercent    float64       `json:"daily_loss_percent"`
	LastFailureTime     time.Time     `json:"last_failure_time"`
	RecoveryAttempts    int           `json:"recovery_attempts"`
}

// BreakerConfig tunes the circuit breaker thresholds.
type BreakerConfig struct {
	MaxFailures         int           // consecutive failures before opening
	MaxDailyLossPercent float64       // cumulative daily loss before opening
	Cooldown            time.Duration // OPEN -> HALF_OPEN probe delay
}

// DefaultBreakerConfig returns the production thresholds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:         3,
		MaxDailyLossPercent: 5.0,
		Cooldown:            15 * time.Minute,
	}
}

// CircuitBreaker is the per-context trading halt state machine:
// CLOSED -> OPEN on repeated failures or excessive daily loss,
// OPEN -> HALF_OPEN after the cooldown, HALF_OPEN -> CLOSED on the next
// success or straight back to OPEN on any failure. State survives restarts
// through the store; a store outage degrades to in-memory CLOSED.
type CircuitBreaker struct {
	cfg         BreakerConfig
	contextName string
	st          store.Store
	logger      *zap.Logger
	now         func() time.Time

	mu    sync.Mutex
	state BreakerState
}

// NewCircuitBreaker creates a breaker for one trading context and loads
// any persisted state.
func NewCircuitBreaker(ctx context.Context, cfg BreakerConfig, contextName string, st store.Store, logger *zap.Logger) *CircuitBreaker {
	cb := &CircuitBreaker{
		cfg:         cfg,
		contextName: contextName,
		st:          st,
		logger:      logger.Named("breaker"),
		now:         time.Now,
		state:       BreakerState{State: BreakerClosed},
	}

	found, err := st.GetJSON(ctx, cb.key(), &cb.state)
	if err != nil {
		cb.logger.Error("failed to load breaker state, starting CLOSED",
			zap.String("context", contextName),
			zap.Error(err))
		cb.state = BreakerState{State: BreakerClosed}
	} else if !found {
		cb.state = BreakerState{State: BreakerClosed}
	}
	cb.publishState()
	return cb
}

func (cb *CircuitBreaker) key() string {
	return fmt.Sprintf("breaker:%s", cb.contextName)
}

// Check reports whether trading may proceed, performing the timed
// OPEN -> HALF_OPEN transition when the cooldown has elapsed.
func (cb *CircuitBreaker) Check(ctx context.Context) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state.State {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		if cb.now().Sub(cb.state.LastFailureTime) >= cb.cfg.Cooldown {
			cb.state.State = BreakerHalfOpen
			cb.state.RecoveryAttempts++
			cb.logger.Info("circuit breaker probing recovery",
				zap.String("context", cb.contextName),
				zap.Int("recovery_attempts", cb.state.RecoveryAttempts))
			cb.persist(ctx)
			return true
		}
		return false
	default:
		return false
	}
}

// RecordFailure registers an API failure. In HALF_OPEN a single failure
// reopens immediately, with no three-strike grace.
func (cb *CircuitBreaker) RecordFailure(ctx context.Context) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state.ConsecutiveFailures++
	cb.state.LastFailureTime = cb.now()

	switch {
	case cb.state.State == BreakerHalfOpen:
		cb.state.State = BreakerOpen
		cb.logger.Warn("circuit breaker reopened during recovery probe",
			zap.String("context", cb.contextName))
	case cb.state.State == BreakerClosed && cb.state.ConsecutiveFailures >= cb.cfg.MaxFailures:
		cb.state.State = BreakerOpen
		cb.logger.Warn("circuit breaker opened on consecutive failures",
			zap.String("context", cb.contextName),
			zap.Int("failures", cb.state.ConsecutiveFailures))
	}
	cb.persist(ctx)
}

// RecordSuccess resets the failure streak and closes a half-open breaker.
func (cb *CircuitBreaker) RecordSuccess(ctx context.Context) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state.ConsecutiveFailures = 0
	if cb.state.State == BreakerHalfOpen {
		cb.state.State = BreakerClosed
		cb.logger.Info("circuit breaker closed after successful probe",
			zap.String("context", cb.contextName))
	}
	cb.persist(ctx)
}

// AddDailyLoss accumulates a realized loss (positive magnitude, percent of
// capital) and opens the breaker when the daily budget is exhausted.
func (cb *CircuitBreaker) AddDailyLoss(ctx context.Context, lossPercent float64) {
	if lossPercent <= 0 {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state.DailyLossPercent += lossPercent
	if cb.state.DailyLossPercent >= cb.cfg.MaxDailyLossPercent && cb.state.State != BreakerOpen {
		cb.state.State = BreakerOpen
		cb.state.LastFailureTime = cb.now()
		cb.logger.Warn("circuit breaker opened on daily loss limit",
			zap.String("context", cb.contextName),
			zap.Float64("daily_loss_percent", cb.state.DailyLossPercent))
	}
	cb.persist(ctx)
}

// DailyReset runs at session open: it zeroes the daily loss counter and
// force-transitions an OPEN breaker to HALF_OPEN. A CLOSED breaker is left
// untouched.
func (cb *CircuitBreaker) DailyReset(ctx context.Context) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state.DailyLossPercent = 0
	if cb.state.State == BreakerOpen {
		cb.state.State = BreakerHalfOpen
		cb.state.RecoveryAttempts++
		cb.logger.Info("circuit breaker reset to HALF_OPEN at session open",
			zap.String("context", cb.contextName))
	}
	cb.persist(ctx)
}

// State returns a snapshot of the breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// persist writes the state through the store; callers hold cb.mu. A store
// failure is logged loudly but never blocks trading decisions.
func (cb *CircuitBreaker) persist(ctx context.Context) {
	cb.publishState()
	if err := cb.st.PutJSON(ctx, cb.key(), &cb.state); err != nil {
		cb.logger.Error("failed to persist breaker state",
			zap.String("context", cb.contextName),
			zap.Error(err))
	}
}

func (cb *CircuitBreaker) publishState() {
	var v float64
	switch cb.state.State {
	case BreakerOpen:
		v = 1
	case BreakerHalfOpen:
		v = 2
	}
	metrics.BreakerState.WithLabelValues(cb.contextName).Set(v)
}
