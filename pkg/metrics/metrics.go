package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CyclesTotal counts contest cycles by outcome (decision/blocked/empty)
var CyclesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tradecore_contest_cycles_total",
		Help: "Total number of contest cycles run, labeled by outcome",
	},
	[]string{"outcome"},
)

// AgentSignalFailures counts per-agent signal collection failures
var AgentSignalFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tradecore_agent_signal_failures_total",
		Help: "Total number of failed or timed-out agent signal calls",
	},
	[]string{"agent"},
)

// BreakerState reports the circuit breaker state (0=closed, 1=open, 2=half-open)
var BreakerState = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "tradecore_circuit_breaker_state",
		Help: "Current circuit breaker state per trading context",
	},
	[]string{"context"},
)

// DecisionsEmitted counts ensemble decisions by direction
var DecisionsEmitted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tradecore_ensemble_decisions_total",
		Help: "Total number of ensemble decisions emitted, labeled by direction",
	},
	[]string{"direction"},
)

// RiskAdjustments counts risk governor interventions by kind
var RiskAdjustments = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tradecore_risk_adjustments_total",
		Help: "Total number of risk governor size adjustments, labeled by reason",
	},
	[]string{"reason"},
)

func init() {
	prometheus.MustRegister(CyclesTotal, AgentSignalFailures)
	prometheus.MustRegister(BreakerState, DecisionsEmitted, RiskAdjustments)
}
