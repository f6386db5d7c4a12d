// Package config loads the tradecore configuration from TRADECORE_*
// environment variables with an optional YAML file override.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	LogLevel    string
	ContextName string
	Symbols     []string

	CycleInterval time.Duration
	MetricsAddr   string

	Redis RedisConfig

	Ensemble EnsembleConfig
	Contest  ContestConfig
	Risk     RiskConfig
}

// RedisConfig configures the persistence store connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// EnsembleConfig tunes the signal ensemble engine.
type EnsembleConfig struct {
	Beta              float64
	DecisionThreshold float64
	TakeProfitPercent float64
	StopLossPercent   float64
	TimeLimit         time.Duration
}

// ContestConfig tunes the orchestrator gates and the circuit breaker.
type ContestConfig struct {
	MaxDataAge          time.Duration
	AgentTimeout        time.Duration
	MaxConcurrent       int
	ATRLimitThreshold   float64
	SlippageBuffer      float64
	BreakerMaxFailures  int
	BreakerMaxDailyLoss float64
	BreakerCooldown     time.Duration
}

// RiskConfig tunes the correlation-aware risk governor.
type RiskConfig struct {
	Lookback             int
	MinCorrelationPoints int
	CorrelationThreshold float64
	PerTradeRiskPercent  float64
	PortfolioRiskPercent float64
	StopDistancePercent  float64
	MaxDrawdownPercent   float64
}

// LoadConfig reads configuration from TRADECORE_* environment variables,
// with an optional config file given via TRADECORE_CONFIG.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRADECORE")
	v.AutomaticEnv()

	setDefaults(v)

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		LogLevel:      v.GetString("log_level"),
		ContextName:   v.GetString("context"),
		Symbols:       v.GetStringSlice("symbols"),
		CycleInterval: v.GetDuration("cycle_interval"),
		MetricsAddr:   v.GetString("metrics_addr"),
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		Ensemble: EnsembleConfig{
			Beta:              v.GetFloat64("ensemble_beta"),
			DecisionThreshold: v.GetFloat64("ensemble_decision_threshold"),
			TakeProfitPercent: v.GetFloat64("ensemble_take_profit_percent"),
			StopLossPercent:   v.GetFloat64("ensemble_stop_loss_percent"),
			TimeLimit:         v.GetDuration("ensemble_time_limit"),
		},
		Contest: ContestConfig{
			MaxDataAge:          v.GetDuration("contest_max_data_age"),
			AgentTimeout:        v.GetDuration("contest_agent_timeout"),
			MaxConcurrent:       v.GetInt("contest_max_concurrent"),
			ATRLimitThreshold:   v.GetFloat64("contest_atr_limit_threshold"),
			SlippageBuffer:      v.GetFloat64("contest_slippage_buffer"),
			BreakerMaxFailures:  v.GetInt("breaker_max_failures"),
			BreakerMaxDailyLoss: v.GetFloat64("breaker_max_daily_loss_percent"),
			BreakerCooldown:     v.GetDuration("breaker_cooldown"),
		},
		Risk: RiskConfig{
			Lookback:             v.GetInt("risk_lookback"),
			MinCorrelationPoints: v.GetInt("risk_min_correlation_points"),
			CorrelationThreshold: v.GetFloat64("risk_correlation_threshold"),
			PerTradeRiskPercent:  v.GetFloat64("risk_per_trade_percent"),
			PortfolioRiskPercent: v.GetFloat64("risk_portfolio_percent"),
			StopDistancePercent:  v.GetFloat64("risk_stop_distance_percent"),
			MaxDrawdownPercent:   v.GetFloat64("risk_max_drawdown_percent"),
		},
	}

	if cfg.ContextName == "" {
		return nil, fmt.Errorf("TRADECORE_CONTEXT must not be empty")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("context", "default")
	v.SetDefault("symbols", []string{"BTCUSDT"})
	v.SetDefault("cycle_interval", "1m")
	v.SetDefault("metrics_addr", ":9180")

	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("ensemble_beta", 2.0)
	v.SetDefault("ensemble_decision_threshold", 0.3)
	v.SetDefault("ensemble_take_profit_percent", 2.0)
	v.SetDefault("ensemble_stop_loss_percent", 1.0)
	v.SetDefault("ensemble_time_limit", "4h")

	v.SetDefault("contest_max_data_age", "60s")
	v.SetDefault("contest_agent_timeout", "5s")
	v.SetDefault("contest_max_concurrent", 4)
	v.SetDefault("contest_atr_limit_threshold", 0.03)
	v.SetDefault("contest_slippage_buffer", 0.001)
	v.SetDefault("breaker_max_failures", 3)
	v.SetDefault("breaker_max_daily_loss_percent", 5.0)
	v.SetDefault("breaker_cooldown", "15m")

	v.SetDefault("risk_lookback", 30)
	v.SetDefault("risk_min_correlation_points", 5)
	v.SetDefault("risk_correlation_threshold", 0.80)
	v.SetDefault("risk_per_trade_percent", 0.02)
	v.SetDefault("risk_portfolio_percent", 0.10)
	v.SetDefault("risk_stop_distance_percent", 0.02)
	v.SetDefault("risk_max_drawdown_percent", 0.05)
}
