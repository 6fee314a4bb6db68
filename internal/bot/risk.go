package bot

// risk.go — risk manager for the trade executor.
//
// Every order goes through the same ordered gate: circuit breaker, minimum
// balance, drawdown, open-position cap, daily spend, duplicate market,
// slippage. The first failing check wins and its reason is what the
// operator sees, so the messages stay specific.

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/whaleradar/internal/ports"
)

// RiskConfig are the limits enforced before each order.
type RiskConfig struct {
	InitialBudgetUSD  float64
	BetSizeUSD        float64
	MaxOpenPositions  int
	MaxDailySpendUSD  float64
	MinBalanceUSD     float64
	CircuitBreakerPct float64
	MaxSlippage       float64
}

// RiskManager decides whether the bot may place a given order. The peak
// balance and the breaker flag persist across restarts.
type RiskManager struct {
	store ports.Storage
	cfg   RiskConfig
}

// NewRiskManager creates a RiskManager over the persistent risk state.
func NewRiskManager(store ports.Storage, cfg RiskConfig) *RiskManager {
	return &RiskManager{store: store, cfg: cfg}
}

// Check runs every risk gate in order against the current balance and the
// candidate market. currentPrice <= 0 means the live price is unknown and
// skips the slippage check. Returns (false, reason) on the first failure.
func (r *RiskManager) Check(ctx context.Context, balance float64, conditionID string, signalPrice, currentPrice float64) (bool, string, error) {
	state, err := r.store.RiskState(ctx)
	if err != nil {
		return false, "", fmt.Errorf("bot.RiskManager: load state: %w", err)
	}

	if state.CircuitBreakerActive {
		return false, "Circuit breaker is active - trading halted", nil
	}

	if balance < r.cfg.MinBalanceUSD {
		return false, fmt.Sprintf("Balance $%.2f below minimum $%.2f", balance, r.cfg.MinBalanceUSD), nil
	}

	// A fresh database has peak 0: seed it from the configured budget so the
	// drawdown threshold is meaningful from the first trade.
	peak := state.PeakBalance
	if peak <= 0 {
		peak = r.cfg.InitialBudgetUSD
	}
	threshold := peak * (1 - r.cfg.CircuitBreakerPct)
	if balance < threshold {
		if err := r.store.SetCircuitBreaker(ctx, true); err != nil {
			return false, "", fmt.Errorf("bot.RiskManager: trip breaker: %w", err)
		}
		reason := fmt.Sprintf(
			"Circuit breaker: balance $%.2f < threshold $%.2f (peak $%.2f, %.0f%% drawdown)",
			balance, threshold, peak, r.cfg.CircuitBreakerPct*100,
		)
		return false, reason, nil
	}
	if balance > peak {
		if err := r.store.SetPeakBalance(ctx, balance); err != nil {
			return false, "", fmt.Errorf("bot.RiskManager: update peak: %w", err)
		}
	}

	open, err := r.store.OpenTradeCount(ctx)
	if err != nil {
		return false, "", fmt.Errorf("bot.RiskManager: open count: %w", err)
	}
	if open >= r.cfg.MaxOpenPositions {
		return false, fmt.Sprintf("Max open positions reached: %d/%d", open, r.cfg.MaxOpenPositions), nil
	}

	spent, err := r.store.SpentToday(ctx, time.Now().UTC())
	if err != nil {
		return false, "", fmt.Errorf("bot.RiskManager: daily spend: %w", err)
	}
	if spent+r.cfg.BetSizeUSD > r.cfg.MaxDailySpendUSD {
		return false, fmt.Sprintf("Daily spend limit: $%.2f spent today, limit $%.2f", spent, r.cfg.MaxDailySpendUSD), nil
	}

	dup, err := r.store.HasOpenTradeOnMarket(ctx, conditionID)
	if err != nil {
		return false, "", fmt.Errorf("bot.RiskManager: duplicate check: %w", err)
	}
	if dup {
		return false, "Duplicate: already have open position on " + conditionID, nil
	}

	if currentPrice > 0 && signalPrice > 0 {
		slippage := math.Abs(currentPrice-signalPrice) / signalPrice
		if slippage > r.cfg.MaxSlippage {
			reason := fmt.Sprintf(
				"Price slippage %.1f%% > max %.1f%% (signal %.3f, current %.3f)",
				slippage*100, r.cfg.MaxSlippage*100, signalPrice, currentPrice,
			)
			return false, reason, nil
		}
	}

	return true, "", nil
}

// ResetCircuitBreaker clears the breaker flag. Manual operation: the bot
// never resets it on its own.
func (r *RiskManager) ResetCircuitBreaker(ctx context.Context) error {
	if err := r.store.SetCircuitBreaker(ctx, false); err != nil {
		return fmt.Errorf("bot.ResetCircuitBreaker: %w", err)
	}
	return nil
}
