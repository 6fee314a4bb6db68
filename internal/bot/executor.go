package bot

// executor.go — real-money trade executor.
//
// Turns announced signals into BUY FOK orders on the CLOB. The trade row is
// inserted as PLACED before the order leaves the process: a crash between
// placement and confirmation is then recoverable on restart by looking at
// whether the broker ever returned an order id.

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/whaleradar/internal/domain"
	"github.com/alejandrodnm/whaleradar/internal/ports"
)

// Executor drives the bot: one pass per radar cycle.
type Executor struct {
	store    ports.Storage
	broker   ports.TradeExecutor
	notifier ports.Notifier
	risk     *RiskManager
	filter   domain.StrategyFilter
	betSize  float64
}

// NewExecutor wires the executor to its broker, risk manager and notifier.
func NewExecutor(
	store ports.Storage,
	broker ports.TradeExecutor,
	notifier ports.Notifier,
	risk *RiskManager,
	filter domain.StrategyFilter,
	betSizeUSD float64,
) *Executor {
	return &Executor{
		store:    store,
		broker:   broker,
		notifier: notifier,
		risk:     risk,
		filter:   filter,
		betSize:  betSizeUSD,
	}
}

// Recover settles trades left in PLACED by a previous crash. FOK orders
// either filled instantly or never did, so the broker order id decides.
func (e *Executor) Recover(ctx context.Context) error {
	placed, err := e.store.TradesByStatus(ctx, domain.TradePlaced)
	if err != nil {
		return fmt.Errorf("bot.Recover: load placed: %w", err)
	}

	for _, trade := range placed {
		status, errMsg := domain.RecoverTrade(trade)
		trade.Status = status
		if errMsg != "" {
			trade.ErrorMessage = errMsg
		}
		if err := e.store.UpdateTrade(ctx, trade); err != nil {
			return fmt.Errorf("bot.Recover: trade #%d: %w", trade.ID, err)
		}
		slog.Warn("recovered unconfirmed trade",
			"trade_id", trade.ID,
			"local_id", trade.LocalID,
			"status", status,
		)
	}
	return nil
}

// ExecuteCycle walks the tradeable signals best-first and places at most one
// order per signal. Skips never consume the signal: a signal blocked by risk
// today is retried while it stays alive and unresolved.
func (e *Executor) ExecuteCycle(ctx context.Context) error {
	signals, err := e.store.TradeableSignals(ctx)
	if err != nil {
		return fmt.Errorf("bot.ExecuteCycle: load signals: %w", err)
	}

	for _, signal := range signals {
		if ok, reason := e.filter.Passes(signal); !ok {
			slog.Debug("signal outside strategy", "signal_id", signal.ID, "reason", reason)
			continue
		}
		if err := e.executeSignal(ctx, signal); err != nil {
			slog.Warn("signal execution failed", "signal_id", signal.ID, "err", err)
		}
	}
	return nil
}

func (e *Executor) executeSignal(ctx context.Context, signal domain.Signal) error {
	token, err := e.broker.ResolveToken(ctx, signal.ConditionID, signal.Direction)
	if err != nil {
		return fmt.Errorf("resolve token: %w", err)
	}
	if !token.AcceptingOrders {
		slog.Debug("market not accepting orders", "signal_id", signal.ID)
		return nil
	}
	if e.betSize < token.MinimumOrderSize {
		slog.Debug("bet below market minimum",
			"signal_id", signal.ID,
			"bet", e.betSize,
			"minimum", token.MinimumOrderSize,
		)
		return nil
	}

	currentPrice, err := e.broker.CurrentPrice(ctx, token.TokenID)
	if err != nil {
		return fmt.Errorf("current price: %w", err)
	}
	balance, err := e.broker.Balance(ctx)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}

	ok, reason, err := e.risk.Check(ctx, balance, signal.ConditionID, signal.CurrentPrice, currentPrice)
	if err != nil {
		return fmt.Errorf("risk check: %w", err)
	}
	if !ok {
		slog.Info("risk check blocked trade", "signal_id", signal.ID, "reason", reason)
		if strings.Contains(strings.ToLower(reason), "circuit breaker") {
			e.notifyBot(ctx, "CIRCUIT BREAKER ACTIVATED\n\n"+reason)
		}
		return nil
	}

	entryPrice := currentPrice
	if entryPrice <= 0 {
		entryPrice = signal.CurrentPrice
	}

	trade := domain.BotTrade{
		LocalID:     uuid.NewString(),
		SignalID:    signal.ID,
		ConditionID: signal.ConditionID,
		MarketTitle: signal.MarketTitle,
		Direction:   signal.Direction,
		TokenID:     token.TokenID,
		Status:      domain.TradePlaced,
		EntryPrice:  entryPrice,
		CostUSD:     e.betSize,
		CreatedAt:   time.Now().UTC(),
	}
	trade.ID, err = e.store.InsertTrade(ctx, trade)
	if err != nil {
		return fmt.Errorf("record placement: %w", err)
	}

	result, err := e.broker.PlaceMarketOrder(ctx, token.TokenID, e.betSize)
	switch {
	case err != nil:
		trade.Status = domain.TradeFailed
		trade.ErrorMessage = err.Error()
	case result.Success:
		trade.Status = domain.TradeOpen
		trade.OrderID = result.OrderID
		trade.Shares = result.SharesFilled
		if trade.Shares == 0 && entryPrice > 0 {
			trade.Shares = e.betSize / entryPrice
		}
	default:
		trade.Status = domain.TradeFailed
		trade.ErrorMessage = result.ErrorMessage
	}

	if err := e.store.UpdateTrade(ctx, trade); err != nil {
		return fmt.Errorf("record result: %w", err)
	}

	if trade.Status == domain.TradeOpen {
		slog.Info("trade executed",
			"trade_id", trade.ID,
			"signal_id", signal.ID,
			"order_id", trade.OrderID,
			"entry", trade.EntryPrice,
			"cost", trade.CostUSD,
		)
		e.notifyBot(ctx, executedMessage(trade, signal, balance))
	} else {
		slog.Warn("trade failed",
			"trade_id", trade.ID,
			"signal_id", signal.ID,
			"reason", trade.ErrorMessage,
		)
		e.notifyBot(ctx, failedMessage(trade, signal))
	}
	return nil
}

// ProcessResolutions settles open trades whose signal market has resolved.
func (e *Executor) ProcessResolutions(ctx context.Context) (int, error) {
	pairs, err := e.store.OpenTradesWithResolvedSignals(ctx)
	if err != nil {
		return 0, fmt.Errorf("bot.ProcessResolutions: load: %w", err)
	}

	settled := 0
	for _, pair := range pairs {
		trade := pair.Trade
		status, pnlUSD, pnlPct := domain.SettleTrade(trade, pair.Resolution)

		trade.Status = status
		trade.PnLUSD = pnlUSD
		trade.PnLPct = pnlPct
		trade.ResolutionOutcome = pair.Resolution
		trade.ResolvedAt = time.Now().UTC()

		if err := e.store.UpdateTrade(ctx, trade); err != nil {
			slog.Warn("trade settlement failed", "trade_id", trade.ID, "err", err)
			continue
		}
		settled++
		slog.Info("position resolved",
			"trade_id", trade.ID,
			"status", status,
			"pnl_usd", pnlUSD,
		)
		e.notifyBot(ctx, resolvedMessage(trade))
	}
	return settled, nil
}

// DailySummary sends the operator a one-message account of the bot's state.
func (e *Executor) DailySummary(ctx context.Context) error {
	balance, err := e.broker.Balance(ctx)
	if err != nil {
		return fmt.Errorf("bot.DailySummary: balance: %w", err)
	}
	state, err := e.store.RiskState(ctx)
	if err != nil {
		return fmt.Errorf("bot.DailySummary: risk state: %w", err)
	}

	open, err := e.store.TradesByStatus(ctx, domain.TradeOpen)
	if err != nil {
		return fmt.Errorf("bot.DailySummary: open trades: %w", err)
	}
	var exposed float64
	for _, t := range open {
		exposed += t.CostUSD
	}

	today, err := e.store.TradesCreatedOn(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("bot.DailySummary: today: %w", err)
	}
	todayCount := 0
	var todaySpent float64
	for _, t := range today {
		if t.Status == domain.TradeFailed {
			continue
		}
		todayCount++
		todaySpent += t.CostUSD
	}

	resolved, err := e.store.TradesByStatus(ctx, domain.TradeWon, domain.TradeLost)
	if err != nil {
		return fmt.Errorf("bot.DailySummary: resolved trades: %w", err)
	}
	wins := 0
	var totalPnL float64
	for _, t := range resolved {
		if t.Status == domain.TradeWon {
			wins++
		}
		totalPnL += t.PnLUSD
	}
	winRate := 0.0
	if len(resolved) > 0 {
		winRate = float64(wins) / float64(len(resolved)) * 100
	}

	msg := fmt.Sprintf(
		"DAILY BOT SUMMARY\n"+
			"Balance: $%.2f (peak $%.2f)\n"+
			"Open positions: %d ($%.2f exposed)\n"+
			"Today: %d trades, $%.2f spent\n"+
			"All time: %dW/%dL (%.0f%% WR)\n"+
			"Total P&L: $%+.2f",
		balance, state.PeakBalance,
		len(open), exposed,
		todayCount, todaySpent,
		wins, len(resolved)-wins, winRate,
		totalPnL,
	)
	e.notifyBot(ctx, msg)
	return nil
}

func (e *Executor) notifyBot(ctx context.Context, text string) {
	if err := e.notifier.BotEvent(ctx, text); err != nil {
		slog.Warn("bot notification failed", "err", err)
	}
}

func executedMessage(trade domain.BotTrade, signal domain.Signal, balance float64) string {
	payout := 0.0
	if trade.EntryPrice > 0 {
		payout = trade.CostUSD / trade.EntryPrice
	}
	return fmt.Sprintf(
		"TRADE EXECUTED | #%d\n"+
			"%s\n"+
			"%s @ %.3f | cost $%.2f | potential payout $%.2f\n"+
			"Signal score %.2f (tier %d)\n"+
			"Balance: $%.2f",
		trade.ID,
		trade.MarketTitle,
		trade.Direction, trade.EntryPrice, trade.CostUSD, payout,
		signal.Score, signal.Tier,
		balance-trade.CostUSD,
	)
}

func failedMessage(trade domain.BotTrade, signal domain.Signal) string {
	return fmt.Sprintf(
		"TRADE FAILED | Signal #%d\n%s\nReason: %s",
		signal.ID, trade.MarketTitle, trade.ErrorMessage,
	)
}

func resolvedMessage(trade domain.BotTrade) string {
	result := "LOSS"
	if trade.Status == domain.TradeWon {
		result = "WIN"
	}
	return fmt.Sprintf(
		"POSITION RESOLVED | #%d\n"+
			"%s\n"+
			"%s, market resolved %s: %s\n"+
			"P&L: $%+.2f (%+.1f%%)",
		trade.ID,
		trade.MarketTitle,
		trade.Direction, trade.ResolutionOutcome, result,
		trade.PnLUSD, trade.PnLPct*100,
	)
}
