package bot_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/whaleradar/internal/adapters/storage"
	"github.com/alejandrodnm/whaleradar/internal/bot"
	"github.com/alejandrodnm/whaleradar/internal/domain"
	"github.com/alejandrodnm/whaleradar/internal/ports"
)

type fakeBroker struct {
	token     ports.TokenInfo
	tokenErr  error
	price     float64
	balance   float64
	result    ports.OrderResult
	placeErr  error
	placed    int
	lastToken string
}

func (b *fakeBroker) ResolveToken(_ context.Context, _, _ string) (*ports.TokenInfo, error) {
	if b.tokenErr != nil {
		return nil, b.tokenErr
	}
	token := b.token
	return &token, nil
}

func (b *fakeBroker) CurrentPrice(_ context.Context, _ string) (float64, error) {
	return b.price, nil
}

func (b *fakeBroker) Balance(_ context.Context) (float64, error) {
	return b.balance, nil
}

func (b *fakeBroker) PlaceMarketOrder(_ context.Context, tokenID string, _ float64) (ports.OrderResult, error) {
	b.placed++
	b.lastToken = tokenID
	if b.placeErr != nil {
		return ports.OrderResult{}, b.placeErr
	}
	return b.result, nil
}

type botNotifier struct {
	events []string
}

func (n *botNotifier) SignalAlert(_ context.Context, _ domain.Signal) error     { return nil }
func (n *botNotifier) ResolutionAlert(_ context.Context, _ domain.Signal) error { return nil }
func (n *botNotifier) BotEvent(_ context.Context, text string) error {
	n.events = append(n.events, text)
	return nil
}

func strategyFilter() domain.StrategyFilter {
	return domain.StrategyFilter{
		MaxTier:  2,
		MinPrice: 0.10,
		MaxPrice: 0.85,
		ExcludedCategories: map[string]struct{}{
			"CRYPTO": {}, "CULTURE": {}, "FINANCE": {},
		},
	}
}

func healthyBroker() *fakeBroker {
	return &fakeBroker{
		token:   ports.TokenInfo{TokenID: "tok-1", AcceptingOrders: true, MinimumOrderSize: 0.1},
		price:   0.46,
		balance: 9.50,
		result:  ports.OrderResult{Success: true, OrderID: "ord-1", SharesFilled: 1.087},
	}
}

func newExecutor(store *storage.SQLiteStorage, broker *fakeBroker, notifier *botNotifier) *bot.Executor {
	risk := bot.NewRiskManager(store, riskConfig())
	return bot.NewExecutor(store, broker, notifier, risk, strategyFilter(), 0.50)
}

func announcedSignal(t *testing.T, store *storage.SQLiteStorage, cid string) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := store.InsertSignal(ctx, domain.Signal{
		ConditionID:  cid,
		MarketTitle:  "Senate passes the bill?",
		Direction:    "YES",
		Score:        16.3,
		Tier:         1,
		Status:       domain.SignalActive,
		CurrentPrice: 0.45,
	})
	require.NoError(t, err)
	require.NoError(t, store.MarkSignalSent(ctx, id))
	return id
}

func TestExecuteCycle_PlacesTradeAndNotifies(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	broker := healthyBroker()
	notifier := &botNotifier{}
	signalID := announcedSignal(t, store, "0xc1")

	require.NoError(t, newExecutor(store, broker, notifier).ExecuteCycle(ctx))
	assert.Equal(t, 1, broker.placed)
	assert.Equal(t, "tok-1", broker.lastToken)

	open, err := store.TradesByStatus(ctx, domain.TradeOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)

	trade := open[0]
	assert.Equal(t, signalID, trade.SignalID)
	assert.Equal(t, "ord-1", trade.OrderID)
	assert.InDelta(t, 0.46, trade.EntryPrice, 0.001) // precio vivo, no el de la señal
	assert.InDelta(t, 0.50, trade.CostUSD, 0.001)
	assert.InDelta(t, 1.087, trade.Shares, 0.001)
	assert.NotEmpty(t, trade.LocalID)

	require.Len(t, notifier.events, 1)
	assert.Contains(t, notifier.events[0], "TRADE EXECUTED | #")
	assert.Contains(t, notifier.events[0], "Senate passes the bill?")

	// la señal queda consumida
	tradeable, err := store.TradeableSignals(ctx)
	require.NoError(t, err)
	assert.Empty(t, tradeable)
}

func TestExecuteCycle_RejectedOrderRecordsFailed(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	broker := healthyBroker()
	broker.result = ports.OrderResult{Success: false, ErrorMessage: "not enough balance / allowance"}
	notifier := &botNotifier{}
	signalID := announcedSignal(t, store, "0xc1")

	require.NoError(t, newExecutor(store, broker, notifier).ExecuteCycle(ctx))

	failed, err := store.TradesByStatus(ctx, domain.TradeFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "not enough balance / allowance", failed[0].ErrorMessage)

	require.Len(t, notifier.events, 1)
	assert.Contains(t, notifier.events[0], "TRADE FAILED | Signal #")

	// un trade FAILED también consume la señal: no se reintenta a ciegas
	tradeable, err := store.TradeableSignals(ctx)
	require.NoError(t, err)
	assert.Empty(t, tradeable)
	_ = signalID
}

func TestExecuteCycle_RiskBlockKeepsSignalTradeable(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	broker := healthyBroker()
	broker.balance = 1.0 // por debajo del mínimo
	notifier := &botNotifier{}
	announcedSignal(t, store, "0xc1")

	require.NoError(t, newExecutor(store, broker, notifier).ExecuteCycle(ctx))
	assert.Equal(t, 0, broker.placed)

	trades, err := store.TradesByStatus(ctx,
		domain.TradePlaced, domain.TradeOpen, domain.TradeFailed)
	require.NoError(t, err)
	assert.Empty(t, trades)

	tradeable, err := store.TradeableSignals(ctx)
	require.NoError(t, err)
	assert.Len(t, tradeable, 1, "se reintenta cuando el riesgo lo permita")
}

func TestExecuteCycle_CircuitBreakerTripNotifies(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	broker := healthyBroker()
	broker.balance = 6.0 // umbral de drawdown con presupuesto $10: $7
	notifier := &botNotifier{}
	announcedSignal(t, store, "0xc1")

	require.NoError(t, newExecutor(store, broker, notifier).ExecuteCycle(ctx))
	assert.Equal(t, 0, broker.placed)

	require.Len(t, notifier.events, 1)
	assert.Contains(t, notifier.events[0], "CIRCUIT BREAKER ACTIVATED")

	state, err := store.RiskState(ctx)
	require.NoError(t, err)
	assert.True(t, state.CircuitBreakerActive)
}

func TestExecuteCycle_MarketNotAcceptingOrders(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	broker := healthyBroker()
	broker.token.AcceptingOrders = false
	notifier := &botNotifier{}
	announcedSignal(t, store, "0xc1")

	require.NoError(t, newExecutor(store, broker, notifier).ExecuteCycle(ctx))
	assert.Equal(t, 0, broker.placed)
	assert.Empty(t, notifier.events)
}

func TestRecover_SettlesPlacedTrades(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	confirmed := domain.BotTrade{
		LocalID: "local-confirmed", SignalID: 1, ConditionID: "0xa",
		MarketTitle: "A?", Direction: "YES", OrderID: "ord-9",
		Status: domain.TradePlaced, EntryPrice: 0.5, CostUSD: 0.5,
		CreatedAt: time.Now().UTC(),
	}
	orphan := domain.BotTrade{
		LocalID: "local-orphan", SignalID: 2, ConditionID: "0xb",
		MarketTitle: "B?", Direction: "NO",
		Status: domain.TradePlaced, EntryPrice: 0.5, CostUSD: 0.5,
		CreatedAt: time.Now().UTC(),
	}
	_, err := store.InsertTrade(ctx, confirmed)
	require.NoError(t, err)
	_, err = store.InsertTrade(ctx, orphan)
	require.NoError(t, err)

	require.NoError(t, newExecutor(store, healthyBroker(), &botNotifier{}).Recover(ctx))

	open, err := store.TradesByStatus(ctx, domain.TradeOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "local-confirmed", open[0].LocalID)

	failed, err := store.TradesByStatus(ctx, domain.TradeFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "unconfirmed after restart", failed[0].ErrorMessage)
}

func TestProcessResolutions_SettlesWinAndLoss(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	notifier := &botNotifier{}

	winSignal := announcedSignal(t, store, "0xwin")
	lossSignal := announcedSignal(t, store, "0xloss")

	for _, tc := range []struct {
		signalID int64
		cid      string
		localID  string
	}{
		{winSignal, "0xwin", "local-win"},
		{lossSignal, "0xloss", "local-loss"},
	} {
		_, err := store.InsertTrade(ctx, domain.BotTrade{
			LocalID: tc.localID, SignalID: tc.signalID, ConditionID: tc.cid,
			MarketTitle: "Senate passes the bill?", Direction: "YES",
			Status: domain.TradeOpen, EntryPrice: 0.40, CostUSD: 0.50,
			Shares: 1.25, CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	// resolver las señales: la del win a favor, la del loss en contra
	unresolved, err := store.UnresolvedSignals(ctx)
	require.NoError(t, err)
	for _, sig := range unresolved {
		sig.Status = domain.SignalResolved
		sig.ResolvedAt = time.Now().UTC()
		if sig.ID == winSignal {
			sig.ResolutionOutcome = "YES"
		} else {
			sig.ResolutionOutcome = "NO"
		}
		require.NoError(t, store.UpdateSignal(ctx, sig))
	}

	settled, err := newExecutor(store, healthyBroker(), notifier).ProcessResolutions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, settled)

	won, err := store.TradesByStatus(ctx, domain.TradeWon)
	require.NoError(t, err)
	require.Len(t, won, 1)
	// $0.50 a 0.40 son 1.25 shares que pagan $1.25: +$0.75
	assert.InDelta(t, 0.75, won[0].PnLUSD, 0.001)
	assert.InDelta(t, 1.5, won[0].PnLPct, 0.001)

	lost, err := store.TradesByStatus(ctx, domain.TradeLost)
	require.NoError(t, err)
	require.Len(t, lost, 1)
	assert.InDelta(t, -0.50, lost[0].PnLUSD, 0.001)

	require.Len(t, notifier.events, 2)
	for _, msg := range notifier.events {
		assert.Contains(t, msg, "POSITION RESOLVED | #")
	}
}

func TestDailySummary_AggregatesState(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	notifier := &botNotifier{}
	require.NoError(t, store.SetPeakBalance(ctx, 11.0))

	now := time.Now().UTC()
	for _, tr := range []domain.BotTrade{
		{LocalID: "l-open", SignalID: 1, ConditionID: "0xa", MarketTitle: "A?",
			Direction: "YES", Status: domain.TradeOpen, EntryPrice: 0.5,
			CostUSD: 0.50, CreatedAt: now},
		{LocalID: "l-won", SignalID: 2, ConditionID: "0xb", MarketTitle: "B?",
			Direction: "YES", Status: domain.TradeWon, EntryPrice: 0.4,
			CostUSD: 0.50, PnLUSD: 0.75, CreatedAt: now.Add(-48 * time.Hour)},
		{LocalID: "l-failed", SignalID: 3, ConditionID: "0xc", MarketTitle: "C?",
			Direction: "NO", Status: domain.TradeFailed, EntryPrice: 0.5,
			CostUSD: 0.50, CreatedAt: now},
	} {
		_, err := store.InsertTrade(ctx, tr)
		require.NoError(t, err)
	}

	require.NoError(t, newExecutor(store, healthyBroker(), notifier).DailySummary(ctx))
	require.Len(t, notifier.events, 1)

	msg := notifier.events[0]
	assert.True(t, strings.HasPrefix(msg, "DAILY BOT SUMMARY"))
	assert.Contains(t, msg, "Balance: $9.50 (peak $11.00)")
	assert.Contains(t, msg, "Open positions: 1 ($0.50 exposed)")
	// el trade fallido de hoy no cuenta como gasto
	assert.Contains(t, msg, "Today: 1 trades, $0.50 spent")
	assert.Contains(t, msg, "All time: 1W/0L (100% WR)")
	assert.Contains(t, msg, "Total P&L: $+0.75")
}
