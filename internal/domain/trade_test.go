package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettleTrade_Won(t *testing.T) {
	trade := BotTrade{Direction: "YES", EntryPrice: 0.50, CostUSD: 0.50}
	status, pnlUSD, pnlPct := SettleTrade(trade, "YES")
	assert.Equal(t, TradeWon, status)
	// 1 share a $0.50 paga $1: +$0.50
	assert.InDelta(t, 0.50, pnlUSD, 1e-9)
	assert.InDelta(t, 1.0, pnlPct, 1e-9)
}

func TestSettleTrade_Lost(t *testing.T) {
	trade := BotTrade{Direction: "YES", EntryPrice: 0.50, CostUSD: 0.50}
	status, pnlUSD, pnlPct := SettleTrade(trade, "NO")
	assert.Equal(t, TradeLost, status)
	assert.Equal(t, -0.50, pnlUSD)
	assert.Equal(t, -1.0, pnlPct)
}

func TestSettleTrade_WonWithoutEntryPriceLosesCost(t *testing.T) {
	// entrada desconocida: no se puede calcular payout, se asume el coste
	trade := BotTrade{Direction: "YES", EntryPrice: 0, CostUSD: 0.50}
	status, pnlUSD, _ := SettleTrade(trade, "YES")
	assert.Equal(t, TradeWon, status)
	assert.Equal(t, -0.50, pnlUSD)
}

func TestRecoverTrade_WithOrderIDOpens(t *testing.T) {
	trade := BotTrade{Status: TradePlaced, OrderID: "0xdeadbeef"}
	status, msg := RecoverTrade(trade)
	assert.Equal(t, TradeOpen, status)
	assert.Empty(t, msg)
}

func TestRecoverTrade_WithoutOrderIDFails(t *testing.T) {
	trade := BotTrade{Status: TradePlaced}
	status, msg := RecoverTrade(trade)
	assert.Equal(t, TradeFailed, status)
	assert.Equal(t, "unconfirmed after restart", msg)
}

func TestRecoverTrade_NonPlacedUntouched(t *testing.T) {
	for _, s := range []TradeStatus{TradeOpen, TradeWon, TradeLost, TradeFailed} {
		trade := BotTrade{Status: s, OrderID: "x"}
		status, msg := RecoverTrade(trade)
		assert.Equal(t, s, status)
		assert.Empty(t, msg)
	}
}

func TestTradeStatus_Transitions(t *testing.T) {
	assert.True(t, TradePlaced.CanTransition(TradeOpen))
	assert.True(t, TradePlaced.CanTransition(TradeFailed))
	assert.True(t, TradeOpen.CanTransition(TradeWon))
	assert.True(t, TradeOpen.CanTransition(TradeLost))
	assert.False(t, TradeWon.CanTransition(TradeOpen))
	assert.False(t, TradeFailed.CanTransition(TradeOpen))
	assert.False(t, TradePlaced.CanTransition(TradeWon))
}
