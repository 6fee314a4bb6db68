package domain

import "time"

// TradeStatus es el estado de un trade colocado por el bot.
type TradeStatus string

const (
	// TradePlaced: la orden salió hacia el broker pero aún no se confirmó.
	// Solo debería existir durante el instante de colocación; encontrarlo al
	// arrancar significa que el proceso murió a mitad.
	TradePlaced TradeStatus = "PLACED"
	TradeOpen   TradeStatus = "OPEN"
	TradeWon    TradeStatus = "WON"
	TradeLost   TradeStatus = "LOST"
	TradeFailed TradeStatus = "FAILED"
)

var tradeTransitions = map[TradeStatus][]TradeStatus{
	TradePlaced: {TradeOpen, TradeFailed},
	TradeOpen:   {TradeWon, TradeLost},
}

// CanTransition indica si el paso from→to es válido. WON/LOST/FAILED son
// terminales.
func (s TradeStatus) CanTransition(to TradeStatus) bool {
	for _, t := range tradeTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// BotTrade es una apuesta real colocada por el bot a partir de una señal.
// A lo sumo un trade por señal.
type BotTrade struct {
	ID                int64
	LocalID           string // uuid generado antes de tocar al broker
	SignalID          int64
	ConditionID       string
	MarketTitle       string
	Direction         string
	TokenID           string
	OrderID           string
	Status            TradeStatus
	EntryPrice        float64
	CostUSD           float64
	Shares            float64
	PnLUSD            float64
	PnLPct            float64
	ResolutionOutcome string
	ErrorMessage      string
	ResolvedAt        time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SettleTrade calcula el resultado de un trade al resolverse su mercado.
// Gana si la dirección coincide con la resolución: cada share paga $1, así
// que pnl = cost/entrada − cost. Pierde ⇒ −cost entero.
func SettleTrade(t BotTrade, resolution string) (status TradeStatus, pnlUSD, pnlPct float64) {
	won := t.Direction == resolution
	if won && t.EntryPrice > 0 {
		shares := t.CostUSD / t.EntryPrice
		pnlUSD = shares - t.CostUSD
	} else {
		pnlUSD = -t.CostUSD
	}
	if t.CostUSD > 0 {
		pnlPct = pnlUSD / t.CostUSD
	}
	if won {
		return TradeWon, pnlUSD, pnlPct
	}
	return TradeLost, pnlUSD, pnlPct
}

// RecoverTrade decide el destino de un trade PLACED encontrado al arrancar.
// Las órdenes FOK se llenan al instante o fallan: con order id del broker el
// fill ocurrió (OPEN); sin él la orden nunca se confirmó (FAILED).
func RecoverTrade(t BotTrade) (TradeStatus, string) {
	if t.Status != TradePlaced {
		return t.Status, ""
	}
	if t.OrderID != "" {
		return TradeOpen, ""
	}
	return TradeFailed, "unconfirmed after restart"
}

// RiskState es el estado persistente del gestor de riesgo.
type RiskState struct {
	PeakBalance          float64
	CircuitBreakerActive bool
	UpdatedAt            time.Time
}
