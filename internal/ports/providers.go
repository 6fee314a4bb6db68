package ports

import (
	"context"

	"github.com/alejandrodnm/whaleradar/internal/domain"
)

// LeaderboardEntry es una fila del leaderboard público de Polymarket.
type LeaderboardEntry struct {
	Wallet   string
	Username string
	PnL      float64
	Volume   float64
}

// ActivityEvent es un evento del historial público de un wallet
// (TRADE, REDEEM, SPLIT...).
type ActivityEvent struct {
	Type        string // "TRADE" | "REDEEM" | ...
	ConditionID string
	Title       string
	Slug        string
	EventSlug   string
	Outcome     string
	Side        string // "BUY" | "SELL" (solo TRADE)
	Price       float64
	Size        float64
	USDCSize    float64
	Timestamp   int64 // epoch segundos, tal como lo da la API
}

// DataProvider obtiene datos públicos de traders desde la Data API.
type DataProvider interface {
	// Leaderboard devuelve el top de traders de una categoría
	// (OVERALL, POLITICS, CRYPTO, SPORTS, CULTURE).
	Leaderboard(ctx context.Context, category string, limit int) ([]LeaderboardEntry, error)

	// Positions devuelve las posiciones abiertas actuales de un wallet.
	Positions(ctx context.Context, wallet string) ([]domain.Position, error)

	// Activity devuelve el historial de actividad de un wallet, más
	// reciente primero.
	Activity(ctx context.Context, wallet string, limit int) ([]ActivityEvent, error)

	// Trades devuelve el historial de trades de un wallet.
	Trades(ctx context.Context, wallet string, limit int) ([]domain.TradeFill, error)
}

// ResolvedMarket es el estado de resolución de un mercado según Gamma.
type ResolvedMarket struct {
	ConditionID string
	Title       string
	Closed      bool
	Resolved    bool
	// Outcome es "YES"/"NO" si el mercado resolvió, "" si no.
	Outcome string
}

// MarketProvider consulta el estado de mercados individuales en Gamma.
type MarketProvider interface {
	// MarketByCondition devuelve el mercado identificado por su condition id,
	// o nil si Gamma no lo conoce.
	MarketByCondition(ctx context.Context, conditionID string) (*ResolvedMarket, error)
}
