package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/whaleradar/internal/domain"
)

// Storage persiste todo el estado del radar: watchlist, snapshots, cambios,
// señales, trades del bot y estado de riesgo.
type Storage interface {
	ApplySchema(ctx context.Context) error

	// ─── Watchlist ───

	// ReplaceTraders sustituye el watchlist completo de forma atómica.
	ReplaceTraders(ctx context.Context, traders []domain.Trader) error
	GetTraders(ctx context.Context) ([]domain.Trader, error)
	GetTrader(ctx context.Context, wallet string) (*domain.Trader, error)

	// ─── Snapshots de posiciones ───

	SaveSnapshots(ctx context.Context, wallet string, positions []domain.Position, scannedAt time.Time) error
	// LatestSnapshots devuelve el snapshot más reciente de un wallet
	// (todas las posiciones con el mismo scanned_at máximo).
	LatestSnapshots(ctx context.Context, wallet string) ([]domain.Position, error)
	PruneSnapshots(ctx context.Context, olderThan time.Time) (int64, error)

	// ─── Cambios de posición ───

	InsertChanges(ctx context.Context, changes []domain.PositionChange) error
	// RecentChanges devuelve los cambios detectados desde `since`.
	RecentChanges(ctx context.Context, since time.Time) ([]domain.PositionChange, error)

	// ─── Señales ───

	InsertSignal(ctx context.Context, s domain.Signal) (int64, error)
	UpdateSignal(ctx context.Context, s domain.Signal) error
	// ActiveSignal busca una señal no cerrada del mismo mercado y dirección
	// creada dentro de la ventana de dedup.
	ActiveSignal(ctx context.Context, conditionID, direction string, since time.Time) (*domain.Signal, error)
	SignalsByStatus(ctx context.Context, statuses ...domain.SignalStatus) ([]domain.Signal, error)
	// UnresolvedSignals devuelve las señales sin resolved_at.
	UnresolvedSignals(ctx context.Context) ([]domain.Signal, error)
	UnsentSignals(ctx context.Context) ([]domain.Signal, error)
	MarkSignalSent(ctx context.Context, id int64) error
	// NewlyResolvedSignals devuelve señales resueltas cuyo aviso de
	// resolución aún no se envió.
	NewlyResolvedSignals(ctx context.Context) ([]domain.Signal, error)
	MarkResolutionSent(ctx context.Context, id int64) error
	// TradeableSignals: señales ya notificadas, vivas, sin resolver y sin
	// trade asociado, ordenadas por score descendente.
	TradeableSignals(ctx context.Context) ([]domain.Signal, error)

	// ─── Trades del bot ───

	InsertTrade(ctx context.Context, t domain.BotTrade) (int64, error)
	UpdateTrade(ctx context.Context, t domain.BotTrade) error
	TradesByStatus(ctx context.Context, statuses ...domain.TradeStatus) ([]domain.BotTrade, error)
	OpenTradeCount(ctx context.Context) (int, error)
	HasOpenTradeOnMarket(ctx context.Context, conditionID string) (bool, error)
	// SpentToday suma cost_usd de los trades de hoy (UTC) que no fallaron.
	SpentToday(ctx context.Context, day time.Time) (float64, error)
	TradesCreatedOn(ctx context.Context, day time.Time) ([]domain.BotTrade, error)
	// OpenTradesWithResolvedSignals cruza trades OPEN con señales ya
	// resueltas, devolviendo también el outcome de la resolución.
	OpenTradesWithResolvedSignals(ctx context.Context) ([]TradeResolution, error)

	// ─── Estado de riesgo ───

	RiskState(ctx context.Context) (domain.RiskState, error)
	SetPeakBalance(ctx context.Context, peak float64) error
	SetCircuitBreaker(ctx context.Context, active bool) error
}

// TradeResolution empareja un trade abierto con la resolución de su señal.
type TradeResolution struct {
	Trade      domain.BotTrade
	Resolution string
}
