package resolution

// checker.go — resolución de mercados con señal.
//
// Recorre las señales sin resolver y consulta Gamma: si el mercado ya
// resolvió con un outcome concluyente, anota resultado y P&L hipotético en
// la fila. Una señal CLOSED conserva su estado; solo las vivas pasan a
// RESOLVED.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/whaleradar/internal/domain"
	"github.com/alejandrodnm/whaleradar/internal/ports"
)

// Checker anota la resolución de mercados en las señales.
type Checker struct {
	store   ports.Storage
	markets ports.MarketProvider
}

// New crea un Checker sobre el storage y el provider de mercados.
func New(store ports.Storage, markets ports.MarketProvider) *Checker {
	return &Checker{store: store, markets: markets}
}

// CheckAll revisa todas las señales pendientes y devuelve cuántas quedaron
// resueltas en este pase. Un mercado sin outcome concluyente (resuelto pero
// sin precio ganador claro) se deja para el siguiente pase.
func (c *Checker) CheckAll(ctx context.Context) (int, error) {
	signals, err := c.store.UnresolvedSignals(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolution.CheckAll: load: %w", err)
	}

	resolved := 0
	now := time.Now().UTC()
	for _, signal := range signals {
		market, err := c.markets.MarketByCondition(ctx, signal.ConditionID)
		if err != nil {
			slog.Warn("market lookup failed",
				"signal_id", signal.ID,
				"condition_id", signal.ConditionID,
				"err", err,
			)
			continue
		}
		if market == nil || !market.Resolved || market.Outcome == "" {
			continue
		}

		signal.ResolvedAt = now
		signal.ResolutionOutcome = market.Outcome
		signal.PnLPercent = domain.ResolutionPnL(signal.Direction, signal.CurrentPrice, market.Outcome)
		if signal.Status.CanTransition(domain.SignalResolved) {
			signal.Status = domain.SignalResolved
		}

		if err := c.store.UpdateSignal(ctx, signal); err != nil {
			slog.Warn("resolution update failed", "signal_id", signal.ID, "err", err)
			continue
		}
		resolved++
		slog.Info("signal resolved",
			"signal_id", signal.ID,
			"condition_id", signal.ConditionID,
			"direction", signal.Direction,
			"outcome", market.Outcome,
			"pnl_pct", signal.PnLPercent,
		)
	}

	if len(signals) > 0 {
		slog.Debug("resolution pass complete", "checked", len(signals), "resolved", resolved)
	}
	return resolved, nil
}
