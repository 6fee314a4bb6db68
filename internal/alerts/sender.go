package alerts

// sender.go — despacho de alertas pendientes.
//
// Las señales que no pasan el filtro de estrategia se marcan como enviadas
// sin notificar: así no se reevalúan en cada ciclo ni llegan nunca al bot
// como operables sin haberse anunciado.

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/whaleradar/internal/domain"
	"github.com/alejandrodnm/whaleradar/internal/ports"
)

// Sender drena las alertas pendientes de señal y de resolución.
type Sender struct {
	store    ports.Storage
	notifier ports.Notifier
	filter   domain.StrategyFilter
}

// NewSender crea un Sender con el filtro de estrategia dado.
func NewSender(store ports.Storage, notifier ports.Notifier, filter domain.StrategyFilter) *Sender {
	return &Sender{store: store, notifier: notifier, filter: filter}
}

// SendPending envía las alertas de señal pendientes y devuelve cuántas
// salieron de verdad por el notifier.
func (s *Sender) SendPending(ctx context.Context) (int, error) {
	pending, err := s.store.UnsentSignals(ctx)
	if err != nil {
		return 0, fmt.Errorf("alerts.SendPending: load: %w", err)
	}

	sent := 0
	for _, signal := range pending {
		if ok, reason := s.filter.Passes(signal); !ok {
			slog.Debug("signal filtered, muting alert",
				"signal_id", signal.ID,
				"reason", reason,
			)
			if err := s.store.MarkSignalSent(ctx, signal.ID); err != nil {
				slog.Warn("mark filtered signal failed", "signal_id", signal.ID, "err", err)
			}
			continue
		}

		if err := s.notifier.SignalAlert(ctx, signal); err != nil {
			slog.Warn("signal alert failed", "signal_id", signal.ID, "err", err)
			continue
		}
		if err := s.store.MarkSignalSent(ctx, signal.ID); err != nil {
			slog.Warn("mark sent signal failed", "signal_id", signal.ID, "err", err)
			continue
		}
		sent++
	}

	if len(pending) > 0 {
		slog.Info("signal alerts dispatched", "pending", len(pending), "sent", sent)
	}
	return sent, nil
}

// SendResolutions notifica las resoluciones de mercados cuya señal sí se
// había anunciado. Sigue la misma regla de silenciado por estrategia.
func (s *Sender) SendResolutions(ctx context.Context) (int, error) {
	resolved, err := s.store.NewlyResolvedSignals(ctx)
	if err != nil {
		return 0, fmt.Errorf("alerts.SendResolutions: load: %w", err)
	}

	sent := 0
	for _, signal := range resolved {
		if ok, reason := s.filter.Passes(signal); !ok {
			slog.Debug("resolution alert muted by strategy",
				"signal_id", signal.ID,
				"reason", reason,
			)
			if err := s.store.MarkResolutionSent(ctx, signal.ID); err != nil {
				slog.Warn("mark muted resolution failed", "signal_id", signal.ID, "err", err)
			}
			continue
		}

		if err := s.notifier.ResolutionAlert(ctx, signal); err != nil {
			slog.Warn("resolution alert failed", "signal_id", signal.ID, "err", err)
			continue
		}
		if err := s.store.MarkResolutionSent(ctx, signal.ID); err != nil {
			slog.Warn("mark sent resolution failed", "signal_id", signal.ID, "err", err)
			continue
		}
		sent++
	}

	if len(resolved) > 0 {
		slog.Info("resolution alerts dispatched", "pending", len(resolved), "sent", sent)
	}
	return sent, nil
}
