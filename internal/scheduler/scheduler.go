package scheduler

// scheduler.go — bucle principal del radar.
//
// Cada ciclo: escanear posiciones, detectar señales, despachar alertas y,
// con el bot habilitado, ejecutar y liquidar trades. Las tareas lentas
// (chequeo de resoluciones, rebuild del watchlist, limpieza y resumen
// diario) corren en múltiplos del ciclo. Un fallo en un paso se loguea y el
// ciclo sigue: el radar no se cae porque una API tosa.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/whaleradar/internal/domain"
	"github.com/alejandrodnm/whaleradar/internal/ports"
)

// WatchlistBuilder reconstruye el watchlist completo.
type WatchlistBuilder interface {
	Rebuild(ctx context.Context) ([]domain.Trader, error)
}

// PositionScanner ejecuta un pase de escaneo sobre el watchlist.
type PositionScanner interface {
	ScanAll(ctx context.Context) (int, error)
}

// SignalDetector ejecuta un pase de detección sobre los cambios recientes.
type SignalDetector interface {
	Detect(ctx context.Context) (int, error)
}

// ResolutionChecker consulta la resolución de los mercados con señal.
type ResolutionChecker interface {
	CheckAll(ctx context.Context) (int, error)
}

// AlertSender drena las alertas pendientes.
type AlertSender interface {
	SendPending(ctx context.Context) (int, error)
	SendResolutions(ctx context.Context) (int, error)
}

// TradeBot es el ejecutor de trades reales. nil ⇒ bot deshabilitado.
type TradeBot interface {
	Recover(ctx context.Context) error
	ExecuteCycle(ctx context.Context) error
	ProcessResolutions(ctx context.Context) (int, error)
	DailySummary(ctx context.Context) error
}

// Config controla la cadencia del bucle.
type Config struct {
	ScanInterval           time.Duration
	WatchlistRefresh       time.Duration
	ResolutionEveryNCycles int
	SnapshotRetention      time.Duration
	// DailyInterval separa las tareas diarias (limpieza, resumen del bot).
	// 0 ⇒ 24h.
	DailyInterval time.Duration
}

// Scheduler orquesta todos los componentes del radar.
type Scheduler struct {
	store    ports.Storage
	builder  WatchlistBuilder
	scanner  PositionScanner
	detector SignalDetector
	checker  ResolutionChecker
	alerts   AlertSender
	bot      TradeBot
	cfg      Config

	cycles      int
	lastRebuild time.Time
	lastDaily   time.Time
}

// New crea el Scheduler. bot puede ser nil.
func New(
	store ports.Storage,
	builder WatchlistBuilder,
	scanner PositionScanner,
	detector SignalDetector,
	checker ResolutionChecker,
	alerts AlertSender,
	bot TradeBot,
	cfg Config,
) *Scheduler {
	if cfg.ResolutionEveryNCycles <= 0 {
		cfg.ResolutionEveryNCycles = 6
	}
	if cfg.DailyInterval == 0 {
		cfg.DailyInterval = 24 * time.Hour
	}
	return &Scheduler{
		store:    store,
		builder:  builder,
		scanner:  scanner,
		detector: detector,
		checker:  checker,
		alerts:   alerts,
		bot:      bot,
		cfg:      cfg,
	}
}

// Run arranca el bucle y no vuelve hasta que el contexto se cancele.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Bootstrap(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	slog.Info("radar loop started", "scan_interval", s.cfg.ScanInterval)
	for {
		s.RunCycle(ctx)
		select {
		case <-ctx.Done():
			slog.Info("radar loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Bootstrap prepara el arranque: recupera trades huérfanos del bot y
// construye el watchlist si está vacío. Con watchlist previo, el reloj del
// próximo rebuild arranca desde su última actualización persistida.
func (s *Scheduler) Bootstrap(ctx context.Context) error {
	now := time.Now().UTC()
	s.lastDaily = now

	if s.bot != nil {
		if err := s.bot.Recover(ctx); err != nil {
			return fmt.Errorf("scheduler.Bootstrap: recover trades: %w", err)
		}
	}

	traders, err := s.store.GetTraders(ctx)
	if err != nil {
		return fmt.Errorf("scheduler.Bootstrap: load watchlist: %w", err)
	}
	if len(traders) == 0 {
		slog.Info("empty watchlist, building")
		if _, err := s.builder.Rebuild(ctx); err != nil {
			return fmt.Errorf("scheduler.Bootstrap: %w", err)
		}
		s.lastRebuild = now
		return nil
	}

	s.lastRebuild = now
	for _, t := range traders {
		if !t.UpdatedAt.IsZero() && t.UpdatedAt.Before(s.lastRebuild) {
			s.lastRebuild = t.UpdatedAt
		}
	}
	slog.Info("watchlist loaded",
		"traders", len(traders),
		"last_rebuild", s.lastRebuild.Format(time.RFC3339),
	)
	return nil
}

// RunCycle ejecuta un ciclo completo del radar.
func (s *Scheduler) RunCycle(ctx context.Context) {
	s.cycles++
	started := time.Now()

	if _, err := s.scanner.ScanAll(ctx); err != nil {
		slog.Error("scan pass failed", "err", err)
	}
	if _, err := s.detector.Detect(ctx); err != nil {
		slog.Error("detection pass failed", "err", err)
	}
	if _, err := s.alerts.SendPending(ctx); err != nil {
		slog.Error("alert dispatch failed", "err", err)
	}

	if s.bot != nil {
		if err := s.bot.ExecuteCycle(ctx); err != nil {
			slog.Error("bot execution failed", "err", err)
		}
		if _, err := s.bot.ProcessResolutions(ctx); err != nil {
			slog.Error("bot settlement failed", "err", err)
		}
	}

	if s.cycles%s.cfg.ResolutionEveryNCycles == 0 {
		if _, err := s.checker.CheckAll(ctx); err != nil {
			slog.Error("resolution pass failed", "err", err)
		}
		if _, err := s.alerts.SendResolutions(ctx); err != nil {
			slog.Error("resolution alert dispatch failed", "err", err)
		}
	}

	now := time.Now().UTC()
	if s.cfg.WatchlistRefresh > 0 && now.Sub(s.lastRebuild) >= s.cfg.WatchlistRefresh {
		if _, err := s.builder.Rebuild(ctx); err != nil {
			slog.Error("watchlist rebuild failed", "err", err)
		} else {
			s.lastRebuild = now
		}
	}

	if now.Sub(s.lastDaily) >= s.cfg.DailyInterval {
		s.runDaily(ctx, now)
		s.lastDaily = now
	}

	slog.Debug("cycle complete",
		"cycle", s.cycles,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
}

// runDaily ejecuta las tareas de mantenimiento: poda de snapshots viejos y
// resumen diario del bot.
func (s *Scheduler) runDaily(ctx context.Context, now time.Time) {
	pruned, err := s.store.PruneSnapshots(ctx, now.Add(-s.cfg.SnapshotRetention))
	if err != nil {
		slog.Error("snapshot prune failed", "err", err)
	} else if pruned > 0 {
		slog.Info("old snapshots pruned", "rows", pruned)
	}

	if s.bot != nil {
		if err := s.bot.DailySummary(ctx); err != nil {
			slog.Error("daily bot summary failed", "err", err)
		}
	}
}
