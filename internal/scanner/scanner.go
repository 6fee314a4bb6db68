package scanner

// scanner.go — ciclo de escaneo de posiciones del watchlist.
//
// Por cada trader: posiciones actuales vs último snapshot → eventos de
// cambio (OPEN/INCREASE/DECREASE/CLOSE) con su convicción, persistidos para
// que el detector los agregue. Un trader sin snapshot previo se inicializa
// desde su historial de trades para no producir una ola de falsos OPEN.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/whaleradar/internal/domain"
	"github.com/alejandrodnm/whaleradar/internal/ports"
)

// defaultTradesLimit acota el historial usado para el snapshot inicial.
const defaultTradesLimit = 500

// Scanner detecta cambios de posición de los traders del watchlist.
type Scanner struct {
	data        ports.DataProvider
	store       ports.Storage
	tradesLimit int
}

// New crea un Scanner sobre el provider de datos y el storage.
func New(data ports.DataProvider, store ports.Storage) *Scanner {
	return &Scanner{data: data, store: store, tradesLimit: defaultTradesLimit}
}

// ScanAll recorre el watchlist completo y devuelve cuántos cambios de
// posición se detectaron en total. Un fallo con un trader no corta el ciclo.
func (s *Scanner) ScanAll(ctx context.Context) (int, error) {
	traders, err := s.store.GetTraders(ctx)
	if err != nil {
		return 0, fmt.Errorf("scanner.ScanAll: load watchlist: %w", err)
	}

	total := 0
	for _, trader := range traders {
		changes, err := s.scanTrader(ctx, trader)
		if err != nil {
			slog.Warn("trader scan failed", "wallet", trader.Wallet, "err", err)
			continue
		}
		if len(changes) > 0 {
			slog.Debug("position changes detected",
				"wallet", trader.Wallet,
				"changes", len(changes),
			)
		}
		total += len(changes)
	}

	slog.Info("scan cycle complete", "traders", len(traders), "changes", total)
	return total, nil
}

// scanTrader compara el estado actual de un trader con su último snapshot,
// persiste los cambios y guarda el snapshot nuevo.
func (s *Scanner) scanTrader(ctx context.Context, trader domain.Trader) ([]domain.PositionChange, error) {
	now := time.Now().UTC()

	current, err := s.data.Positions(ctx, trader.Wallet)
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}

	previous, err := s.store.LatestSnapshots(ctx, trader.Wallet)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if previous == nil {
		// Primer scan de este wallet: baseline sintético desde el historial.
		// Un slice vacío no-nil significa "escaneado antes, sin posiciones"
		// y sí produce eventos OPEN legítimos.
		trades, err := s.data.Trades(ctx, trader.Wallet, s.tradesLimit)
		if err != nil {
			return nil, fmt.Errorf("bootstrap trades: %w", err)
		}
		previous = domain.AggregateTrades(trader.Wallet, trades)
		slog.Debug("bootstrapped baseline from trade history",
			"wallet", trader.Wallet,
			"positions", len(previous),
		)
	}

	changes := domain.DiffPositions(previous, current)
	for i := range changes {
		changes[i].Wallet = trader.Wallet
		changes[i].Conviction = domain.Conviction(changes[i], trader.AvgPositionSize)
		changes[i].DetectedAt = now
	}

	if len(changes) > 0 {
		if err := s.store.InsertChanges(ctx, changes); err != nil {
			return nil, fmt.Errorf("persist changes: %w", err)
		}
	}
	if err := s.store.SaveSnapshots(ctx, trader.Wallet, current, now); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}
	return changes, nil
}
