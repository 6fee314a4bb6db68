package detector

// detector.go — detección de convergencia direccional.
//
// Agrupa los cambios de posición recientes por mercado y busca consenso:
// varios traders del watchlist acumulando el mismo outcome sin nadie
// saliendo. El consenso se puntúa sumando la contribución de cada trader
// (score × convicción × edge de categoría × frescura) y se materializa en
// una señal nueva o en la actualización de la señal viva del mismo mercado.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/whaleradar/internal/domain"
	"github.com/alejandrodnm/whaleradar/internal/ports"
)

// freshnessTiers escalona el peso temporal de un cambio dentro de la ventana:
// un movimiento de hace una hora pesa 4× más que uno de hace dos días.
var freshnessTiers = []domain.FreshnessTier{
	{MaxAge: 2 * time.Hour, Multiplier: 2.0},
	{MaxAge: 6 * time.Hour, Multiplier: 1.5},
	{MaxAge: 24 * time.Hour, Multiplier: 1.0},
	{MaxAge: 48 * time.Hour, Multiplier: 0.5},
}

// Config son los parámetros de detección.
type Config struct {
	Window          time.Duration
	HighThreshold   float64
	MediumThreshold float64
}

// Detector agrega cambios de posición en señales.
type Detector struct {
	store ports.Storage
	cfg   Config
}

// New crea un Detector sobre el storage.
func New(store ports.Storage, cfg Config) *Detector {
	return &Detector{store: store, cfg: cfg}
}

// Detect ejecuta un pase completo: upsert de señales con consenso alcista y
// decaimiento de las señales vivas cuyos traders están saliendo. Devuelve
// cuántas señales se crearon o actualizaron.
func (d *Detector) Detect(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	since := now.Add(-d.cfg.Window)

	changes, err := d.store.RecentChanges(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("detector.Detect: load changes: %w", err)
	}
	if len(changes) == 0 {
		return 0, nil
	}

	byCondition := make(map[string][]domain.PositionChange)
	var order []string
	for _, c := range changes {
		if _, ok := byCondition[c.ConditionID]; !ok {
			order = append(order, c.ConditionID)
		}
		byCondition[c.ConditionID] = append(byCondition[c.ConditionID], c)
	}

	touched := 0
	for _, conditionID := range order {
		group := byCondition[conditionID]
		direction, bullish, ok := domain.Consensus(group)
		if !ok {
			continue
		}
		upserted, err := d.upsertSignal(ctx, conditionID, direction, group, bullish, now, since)
		if err != nil {
			slog.Warn("signal upsert failed", "condition_id", conditionID, "err", err)
			continue
		}
		if upserted {
			touched++
		}
	}

	if err := d.decaySignals(ctx, byCondition, now); err != nil {
		slog.Warn("signal decay pass failed", "err", err)
	}

	slog.Info("detection pass complete",
		"changes", len(changes),
		"markets", len(byCondition),
		"signals_touched", touched,
	)
	return touched, nil
}

// upsertSignal puntúa el consenso de un mercado y lo persiste. Una señal viva
// del mismo mercado y dirección dentro de la ventana se actualiza en sitio
// (el precio de entrada original se conserva); si no hay, se crea ACTIVE.
func (d *Detector) upsertSignal(
	ctx context.Context,
	conditionID, direction string,
	group []domain.PositionChange,
	bullishWallets []string,
	now, since time.Time,
) (bool, error) {
	contributors, err := d.buildContributors(ctx, group, bullishWallets, now)
	if err != nil {
		return false, err
	}
	if len(contributors) == 0 {
		return false, nil
	}

	score := domain.SignalScore(contributors)
	tier := domain.DetermineTier(contributors, score, d.cfg.HighThreshold, d.cfg.MediumThreshold)
	if tier == 0 {
		return false, nil
	}

	existing, err := d.store.ActiveSignal(ctx, conditionID, direction, since)
	if err != nil {
		return false, fmt.Errorf("lookup active signal: %w", err)
	}

	if existing != nil {
		existing.Score = score
		existing.PeakScore = score // el storage conserva el máximo histórico
		existing.Tier = tier
		existing.Contributors = contributors
		existing.Sent = false
		existing.UpdatedAt = now
		if err := d.store.UpdateSignal(ctx, *existing); err != nil {
			return false, fmt.Errorf("update signal: %w", err)
		}
		slog.Debug("signal refreshed",
			"signal_id", existing.ID,
			"condition_id", conditionID,
			"score", score,
			"tier", tier,
		)
		return true, nil
	}

	signal := domain.Signal{
		ConditionID:  conditionID,
		MarketTitle:  group[0].Title,
		MarketSlug:   group[0].EventSlug,
		Direction:    direction,
		Score:        score,
		PeakScore:    score,
		Tier:         tier,
		Status:       domain.SignalActive,
		Contributors: contributors,
		CurrentPrice: group[0].PriceAtChange,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	id, err := d.store.InsertSignal(ctx, signal)
	if err != nil {
		return false, fmt.Errorf("insert signal: %w", err)
	}
	slog.Info("signal created",
		"signal_id", id,
		"condition_id", conditionID,
		"direction", direction,
		"score", score,
		"tier", tier,
		"traders", len(contributors),
	)
	return true, nil
}

// buildContributors construye la contribución de cada wallet alcista: su
// mejor cambio (mayor convicción) ponderado por edge de categoría y
// frescura. Wallets que ya no están en el watchlist se ignoran.
func (d *Detector) buildContributors(
	ctx context.Context,
	group []domain.PositionChange,
	bullishWallets []string,
	now time.Time,
) ([]domain.Contributor, error) {
	category := ""
	if len(group) > 0 {
		category = domain.ClassifyCategory(group[0].Title)
	}

	var contributors []domain.Contributor
	for _, wallet := range bullishWallets {
		var best *domain.PositionChange
		for i := range group {
			c := &group[i]
			if c.Wallet != wallet || !c.Type.Bullish() {
				continue
			}
			if best == nil || c.Conviction > best.Conviction {
				best = c
			}
		}
		if best == nil {
			continue
		}

		trader, err := d.store.GetTrader(ctx, wallet)
		if err != nil {
			return nil, fmt.Errorf("lookup trader %s: %w", wallet, err)
		}
		if trader == nil {
			continue
		}

		contributors = append(contributors, domain.Contributor{
			Wallet:        wallet,
			Username:      trader.Username,
			TraderScore:   trader.Score,
			WinRate:       trader.WinRate,
			PnL:           trader.PnL,
			TraderType:    trader.Type,
			DomainTags:    trader.DomainTags,
			RecentBets:    trader.RecentBets,
			Conviction:    best.Conviction,
			ChangeType:    best.Type,
			Size:          best.NewSize,
			CategoryMatch: domain.CategoryMatch(trader.CategoryScores, category),
			Freshness:     domain.Freshness(best.DetectedAt, now, freshnessTiers),
			DetectedAt:    best.DetectedAt,
		})
	}
	return contributors, nil
}

// decaySignals degrada las señales vivas cuyos contribuidores están saliendo
// del mercado: algunos fuera ⇒ WEAKENING, todos fuera ⇒ CLOSED. Un cambio de
// estado reactiva el aviso (sent=false).
func (d *Detector) decaySignals(
	ctx context.Context,
	byCondition map[string][]domain.PositionChange,
	now time.Time,
) error {
	exits := make(map[string]map[string]struct{})
	for conditionID, group := range byCondition {
		for _, c := range group {
			if c.Type.Bullish() {
				continue
			}
			if exits[conditionID] == nil {
				exits[conditionID] = make(map[string]struct{})
			}
			exits[conditionID][c.Wallet] = struct{}{}
		}
	}
	if len(exits) == 0 {
		return nil
	}

	live, err := d.store.SignalsByStatus(ctx, domain.SignalActive, domain.SignalWeakening)
	if err != nil {
		return fmt.Errorf("load live signals: %w", err)
	}

	for _, signal := range live {
		exiting, ok := exits[signal.ConditionID]
		if !ok {
			continue
		}
		next, changed := domain.Decay(signal, exiting)
		if !changed {
			continue
		}
		signal.Status = next
		signal.Sent = false
		signal.UpdatedAt = now
		if err := d.store.UpdateSignal(ctx, signal); err != nil {
			slog.Warn("signal decay update failed", "signal_id", signal.ID, "err", err)
			continue
		}
		slog.Info("signal decayed",
			"signal_id", signal.ID,
			"condition_id", signal.ConditionID,
			"status", next,
		)
	}
	return nil
}
