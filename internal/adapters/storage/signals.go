package storage

// signals.go — persistencia de señales de convergencia.
//
// Los contributors viajan como JSON dentro de la fila: el detector siempre
// reescribe la lista entera al actualizar una señal, nunca la edita parcial.

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/whaleradar/internal/domain"
)

const signalColumns = `id, condition_id, market_title, market_slug, direction,
	score, peak_score, tier, status, contributors, current_price, sent,
	resolved_at, resolution_outcome, resolution_sent, pnl_percent,
	created_at, updated_at`

// InsertSignal crea una señal nueva y devuelve su id.
func (s *SQLiteStorage) InsertSignal(ctx context.Context, sig domain.Signal) (int64, error) {
	peak := sig.PeakScore
	if sig.Score > peak {
		peak = sig.Score
	}
	now := time.Now().UTC()
	createdAt := sig.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO signals
			(condition_id, market_title, market_slug, direction, score, peak_score,
			 tier, status, contributors, current_price, sent, resolved_at,
			 resolution_outcome, resolution_sent, pnl_percent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sig.ConditionID, sig.MarketTitle, sig.MarketSlug, sig.Direction,
		sig.Score, peak, sig.Tier, string(sig.Status),
		marshalJSON(sig.Contributors), sig.CurrentPrice, boolToInt(sig.Sent),
		nullTime(sig.ResolvedAt), sig.ResolutionOutcome,
		boolToInt(sig.ResolutionSent), sig.PnLPercent,
		createdAt.UTC(), now,
	)
	if err != nil {
		return 0, fmt.Errorf("storage.InsertSignal: %s: %w", sig.ConditionID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage.InsertSignal: last id: %w", err)
	}
	return id, nil
}

// UpdateSignal reescribe una señal existente. El peak nunca baja: se queda
// con el máximo entre el guardado y el nuevo score.
func (s *SQLiteStorage) UpdateSignal(ctx context.Context, sig domain.Signal) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE signals SET
			market_title       = ?,
			market_slug        = ?,
			direction          = ?,
			score              = ?,
			peak_score         = MAX(peak_score, ?),
			tier               = ?,
			status             = ?,
			contributors       = ?,
			current_price      = ?,
			sent               = ?,
			resolved_at        = ?,
			resolution_outcome = ?,
			resolution_sent    = ?,
			pnl_percent        = ?,
			updated_at         = ?
		WHERE id = ?
	`,
		sig.MarketTitle, sig.MarketSlug, sig.Direction,
		sig.Score, sig.Score, sig.Tier, string(sig.Status),
		marshalJSON(sig.Contributors), sig.CurrentPrice, boolToInt(sig.Sent),
		nullTime(sig.ResolvedAt), sig.ResolutionOutcome,
		boolToInt(sig.ResolutionSent), sig.PnLPercent,
		time.Now().UTC(), sig.ID,
	)
	if err != nil {
		return fmt.Errorf("storage.UpdateSignal: #%d: %w", sig.ID, err)
	}
	return nil
}

// ActiveSignal busca una señal no cerrada del mismo mercado y dirección
// creada dentro de la ventana de dedup. Una RESOLVED dentro de la ventana
// también cuenta: absorbe una convergencia tardía en vez de abrir una señal
// nueva sobre un mercado ya resuelto. Devuelve nil si no hay.
func (s *SQLiteStorage) ActiveSignal(ctx context.Context, conditionID, direction string, since time.Time) (*domain.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+signalColumns+`
		FROM signals
		WHERE condition_id = ? AND direction = ?
		  AND status != 'CLOSED'
		  AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT 1
	`, conditionID, direction, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.ActiveSignal: query: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	sig, err := scanSignal(rows)
	if err != nil {
		return nil, fmt.Errorf("storage.ActiveSignal: %w", err)
	}
	return &sig, nil
}

// SignalsByStatus devuelve las señales en cualquiera de los estados dados,
// mejores primero.
func (s *SQLiteStorage) SignalsByStatus(ctx context.Context, statuses ...domain.SignalStatus) ([]domain.Signal, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, st := range statuses {
		placeholders[i] = "?"
		args[i] = string(st)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+signalColumns+`
		FROM signals
		WHERE status IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY score DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.SignalsByStatus: query: %w", err)
	}
	defer rows.Close()
	return collectSignals(rows)
}

// UnresolvedSignals devuelve todas las señales sin resolved_at, también las
// CLOSED: la resolución se anota igualmente en ellas.
func (s *SQLiteStorage) UnresolvedSignals(ctx context.Context) ([]domain.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+signalColumns+`
		FROM signals
		WHERE resolved_at IS NULL
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.UnresolvedSignals: query: %w", err)
	}
	defer rows.Close()
	return collectSignals(rows)
}

// UnsentSignals devuelve todas las señales pendientes de aviso, sin filtrar
// por estado: el decay marca sent=0 también al cerrar una señal y ese cambio
// de ciclo de vida se avisa igual.
func (s *SQLiteStorage) UnsentSignals(ctx context.Context) ([]domain.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+signalColumns+`
		FROM signals
		WHERE sent = 0
		ORDER BY score DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.UnsentSignals: query: %w", err)
	}
	defer rows.Close()
	return collectSignals(rows)
}

// MarkSignalSent marca el aviso de la señal como enviado.
func (s *SQLiteStorage) MarkSignalSent(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE signals SET sent = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	); err != nil {
		return fmt.Errorf("storage.MarkSignalSent: #%d: %w", id, err)
	}
	return nil
}

// NewlyResolvedSignals devuelve señales ya resueltas, previamente avisadas,
// cuyo aviso de resolución sigue pendiente.
func (s *SQLiteStorage) NewlyResolvedSignals(ctx context.Context) ([]domain.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+signalColumns+`
		FROM signals
		WHERE resolved_at IS NOT NULL AND sent = 1 AND resolution_sent = 0
		ORDER BY resolved_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.NewlyResolvedSignals: query: %w", err)
	}
	defer rows.Close()
	return collectSignals(rows)
}

// MarkResolutionSent marca el aviso de resolución como enviado.
func (s *SQLiteStorage) MarkResolutionSent(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE signals SET resolution_sent = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	); err != nil {
		return fmt.Errorf("storage.MarkResolutionSent: #%d: %w", id, err)
	}
	return nil
}

// TradeableSignals devuelve las señales candidatas para el bot: avisadas,
// vivas, sin resolver y sin trade ya colocado. Mejor score primero.
func (s *SQLiteStorage) TradeableSignals(ctx context.Context) ([]domain.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+signalColumns+`
		FROM signals
		WHERE sent = 1
		  AND status IN ('ACTIVE', 'WEAKENING')
		  AND resolved_at IS NULL
		  AND NOT EXISTS
		      (SELECT 1 FROM bot_trades bt WHERE bt.signal_id = signals.id)
		ORDER BY score DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.TradeableSignals: query: %w", err)
	}
	defer rows.Close()
	return collectSignals(rows)
}

func collectSignals(rows *sql.Rows) ([]domain.Signal, error) {
	var signals []domain.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

func scanSignal(rows *sql.Rows) (domain.Signal, error) {
	var sig domain.Signal
	var status string
	var contributors, resolvedAt, resolutionOutcome sql.NullString
	var sent, resolutionSent int
	var createdAt, updatedAt string

	if err := rows.Scan(
		&sig.ID,
		&sig.ConditionID,
		&sig.MarketTitle,
		&sig.MarketSlug,
		&sig.Direction,
		&sig.Score,
		&sig.PeakScore,
		&sig.Tier,
		&status,
		&contributors,
		&sig.CurrentPrice,
		&sent,
		&resolvedAt,
		&resolutionOutcome,
		&resolutionSent,
		&sig.PnLPercent,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Signal{}, fmt.Errorf("scan signal: %w", err)
	}

	sig.Status = domain.SignalStatus(status)
	unmarshalJSON(contributors.String, &sig.Contributors)
	sig.Sent = sent == 1
	sig.ResolvedAt = parseTime(resolvedAt.String)
	sig.ResolutionOutcome = resolutionOutcome.String
	sig.ResolutionSent = resolutionSent == 1
	sig.CreatedAt = parseTime(createdAt)
	sig.UpdatedAt = parseTime(updatedAt)
	return sig, nil
}
