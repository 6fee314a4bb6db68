package storage

// trades.go — trades reales del bot y estado del gestor de riesgo.
//
// bot_trades es la fuente de verdad de todo lo que el bot ha colocado: el
// arranque recorre los PLACED huérfanos y el día contable se corta en UTC.
// risk_state es una única fila (id = 1) sembrada por ApplySchema.

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/whaleradar/internal/domain"
	"github.com/alejandrodnm/whaleradar/internal/ports"
)

const tradeColumns = `id, local_id, signal_id, condition_id, market_title,
	direction, token_id, order_id, status, entry_price, cost_usd, shares,
	pnl_usd, pnl_pct, resolution_outcome, error_message, resolved_at,
	created_at, updated_at`

// InsertTrade persiste un trade recién creado y devuelve su id.
func (s *SQLiteStorage) InsertTrade(ctx context.Context, t domain.BotTrade) (int64, error) {
	now := time.Now().UTC()
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_trades
			(local_id, signal_id, condition_id, market_title, direction, token_id,
			 order_id, status, entry_price, cost_usd, shares, pnl_usd, pnl_pct,
			 resolution_outcome, error_message, resolved_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.LocalID, t.SignalID, t.ConditionID, t.MarketTitle, t.Direction,
		t.TokenID, t.OrderID, string(t.Status), t.EntryPrice, t.CostUSD,
		t.Shares, t.PnLUSD, t.PnLPct, t.ResolutionOutcome, t.ErrorMessage,
		nullTime(t.ResolvedAt), createdAt.UTC(), now,
	)
	if err != nil {
		return 0, fmt.Errorf("storage.InsertTrade: %s: %w", t.LocalID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage.InsertTrade: last id: %w", err)
	}
	return id, nil
}

// UpdateTrade reescribe los campos mutables de un trade.
func (s *SQLiteStorage) UpdateTrade(ctx context.Context, t domain.BotTrade) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE bot_trades SET
			order_id           = ?,
			status             = ?,
			entry_price        = ?,
			cost_usd           = ?,
			shares             = ?,
			pnl_usd            = ?,
			pnl_pct            = ?,
			resolution_outcome = ?,
			error_message      = ?,
			resolved_at        = ?,
			updated_at         = ?
		WHERE id = ?
	`,
		t.OrderID, string(t.Status), t.EntryPrice, t.CostUSD, t.Shares,
		t.PnLUSD, t.PnLPct, t.ResolutionOutcome, t.ErrorMessage,
		nullTime(t.ResolvedAt), time.Now().UTC(), t.ID,
	)
	if err != nil {
		return fmt.Errorf("storage.UpdateTrade: #%d: %w", t.ID, err)
	}
	return nil
}

// TradesByStatus devuelve los trades en cualquiera de los estados dados,
// más antiguos primero.
func (s *SQLiteStorage) TradesByStatus(ctx context.Context, statuses ...domain.TradeStatus) ([]domain.BotTrade, error) {
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
		SELECT `+tradeColumns+`
		FROM bot_trades
		WHERE status IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY created_at ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.TradesByStatus: query: %w", err)
	}
	defer rows.Close()
	return collectTrades(rows)
}

// OpenTradeCount cuenta los trades OPEN.
func (s *SQLiteStorage) OpenTradeCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bot_trades WHERE status = 'OPEN'`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage.OpenTradeCount: %w", err)
	}
	return n, nil
}

// HasOpenTradeOnMarket indica si ya hay un trade OPEN sobre el mercado.
func (s *SQLiteStorage) HasOpenTradeOnMarket(ctx context.Context, conditionID string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bot_trades WHERE status = 'OPEN' AND condition_id = ?`,
		conditionID,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("storage.HasOpenTradeOnMarket: %s: %w", conditionID, err)
	}
	return n > 0, nil
}

// SpentToday suma el coste de los trades del día UTC dado que no fallaron.
// Un FAILED no gastó nada: la orden FOK nunca se llenó.
func (s *SQLiteStorage) SpentToday(ctx context.Context, day time.Time) (float64, error) {
	start, end := dayBounds(day)

	var spent sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, `
		SELECT SUM(cost_usd) FROM bot_trades
		WHERE status != 'FAILED' AND created_at >= ? AND created_at < ?
	`, start, end).Scan(&spent); err != nil {
		return 0, fmt.Errorf("storage.SpentToday: %w", err)
	}
	return spent.Float64, nil
}

// TradesCreatedOn devuelve todos los trades creados el día UTC dado.
func (s *SQLiteStorage) TradesCreatedOn(ctx context.Context, day time.Time) ([]domain.BotTrade, error) {
	start, end := dayBounds(day)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM bot_trades
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("storage.TradesCreatedOn: query: %w", err)
	}
	defer rows.Close()
	return collectTrades(rows)
}

// OpenTradesWithResolvedSignals cruza trades OPEN con señales ya resueltas
// con outcome concluyente.
func (s *SQLiteStorage) OpenTradesWithResolvedSignals(ctx context.Context) ([]ports.TradeResolution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.local_id, t.signal_id, t.condition_id, t.market_title,
		       t.direction, t.token_id, t.order_id, t.status, t.entry_price,
		       t.cost_usd, t.shares, t.pnl_usd, t.pnl_pct, t.resolution_outcome,
		       t.error_message, t.resolved_at, t.created_at, t.updated_at,
		       s.resolution_outcome
		FROM bot_trades t
		JOIN signals s ON s.id = t.signal_id
		WHERE t.status = 'OPEN'
		  AND s.resolved_at IS NOT NULL
		  AND s.resolution_outcome != ''
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.OpenTradesWithResolvedSignals: query: %w", err)
	}
	defer rows.Close()

	var resolutions []ports.TradeResolution
	for rows.Next() {
		t, resolution, err := scanTradeWithResolution(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.OpenTradesWithResolvedSignals: %w", err)
		}
		resolutions = append(resolutions, ports.TradeResolution{Trade: t, Resolution: resolution})
	}
	return resolutions, rows.Err()
}

// ─── Estado de riesgo ───

// RiskState devuelve la fila única del gestor de riesgo.
func (s *SQLiteStorage) RiskState(ctx context.Context) (domain.RiskState, error) {
	var state domain.RiskState
	var breaker int
	var updatedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT peak_balance, circuit_breaker, updated_at FROM risk_state WHERE id = 1`,
	).Scan(&state.PeakBalance, &breaker, &updatedAt)
	if err != nil {
		return domain.RiskState{}, fmt.Errorf("storage.RiskState: %w", err)
	}

	state.CircuitBreakerActive = breaker == 1
	state.UpdatedAt = parseTime(updatedAt)
	return state, nil
}

// SetPeakBalance actualiza el pico de balance.
func (s *SQLiteStorage) SetPeakBalance(ctx context.Context, peak float64) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE risk_state SET peak_balance = ?, updated_at = ? WHERE id = 1`,
		peak, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("storage.SetPeakBalance: %w", err)
	}
	return nil
}

// SetCircuitBreaker activa o desactiva el circuit breaker.
func (s *SQLiteStorage) SetCircuitBreaker(ctx context.Context, active bool) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE risk_state SET circuit_breaker = ?, updated_at = ? WHERE id = 1`,
		boolToInt(active), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("storage.SetCircuitBreaker: %w", err)
	}
	return nil
}

// ─── helpers ───

func collectTrades(rows *sql.Rows) ([]domain.BotTrade, error) {
	var trades []domain.BotTrade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func scanTrade(rows *sql.Rows) (domain.BotTrade, error) {
	var t domain.BotTrade
	var status string
	var tokenID, orderID, resolutionOutcome, errorMessage, resolvedAt sql.NullString
	var createdAt, updatedAt string

	if err := rows.Scan(
		&t.ID, &t.LocalID, &t.SignalID, &t.ConditionID, &t.MarketTitle,
		&t.Direction, &tokenID, &orderID, &status, &t.EntryPrice, &t.CostUSD,
		&t.Shares, &t.PnLUSD, &t.PnLPct, &resolutionOutcome, &errorMessage,
		&resolvedAt, &createdAt, &updatedAt,
	); err != nil {
		return domain.BotTrade{}, fmt.Errorf("scan trade: %w", err)
	}

	t.TokenID = tokenID.String
	t.OrderID = orderID.String
	t.Status = domain.TradeStatus(status)
	t.ResolutionOutcome = resolutionOutcome.String
	t.ErrorMessage = errorMessage.String
	t.ResolvedAt = parseTime(resolvedAt.String)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

func scanTradeWithResolution(rows *sql.Rows) (domain.BotTrade, string, error) {
	var t domain.BotTrade
	var status string
	var tokenID, orderID, tradeOutcome, errorMessage, resolvedAt sql.NullString
	var createdAt, updatedAt string
	var resolution string

	if err := rows.Scan(
		&t.ID, &t.LocalID, &t.SignalID, &t.ConditionID, &t.MarketTitle,
		&t.Direction, &tokenID, &orderID, &status, &t.EntryPrice, &t.CostUSD,
		&t.Shares, &t.PnLUSD, &t.PnLPct, &tradeOutcome, &errorMessage,
		&resolvedAt, &createdAt, &updatedAt, &resolution,
	); err != nil {
		return domain.BotTrade{}, "", fmt.Errorf("scan trade+resolution: %w", err)
	}

	t.TokenID = tokenID.String
	t.OrderID = orderID.String
	t.Status = domain.TradeStatus(status)
	t.ResolutionOutcome = tradeOutcome.String
	t.ErrorMessage = errorMessage.String
	t.ResolvedAt = parseTime(resolvedAt.String)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, resolution, nil
}

// dayBounds devuelve [00:00, 24:00) UTC del día dado.
func dayBounds(day time.Time) (time.Time, time.Time) {
	d := day.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
