package storage

// sqlite.go — persistencia del radar en SQLite (pure Go, sin CGo).
//
// Estrategia:
//   - `traders`: el watchlist completo, reescrito de forma atómica en cada
//     rebuild. Las estructuras anidadas (category scores, tags, recent bets)
//     van como JSON en columnas TEXT — se leen siempre enteras, nunca se
//     filtran por dentro.
//   - `position_snapshots` + `snapshot_scans`: el último estado conocido de
//     cada wallet. `snapshot_scans` registra cada pasada aunque el wallet no
//     tenga posiciones, para distinguir "sin posiciones" de "nunca escaneado".
//   - `position_changes`: eventos del diff, la materia prima del detector.
//   - Prune al arrancar: snapshots y cambios más viejos que la retención,
//     conservando el último snapshot de cada wallet.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejandrodnm/whaleradar/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Watchlist: una fila por trader, reescrita entera en cada rebuild
CREATE TABLE IF NOT EXISTS traders (
    wallet            TEXT PRIMARY KEY,
    username          TEXT,
    pnl               REAL    NOT NULL DEFAULT 0,
    volume            REAL    NOT NULL DEFAULT 0,
    win_rate          REAL    NOT NULL DEFAULT 0,
    roi               REAL    NOT NULL DEFAULT 0,
    roi_normalized    REAL    NOT NULL DEFAULT 0,
    consistency       REAL    NOT NULL DEFAULT 0,
    timing_quality    REAL    NOT NULL DEFAULT 0,
    score             REAL    NOT NULL DEFAULT 0,
    avg_position_size REAL    NOT NULL DEFAULT 0,
    total_closed      INTEGER NOT NULL DEFAULT 0,
    category_scores   TEXT,
    trader_type       TEXT    NOT NULL DEFAULT 'UNKNOWN',
    algo_signals      TEXT,
    domain_tags       TEXT,
    recent_bets       TEXT,
    updated_at        DATETIME NOT NULL
);

-- Última foto de las posiciones de cada wallet
CREATE TABLE IF NOT EXISTS position_snapshots (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    wallet        TEXT NOT NULL,
    condition_id  TEXT NOT NULL,
    title         TEXT,
    slug          TEXT,
    event_slug    TEXT,
    outcome       TEXT NOT NULL,
    size          REAL NOT NULL DEFAULT 0,
    avg_price     REAL NOT NULL DEFAULT 0,
    current_value REAL NOT NULL DEFAULT 0,
    cur_price     REAL NOT NULL DEFAULT 0,
    scanned_at    DATETIME NOT NULL
);

-- Registro de pasadas: existe fila aunque el snapshot venga vacío
CREATE TABLE IF NOT EXISTS snapshot_scans (
    wallet     TEXT NOT NULL,
    scanned_at DATETIME NOT NULL,
    PRIMARY KEY (wallet, scanned_at)
);

-- Eventos del diff de snapshots
CREATE TABLE IF NOT EXISTS position_changes (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    wallet          TEXT NOT NULL,
    condition_id    TEXT NOT NULL,
    title           TEXT,
    slug            TEXT,
    event_slug      TEXT,
    outcome         TEXT NOT NULL,
    change_type     TEXT NOT NULL,
    old_size        REAL NOT NULL DEFAULT 0,
    new_size        REAL NOT NULL DEFAULT 0,
    price_at_change REAL NOT NULL DEFAULT 0,
    conviction      REAL NOT NULL DEFAULT 0,
    detected_at     DATETIME NOT NULL
);

-- Señales de convergencia
CREATE TABLE IF NOT EXISTS signals (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    condition_id       TEXT NOT NULL,
    market_title       TEXT,
    market_slug        TEXT,
    direction          TEXT NOT NULL,
    score              REAL NOT NULL DEFAULT 0,
    peak_score         REAL NOT NULL DEFAULT 0,
    tier               INTEGER NOT NULL DEFAULT 0,
    status             TEXT NOT NULL DEFAULT 'ACTIVE',
    contributors       TEXT,
    current_price      REAL NOT NULL DEFAULT 0,
    sent               INTEGER NOT NULL DEFAULT 0,
    resolved_at        DATETIME,
    resolution_outcome TEXT,
    resolution_sent    INTEGER NOT NULL DEFAULT 0,
    pnl_percent        REAL NOT NULL DEFAULT 0,
    created_at         DATETIME NOT NULL,
    updated_at         DATETIME NOT NULL
);

-- Trades reales del bot, a lo sumo uno por señal
CREATE TABLE IF NOT EXISTS bot_trades (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    local_id           TEXT NOT NULL UNIQUE,
    signal_id          INTEGER NOT NULL,
    condition_id       TEXT NOT NULL,
    market_title       TEXT,
    direction          TEXT NOT NULL,
    token_id           TEXT,
    order_id           TEXT,
    status             TEXT NOT NULL,
    entry_price        REAL NOT NULL DEFAULT 0,
    cost_usd           REAL NOT NULL DEFAULT 0,
    shares             REAL NOT NULL DEFAULT 0,
    pnl_usd            REAL NOT NULL DEFAULT 0,
    pnl_pct            REAL NOT NULL DEFAULT 0,
    resolution_outcome TEXT,
    error_message      TEXT,
    resolved_at        DATETIME,
    created_at         DATETIME NOT NULL,
    updated_at         DATETIME NOT NULL
);

-- Estado del gestor de riesgo: siempre una única fila
CREATE TABLE IF NOT EXISTS risk_state (
    id              INTEGER PRIMARY KEY CHECK (id = 1),
    peak_balance    REAL    NOT NULL DEFAULT 0,
    circuit_breaker INTEGER NOT NULL DEFAULT 0,
    updated_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snap_wallet_at  ON position_snapshots(wallet, scanned_at DESC);
CREATE INDEX IF NOT EXISTS idx_changes_at      ON position_changes(detected_at DESC);
CREATE INDEX IF NOT EXISTS idx_changes_market  ON position_changes(condition_id);
CREATE INDEX IF NOT EXISTS idx_signals_market  ON signals(condition_id, direction, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_signals_status  ON signals(status);
CREATE INDEX IF NOT EXISTS idx_trades_status   ON bot_trades(status);
CREATE INDEX IF NOT EXISTS idx_trades_signal   ON bot_trades(signal_id);
`

// SQLiteStorage implementa ports.Storage usando SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Llamar a ApplySchema antes de usarla.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	return &SQLiteStorage{db: db}, nil
}

// ApplySchema crea las tablas si no existen y siembra la fila única de
// risk_state.
func (s *SQLiteStorage) ApplySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("storage.ApplySchema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO risk_state (id, peak_balance, circuit_breaker, updated_at) VALUES (1, 0, 0, ?)`,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("storage.ApplySchema: seed risk_state: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// ─── Watchlist ───

// ReplaceTraders sustituye el watchlist completo en una sola transacción.
func (s *SQLiteStorage) ReplaceTraders(ctx context.Context, traders []domain.Trader) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.ReplaceTraders: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM traders`); err != nil {
		return fmt.Errorf("storage.ReplaceTraders: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO traders
			(wallet, username, pnl, volume, win_rate, roi, roi_normalized,
			 consistency, timing_quality, score, avg_position_size, total_closed,
			 category_scores, trader_type, algo_signals, domain_tags, recent_bets,
			 updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.ReplaceTraders: prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range traders {
		if _, err := stmt.ExecContext(ctx,
			t.Wallet,
			t.Username,
			t.PnL,
			t.Volume,
			t.WinRate,
			t.ROI,
			t.ROINormalized,
			t.Consistency,
			t.TimingQuality,
			t.Score,
			t.AvgPositionSize,
			t.TotalClosed,
			marshalJSON(t.CategoryScores),
			string(t.Type),
			marshalJSON(t.AlgoSignals),
			marshalJSON(t.DomainTags),
			marshalJSON(t.RecentBets),
			t.UpdatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("storage.ReplaceTraders: insert %s: %w", t.Wallet, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.ReplaceTraders: commit: %w", err)
	}
	return nil
}

const traderColumns = `wallet, username, pnl, volume, win_rate, roi, roi_normalized,
	consistency, timing_quality, score, avg_position_size, total_closed,
	category_scores, trader_type, algo_signals, domain_tags, recent_bets, updated_at`

// GetTraders devuelve el watchlist completo ordenado por score descendente.
func (s *SQLiteStorage) GetTraders(ctx context.Context) ([]domain.Trader, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+traderColumns+` FROM traders ORDER BY score DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTraders: query: %w", err)
	}
	defer rows.Close()

	var traders []domain.Trader
	for rows.Next() {
		t, err := scanTrader(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.GetTraders: %w", err)
		}
		traders = append(traders, t)
	}
	return traders, rows.Err()
}

// GetTrader busca un trader del watchlist por wallet. Devuelve nil si no está.
func (s *SQLiteStorage) GetTrader(ctx context.Context, wallet string) (*domain.Trader, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+traderColumns+` FROM traders WHERE wallet = ?`, wallet)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTrader: query: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	t, err := scanTrader(rows)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTrader: %w", err)
	}
	return &t, nil
}

func scanTrader(rows *sql.Rows) (domain.Trader, error) {
	var t domain.Trader
	var catScores, traderType, algoSignals, domainTags, recentBets sql.NullString
	var updatedAt string

	if err := rows.Scan(
		&t.Wallet,
		&t.Username,
		&t.PnL,
		&t.Volume,
		&t.WinRate,
		&t.ROI,
		&t.ROINormalized,
		&t.Consistency,
		&t.TimingQuality,
		&t.Score,
		&t.AvgPositionSize,
		&t.TotalClosed,
		&catScores,
		&traderType,
		&algoSignals,
		&domainTags,
		&recentBets,
		&updatedAt,
	); err != nil {
		return domain.Trader{}, fmt.Errorf("scan trader: %w", err)
	}

	t.Type = domain.TraderType(traderType.String)
	unmarshalJSON(catScores.String, &t.CategoryScores)
	unmarshalJSON(algoSignals.String, &t.AlgoSignals)
	unmarshalJSON(domainTags.String, &t.DomainTags)
	unmarshalJSON(recentBets.String, &t.RecentBets)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

// ─── Snapshots de posiciones ───

// SaveSnapshots guarda la foto de posiciones de un wallet. Registra la pasada
// en snapshot_scans aunque no haya posiciones.
func (s *SQLiteStorage) SaveSnapshots(ctx context.Context, wallet string, positions []domain.Position, scannedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveSnapshots: begin tx: %w", err)
	}
	defer tx.Rollback()

	at := scannedAt.UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO snapshot_scans (wallet, scanned_at) VALUES (?, ?)`,
		wallet, at,
	); err != nil {
		return fmt.Errorf("storage.SaveSnapshots: record scan: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO position_snapshots
			(wallet, condition_id, title, slug, event_slug, outcome,
			 size, avg_price, current_value, cur_price, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveSnapshots: prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range positions {
		if _, err := stmt.ExecContext(ctx,
			wallet, p.ConditionID, p.Title, p.Slug, p.EventSlug, p.Outcome,
			p.Size, p.AvgPrice, p.CurrentValue, p.CurPrice, at,
		); err != nil {
			return fmt.Errorf("storage.SaveSnapshots: insert %s: %w", p.ConditionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveSnapshots: commit: %w", err)
	}
	return nil
}

// LatestSnapshots devuelve la última foto del wallet. Devuelve nil si el
// wallet nunca se escaneó, y slice vacío (no nil) si la última pasada no
// encontró posiciones — el scanner distingue ambos casos.
func (s *SQLiteStorage) LatestSnapshots(ctx context.Context, wallet string) ([]domain.Position, error) {
	var lastScan sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(scanned_at) FROM snapshot_scans WHERE wallet = ?`, wallet,
	).Scan(&lastScan)
	if err != nil {
		return nil, fmt.Errorf("storage.LatestSnapshots: last scan: %w", err)
	}
	if !lastScan.Valid || lastScan.String == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT condition_id, title, slug, event_slug, outcome,
		       size, avg_price, current_value, cur_price, scanned_at
		FROM position_snapshots
		WHERE wallet = ? AND scanned_at = ?
	`, wallet, lastScan.String)
	if err != nil {
		return nil, fmt.Errorf("storage.LatestSnapshots: query: %w", err)
	}
	defer rows.Close()

	positions := make([]domain.Position, 0)
	for rows.Next() {
		p := domain.Position{Wallet: wallet}
		var scannedAt string
		if err := rows.Scan(
			&p.ConditionID, &p.Title, &p.Slug, &p.EventSlug, &p.Outcome,
			&p.Size, &p.AvgPrice, &p.CurrentValue, &p.CurPrice, &scannedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.LatestSnapshots: scan row: %w", err)
		}
		p.ScannedAt = parseTime(scannedAt)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// PruneSnapshots elimina snapshots y cambios más viejos que el corte,
// conservando siempre la última pasada de cada wallet. Devuelve el número de
// filas de snapshot eliminadas.
func (s *SQLiteStorage) PruneSnapshots(ctx context.Context, olderThan time.Time) (int64, error) {
	cutoff := olderThan.UTC()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM position_snapshots
		WHERE scanned_at < ?
		  AND (wallet, scanned_at) NOT IN
		      (SELECT wallet, MAX(scanned_at) FROM snapshot_scans GROUP BY wallet)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("storage.PruneSnapshots: snapshots: %w", err)
	}
	pruned, _ := res.RowsAffected()

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshot_scans
		WHERE scanned_at < ?
		  AND (wallet, scanned_at) NOT IN
		      (SELECT wallet, MAX(scanned_at) FROM snapshot_scans GROUP BY wallet)
	`, cutoff); err != nil {
		return pruned, fmt.Errorf("storage.PruneSnapshots: scans: %w", err)
	}

	// Cambios fuera de la retención ya no alimentan ninguna ventana de señal
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM position_changes WHERE detected_at < ?`, cutoff,
	); err != nil {
		return pruned, fmt.Errorf("storage.PruneSnapshots: changes: %w", err)
	}
	return pruned, nil
}

// ─── Cambios de posición ───

// InsertChanges persiste los eventos de un diff.
func (s *SQLiteStorage) InsertChanges(ctx context.Context, changes []domain.PositionChange) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.InsertChanges: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO position_changes
			(wallet, condition_id, title, slug, event_slug, outcome,
			 change_type, old_size, new_size, price_at_change, conviction, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.InsertChanges: prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range changes {
		if _, err := stmt.ExecContext(ctx,
			c.Wallet, c.ConditionID, c.Title, c.Slug, c.EventSlug, c.Outcome,
			string(c.Type), c.OldSize, c.NewSize, c.PriceAtChange, c.Conviction,
			c.DetectedAt.UTC(),
		); err != nil {
			return fmt.Errorf("storage.InsertChanges: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.InsertChanges: commit: %w", err)
	}
	return nil
}

// RecentChanges devuelve los cambios detectados desde since, más antiguos
// primero.
func (s *SQLiteStorage) RecentChanges(ctx context.Context, since time.Time) ([]domain.PositionChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT wallet, condition_id, title, slug, event_slug, outcome,
		       change_type, old_size, new_size, price_at_change, conviction, detected_at
		FROM position_changes
		WHERE detected_at >= ?
		ORDER BY detected_at ASC
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.RecentChanges: query: %w", err)
	}
	defer rows.Close()

	var changes []domain.PositionChange
	for rows.Next() {
		var c domain.PositionChange
		var changeType, detectedAt string
		if err := rows.Scan(
			&c.Wallet, &c.ConditionID, &c.Title, &c.Slug, &c.EventSlug, &c.Outcome,
			&changeType, &c.OldSize, &c.NewSize, &c.PriceAtChange, &c.Conviction,
			&detectedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.RecentChanges: scan row: %w", err)
		}
		c.Type = domain.ChangeType(changeType)
		c.DetectedAt = parseTime(detectedAt)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// ─── helpers internos ───

// marshalJSON serializa v a TEXT. Colecciones vacías se guardan como NULL.
func marshalJSON(v any) any {
	switch t := v.(type) {
	case map[string]float64:
		if len(t) == 0 {
			return nil
		}
	case []string:
		if len(t) == 0 {
			return nil
		}
	case []domain.RecentBet:
		if len(t) == 0 {
			return nil
		}
	case []domain.Contributor:
		if len(t) == 0 {
			return nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

// unmarshalJSON deserializa una columna TEXT, ignorando NULL y basura.
func unmarshalJSON(s string, out any) {
	if s == "" {
		return
	}
	_ = json.Unmarshal([]byte(s), out)
}

// parseTime parsea los formatos de fecha que SQLite nos puede devolver.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// nullTime devuelve NULL para fechas cero.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// boolToInt convierte a la representación 0/1 de SQLite.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
