package storage

// sqlite.go — log de eventos append-only sobre SQLite.
//
// Estrategia:
//   - `candidates`: UNA fila por basket (UPSERT) con el mejor edge visto.
//     Candidates por debajo del umbral no se persisten — ruido sin señal.
//   - `executions`: una fila por intento de ejecución, inmutable.
//   - `halts`: una fila por transición a HALTED.
//   - Prune automático al arrancar: candidates no vistos en 14d,
//     executions > 90d.
//
// Las herramientas de reporting externas leen esta base; el bot solo escribe.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/basketbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Mejor edge visto por basket
CREATE TABLE IF NOT EXISTS candidates (
    basket_key   TEXT PRIMARY KEY,
    title        TEXT,
    strategy     TEXT    NOT NULL,
    legs         INTEGER NOT NULL,
    basket_cost  REAL    NOT NULL DEFAULT 0,
    payout       REAL    NOT NULL DEFAULT 0,
    gross_edge   REAL    NOT NULL DEFAULT 0,
    edge_pct     REAL    NOT NULL DEFAULT 0,
    peak_edge    REAL    NOT NULL DEFAULT 0,
    first_seen   DATETIME NOT NULL,
    last_seen    DATETIME NOT NULL
);

-- Una fila por intento de ejecución
CREATE TABLE IF NOT EXISTS executions (
    attempt_id     TEXT PRIMARY KEY,
    basket_key     TEXT NOT NULL,
    title          TEXT,
    backend        TEXT NOT NULL,
    outcome        TEXT NOT NULL,
    shares         REAL NOT NULL DEFAULT 0,
    notional       REAL NOT NULL DEFAULT 0,
    min_fill_ratio REAL NOT NULL DEFAULT 0,
    unwound        INTEGER NOT NULL DEFAULT 0,
    cancelled      INTEGER NOT NULL DEFAULT 0,
    error          TEXT,
    started_at     DATETIME NOT NULL,
    finished_at    DATETIME NOT NULL
);

-- Una fila por transición a HALTED
CREATE TABLE IF NOT EXISTS halts (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    reason    TEXT NOT NULL,
    halted_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cand_last  ON candidates(last_seen DESC);
CREATE INDEX IF NOT EXISTS idx_cand_edge  ON candidates(gross_edge DESC);
CREATE INDEX IF NOT EXISTS idx_exec_key   ON executions(basket_key);
CREATE INDEX IF NOT EXISTS idx_exec_start ON executions(started_at DESC);
`

const (
	retentionCandidates = 14 * 24 * time.Hour
	retentionExecutions = 90 * 24 * time.Hour
)

// SQLiteEventLog implementa ports.EventSink usando SQLite (pure Go, sin CGo).
type SQLiteEventLog struct {
	db *sql.DB
}

// NewSQLiteEventLog abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteEventLog(dsn string) (*SQLiteEventLog, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteEventLog: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteEventLog: apply schema: %w", err)
	}

	now := time.Now()
	if _, err := db.Exec(`DELETE FROM candidates WHERE last_seen < ?`, now.Add(-retentionCandidates)); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteEventLog: prune candidates: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM executions WHERE started_at < ?`, now.Add(-retentionExecutions)); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteEventLog: prune executions: %w", err)
	}

	return &SQLiteEventLog{db: db}, nil
}

// RecordCandidates upserta los candidates de un tick.
func (s *SQLiteEventLog) RecordCandidates(ctx context.Context, candidates []domain.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.RecordCandidates: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candidates
			(basket_key, title, strategy, legs, basket_cost, payout,
			 gross_edge, edge_pct, peak_edge, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(basket_key) DO UPDATE SET
			basket_cost = excluded.basket_cost,
			payout      = excluded.payout,
			gross_edge  = excluded.gross_edge,
			edge_pct    = excluded.edge_pct,
			peak_edge   = MAX(peak_edge, excluded.gross_edge),
			last_seen   = excluded.last_seen`)
	if err != nil {
		return fmt.Errorf("storage.RecordCandidates: prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range candidates {
		if _, err := stmt.ExecContext(ctx,
			c.Basket.Key, c.Basket.Title, string(c.Basket.Strategy), len(c.Basket.Legs),
			c.BasketCost, c.Payout, c.GrossEdge, c.EdgePct, c.GrossEdge,
			c.PricedAt, c.PricedAt,
		); err != nil {
			return fmt.Errorf("storage.RecordCandidates: insert %q: %w", c.Basket.Key, err)
		}
	}
	return tx.Commit()
}

// RecordExecution persiste un intento de ejecución.
func (s *SQLiteEventLog) RecordExecution(ctx context.Context, r domain.ExecutionReport) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions
			(attempt_id, basket_key, title, backend, outcome, shares, notional,
			 min_fill_ratio, unwound, cancelled, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.AttemptID, r.BasketKey, r.BasketTitle, r.Backend, string(r.Outcome),
		r.Shares, r.Notional, r.MinFillRatio, r.Unwound, r.Cancelled,
		r.Error, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("storage.RecordExecution: %w", err)
	}
	return nil
}

// RecordHalt persiste una transición a HALTED.
func (s *SQLiteEventLog) RecordHalt(ctx context.Context, reason string, at time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO halts (reason, halted_at) VALUES (?, ?)`, reason, at); err != nil {
		return fmt.Errorf("storage.RecordHalt: %w", err)
	}
	return nil
}

// Close cierra la conexión limpiamente.
func (s *SQLiteEventLog) Close() error {
	return s.db.Close()
}
