package ledger

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteLedger persists run history to a SQLite database.
type SQLiteLedger struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteLedger opens (or creates) the SQLite database and runs migrations.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	l := &SQLiteLedger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite ledger opened")
	return l, nil
}

func (l *SQLiteLedger) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			strategy    TEXT NOT NULL,
			dataset     TEXT,
			mode        TEXT,
			bars        INTEGER,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER,
			status      TEXT,
			note        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_run_id ON runs(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs(strategy, started_at)`,

		`CREATE TABLE IF NOT EXISTS session_results (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL,
			strategy        TEXT NOT NULL,
			session         TEXT NOT NULL,
			skipped         INTEGER NOT NULL DEFAULT 0,
			skip_reason     TEXT,
			train_bars      INTEGER,
			validate_bars   INTEGER,
			trials          INTEGER,
			best_score      REAL,
			best_params     TEXT,
			validate_sharpe REAL,
			validate_trades INTEGER,
			convergence_cv  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_run_id ON session_results(run_id)`,

		`CREATE TABLE IF NOT EXISTS gate_results (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL,
			strategy       TEXT NOT NULL,
			session        TEXT,
			passed         INTEGER NOT NULL,
			reason         TEXT,
			win_rate_delta REAL,
			sharpe_delta   REAL,
			p_value        REAL,
			manifest_path  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gates_run_id ON gate_results(run_id)`,
	}

	for _, s := range stmts {
		if _, err := l.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (l *SQLiteLedger) RecordRun(rec *RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(`INSERT INTO runs
		(run_id, strategy, dataset, mode, bars, started_at, finished_at, status, note)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.Strategy, rec.Dataset, rec.Mode, rec.Bars,
		rec.StartedAt, rec.FinishedAt, rec.Status, rec.Note,
	)
	return err
}

func (l *SQLiteLedger) RecordSession(rec *SessionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(`INSERT INTO session_results
		(run_id, strategy, session, skipped, skip_reason, train_bars, validate_bars,
		 trials, best_score, best_params, validate_sharpe, validate_trades, convergence_cv)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.Strategy, rec.Session, rec.Skipped, rec.SkipReason,
		rec.TrainBars, rec.ValidateBars, rec.Trials, rec.BestScore, rec.BestParams,
		rec.ValidateSharpe, rec.ValidateTrades, rec.ConvergenceCV,
	)
	return err
}

func (l *SQLiteLedger) RecordGate(rec *GateRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(`INSERT INTO gate_results
		(run_id, strategy, session, passed, reason, win_rate_delta, sharpe_delta, p_value, manifest_path)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.Strategy, rec.Session, rec.Passed, rec.Reason,
		rec.WinRateDelta, rec.SharpeDelta, rec.PValue, rec.ManifestPath,
	)
	return err
}

// Runs returns the most recent run records for a strategy, newest first.
func (l *SQLiteLedger) Runs(strategyName string, limit int) ([]RunRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.Query(`SELECT run_id, strategy, dataset, mode, bars,
		started_at, finished_at, status, note
		FROM runs WHERE strategy = ? ORDER BY started_at DESC LIMIT ?`,
		strategyName, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.RunID, &rec.Strategy, &rec.Dataset, &rec.Mode,
			&rec.Bars, &rec.StartedAt, &rec.FinishedAt, &rec.Status, &rec.Note); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *SQLiteLedger) Close() error {
	log.Debug().Msg("closing sqlite ledger")
	return l.db.Close()
}
