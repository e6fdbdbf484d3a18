package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/pkg/logger"
)

const dateLayout = "2006-01-02"

// SQLiteRecorder persists ranking runs to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *logger.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Module("recorder").WithField("path", dbPath).Info("SQLite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ranking_runs (
			id           TEXT PRIMARY KEY,
			strategy_id  TEXT NOT NULL,
			config_hash  TEXT,
			provider     TEXT,
			start_date   TEXT NOT NULL,
			end_date     TEXT NOT NULL,
			num_stocks   INTEGER NOT NULL,
			requested    TEXT NOT NULL,
			completed_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_completed ON ranking_runs(completed_at)`,

		`CREATE TABLE IF NOT EXISTS ranking_metrics (
			run_id                TEXT NOT NULL REFERENCES ranking_runs(id) ON DELETE CASCADE,
			position              INTEGER NOT NULL,
			symbol                TEXT NOT NULL,
			name                  TEXT,
			annualized_return     REAL,
			annualized_volatility REAL,
			sharpe_ratio          REAL,
			observations          INTEGER,
			rank                  INTEGER,
			PRIMARY KEY (run_id, position)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run header and its metrics table in one transaction.
// Selected rows carry their rank; the others have a NULL rank.
func (r *SQLiteRecorder) RecordRun(ctx context.Context, run *contracts.RankingRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	requested, err := json.Marshal(run.Requested)
	if err != nil {
		return fmt.Errorf("marshal requested symbols: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO ranking_runs
		(id, strategy_id, config_hash, provider, start_date, end_date, num_stocks, requested, completed_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		run.ID.String(), run.StrategyID, run.ConfigHash, run.Provider,
		run.StartDate.Format(dateLayout), run.EndDate.Format(dateLayout),
		run.NumStocks, string(requested), run.CompletedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	selected := make(map[contracts.Symbol]contracts.RankedStock, len(run.Selected))
	for _, s := range run.Selected {
		selected[s.Symbol] = s
	}

	for i, m := range run.Metrics {
		var rank sql.NullInt64
		var name sql.NullString
		if s, ok := selected[m.Symbol]; ok {
			rank = sql.NullInt64{Int64: int64(s.Rank), Valid: true}
			name = sql.NullString{String: s.Name, Valid: s.Name != ""}
		}

		_, err := tx.ExecContext(ctx, `INSERT INTO ranking_metrics
			(run_id, position, symbol, name, annualized_return, annualized_volatility, sharpe_ratio, observations, rank)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			run.ID.String(), i, string(m.Symbol), name,
			m.AnnualizedReturn, m.AnnualizedVolatility, m.SharpeRatio, m.Observations, rank,
		)
		if err != nil {
			return fmt.Errorf("insert metrics for %s: %w", m.Symbol, err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first
func (r *SQLiteRecorder) RecentRuns(ctx context.Context, limit int) ([]*contracts.RankingRun, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `SELECT
		id, strategy_id, config_hash, provider, start_date, end_date, num_stocks, requested, completed_at
		FROM ranking_runs ORDER BY completed_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*contracts.RankingRun
	for rows.Next() {
		var (
			run                  contracts.RankingRun
			id, start, end, reqs string
			hash, provider       sql.NullString
			completed            int64
		)
		if err := rows.Scan(&id, &run.StrategyID, &hash, &provider, &start, &end, &run.NumStocks, &reqs, &completed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse run id: %w", err)
		}
		run.ConfigHash = hash.String
		run.Provider = provider.String
		run.StartDate, _ = time.Parse(dateLayout, start)
		run.EndDate, _ = time.Parse(dateLayout, end)
		run.CompletedAt = time.UnixMilli(completed).UTC()
		if err := json.Unmarshal([]byte(reqs), &run.Requested); err != nil {
			return nil, fmt.Errorf("unmarshal requested symbols: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, run := range runs {
		if err := r.loadMetrics(ctx, run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// loadMetrics fills Metrics (input order) and Selected (rank order)
func (r *SQLiteRecorder) loadMetrics(ctx context.Context, run *contracts.RankingRun) error {
	rows, err := r.db.QueryContext(ctx, `SELECT
		symbol, name, annualized_return, annualized_volatility, sharpe_ratio, observations, rank
		FROM ranking_metrics WHERE run_id = ? ORDER BY position`, run.ID.String())
	if err != nil {
		return fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	var ranked contracts.RankedStockList
	for rows.Next() {
		var (
			m      contracts.PerformanceMetrics
			symbol string
			name   sql.NullString
			rank   sql.NullInt64
		)
		if err := rows.Scan(&symbol, &name, &m.AnnualizedReturn, &m.AnnualizedVolatility, &m.SharpeRatio, &m.Observations, &rank); err != nil {
			return fmt.Errorf("scan metrics: %w", err)
		}
		m.Symbol = contracts.Symbol(symbol)
		run.Metrics = append(run.Metrics, m)

		if rank.Valid {
			ranked = append(ranked, contracts.RankedStock{
				Symbol:  m.Symbol,
				Name:    name.String,
				Rank:    int(rank.Int64),
				Metrics: m,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Rank < ranked[j].Rank })
	run.Selected = ranked
	return nil
}

// Close closes the database
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
