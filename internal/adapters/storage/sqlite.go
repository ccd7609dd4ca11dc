package storage

// sqlite.go — strategy library and run archive.
//
// Layout:
//   - `strategies`: one row per authored strategy. The full definition is
//     stored as a YAML blob so the schema never chases the strategy
//     format; name/asset/updated_at are lifted into columns for listing.
//   - `runs`: one immutable row per finished backtest. Summary numbers
//     are real columns (queryable); the trade log and the failure list
//     are JSON blobs, only ever read back whole.
//   - Prune on startup: runs older than 90 days are dropped. Strategies
//     are kept until explicitly deleted.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a strategy id has no row.
var ErrNotFound = errors.New("storage: not found")

const schema = `
CREATE TABLE IF NOT EXISTS strategies (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    asset      TEXT NOT NULL,
    definition TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    run_id               TEXT PRIMARY KEY,
    strategy_id          TEXT NOT NULL,
    strategy_name        TEXT NOT NULL,
    start_time           DATETIME,
    end_time             DATETIME,
    initial_balance      REAL NOT NULL,
    final_balance        REAL NOT NULL,
    total_pnl            REAL NOT NULL,
    total_pnl_percent    REAL NOT NULL,
    total_trades         INTEGER NOT NULL,
    winning_trades       INTEGER NOT NULL,
    losing_trades        INTEGER NOT NULL,
    win_rate             REAL NOT NULL,
    avg_win              REAL NOT NULL,
    avg_loss             REAL NOT NULL,
    profit_factor        REAL NOT NULL,
    max_drawdown         REAL NOT NULL,
    max_drawdown_percent REAL NOT NULL,
    sharpe_ratio         REAL NOT NULL,
    candles_processed    INTEGER NOT NULL,
    conditions_triggered INTEGER NOT NULL,
    markets_tested       INTEGER NOT NULL,
    markets_failed       INTEGER NOT NULL,
    trades               TEXT NOT NULL,
    failures             TEXT NOT NULL,
    created_at           DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_strategies_updated ON strategies(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs(strategy_id, created_at DESC);
`

const retentionRuns = 90 * 24 * time.Hour

// SQLiteStorage implements ports.Storage on SQLite (pure Go, no CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the database at the given path.
// Applies the schema and prunes old runs.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveStrategy inserts or replaces a strategy definition.
func (s *SQLiteStorage) SaveStrategy(ctx context.Context, strat domain.Strategy) error {
	def, err := yaml.Marshal(strat)
	if err != nil {
		return fmt.Errorf("storage.SaveStrategy: marshal %s: %w", strat.ID, err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO strategies (id, name, asset, definition, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name       = excluded.name,
			asset      = excluded.asset,
			definition = excluded.definition,
			updated_at = excluded.updated_at
	`, strat.ID, strat.Name, strat.Asset, string(def), now, now)
	if err != nil {
		return fmt.Errorf("storage.SaveStrategy: upsert %s: %w", strat.ID, err)
	}
	return nil
}

// GetStrategy returns the strategy with the given id, or ErrNotFound.
func (s *SQLiteStorage) GetStrategy(ctx context.Context, id string) (domain.Strategy, error) {
	var def string
	err := s.db.QueryRowContext(ctx,
		`SELECT definition FROM strategies WHERE id = ?`, id,
	).Scan(&def)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Strategy{}, fmt.Errorf("storage.GetStrategy: %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Strategy{}, fmt.Errorf("storage.GetStrategy: %q: %w", id, err)
	}

	var strat domain.Strategy
	if err := yaml.Unmarshal([]byte(def), &strat); err != nil {
		return domain.Strategy{}, fmt.Errorf("storage.GetStrategy: unmarshal %q: %w", id, err)
	}
	return strat, nil
}

// ListStrategies returns all stored strategies, most recently updated first.
func (s *SQLiteStorage) ListStrategies(ctx context.Context) ([]domain.Strategy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT definition FROM strategies ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.ListStrategies: query: %w", err)
	}
	defer rows.Close()

	var strats []domain.Strategy
	for rows.Next() {
		var def string
		if err := rows.Scan(&def); err != nil {
			return nil, fmt.Errorf("storage.ListStrategies: scan row: %w", err)
		}
		var strat domain.Strategy
		if err := yaml.Unmarshal([]byte(def), &strat); err != nil {
			return nil, fmt.Errorf("storage.ListStrategies: unmarshal: %w", err)
		}
		strats = append(strats, strat)
	}
	return strats, rows.Err()
}

// DeleteStrategy removes a strategy. Past runs are kept.
func (s *SQLiteStorage) DeleteStrategy(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM strategies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage.DeleteStrategy: %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.DeleteStrategy: %q: %w", id, ErrNotFound)
	}
	return nil
}

// SaveRun persists one immutable backtest result.
func (s *SQLiteStorage) SaveRun(ctx context.Context, r domain.BacktestResult) error {
	trades, err := json.Marshal(r.Trades)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: marshal trades: %w", err)
	}
	failures, err := json.Marshal(r.Failures)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: marshal failures: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
			(run_id, strategy_id, strategy_name, start_time, end_time,
			 initial_balance, final_balance, total_pnl, total_pnl_percent,
			 total_trades, winning_trades, losing_trades, win_rate,
			 avg_win, avg_loss, profit_factor,
			 max_drawdown, max_drawdown_percent, sharpe_ratio,
			 candles_processed, conditions_triggered, markets_tested, markets_failed,
			 trades, failures, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID, r.StrategyID, r.StrategyName,
		r.StartTime.UTC().Format(time.RFC3339), r.EndTime.UTC().Format(time.RFC3339),
		r.InitialBalance, r.FinalBalance, r.TotalPnl, r.TotalPnlPercent,
		r.TotalTrades, r.WinningTrades, r.LosingTrades, r.WinRate,
		r.AvgWin, r.AvgLoss, r.ProfitFactor,
		r.MaxDrawdown, r.MaxDrawdownPercent, r.SharpeRatio,
		r.CandlesProcessed, r.ConditionsTriggered, r.MarketsTested, r.MarketsFailed,
		string(trades), string(failures), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: insert %s: %w", r.RunID, err)
	}
	return nil
}

// ListRuns returns past runs for a strategy, most recent first.
// limit <= 0 returns all runs.
func (s *SQLiteStorage) ListRuns(ctx context.Context, strategyID string, limit int) ([]domain.BacktestResult, error) {
	q := `
		SELECT run_id, strategy_id, strategy_name, start_time, end_time,
		       initial_balance, final_balance, total_pnl, total_pnl_percent,
		       total_trades, winning_trades, losing_trades, win_rate,
		       avg_win, avg_loss, profit_factor,
		       max_drawdown, max_drawdown_percent, sharpe_ratio,
		       candles_processed, conditions_triggered, markets_tested, markets_failed,
		       trades, failures
		FROM runs
		WHERE strategy_id = ?
		ORDER BY created_at DESC`
	args := []any{strategyID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var results []domain.BacktestResult
	for rows.Next() {
		var r domain.BacktestResult
		var trades, failures, startStr, endStr string
		if err := rows.Scan(
			&r.RunID, &r.StrategyID, &r.StrategyName, &startStr, &endStr,
			&r.InitialBalance, &r.FinalBalance, &r.TotalPnl, &r.TotalPnlPercent,
			&r.TotalTrades, &r.WinningTrades, &r.LosingTrades, &r.WinRate,
			&r.AvgWin, &r.AvgLoss, &r.ProfitFactor,
			&r.MaxDrawdown, &r.MaxDrawdownPercent, &r.SharpeRatio,
			&r.CandlesProcessed, &r.ConditionsTriggered, &r.MarketsTested, &r.MarketsFailed,
			&trades, &failures,
		); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: scan row: %w", err)
		}
		r.StartTime, _ = time.Parse(time.RFC3339, startStr)
		r.EndTime, _ = time.Parse(time.RFC3339, endStr)
		if err := json.Unmarshal([]byte(trades), &r.Trades); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: unmarshal trades %s: %w", r.RunID, err)
		}
		if err := json.Unmarshal([]byte(failures), &r.Failures); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: unmarshal failures %s: %w", r.RunID, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Close closes the database handle.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld keeps the archive light.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
}
