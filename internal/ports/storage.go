package ports

import (
	"context"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

// Storage persists authored strategies and finished backtest runs.
type Storage interface {
	// SaveStrategy inserts or replaces a strategy definition.
	SaveStrategy(ctx context.Context, s domain.Strategy) error

	// GetStrategy returns the strategy with the given id.
	GetStrategy(ctx context.Context, id string) (domain.Strategy, error)

	// ListStrategies returns all stored strategies, most recent first.
	ListStrategies(ctx context.Context) ([]domain.Strategy, error)

	// DeleteStrategy removes a strategy and keeps its past runs.
	DeleteStrategy(ctx context.Context, id string) error

	// SaveRun persists one immutable backtest result.
	SaveRun(ctx context.Context, result domain.BacktestResult) error

	// ListRuns returns past runs for a strategy, most recent first.
	// If limit <= 0 all runs are returned.
	ListRuns(ctx context.Context, strategyID string, limit int) ([]domain.BacktestResult, error)

	// Close releases the underlying database handle.
	Close() error
}
