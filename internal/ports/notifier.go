package ports

import (
	"context"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

// Notifier presents a finished backtest result to the user.
type Notifier interface {
	// Notify renders the summary, the trade log and any failures.
	Notify(ctx context.Context, result domain.BacktestResult) error
}
