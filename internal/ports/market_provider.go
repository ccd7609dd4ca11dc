package ports

import (
	"context"
	"time"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

// MarketProvider discovers historical resolved market instances for an
// asset. Candles are not populated here; the CandleProvider fills them.
type MarketProvider interface {
	// FetchResolvedMarkets returns market instances for the asset whose
	// windows intersect [from, to], oldest first. A zero `to` means now.
	// If limit > 0 at most the `limit` most recent instances are returned.
	FetchResolvedMarkets(ctx context.Context, asset string, from, to time.Time, limit int) ([]domain.MarketInstance, error)
}
