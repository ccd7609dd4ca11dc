package ports

import (
	"context"
	"time"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

// CandleProvider returns ordered OHLCV candles, strictly increasing
// timestamp, for one market instance (or underlying asset symbol).
type CandleProvider interface {
	FetchCandles(ctx context.Context, marketID string, tf domain.Timeframe, from, to time.Time) ([]domain.Candle, error)
}
