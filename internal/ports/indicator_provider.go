package ports

import (
	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

// IndicatorProvider computes one value per candle for a declared
// indicator. Samples are nil during the warmup period. Multi-output
// indicators return one line per named sub-value (MACD → macd/signal/
// histogram, Bollinger → upper/middle/lower, Stochastic → k/d).
type IndicatorProvider interface {
	Compute(ind domain.Indicator, candles []domain.Candle) (domain.IndicatorSeries, error)
}
