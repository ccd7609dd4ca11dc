package binance

// Binance spot klines as an alternative candle source. Useful when a
// strategy should react to the underlying asset price instead of the
// contract price (the up-or-down question is about the asset after all).

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

const (
	klineLimit = 500 // Binance max per request

	// Weight budget: 1200/min on /api/v3/klines → stay well under.
	requestsPerSec = 10
)

// symbolPairs maps asset symbols to their USDT spot pair.
var symbolPairs = map[string]string{
	"BTC": "BTCUSDT",
	"ETH": "ETHUSDT",
	"SOL": "SOLUSDT",
	"XRP": "XRPUSDT",
}

// Provider implements ports.CandleProvider on Binance spot klines.
type Provider struct {
	client  *binance.Client
	limiter *rate.Limiter
}

// NewProvider wraps a Binance client. No API keys are needed for
// public kline data.
func NewProvider(client *binance.Client) *Provider {
	return &Provider{
		client:  client,
		limiter: rate.NewLimiter(requestsPerSec, 5),
	}
}

// FetchCandles returns spot candles for the asset in [from, to),
// strictly increasing. marketID is the asset symbol ("BTC").
func (p *Provider) FetchCandles(ctx context.Context, marketID string, tf domain.Timeframe, from, to time.Time) ([]domain.Candle, error) {
	pair, ok := symbolPairs[marketID]
	if !ok {
		return nil, fmt.Errorf("binance.FetchCandles: unsupported asset %q", marketID)
	}
	if !tf.Valid() {
		return nil, fmt.Errorf("binance.FetchCandles: invalid timeframe %q", tf)
	}

	chunk := tf.Duration() * klineLimit
	var candles []domain.Candle

	for start := from; start.Before(to); start = start.Add(chunk) {
		end := start.Add(chunk)
		if end.After(to) {
			end = to
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("binance.FetchCandles: rate limiter: %w", err)
		}

		klines, err := p.client.NewKlinesService().
			Symbol(pair).
			Interval(string(tf)).
			StartTime(start.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(klineLimit).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("binance.FetchCandles: %s %s: %w", pair, tf, err)
		}

		for _, k := range klines {
			candles = append(candles, domain.Candle{
				Timestamp: time.UnixMilli(k.OpenTime).UTC(),
				Open:      parseFloat(k.Open),
				High:      parseFloat(k.High),
				Low:       parseFloat(k.Low),
				Close:     parseFloat(k.Close),
				Volume:    parseFloat(k.Volume),
			})
		}
	}

	slog.Debug("spot candles fetched",
		"pair", pair,
		"timeframe", tf,
		"candles", len(candles),
	)
	return candles, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
