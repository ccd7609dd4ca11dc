package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

const pricesHistoryPath = "/prices-history"

// FetchCandles returns OHLC candles for one CLOB token, built from the
// sampled price history. tokenID is the token whose trades back the
// market window (the UP token for up-or-down markets).
func (c *Client) FetchCandles(ctx context.Context, tokenID string, tf domain.Timeframe, from, to time.Time) ([]domain.Candle, error) {
	if tokenID == "" {
		return nil, fmt.Errorf("polymarket.FetchCandles: empty token id")
	}
	if !tf.Valid() {
		return nil, fmt.Errorf("polymarket.FetchCandles: invalid timeframe %q", tf)
	}

	q := url.Values{}
	q.Set("market", tokenID)
	q.Set("startTs", fmt.Sprintf("%d", from.UTC().Unix()))
	q.Set("endTs", fmt.Sprintf("%d", to.UTC().Unix()))
	q.Set("fidelity", fmt.Sprintf("%d", int(tf.Duration()/time.Minute)))

	var resp priceHistoryResponse
	if err := c.get(ctx, c.clobLimiter, c.clobBase+pricesHistoryPath+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("polymarket.FetchCandles: token %s: %w", tokenID, err)
	}

	candles := bucketCandles(resp.History, tf)
	slog.Debug("candles fetched",
		"token", tokenID,
		"points", len(resp.History),
		"candles", len(candles),
	)
	return candles, nil
}
