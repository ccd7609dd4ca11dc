package polymarket

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

// Settlement thresholds: closed markets report the winning outcome at
// (or very near) 1.0 and the loser at 0.0. Anything in between is an
// unresolved or disputed market.
const (
	settledHigh = 0.99
	settledLow  = 0.01
)

// mapGammaInstance converts one Gamma market row into a MarketInstance.
// Returns false when the row is not an up-or-down market for the wanted
// slug prefix, or is missing the fields the simulation needs.
func mapGammaInstance(gm gammaMarket, slugPrefix string) (domain.MarketInstance, bool) {
	if !strings.HasPrefix(gm.Slug, slugPrefix) {
		return domain.MarketInstance{}, false
	}

	outcomes := parseStringArray(gm.Outcomes)
	prices := parseStringArray(gm.OutcomePrices)
	tokens := parseStringArray(gm.ClobTokenIDs)
	if len(outcomes) != 2 || len(prices) != 2 || len(tokens) != 2 {
		return domain.MarketInstance{}, false
	}

	upIdx := -1
	for i, o := range outcomes {
		switch strings.ToLower(o) {
		case "up", "yes":
			upIdx = i
		}
	}
	if upIdx < 0 {
		return domain.MarketInstance{}, false
	}

	start, okStart := parseFlexTime(gm.StartDateISO)
	end, okEnd := parseFlexTime(gm.EndDateISO)
	if !okStart || !okEnd || !end.After(start) {
		return domain.MarketInstance{}, false
	}

	return domain.MarketInstance{
		ID:         gm.ConditionID,
		Question:   gm.Question,
		StartTime:  start,
		EndTime:    end,
		TokenID:    tokens[upIdx],
		Resolution: resolutionFromPrice(prices[upIdx]),
	}, true
}

// resolutionFromPrice maps the settled price of the UP token to an
// outcome.
func resolutionFromPrice(raw string) domain.Resolution {
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return domain.ResolutionUnknown
	}
	switch {
	case p >= settledHigh:
		return domain.ResolutionUp
	case p <= settledLow:
		return domain.ResolutionDown
	}
	return domain.ResolutionUnknown
}

// parseStringArray decodes Gamma's JSON-encoded string arrays
// (`"[\"Up\", \"Down\"]"`).
func parseStringArray(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// parseFlexTime tries the date formats Polymarket is known to emit.
func parseFlexTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// bucketCandles folds sampled price points into OHLC candles of the
// given timeframe. Points are sorted first; empty buckets produce no
// candle. Volume is unavailable in the price history and stays zero.
func bucketCandles(points []pricePoint, tf domain.Timeframe) []domain.Candle {
	if len(points) == 0 {
		return nil
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})

	step := tf.Duration()
	var candles []domain.Candle
	var cur *domain.Candle
	var curStart time.Time

	for _, p := range points {
		t := time.Unix(p.Timestamp, 0).UTC()
		bucket := t.Truncate(step)

		if cur == nil || !bucket.Equal(curStart) {
			if cur != nil {
				candles = append(candles, *cur)
			}
			curStart = bucket
			cur = &domain.Candle{
				Timestamp: bucket,
				Open:      p.Price,
				High:      p.Price,
				Low:       p.Price,
				Close:     p.Price,
			}
			continue
		}

		if p.Price > cur.High {
			cur.High = p.Price
		}
		if p.Price < cur.Low {
			cur.Low = p.Price
		}
		cur.Close = p.Price
	}
	if cur != nil {
		candles = append(candles, *cur)
	}
	return candles
}
