package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"time"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

const (
	gammaMarketsPath = "/markets"
	gammaPageSize    = 100
	gammaMaxPages    = 50
)

// assetSlugs maps asset symbols to the slug prefix of their recurring
// up-or-down markets ("bitcoin-up-or-down-june-2-12pm-et", ...).
var assetSlugs = map[string]string{
	"BTC": "bitcoin-up-or-down",
	"ETH": "ethereum-up-or-down",
	"SOL": "solana-up-or-down",
	"XRP": "xrp-up-or-down",
}

// FetchResolvedMarkets returns closed up-or-down market instances for
// the asset whose windows intersect [from, to], oldest first. A zero
// `to` means now. If limit > 0 only the `limit` most recent instances
// are kept.
func (c *Client) FetchResolvedMarkets(ctx context.Context, asset string, from, to time.Time, limit int) ([]domain.MarketInstance, error) {
	prefix, ok := assetSlugs[asset]
	if !ok {
		return nil, fmt.Errorf("polymarket.FetchResolvedMarkets: unsupported asset %q", asset)
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	var instances []domain.MarketInstance
	for page := 0; page < gammaMaxPages; page++ {
		q := url.Values{}
		q.Set("closed", "true")
		q.Set("order", "endDate")
		q.Set("ascending", "false")
		q.Set("limit", fmt.Sprintf("%d", gammaPageSize))
		q.Set("offset", fmt.Sprintf("%d", page*gammaPageSize))
		if !from.IsZero() {
			q.Set("end_date_min", from.UTC().Format(time.RFC3339))
		}
		q.Set("end_date_max", to.UTC().Format(time.RFC3339))

		var resp gammaMarketsResponse
		if err := c.get(ctx, c.gammaLimiter, c.gammaBase+gammaMarketsPath+"?"+q.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("polymarket.FetchResolvedMarkets: page %d: %w", page, err)
		}
		if len(resp) == 0 {
			break
		}

		for _, gm := range resp {
			m, ok := mapGammaInstance(gm, prefix)
			if !ok {
				continue
			}
			instances = append(instances, m)
		}

		if limit > 0 && len(instances) >= limit {
			break
		}
	}

	// pages arrive newest first
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].StartTime.Before(instances[j].StartTime)
	})
	if limit > 0 && len(instances) > limit {
		instances = instances[len(instances)-limit:]
	}

	slog.Debug("resolved markets fetched",
		"asset", asset,
		"instances", len(instances),
	)
	return instances, nil
}
