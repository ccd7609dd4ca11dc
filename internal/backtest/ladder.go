package backtest

// ladder.go — limit-order ladder fill simulation against a candle path.
//
// Touch semantics are inclusive at both ends: a rung at price P fills
// the first time a candle's [low, high] range contains P, including
// low == P and high == P exactly.

import (
	"sort"
	"time"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

// Rung is one ladder level in decimal price.
type Rung struct {
	Price  float64
	Shares int
}

// Fill is one simulated rung execution.
type Fill struct {
	Price     float64
	Shares    int
	Time      time.Time
	CandleIdx int // index into the candle slice passed to SimulateFills
}

// SimulateFills tests every rung independently against candles[from:].
// placedAt is the simulated placement time (the arming candle's
// timestamp); behavior decides the fate of rungs that do not fill:
//
//   - keep_open: the rung stays working until the event window ends.
//   - cancel_after_seconds: the rung is cancelled once simulated time
//     passes placedAt + cancelAfter.
//   - cancel_next_close: the rung only lives through the next candle and
//     is cancelled at its close.
//   - market_order: a rung that does not fill on the next candle is
//     replaced by a market order at that candle's close.
//
// Fills are returned ordered by time.
func SimulateFills(
	rungs []Rung,
	candles []domain.Candle,
	from int,
	placedAt time.Time,
	behavior domain.UnfilledOrderBehavior,
	cancelAfter time.Duration,
) (fills []Fill, unfilled []Rung) {
	for _, rung := range rungs {
		fill, ok := simulateRung(rung, candles, from, placedAt, behavior, cancelAfter)
		if !ok {
			unfilled = append(unfilled, rung)
			continue
		}
		fills = append(fills, fill)
	}
	sort.SliceStable(fills, func(i, j int) bool {
		return fills[i].Time.Before(fills[j].Time)
	})
	return fills, unfilled
}

func simulateRung(
	rung Rung,
	candles []domain.Candle,
	from int,
	placedAt time.Time,
	behavior domain.UnfilledOrderBehavior,
	cancelAfter time.Duration,
) (Fill, bool) {
	for i := from; i < len(candles); i++ {
		c := candles[i]

		if behavior == domain.UnfilledCancelAfter && cancelAfter > 0 &&
			c.Timestamp.Sub(placedAt) > cancelAfter {
			return Fill{}, false
		}

		if c.Low <= rung.Price && rung.Price <= c.High {
			return Fill{Price: rung.Price, Shares: rung.Shares, Time: c.Timestamp, CandleIdx: i}, true
		}

		switch behavior {
		case domain.UnfilledCancelNextClose:
			// rung lived through exactly one candle
			return Fill{}, false
		case domain.UnfilledMarketOrder:
			// replaced at the then-current price
			return Fill{Price: c.Close, Shares: rung.Shares, Time: c.Timestamp, CandleIdx: i}, true
		}
	}
	return Fill{}, false
}

// WeightedEntry is the position entry price for a set of fills:
// Σ(price·shares) / Σ(shares).
func WeightedEntry(fills []Fill) (price float64, shares int) {
	var notional float64
	for _, f := range fills {
		notional += f.Price * float64(f.Shares)
		shares += f.Shares
	}
	if shares == 0 {
		return 0, 0
	}
	return notional / float64(shares), shares
}
