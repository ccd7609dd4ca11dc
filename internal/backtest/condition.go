package backtest

// condition.go — per-candle condition evaluation.
//
// Crossing detection needs memory of the prior sample, so the evaluator
// owns a two-slot ring per condition (previous and current sample of
// both sides). The surrounding loop never threads history around.

import (
	"math"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

// equalTolerance is the band used by the "equal to" operator. Contract
// prices live in [0,1]; bit-exact float equality would never fire.
const equalTolerance = 1e-6

// condHistory is the two-slot ring of one condition: the sample pair
// seen on the previous candle.
type condHistory struct {
	a, b   *float64
	primed bool
}

// Evaluator applies every compiled condition to one candle at a time,
// in series order, maintaining the one-step history crossings need.
type Evaluator struct {
	cs   *CompiledStrategy
	data *MarketData
	hist []condHistory
}

// NewEvaluator binds a compiled strategy to a run's market data.
func NewEvaluator(cs *CompiledStrategy, data *MarketData) *Evaluator {
	return &Evaluator{
		cs:   cs,
		data: data,
		hist: make([]condHistory, len(cs.Conditions)),
	}
}

// Eval evaluates all conditions at candle index i and advances the
// history. gap reports that at least one required source value was
// missing (indicator warmup); the caller skips trigger evaluation for
// that candle but the history still advances with the cursor.
//
// Eval must be called for every candle in order, exactly once.
func (e *Evaluator) Eval(i int) (results []bool, gap bool) {
	results = make([]bool, len(e.cs.Conditions))
	for ci := range e.cs.Conditions {
		c := &e.cs.Conditions[ci]

		si := i
		if c.UsesPrevious {
			si = i - 1
		}
		currA := e.data.value(c.A, si)
		var currB *float64
		if c.HasB {
			currB = e.data.value(c.B, si)
		} else if si >= 0 {
			v := c.Value
			currB = &v
		}

		h := &e.hist[ci]
		prevA, prevB, primed := h.a, h.b, h.primed
		h.a, h.b, h.primed = currA, currB, true

		if currA == nil || currB == nil {
			gap = true
			continue // condition false for this candle, never an error
		}

		switch c.Op {
		case domain.OpGreater:
			results[ci] = *currA > *currB
		case domain.OpLess:
			results[ci] = *currA < *currB
		case domain.OpEqual:
			results[ci] = math.Abs(*currA-*currB) <= equalTolerance
		case domain.OpCrossesAbove:
			// false on the first candle of a series: no prior sample
			results[ci] = primed && prevA != nil && prevB != nil &&
				*prevA <= *prevB && *currA > *currB
		case domain.OpCrossesBelow:
			results[ci] = primed && prevA != nil && prevB != nil &&
				*prevA >= *prevB && *currA < *currB
		}
	}
	return results, gap
}
