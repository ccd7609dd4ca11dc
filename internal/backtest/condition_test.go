package backtest

import (
	"testing"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func compileConditions(t *testing.T, conds []domain.Condition, inds []domain.Indicator) *CompiledStrategy {
	t.Helper()
	s := domain.Strategy{
		Name:           "cond-test",
		Direction:      domain.DirectionUp,
		ConditionLogic: domain.LogicAll,
		Indicators:     inds,
		Conditions:     conds,
		OrderLadder:    []domain.OrderLadderItem{{PriceCents: 50, Shares: 10}},
		TradeOnEventsCount: 1,
	}
	cs, err := Compile(s, 0)
	require.NoError(t, err)
	return cs
}

func closesData(closes ...float64) *MarketData {
	candles := make([]domain.Candle, len(closes))
	for i, c := range closes {
		candles[i] = domain.Candle{Open: c, High: c, Low: c, Close: c}
	}
	return &MarketData{Candles: candles, Series: map[string]domain.IndicatorSeries{}}
}

func TestEval_GreaterLessEqual(t *testing.T) {
	cs := compileConditions(t, []domain.Condition{
		{ID: "gt", SourceA: "close", Operator: domain.OpGreater, Value: f(0.5)},
		{ID: "lt", SourceA: "close", Operator: domain.OpLess, Value: f(0.5)},
		{ID: "eq", SourceA: "close", Operator: domain.OpEqual, Value: f(0.5)},
	}, nil)

	ev := NewEvaluator(cs, closesData(0.6, 0.4, 0.5))

	r, gap := ev.Eval(0)
	assert.False(t, gap)
	assert.Equal(t, []bool{true, false, false}, r)

	r, _ = ev.Eval(1)
	assert.Equal(t, []bool{false, true, false}, r)

	r, _ = ev.Eval(2)
	assert.Equal(t, []bool{false, false, true}, r)
}

func TestEval_EqualUsesTolerance(t *testing.T) {
	cs := compileConditions(t, []domain.Condition{
		{ID: "eq", SourceA: "close", Operator: domain.OpEqual, Value: f(0.5)},
	}, nil)
	// 0.1+0.2+0.2 style float noise is far below the tolerance band
	ev := NewEvaluator(cs, closesData(0.5+1e-9))
	r, _ := ev.Eval(0)
	assert.True(t, r[0])
}

func TestEval_CrossesAbove(t *testing.T) {
	cs := compileConditions(t, []domain.Condition{
		{ID: "x", SourceA: "close", Operator: domain.OpCrossesAbove, Value: f(0.5)},
	}, nil)
	ev := NewEvaluator(cs, closesData(0.4, 0.5, 0.6, 0.7, 0.4, 0.6))

	expected := []bool{
		false, // first candle of a series: no prior sample
		false, // 0.4 -> 0.5: touched, not crossed
		true,  // 0.5 -> 0.6: prev <= 0.5 && curr > 0.5
		false, // already above, no crossing
		false, // dropped below
		true,  // crossed again
	}
	for i, want := range expected {
		r, _ := ev.Eval(i)
		assert.Equal(t, want, r[0], "candle %d", i)
	}
}

func TestEval_CrossesBelow(t *testing.T) {
	cs := compileConditions(t, []domain.Condition{
		{ID: "x", SourceA: "close", Operator: domain.OpCrossesBelow, Value: f(0.5)},
	}, nil)
	ev := NewEvaluator(cs, closesData(0.6, 0.4, 0.4, 0.6, 0.3))

	expected := []bool{false, true, false, false, true}
	for i, want := range expected {
		r, _ := ev.Eval(i)
		assert.Equal(t, want, r[0], "candle %d", i)
	}
}

func TestEval_CrossingBetweenTwoSources(t *testing.T) {
	vals := []*float64{f(1), f(3), f(5)} // indicator rising through close
	cs := compileConditions(t, []domain.Condition{
		{ID: "x", SourceA: "indicator_fast", Operator: domain.OpCrossesAbove, SourceB: "close"},
	}, []domain.Indicator{{ID: "fast", Type: domain.IndicatorSMA}})

	data := closesData(2, 2, 2)
	data.Series["fast"] = domain.IndicatorSeries{domain.LineValue: vals}
	ev := NewEvaluator(cs, data)

	r, _ := ev.Eval(0)
	assert.False(t, r[0])
	r, _ = ev.Eval(1)
	assert.True(t, r[0]) // 1 <= 2 then 3 > 2
	r, _ = ev.Eval(2)
	assert.False(t, r[0])
}

func TestEval_NilWarmupIsGapNotError(t *testing.T) {
	cs := compileConditions(t, []domain.Condition{
		{ID: "c", SourceA: "indicator_sma", Operator: domain.OpGreater, Value: f(0)},
	}, []domain.Indicator{{ID: "sma", Type: domain.IndicatorSMA}})

	data := closesData(1, 2, 3)
	data.Series["sma"] = domain.IndicatorSeries{domain.LineValue: []*float64{nil, nil, f(2)}}
	ev := NewEvaluator(cs, data)

	r, gap := ev.Eval(0)
	assert.True(t, gap)
	assert.False(t, r[0])

	r, gap = ev.Eval(1)
	assert.True(t, gap)
	assert.False(t, r[0])

	r, gap = ev.Eval(2)
	assert.False(t, gap)
	assert.True(t, r[0])
}

// A crossing straddling the warmup boundary needs a real prior sample:
// nil -> value never counts as a cross.
func TestEval_CrossingNeedsBothSamples(t *testing.T) {
	cs := compileConditions(t, []domain.Condition{
		{ID: "x", SourceA: "indicator_sma", Operator: domain.OpCrossesAbove, Value: f(0.5)},
	}, []domain.Indicator{{ID: "sma", Type: domain.IndicatorSMA}})

	data := closesData(1, 1)
	data.Series["sma"] = domain.IndicatorSeries{domain.LineValue: []*float64{nil, f(0.9)}}
	ev := NewEvaluator(cs, data)

	ev.Eval(0)
	r, gap := ev.Eval(1)
	assert.False(t, gap)
	assert.False(t, r[0])
}

func TestEval_PreviousCandleRef(t *testing.T) {
	cs := compileConditions(t, []domain.Condition{
		{ID: "c", SourceA: "close", Operator: domain.OpGreater, Value: f(0.5), Candle: domain.CandlePrevious},
	}, nil)
	ev := NewEvaluator(cs, closesData(0.6, 0.4, 0.7))

	r, gap := ev.Eval(0) // no previous candle yet
	assert.True(t, gap)
	assert.False(t, r[0])

	r, _ = ev.Eval(1) // previous close 0.6 > 0.5
	assert.True(t, r[0])

	r, _ = ev.Eval(2) // previous close 0.4
	assert.False(t, r[0])
}

func TestCompile_RejectsBadConfig(t *testing.T) {
	s := domain.Strategy{
		Name:           "bad",
		Direction:      domain.DirectionUp,
		ConditionLogic: domain.LogicAll,
		Conditions: []domain.Condition{
			{ID: "c1", SourceA: "indicator_missing", Operator: domain.OpGreater, Value: f(1)},
		},
		OrderLadder:        []domain.OrderLadderItem{{PriceCents: 50, Shares: 10}},
		TradeOnEventsCount: 1,
	}
	_, err := Compile(s, 0)
	assert.Error(t, err)

	s.Conditions = nil
	_, err = Compile(s, 120)
	assert.ErrorContains(t, err, "exit price")
}

func TestCompile_CentsConvertedOnce(t *testing.T) {
	s := domain.Strategy{
		Name:           "cents",
		Direction:      domain.DirectionUp,
		ConditionLogic: domain.LogicAll,
		OrderLadder: []domain.OrderLadderItem{
			{PriceCents: 55, Shares: 10},
			{PriceCents: 40, Shares: 5},
		},
		TradeOnEventsCount: 1,
		Exit:               domain.ExitRules{ExitPriceCents: 80},
	}
	cs, err := Compile(s, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.55, cs.Ladder[0].Price, 1e-12)
	assert.InDelta(t, 0.40, cs.Ladder[1].Price, 1e-12)
	assert.InDelta(t, 0.80, cs.ExitPrice, 1e-12)

	// request-level override wins
	cs, err = Compile(s, 90)
	require.NoError(t, err)
	assert.InDelta(t, 0.90, cs.ExitPrice, 1e-12)
}
