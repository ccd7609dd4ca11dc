package indicators

import (
	"testing"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candlesFromCloses(closes ...float64) []domain.Candle {
	out := make([]domain.Candle, len(closes))
	for i, c := range closes {
		out[i] = domain.Candle{Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return out
}

func TestSMA(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.Nil(t, out[0])
	assert.Nil(t, out[1])
	require.NotNil(t, out[2])
	assert.InDelta(t, 2, *out[2], 1e-9)
	assert.InDelta(t, 3, *out[3], 1e-9)
	assert.InDelta(t, 4, *out[4], 1e-9)
}

func TestSMA_TooShort(t *testing.T) {
	out := SMA([]float64{1, 2}, 5)
	for _, v := range out {
		assert.Nil(t, v)
	}
}

func TestEMA_SeedsWithSMA(t *testing.T) {
	out := EMA([]float64{2, 4, 6, 8}, 3)
	assert.Nil(t, out[0])
	assert.Nil(t, out[1])
	require.NotNil(t, out[2])
	assert.InDelta(t, 4, *out[2], 1e-9) // SMA(2,4,6)
	// next: (8-4)*0.5 + 4 = 6
	assert.InDelta(t, 6, *out[3], 1e-9)
}

func TestRSI_AllGains(t *testing.T) {
	out := RSI([]float64{1, 2, 3, 4, 5, 6}, 3)
	assert.Nil(t, out[2])
	require.NotNil(t, out[3])
	assert.InDelta(t, 100, *out[3], 1e-9)
}

func TestRSI_Midrange(t *testing.T) {
	// alternating equal gains/losses converge toward 50
	out := RSI([]float64{10, 11, 10, 11, 10, 11, 10, 11, 10}, 4)
	last := out[len(out)-1]
	require.NotNil(t, last)
	assert.Greater(t, *last, 30.0)
	assert.Less(t, *last, 70.0)
}

func TestMACD_Lines(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	macd, signal, hist := MACD(closes, 12, 26, 9)
	assert.Nil(t, macd[24])
	require.NotNil(t, macd[25], "macd starts once both EMAs exist")
	require.NotNil(t, signal[40])
	require.NotNil(t, hist[40])
	assert.InDelta(t, *macd[40]-*signal[40], *hist[40], 1e-9)
}

func TestBollinger_Ordering(t *testing.T) {
	closes := []float64{10, 11, 9, 12, 10, 13, 11, 9, 12, 10}
	upper, middle, lower := Bollinger(closes, 5, 2)
	for i := 4; i < len(closes); i++ {
		require.NotNil(t, upper[i])
		assert.GreaterOrEqual(t, *upper[i], *middle[i])
		assert.LessOrEqual(t, *lower[i], *middle[i])
	}
}

func TestStochastic_Bounds(t *testing.T) {
	candles := []domain.Candle{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 12},
		{High: 13, Low: 11, Close: 11},
		{High: 12, Low: 10, Close: 10},
	}
	k, d := Stochastic(candles, 3, 2)
	require.NotNil(t, k[2])
	assert.InDelta(t, 100, *k[2], 1e-9) // close at the very top of the range
	for i := range k {
		if k[i] != nil {
			assert.GreaterOrEqual(t, *k[i], 0.0)
			assert.LessOrEqual(t, *k[i], 100.0)
		}
	}
	require.NotNil(t, d[3])
}

func TestATR_ConstantRange(t *testing.T) {
	var candles []domain.Candle
	for i := 0; i < 6; i++ {
		candles = append(candles, domain.Candle{High: 12, Low: 10, Close: 11})
	}
	out := ATR(candles, 3)
	assert.Nil(t, out[2])
	require.NotNil(t, out[3])
	assert.InDelta(t, 2, *out[3], 1e-9)
}

func TestVWAP(t *testing.T) {
	candles := []domain.Candle{
		{High: 10, Low: 10, Close: 10, Volume: 1},
		{High: 20, Low: 20, Close: 20, Volume: 3},
	}
	out := VWAP(candles)
	require.NotNil(t, out[1])
	assert.InDelta(t, 17.5, *out[1], 1e-9) // (10·1 + 20·3) / 4
}

func TestVWAP_NoVolume(t *testing.T) {
	out := VWAP([]domain.Candle{{Close: 10}, {Close: 11}})
	assert.Nil(t, out[0])
	assert.Nil(t, out[1])
}

func TestRollingUpPct(t *testing.T) {
	candles := []domain.Candle{
		{Open: 1, Close: 2}, // up
		{Open: 2, Close: 1}, // down
		{Open: 1, Close: 2}, // up
		{Open: 1, Close: 2}, // up
	}
	out := RollingUpPct(candles, 2)
	assert.Nil(t, out[0])
	require.NotNil(t, out[1])
	assert.InDelta(t, 50, *out[1], 1e-9)
	assert.InDelta(t, 50, *out[2], 1e-9)
	assert.InDelta(t, 100, *out[3], 1e-9)
}

func TestProvider_Compute(t *testing.T) {
	p := New()
	candles := candlesFromCloses(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	series, err := p.Compute(domain.Indicator{ID: "s", Type: domain.IndicatorSMA,
		Parameters: map[string]float64{"period": 3}}, candles)
	require.NoError(t, err)
	require.NotNil(t, series.Line(""))
	assert.Len(t, series.Line(""), len(candles))

	series, err = p.Compute(domain.Indicator{ID: "m", Type: domain.IndicatorMACD}, candles)
	require.NoError(t, err)
	assert.Contains(t, series, "macd")
	assert.Contains(t, series, "signal")
	assert.Contains(t, series, "histogram")

	_, err = p.Compute(domain.Indicator{ID: "x", Type: "Nope"}, candles)
	assert.Error(t, err)
}
