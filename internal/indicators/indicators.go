package indicators

// indicators.go — the Indicator Value Provider implementation.
//
// Every Compute call returns one sample per input candle; samples are nil
// while the indicator is warming up. Multi-output indicators publish one
// line per sub-value. The backtest engine computes every series once,
// eagerly, before the simulation loop starts.

import (
	"fmt"
	"math"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

// Provider implements ports.IndicatorProvider with pure in-process math.
type Provider struct{}

// New returns a stateless indicator provider.
func New() *Provider {
	return &Provider{}
}

// Compute dispatches on the indicator type.
func (p *Provider) Compute(ind domain.Indicator, candles []domain.Candle) (domain.IndicatorSeries, error) {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	switch ind.Type {
	case domain.IndicatorSMA:
		return single(SMA(closes, intParam(ind, "period", 20))), nil
	case domain.IndicatorEMA:
		return single(EMA(closes, intParam(ind, "period", 20))), nil
	case domain.IndicatorRSI:
		return single(RSI(closes, intParam(ind, "period", 14))), nil
	case domain.IndicatorMACD:
		macd, signal, hist := MACD(closes,
			intParam(ind, "fast", 12),
			intParam(ind, "slow", 26),
			intParam(ind, "signal", 9),
		)
		return domain.IndicatorSeries{"macd": macd, "signal": signal, "histogram": hist}, nil
	case domain.IndicatorBollingerBands:
		upper, middle, lower := Bollinger(closes,
			intParam(ind, "period", 20),
			floatParam(ind, "stddev", 2),
		)
		return domain.IndicatorSeries{"upper": upper, "middle": middle, "lower": lower}, nil
	case domain.IndicatorStochastic:
		k, d := Stochastic(candles,
			intParam(ind, "k_period", 14),
			intParam(ind, "d_period", 3),
		)
		return domain.IndicatorSeries{"k": k, "d": d}, nil
	case domain.IndicatorATR:
		return single(ATR(candles, intParam(ind, "period", 14))), nil
	case domain.IndicatorVWAP:
		return single(VWAP(candles)), nil
	case domain.IndicatorRollingUpPct:
		return single(RollingUpPct(candles, intParam(ind, "period", 10))), nil
	}
	return nil, fmt.Errorf("indicators.Compute: unsupported type %q", ind.Type)
}

func single(values []*float64) domain.IndicatorSeries {
	return domain.IndicatorSeries{domain.LineValue: values}
}

func intParam(ind domain.Indicator, name string, def int) int {
	if v, ok := ind.Parameters[name]; ok && v > 0 {
		return int(v)
	}
	return def
}

func floatParam(ind domain.Indicator, name string, def float64) float64 {
	if v, ok := ind.Parameters[name]; ok && v > 0 {
		return v
	}
	return def
}

func ptr(v float64) *float64 { return &v }

// SMA is the simple moving average of the series over `period` samples.
func SMA(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = ptr(sum / float64(period))
		}
	}
	return out
}

// EMA seeds with the SMA of the first `period` samples, then applies the
// standard 2/(period+1) smoothing.
func EMA(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	prev := sum / float64(period)
	out[period-1] = ptr(prev)

	mult := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*mult + prev
		out[i] = ptr(prev)
	}
	return out
}

// RSI uses Wilder smoothing. The first value appears at index `period`.
func RSI(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	out[period] = ptr(rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = ptr(rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns the macd, signal and histogram lines.
func MACD(values []float64, fast, slow, signalPeriod int) (macd, signal, hist []*float64) {
	n := len(values)
	macd = make([]*float64, n)
	signal = make([]*float64, n)
	hist = make([]*float64, n)

	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)

	// macd line exists where both EMAs exist
	var macdVals []float64
	var macdIdx []int
	for i := 0; i < n; i++ {
		if fastEMA[i] == nil || slowEMA[i] == nil {
			continue
		}
		v := *fastEMA[i] - *slowEMA[i]
		macd[i] = ptr(v)
		macdVals = append(macdVals, v)
		macdIdx = append(macdIdx, i)
	}

	sigSeries := EMA(macdVals, signalPeriod)
	for j, i := range macdIdx {
		if sigSeries[j] == nil {
			continue
		}
		signal[i] = ptr(*sigSeries[j])
		hist[i] = ptr(*macd[i] - *sigSeries[j])
	}
	return macd, signal, hist
}

// Bollinger returns the upper, middle and lower bands.
func Bollinger(values []float64, period int, stddev float64) (upper, middle, lower []*float64) {
	n := len(values)
	upper = make([]*float64, n)
	middle = SMA(values, period)
	lower = make([]*float64, n)

	for i := period - 1; i < n; i++ {
		if middle[i] == nil {
			continue
		}
		mean := *middle[i]
		var sq float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			sq += d * d
		}
		sd := math.Sqrt(sq / float64(period))
		upper[i] = ptr(mean + stddev*sd)
		lower[i] = ptr(mean - stddev*sd)
	}
	return upper, middle, lower
}

// Stochastic returns %K and %D. %K = 100 × (close − lowestLow) /
// (highestHigh − lowestLow) over kPeriod; %D is the SMA of %K over dPeriod.
func Stochastic(candles []domain.Candle, kPeriod, dPeriod int) (k, d []*float64) {
	n := len(candles)
	k = make([]*float64, n)
	d = make([]*float64, n)
	if kPeriod <= 0 || n < kPeriod {
		return k, d
	}

	var kVals []float64
	var kIdx []int
	for i := kPeriod - 1; i < n; i++ {
		lo, hi := candles[i].Low, candles[i].High
		for j := i - kPeriod + 1; j <= i; j++ {
			lo = math.Min(lo, candles[j].Low)
			hi = math.Max(hi, candles[j].High)
		}
		v := 50.0 // flat range: neither overbought nor oversold
		if hi > lo {
			v = 100 * (candles[i].Close - lo) / (hi - lo)
		}
		k[i] = ptr(v)
		kVals = append(kVals, v)
		kIdx = append(kIdx, i)
	}

	dSeries := SMA(kVals, dPeriod)
	for j, i := range kIdx {
		if dSeries[j] != nil {
			d[i] = ptr(*dSeries[j])
		}
	}
	return k, d
}

// ATR uses the true range with Wilder smoothing. First value at `period`.
func ATR(candles []domain.Candle, period int) []*float64 {
	out := make([]*float64, len(candles))
	if period <= 0 || len(candles) <= period {
		return out
	}

	tr := func(i int) float64 {
		c := candles[i]
		r := c.High - c.Low
		if i > 0 {
			prev := candles[i-1].Close
			r = math.Max(r, math.Max(math.Abs(c.High-prev), math.Abs(c.Low-prev)))
		}
		return r
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += tr(i)
	}
	prev := sum / float64(period)
	out[period] = ptr(prev)

	for i := period + 1; i < len(candles); i++ {
		prev = (prev*float64(period-1) + tr(i)) / float64(period)
		out[i] = ptr(prev)
	}
	return out
}

// VWAP is the cumulative volume-weighted average of the typical price.
// Candles with zero volume contribute nothing; until any volume is seen
// the value is nil.
func VWAP(candles []domain.Candle) []*float64 {
	out := make([]*float64, len(candles))
	var cumPV, cumV float64
	for i, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		cumPV += typical * c.Volume
		cumV += c.Volume
		if cumV > 0 {
			out[i] = ptr(cumPV / cumV)
		}
	}
	return out
}

// RollingUpPct is the percentage (0-100) of the last `period` candles
// that closed above their open.
func RollingUpPct(candles []domain.Candle, period int) []*float64 {
	out := make([]*float64, len(candles))
	if period <= 0 || len(candles) < period {
		return out
	}
	up := 0
	for i, c := range candles {
		if c.Close > c.Open {
			up++
		}
		if i >= period {
			if prev := candles[i-period]; prev.Close > prev.Open {
				up--
			}
		}
		if i >= period-1 {
			out[i] = ptr(100 * float64(up) / float64(period))
		}
	}
	return out
}
