package domain

import (
	"fmt"
	"time"
)

// Candle is one OHLCV bar for a fixed timeframe. Prices are contract
// prices in [0,1] (the UP token of a binary market) unless the candle
// source is an underlying asset feed.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Timeframe is a candle interval identifier ("1m", "5m", "1h", ...).
type Timeframe string

// Duration returns the timeframe as a time.Duration.
// Unknown timeframes default to one minute.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	}
	return time.Minute
}

// Valid reports whether the timeframe is one of the supported intervals.
func (tf Timeframe) Valid() bool {
	switch tf {
	case "1m", "5m", "15m", "30m", "1h", "4h", "1d":
		return true
	}
	return false
}

// Resolution is the settled outcome of a binary market instance.
type Resolution string

const (
	ResolutionUp      Resolution = "UP"
	ResolutionDown    Resolution = "DOWN"
	ResolutionUnknown Resolution = "UNKNOWN"
)

// MarketInstance is one binary market event: a time window over the
// asset, the candle path observed inside it, and how it settled.
type MarketInstance struct {
	ID        string    `json:"id"`
	Question  string    `json:"question,omitempty"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`

	// TokenID is the CLOB token whose price history backs the candles.
	// Empty when the candle source is an underlying asset feed.
	TokenID string `json:"tokenId,omitempty"`

	Candles    []Candle   `json:"-"`
	Resolution Resolution `json:"resolution"`
}

// Resolved reports whether the settlement outcome is known.
func (m MarketInstance) Resolved() bool {
	return m.Resolution == ResolutionUp || m.Resolution == ResolutionDown
}

// WonBy reports whether the market settled in favor of the given direction.
func (m MarketInstance) WonBy(dir Direction) bool {
	switch dir {
	case DirectionUp:
		return m.Resolution == ResolutionUp
	case DirectionDown:
		return m.Resolution == ResolutionDown
	}
	return false
}

// Label is a short human-readable identifier for logs.
func (m MarketInstance) Label() string {
	if m.Question != "" {
		return m.Question
	}
	return fmt.Sprintf("%s [%s]", m.ID, m.StartTime.Format("2006-01-02 15:04"))
}

// IndicatorSeries holds the per-candle output of one indicator. Single
// output indicators publish under LineValue; multi-output indicators
// publish one entry per named line (macd/signal/histogram, upper/middle/
// lower, k/d). A nil sample means the indicator is still warming up.
type IndicatorSeries map[string][]*float64

// LineValue is the line name used by single-output indicators.
const LineValue = "value"

// Line returns the samples for a named line, or nil if absent.
func (s IndicatorSeries) Line(name string) []*float64 {
	if name == "" {
		name = LineValue
	}
	return s[name]
}
