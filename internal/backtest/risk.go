package backtest

// risk.go — gates new entries against the strategy's risk limits.
// Blocking is silent: the entry is simply not simulated and the reason
// is recorded as a diagnostic, never as an error.

import (
	"fmt"
	"time"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

// Governor tracks the daily and exposure counters one run shares across
// its market instances. Days roll over on UTC midnight.
type Governor struct {
	limits domain.RiskLimits

	day       time.Time // UTC day the daily counters belong to
	dayLoss   float64   // cumulative realized loss for the day (positive)
	dayTrades int

	openPositions int
	openShares    int
	openDollar    float64
}

// NewGovernor builds a governor for one run. Zero limits are
// unconstrained.
func NewGovernor(limits domain.RiskLimits) *Governor {
	return &Governor{limits: limits}
}

// Admit decides whether a newly armed entry may be simulated. shares and
// dollar are the full projected ladder exposure.
func (g *Governor) Admit(t time.Time, shares int, dollar float64) (ok bool, reason string) {
	g.rollover(t)

	if g.limits.MaxDailyLoss > 0 && g.dayLoss >= g.limits.MaxDailyLoss {
		return false, fmt.Sprintf("daily loss limit reached: $%.2f of $%.2f", g.dayLoss, g.limits.MaxDailyLoss)
	}
	if g.limits.DailyTradeCap > 0 && g.dayTrades >= g.limits.DailyTradeCap {
		return false, fmt.Sprintf("daily trade cap reached: %d", g.limits.DailyTradeCap)
	}
	if g.limits.MaxOpenPositions > 0 && g.openPositions >= g.limits.MaxOpenPositions {
		return false, fmt.Sprintf("max open positions reached: %d", g.limits.MaxOpenPositions)
	}
	if g.limits.MaxPositionShares > 0 && g.openShares+shares > g.limits.MaxPositionShares {
		return false, fmt.Sprintf("share exposure %d would exceed limit %d", g.openShares+shares, g.limits.MaxPositionShares)
	}
	if g.limits.MaxPositionDollar > 0 && g.openDollar+dollar > g.limits.MaxPositionDollar {
		return false, fmt.Sprintf("dollar exposure $%.2f would exceed limit $%.2f", g.openDollar+dollar, g.limits.MaxPositionDollar)
	}
	return true, ""
}

// RecordEntry registers an admitted, filled entry.
func (g *Governor) RecordEntry(t time.Time, shares int, dollar float64) {
	g.rollover(t)
	g.dayTrades++
	g.openPositions++
	g.openShares += shares
	g.openDollar += dollar
}

// RecordExit registers a closed position and its realized pnl.
func (g *Governor) RecordExit(t time.Time, pnl float64, shares int, dollar float64) {
	g.rollover(t)
	if pnl < 0 {
		g.dayLoss += -pnl
	}
	g.openPositions--
	g.openShares -= shares
	g.openDollar -= dollar
	if g.openPositions < 0 {
		g.openPositions = 0
	}
	if g.openShares < 0 {
		g.openShares = 0
	}
	if g.openDollar < 0 {
		g.openDollar = 0
	}
}

// rollover resets the daily counters when the UTC day changes.
func (g *Governor) rollover(t time.Time) {
	day := t.UTC().Truncate(24 * time.Hour)
	if !day.Equal(g.day) {
		g.day = day
		g.dayLoss = 0
		g.dayTrades = 0
	}
}
