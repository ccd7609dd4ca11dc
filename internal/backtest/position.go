package backtest

// position.go — the per-market position state machine and its exit
// triggers: NoPosition → Open → Closed.
//
// Trade-log labeling rule: LOSS is reserved for the zero settlement
// payout. Every pre-settlement exit is a SELL, even when its pnl is
// negative and even when it was triggered by the stop loss.

import (
	"fmt"
	"time"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

// PositionState tracks the position lifecycle for one market instance.
type PositionState int

const (
	NoPosition PositionState = iota
	PositionOpen
	PositionClosed
)

// Position is the single open position of one market instance.
type Position struct {
	State      PositionState
	EntryPrice float64 // weighted average over ladder fills
	Shares     int
	OpenedAt   time.Time
}

// Exit is one resolved close of a position.
type Exit struct {
	Price  float64
	Time   time.Time
	Side   domain.Side
	Reason string
}

// CheckExit evaluates the exit triggers for one candle while the
// position is open, in priority order: fixed exit price first, then the
// stop loss, then the take profit. The stop is checked before the take
// profit when both are touched inside the same candle.
func (p *Position) CheckExit(c domain.Candle, exitPrice, stopLossPct, takeProfitPct float64) *Exit {
	if p.State != PositionOpen {
		return nil
	}

	if exitPrice > 0 && c.Low <= exitPrice && exitPrice <= c.High {
		return &Exit{
			Price:  exitPrice,
			Time:   c.Timestamp,
			Side:   domain.SideSell,
			Reason: fmt.Sprintf("exit price %.2f touched", exitPrice),
		}
	}

	if stopLossPct > 0 {
		stop := p.EntryPrice * (1 - stopLossPct/100)
		if c.Low <= stop {
			return &Exit{
				Price:  stop,
				Time:   c.Timestamp,
				Side:   domain.SideSell,
				Reason: fmt.Sprintf("stop loss %.0f%% hit", stopLossPct),
			}
		}
	}

	if takeProfitPct > 0 {
		target := p.EntryPrice * (1 + takeProfitPct/100)
		if target > 1 {
			target = 1 // contract price is capped at $1
		}
		if c.High >= target {
			return &Exit{
				Price:  target,
				Time:   c.Timestamp,
				Side:   domain.SideSell,
				Reason: fmt.Sprintf("take profit %.0f%% hit", takeProfitPct),
			}
		}
	}

	return nil
}

// Settle resolves an open position at market settlement: $1/share if the
// market resolved in the strategy's favored direction, $0/share if not.
func (p *Position) Settle(m domain.MarketInstance, dir domain.Direction) Exit {
	if m.WonBy(dir) {
		return Exit{
			Price:  1.0,
			Time:   m.EndTime,
			Side:   domain.SideSell,
			Reason: fmt.Sprintf("settled %s", m.Resolution),
		}
	}
	return Exit{
		Price:  0.0,
		Time:   m.EndTime,
		Side:   domain.SideLoss,
		Reason: fmt.Sprintf("settled %s", m.Resolution),
	}
}
