package backtest

// stats.go — folds an ordered trade log into summary statistics.
//
// Aggregate is pure and idempotent: re-running it over a fixed trade
// log reproduces identical numbers.
//
// Conventions, fixed and tested:
//   - profitFactor uses the sentinel 999 when there are zero losing
//     trades and at least one winner (0 when there are no trades at all),
//     never Inf or NaN.
//   - sharpeRatio is computed over per-closed-trade returns (pnl divided
//     by the balance before the trade), mean over population stddev,
//     annualized by √252.

import (
	"math"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

// ProfitFactorSentinel replaces the undefined profit factor of a run
// with zero losing trades.
const ProfitFactorSentinel = 999.0

const annualizationFactor = 252

// Summary is the numeric outcome of aggregating one trade log.
type Summary struct {
	FinalBalance       float64
	TotalPnl           float64
	TotalPnlPercent    float64
	TotalTrades        int
	WinningTrades      int
	LosingTrades       int
	WinRate            float64
	AvgWin             float64
	AvgLoss            float64
	ProfitFactor       float64
	MaxDrawdown        float64
	MaxDrawdownPercent float64
	SharpeRatio        float64
}

// Aggregate computes the summary statistics of an ordered trade log.
// Only closing legs (those carrying a pnl) count as trades.
func Aggregate(trades []domain.BacktestTrade, initialBalance float64) Summary {
	s := Summary{FinalBalance: initialBalance}

	var sumWin, sumLoss float64 // sumLoss accumulated as a positive magnitude
	var returns []float64

	balanceBefore := initialBalance
	for _, t := range trades {
		if t.Closing() {
			pnl := *t.PnL
			s.TotalTrades++
			if pnl > 0 {
				s.WinningTrades++
				sumWin += pnl
			} else {
				s.LosingTrades++
				sumLoss += -pnl
			}
			if balanceBefore > 0 {
				returns = append(returns, pnl/balanceBefore)
			}
		}
		balanceBefore = t.Balance
		s.FinalBalance = t.Balance
	}

	s.TotalPnl = s.FinalBalance - initialBalance
	if initialBalance != 0 {
		s.TotalPnlPercent = 100 * s.TotalPnl / initialBalance
	}

	if decided := s.WinningTrades + s.LosingTrades; decided > 0 {
		s.WinRate = 100 * float64(s.WinningTrades) / float64(decided)
	}
	if s.WinningTrades > 0 {
		s.AvgWin = sumWin / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AvgLoss = -sumLoss / float64(s.LosingTrades)
	}

	switch {
	case sumLoss > 0:
		s.ProfitFactor = sumWin / sumLoss
	case sumWin > 0:
		s.ProfitFactor = ProfitFactorSentinel
	}

	s.MaxDrawdown, s.MaxDrawdownPercent = maxDrawdown(initialBalance, trades)
	s.SharpeRatio = sharpe(returns)

	return s
}

// maxDrawdown walks the running-balance curve and returns the largest
// peak-to-trough decline, absolute and as a percentage of the peak.
func maxDrawdown(initialBalance float64, trades []domain.BacktestTrade) (dd, ddPct float64) {
	peak := initialBalance
	for _, t := range trades {
		if t.Balance > peak {
			peak = t.Balance
		}
		decline := peak - t.Balance
		if decline > dd {
			dd = decline
			if peak > 0 {
				ddPct = 100 * decline / peak
			}
		}
	}
	return dd, ddPct
}

// sharpe is mean(return) / stddev(return) × √252 over per-trade returns.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(returns)))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(annualizationFactor)
}
