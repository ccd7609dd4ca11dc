package backtest

import (
	"testing"
	"time"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leg(min int, side domain.Side, price float64, shares int, pnl *float64, balance float64) domain.BacktestTrade {
	return domain.BacktestTrade{
		Timestamp: t0.Add(time.Duration(min) * time.Minute),
		Side:      side,
		Price:     price,
		Shares:    shares,
		Value:     price * float64(shares),
		PnL:       pnl,
		Balance:   balance,
	}
}

func TestAggregate_WinningRun(t *testing.T) {
	trades := []domain.BacktestTrade{
		leg(0, domain.SideBuy, 0.50, 100, nil, 950),
		leg(60, domain.SideSell, 1.00, 100, f(50), 1050),
	}
	s := Aggregate(trades, 1000)

	assert.InDelta(t, 1050, s.FinalBalance, 1e-9)
	assert.InDelta(t, 50, s.TotalPnl, 1e-9)
	assert.InDelta(t, 5, s.TotalPnlPercent, 1e-9)
	assert.Equal(t, 1, s.TotalTrades)
	assert.Equal(t, 1, s.WinningTrades)
	assert.Equal(t, 0, s.LosingTrades)
	assert.InDelta(t, 100, s.WinRate, 1e-9)
	assert.InDelta(t, 50, s.AvgWin, 1e-9)
	assert.Zero(t, s.AvgLoss)
	assert.InDelta(t, ProfitFactorSentinel, s.ProfitFactor, 1e-9, "zero losses hits the sentinel, not Inf")
}

func TestAggregate_MixedRun(t *testing.T) {
	trades := []domain.BacktestTrade{
		leg(0, domain.SideBuy, 0.50, 100, nil, 950),
		leg(10, domain.SideSell, 1.00, 100, f(50), 1050),
		leg(20, domain.SideBuy, 0.40, 100, nil, 1010),
		leg(30, domain.SideLoss, 0.00, 100, f(-40), 1010),
		leg(40, domain.SideBuy, 0.50, 100, nil, 960),
		leg(50, domain.SideSell, 0.60, 100, f(10), 1020),
	}
	s := Aggregate(trades, 1000)

	assert.Equal(t, 3, s.TotalTrades)
	assert.Equal(t, 2, s.WinningTrades)
	assert.Equal(t, 1, s.LosingTrades)
	assert.InDelta(t, 66.6667, s.WinRate, 0.001)
	assert.InDelta(t, 30, s.AvgWin, 1e-9)
	assert.InDelta(t, -40, s.AvgLoss, 1e-9)
	assert.InDelta(t, 60.0/40.0, s.ProfitFactor, 1e-9)
	assert.InDelta(t, 1020, s.FinalBalance, 1e-9)
}

func TestAggregate_Idempotent(t *testing.T) {
	trades := []domain.BacktestTrade{
		leg(0, domain.SideBuy, 0.50, 100, nil, 950),
		leg(10, domain.SideLoss, 0.00, 100, f(-50), 950),
		leg(20, domain.SideBuy, 0.30, 50, nil, 935),
		leg(30, domain.SideSell, 0.70, 50, f(20), 985),
	}
	first := Aggregate(trades, 1000)
	second := Aggregate(trades, 1000)
	assert.Equal(t, first, second)
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil, 1000)
	assert.InDelta(t, 1000, s.FinalBalance, 1e-9)
	assert.Zero(t, s.TotalTrades)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.ProfitFactor, "no wins and no losses: 0, not the sentinel")
	assert.Zero(t, s.MaxDrawdown)
	assert.Zero(t, s.SharpeRatio)
}

func TestMaxDrawdown_Bounds(t *testing.T) {
	trades := []domain.BacktestTrade{
		leg(0, domain.SideBuy, 0.50, 100, nil, 950),
		leg(10, domain.SideSell, 1.00, 100, f(50), 1050), // peak
		leg(20, domain.SideBuy, 0.60, 100, nil, 990),
		leg(30, domain.SideLoss, 0.00, 100, f(-60), 990), // trough
		leg(40, domain.SideBuy, 0.50, 50, nil, 965),
		leg(50, domain.SideSell, 0.90, 50, f(20), 1010),
	}
	s := Aggregate(trades, 1000)

	assert.GreaterOrEqual(t, s.MaxDrawdown, 0.0)
	assert.GreaterOrEqual(t, s.MaxDrawdownPercent, 0.0)
	assert.LessOrEqual(t, s.MaxDrawdownPercent, 100.0)
	// peak 1050 → trough 965
	assert.InDelta(t, 85, s.MaxDrawdown, 1e-9)
	assert.InDelta(t, 100*85.0/1050.0, s.MaxDrawdownPercent, 1e-9)
}

func TestSharpe_UniformReturnsIsZero(t *testing.T) {
	// identical returns: stddev 0, sharpe defined as 0
	assert.Zero(t, sharpe([]float64{0.01, 0.01, 0.01}))
	assert.Zero(t, sharpe([]float64{0.05}))
	assert.Zero(t, sharpe(nil))
}

func TestSharpe_Sign(t *testing.T) {
	require.Greater(t, sharpe([]float64{0.02, 0.01, 0.03}), 0.0)
	require.Less(t, sharpe([]float64{-0.02, -0.01, -0.03}), 0.0)
}
