package backtest

import (
	"testing"
	"time"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openPosition(entry float64, shares int) Position {
	return Position{State: PositionOpen, EntryPrice: entry, Shares: shares, OpenedAt: t0}
}

func TestCheckExit_FixedExitPrice(t *testing.T) {
	pos := openPosition(0.50, 100)

	exit := pos.CheckExit(candleAt(1, 0.70, 0.90), 0.80, 0, 0)
	require.NotNil(t, exit)
	assert.InDelta(t, 0.80, exit.Price, 1e-12)
	assert.Equal(t, domain.SideSell, exit.Side)

	// range below the exit price: no exit
	assert.Nil(t, pos.CheckExit(candleAt(2, 0.40, 0.60), 0.80, 0, 0))
}

func TestCheckExit_PriorityFixedBeforeStop(t *testing.T) {
	pos := openPosition(0.50, 100)
	// one wide candle touches both the fixed exit and the stop level;
	// the fixed exit wins
	exit := pos.CheckExit(candleAt(1, 0.30, 0.90), 0.80, 20, 0)
	require.NotNil(t, exit)
	assert.InDelta(t, 0.80, exit.Price, 1e-12)
}

func TestCheckExit_StopLoss(t *testing.T) {
	pos := openPosition(0.50, 100)
	exit := pos.CheckExit(candleAt(1, 0.38, 0.45), 0, 20, 0) // stop at 0.40
	require.NotNil(t, exit)
	assert.InDelta(t, 0.40, exit.Price, 1e-12)
	assert.Equal(t, domain.SideSell, exit.Side, "a stopped-out exit is still a SELL")
}

func TestCheckExit_TakeProfit(t *testing.T) {
	pos := openPosition(0.50, 100)
	exit := pos.CheckExit(candleAt(1, 0.55, 0.65), 0, 0, 20) // target 0.60
	require.NotNil(t, exit)
	assert.InDelta(t, 0.60, exit.Price, 1e-12)
}

func TestCheckExit_TakeProfitCappedAtDollar(t *testing.T) {
	pos := openPosition(0.90, 10)
	exit := pos.CheckExit(candleAt(1, 0.95, 1.0), 0, 0, 50) // raw target 1.35
	require.NotNil(t, exit)
	assert.InDelta(t, 1.0, exit.Price, 1e-12)
}

func TestCheckExit_StopBeforeTakeProfitSameCandle(t *testing.T) {
	pos := openPosition(0.50, 100)
	exit := pos.CheckExit(candleAt(1, 0.35, 0.70), 0, 20, 20)
	require.NotNil(t, exit)
	assert.InDelta(t, 0.40, exit.Price, 1e-12, "stop checked first when both are touched")
}

func TestCheckExit_ClosedPosition(t *testing.T) {
	pos := Position{State: PositionClosed, EntryPrice: 0.5, Shares: 10}
	assert.Nil(t, pos.CheckExit(candleAt(1, 0, 1), 0.5, 10, 10))
}

func TestSettle_Win(t *testing.T) {
	pos := openPosition(0.50, 100)
	m := domain.MarketInstance{Resolution: domain.ResolutionUp, EndTime: t0.Add(time.Hour)}

	exit := pos.Settle(m, domain.DirectionUp)
	assert.Equal(t, domain.SideSell, exit.Side)
	assert.InDelta(t, 1.0, exit.Price, 1e-12)
	assert.Equal(t, m.EndTime, exit.Time)
}

func TestSettle_Loss(t *testing.T) {
	pos := openPosition(0.50, 100)
	m := domain.MarketInstance{Resolution: domain.ResolutionDown, EndTime: t0.Add(time.Hour)}

	exit := pos.Settle(m, domain.DirectionUp)
	assert.Equal(t, domain.SideLoss, exit.Side)
	assert.Zero(t, exit.Price)
}
