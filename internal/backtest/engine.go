package backtest

// engine.go — the deterministic forward walk.
//
// All candle and indicator data is in memory before the loop starts: the
// indicator series are computed once over the full concatenated candle
// sequence, so crossing history and warmup carry across market instance
// boundaries. The walk itself is single-threaded and shares exactly two
// pieces of state across instances: the running account balance and the
// risk governor's counters. Cancellation is cooperative and only checked
// between market instances, never mid-candle.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
	"github.com/LTOFFICIALUK/polyvec-sub002/internal/ports"
)

// Engine runs one compiled strategy over a set of market instances.
type Engine struct {
	cs         *CompiledStrategy
	indicators ports.IndicatorProvider
}

// NewEngine pairs a compiled strategy with an indicator provider.
func NewEngine(cs *CompiledStrategy, indicators ports.IndicatorProvider) *Engine {
	return &Engine{cs: cs, indicators: indicators}
}

// Run simulates the strategy over the given market instances and folds
// the trade log into a result. Instances are processed in chronological
// order against one mutable ledger. On context cancellation the partial
// result is returned together with the context error.
func (e *Engine) Run(ctx context.Context, markets []domain.MarketInstance, initialBalance float64) (domain.BacktestResult, error) {
	sort.Slice(markets, func(i, j int) bool {
		return markets[i].StartTime.Before(markets[j].StartTime)
	})

	data, offsets, err := e.prepareData(markets)
	if err != nil {
		return domain.BacktestResult{}, err
	}

	ev := NewEvaluator(e.cs, data)
	trig := NewTrigger(e.cs.Logic, e.cs.ArmEvents)
	gov := NewGovernor(e.cs.Limits)

	res := domain.BacktestResult{
		StrategyID:     e.cs.Strategy.ID,
		StrategyName:   e.cs.Strategy.Name,
		InitialBalance: initialBalance,
	}
	if len(markets) > 0 {
		res.StartTime = markets[0].StartTime
		res.EndTime = markets[len(markets)-1].EndTime
	}

	balance := initialBalance
	var runErr error

	for k := range markets {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("backtest.Run: aborted after %d/%d markets: %w", k, len(markets), err)
			break
		}
		balance = e.runMarket(&markets[k], offsets[k], ev, trig, gov, balance, &res)
		trig.EndEvent()
	}

	summary := Aggregate(res.Trades, initialBalance)
	res.FinalBalance = summary.FinalBalance
	res.TotalPnl = summary.TotalPnl
	res.TotalPnlPercent = summary.TotalPnlPercent
	res.TotalTrades = summary.TotalTrades
	res.WinningTrades = summary.WinningTrades
	res.LosingTrades = summary.LosingTrades
	res.WinRate = summary.WinRate
	res.AvgWin = summary.AvgWin
	res.AvgLoss = summary.AvgLoss
	res.ProfitFactor = summary.ProfitFactor
	res.MaxDrawdown = summary.MaxDrawdown
	res.MaxDrawdownPercent = summary.MaxDrawdownPercent
	res.SharpeRatio = summary.SharpeRatio

	return res, runErr
}

// prepareData concatenates the instance candles into one strictly
// ordered series and computes every declared indicator over it, eagerly.
// offsets maps each market instance to its start index in the series.
func (e *Engine) prepareData(markets []domain.MarketInstance) (*MarketData, []int, error) {
	offsets := make([]int, len(markets))
	var candles []domain.Candle
	for k, m := range markets {
		offsets[k] = len(candles)
		candles = append(candles, m.Candles...)
	}

	series := make(map[string]domain.IndicatorSeries, len(e.cs.Strategy.Indicators))
	for _, ind := range e.cs.Strategy.Indicators {
		s, err := e.indicators.Compute(ind, candles)
		if err != nil {
			return nil, nil, fmt.Errorf("backtest.Run: compute indicator %q: %w", ind.ID, err)
		}
		series[ind.ID] = s
	}

	return &MarketData{Candles: candles, Series: series}, offsets, nil
}

// runMarket walks one market instance and returns the updated balance.
func (e *Engine) runMarket(
	m *domain.MarketInstance,
	offset int,
	ev *Evaluator,
	trig *Trigger,
	gov *Governor,
	balance float64,
	res *domain.BacktestResult,
) float64 {
	tradeable := true
	switch {
	case !m.Resolved():
		res.MarketsFailed++
		res.Failures = append(res.Failures, domain.RunFailure{
			Category: domain.FailResolutionUnavailable,
			MarketID: m.ID,
			Reason:   "settlement outcome could not be determined",
		})
		tradeable = false
	case len(m.Candles) == 0:
		res.MarketsFailed++
		res.Failures = append(res.Failures, domain.RunFailure{
			Category: domain.FailDataGapWarning,
			MarketID: m.ID,
			Reason:   "no candles for market window",
		})
		return balance
	default:
		res.MarketsTested++
	}

	var (
		pos           Position
		entryCost     float64
		entryConsumed bool
		activeFrom    int
		gapCandles    int
		triggerReason string
	)

	for i, c := range m.Candles {
		g := offset + i
		res.CandlesProcessed++

		// Eval runs on every candle so the crossing history always
		// advances with the time cursor, gaps and schedule included.
		results, gap := ev.Eval(g)
		if gap {
			gapCandles++
		}

		if pos.State == PositionOpen && i >= activeFrom {
			exit := pos.CheckExit(c, e.cs.ExitPrice, e.cs.StopLossPct, e.cs.TakeProfitPct)
			if exit == nil && !gap {
				for ci := range e.cs.CloseOnCondition {
					if results[ci] {
						exit = &Exit{
							Price:  c.Close,
							Time:   c.Timestamp,
							Side:   domain.SideSell,
							Reason: fmt.Sprintf("close action (%s)", e.cs.Conditions[ci].ID),
						}
						break
					}
				}
			}
			if exit != nil {
				balance = e.closePosition(&pos, *exit, entryCost, gov, balance, res)
			}
		}

		if !gap && e.cs.Schedule.Allows(c.Timestamp) {
			if trig.Observe(results) {
				res.ConditionsTriggered++
				triggerReason = e.triggerReason(results)
			}
		}

		if tradeable && !entryConsumed && pos.State == NoPosition && trig.Armed() {
			entryConsumed = true
			pos, entryCost, balance = e.tryEnter(m, i, c, trig, gov, balance, triggerReason, res, &activeFrom)
		}
	}

	if pos.State == PositionOpen {
		exit := pos.Settle(*m, e.cs.Direction)
		balance = e.closePosition(&pos, exit, entryCost, gov, balance, res)
	}

	if gapCandles > 0 {
		res.Failures = append(res.Failures, domain.RunFailure{
			Category: domain.FailDataGapWarning,
			MarketID: m.ID,
			Reason:   fmt.Sprintf("%d candles skipped (indicator warmup or missing data)", gapCandles),
		})
	}

	return balance
}

// tryEnter runs the risk gate and, if admitted, simulates the ladder
// against the rest of the instance window.
func (e *Engine) tryEnter(
	m *domain.MarketInstance,
	i int,
	c domain.Candle,
	trig *Trigger,
	gov *Governor,
	balance float64,
	triggerReason string,
	res *domain.BacktestResult,
	activeFrom *int,
) (Position, float64, float64) {
	if triggerReason == "" {
		// window carried over from a prior market instance
		triggerReason = "armed from prior event"
	}

	var ladderShares int
	var ladderDollar float64
	for _, rung := range e.cs.Ladder {
		ladderShares += rung.Shares
		ladderDollar += rung.Price * float64(rung.Shares)
	}

	ok, reason := gov.Admit(c.Timestamp, ladderShares, ladderDollar)
	if !ok {
		res.Failures = append(res.Failures, domain.RunFailure{
			Category: domain.FailRiskBlocked,
			MarketID: m.ID,
			Reason:   reason,
		})
		slog.Debug("entry blocked by risk governor", "market", m.Label(), "reason", reason)
		return Position{}, 0, balance
	}

	fills, unfilled := SimulateFills(e.cs.Ladder, m.Candles, i+1, c.Timestamp, e.cs.Unfilled, e.cs.CancelAfter)
	if len(fills) == 0 {
		slog.Debug("armed entry produced no fills", "market", m.Label(), "rungs", len(e.cs.Ladder))
		return Position{}, 0, balance
	}

	entry, shares := WeightedEntry(fills)
	var cost float64
	lastIdx := 0
	for _, fl := range fills {
		value := fl.Price * float64(fl.Shares)
		cost += value
		balance -= value
		res.Trades = append(res.Trades, domain.BacktestTrade{
			Timestamp:     fl.Time,
			Side:          domain.SideBuy,
			Price:         fl.Price,
			Shares:        fl.Shares,
			Value:         value,
			Balance:       balance,
			TriggerReason: triggerReason,
		})
		if fl.CandleIdx > lastIdx {
			lastIdx = fl.CandleIdx
		}
	}
	if n := len(unfilled); n > 0 {
		slog.Debug("ladder partially filled", "market", m.Label(), "filled", len(fills), "unfilled", n)
	}

	gov.RecordEntry(c.Timestamp, shares, cost)
	*activeFrom = lastIdx + 1

	return Position{
		State:      PositionOpen,
		EntryPrice: entry,
		Shares:     shares,
		OpenedAt:   fills[0].Time,
	}, cost, balance
}

// closePosition books the closing leg and releases the exposure.
func (e *Engine) closePosition(
	pos *Position,
	exit Exit,
	entryCost float64,
	gov *Governor,
	balance float64,
	res *domain.BacktestResult,
) float64 {
	value := exit.Price * float64(pos.Shares)
	pnl := (exit.Price - pos.EntryPrice) * float64(pos.Shares)
	balance += value

	res.Trades = append(res.Trades, domain.BacktestTrade{
		Timestamp:     exit.Time,
		Side:          exit.Side,
		Price:         exit.Price,
		Shares:        pos.Shares,
		Value:         value,
		PnL:           &pnl,
		Balance:       balance,
		TriggerReason: exit.Reason,
	})

	gov.RecordExit(exit.Time, pnl, pos.Shares, entryCost)
	pos.State = PositionClosed
	return balance
}

// triggerReason names the conditions that fired, for the trade log.
func (e *Engine) triggerReason(results []bool) string {
	if len(e.cs.Conditions) == 0 {
		return "no conditions (always on)"
	}
	var fired []string
	for ci, r := range results {
		if r {
			fired = append(fired, e.cs.Conditions[ci].ID)
		}
	}
	return fmt.Sprintf("%s: %s", e.cs.Logic, strings.Join(fired, ","))
}
