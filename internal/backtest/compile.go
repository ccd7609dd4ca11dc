package backtest

// compile.go — turns a validated strategy into the form the simulation
// loop consumes. All free-form source strings are resolved here, once,
// into an indexed reference table; the integer-cents configuration
// prices cross the unit boundary to decimal [0,1] here and are never
// re-derived mid-simulation.

import (
	"fmt"
	"strings"
	"time"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
)

// price field indexes for resolved sources.
const (
	fieldIndicator = -1
	fieldOpen      = 0
	fieldHigh      = 1
	fieldLow       = 2
	fieldClose     = 3
)

// source is a resolved reference: either a raw candle field or a line of
// a declared indicator.
type source struct {
	field       int // fieldOpen..fieldClose, or fieldIndicator
	indicatorID string
	line        string
}

// CompiledCondition is one condition with its sources resolved and its
// constants unwrapped.
type CompiledCondition struct {
	ID           string
	Op           domain.Operator
	A            source
	B            source
	Value        float64
	HasB         bool
	UsesPrevious bool
}

// CompiledStrategy is the immutable snapshot a run operates on.
type CompiledStrategy struct {
	Strategy    domain.Strategy
	Ladder      []Rung
	ExitPrice   float64 // decimal, 0 = no fixed exit
	StopLossPct float64
	TakeProfitPct float64
	Unfilled    domain.UnfilledOrderBehavior
	CancelAfter time.Duration
	Conditions  []CompiledCondition
	CloseOnCondition map[int]bool // condition index → a close action listens to it
	Logic       domain.ConditionLogic
	ArmEvents   int
	Schedule    domain.Schedule
	Limits      domain.RiskLimits
	Direction   domain.Direction
}

// Compile validates the strategy and resolves it. Every configuration
// error is rejected here, before a run starts; nothing surfaces
// mid-simulation. overrideExitCents, when non-zero, replaces the
// strategy's own fixed exit price (the request-level exitPrice knob).
func Compile(s domain.Strategy, overrideExitCents int) (*CompiledStrategy, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if overrideExitCents != 0 && (overrideExitCents < 1 || overrideExitCents > 99) {
		return nil, fmt.Errorf("backtest.Compile: exit price %d¢ outside 1-99", overrideExitCents)
	}

	cs := &CompiledStrategy{
		Strategy:      s,
		StopLossPct:   s.Exit.StopLossPct,
		TakeProfitPct: s.Exit.TakeProfitPct,
		Unfilled:      s.Exit.Unfilled,
		CancelAfter:   time.Duration(s.Exit.CancelAfterSeconds) * time.Second,
		Logic:         s.ConditionLogic,
		ArmEvents:     s.TradeOnEventsCount,
		Schedule:      s.Schedule,
		Limits:        s.RiskLimits,
		Direction:     s.Direction,
		CloseOnCondition: make(map[int]bool),
	}
	if cs.Unfilled == "" {
		cs.Unfilled = domain.UnfilledKeepOpen
	}

	// Unit boundary: cents → decimal, applied exactly once.
	for _, item := range s.OrderLadder {
		cs.Ladder = append(cs.Ladder, Rung{
			Price:  domain.CentsToPrice(item.PriceCents),
			Shares: item.Shares,
		})
	}
	exitCents := s.Exit.ExitPriceCents
	if overrideExitCents != 0 {
		exitCents = overrideExitCents
	}
	if exitCents != 0 {
		cs.ExitPrice = domain.CentsToPrice(exitCents)
	}

	for _, c := range s.Conditions {
		cc := CompiledCondition{
			ID:           c.ID,
			Op:           c.Operator,
			UsesPrevious: c.Candle == domain.CandlePrevious,
		}
		var err error
		if cc.A, err = resolveSource(c.SourceA); err != nil {
			return nil, fmt.Errorf("backtest.Compile: condition %q: %w", c.ID, err)
		}
		if c.SourceB != "" {
			if cc.B, err = resolveSource(c.SourceB); err != nil {
				return nil, fmt.Errorf("backtest.Compile: condition %q: %w", c.ID, err)
			}
			cc.HasB = true
		} else {
			cc.Value = *c.Value
		}
		cs.Conditions = append(cs.Conditions, cc)
	}

	for _, a := range s.Actions {
		if a.Kind != domain.ActionClose || a.ConditionID == "" {
			continue
		}
		for i, c := range s.Conditions {
			if c.ID == a.ConditionID {
				cs.CloseOnCondition[i] = true
			}
		}
	}

	return cs, nil
}

// resolveSource parses one source reference string.
func resolveSource(ref string) (source, error) {
	switch strings.ToLower(ref) {
	case "open":
		return source{field: fieldOpen}, nil
	case "high":
		return source{field: fieldHigh}, nil
	case "low":
		return source{field: fieldLow}, nil
	case "close":
		return source{field: fieldClose}, nil
	}
	id, line, ok := domain.SplitIndicatorRef(ref)
	if !ok {
		return source{}, fmt.Errorf("malformed source %q", ref)
	}
	return source{field: fieldIndicator, indicatorID: id, line: line}, nil
}

// MarketData binds a compiled strategy to the concrete candle series and
// the eagerly computed indicator series of one run.
type MarketData struct {
	Candles []domain.Candle
	Series  map[string]domain.IndicatorSeries // indicator id → series
}

// value resolves a source at candle index i. nil means the value does
// not exist yet (indicator warmup or out-of-range index).
func (d *MarketData) value(src source, i int) *float64 {
	if i < 0 || i >= len(d.Candles) {
		return nil
	}
	if src.field != fieldIndicator {
		c := d.Candles[i]
		var v float64
		switch src.field {
		case fieldOpen:
			v = c.Open
		case fieldHigh:
			v = c.High
		case fieldLow:
			v = c.Low
		case fieldClose:
			v = c.Close
		}
		return &v
	}
	series, ok := d.Series[src.indicatorID]
	if !ok {
		return nil
	}
	line := series.Line(src.line)
	if i >= len(line) {
		return nil
	}
	return line[i]
}
