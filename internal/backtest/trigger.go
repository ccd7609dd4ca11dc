package backtest

// trigger.go — the ALL/ANY aggregate and the N-event arming window,
// modeled as a small explicit state machine: Idle → Armed(remaining) →
// Idle. The engine calls Observe per candle and EndEvent at each market
// instance boundary.

import "github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"

// Trigger combines condition results and tracks entry eligibility
// across market instances.
type Trigger struct {
	logic     domain.ConditionLogic
	armEvents int
	remaining int // market instances still armed, counting the current one
}

// NewTrigger builds the aggregator. armEvents is tradeOnEventsCount:
// a true aggregate arms the current instance plus the next armEvents-1.
func NewTrigger(logic domain.ConditionLogic, armEvents int) *Trigger {
	if armEvents < 1 {
		armEvents = 1
	}
	return &Trigger{logic: logic, armEvents: armEvents}
}

// Aggregate folds condition results: ALL is a logical AND (vacuously
// true with zero conditions — a condition-less strategy trades every
// instance), ANY a logical OR.
func (t *Trigger) Aggregate(results []bool) bool {
	if t.logic == domain.LogicAny {
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	}
	for _, r := range results {
		if !r {
			return false
		}
	}
	return true
}

// Observe feeds one candle's condition results into the state machine.
// A true aggregate refreshes the arming window to the full armEvents;
// re-triggering while already armed extends, never stacks.
func (t *Trigger) Observe(results []bool) bool {
	agg := t.Aggregate(results)
	if agg {
		t.remaining = t.armEvents
	}
	return agg
}

// Armed reports whether entry is eligible for the current market instance.
func (t *Trigger) Armed() bool {
	return t.remaining > 0
}

// EndEvent consumes one market instance from the arming window. Called
// once per instance boundary, armed or not.
func (t *Trigger) EndEvent() {
	if t.remaining > 0 {
		t.remaining--
	}
}
