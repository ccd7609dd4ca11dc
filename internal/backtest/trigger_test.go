package backtest

import (
	"testing"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAggregate_All(t *testing.T) {
	trig := NewTrigger(domain.LogicAll, 1)
	assert.True(t, trig.Aggregate([]bool{true, true, true}))
	assert.False(t, trig.Aggregate([]bool{true, false, true}))
	assert.False(t, trig.Aggregate([]bool{false, false}))
	assert.True(t, trig.Aggregate(nil), "ALL over zero conditions is vacuously true")
}

func TestAggregate_Any(t *testing.T) {
	trig := NewTrigger(domain.LogicAny, 1)
	assert.True(t, trig.Aggregate([]bool{false, true, false}))
	assert.True(t, trig.Aggregate([]bool{true, true}))
	assert.False(t, trig.Aggregate([]bool{false, false}))
	assert.False(t, trig.Aggregate(nil))
}

func TestTrigger_SingleEventWindow(t *testing.T) {
	trig := NewTrigger(domain.LogicAll, 1)
	assert.False(t, trig.Armed())

	trig.Observe([]bool{true})
	assert.True(t, trig.Armed())

	trig.EndEvent()
	assert.False(t, trig.Armed(), "window of 1 covers only the current instance")
}

func TestTrigger_MultiEventWindow(t *testing.T) {
	trig := NewTrigger(domain.LogicAll, 3)
	trig.Observe([]bool{true})

	// current + 2 subsequent instances
	assert.True(t, trig.Armed())
	trig.EndEvent()
	assert.True(t, trig.Armed())
	trig.EndEvent()
	assert.True(t, trig.Armed())
	trig.EndEvent()
	assert.False(t, trig.Armed())
}

func TestTrigger_RetriggerRefreshesNotStacks(t *testing.T) {
	trig := NewTrigger(domain.LogicAll, 2)
	trig.Observe([]bool{true})
	trig.EndEvent() // 1 remaining

	trig.Observe([]bool{true}) // refresh back to 2, not 1+2
	trig.EndEvent()
	assert.True(t, trig.Armed())
	trig.EndEvent()
	assert.False(t, trig.Armed())
}

func TestTrigger_FalseObserveDoesNotArm(t *testing.T) {
	trig := NewTrigger(domain.LogicAny, 5)
	assert.False(t, trig.Observe([]bool{false, false}))
	assert.False(t, trig.Armed())
}
