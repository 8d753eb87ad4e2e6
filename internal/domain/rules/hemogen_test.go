package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// eligible returns a snapshot that satisfies every schedule condition.
func eligible() Snapshot {
	return Snapshot{
		HasRestNeed:   true,
		RestLevel:     0.30,
		RestTrend:     TrendImproving,
		Consciousness: 0.9,
		HasBillStack:  true,
		BillAvailable: true,
	}
}

func TestDecideSchedulesWhenEligible(t *testing.T) {
	assert.Equal(t, ActionSchedule, Decide(eligible(), Settings{}))
}

func TestDecideScheduleGuards(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Snapshot)
		want   Action
	}{
		{"rest at lower bound", func(s *Snapshot) { s.RestLevel = 0.40 }, ActionSchedule},
		{"rest between bounds", func(s *Snapshot) { s.RestLevel = 0.50 }, ActionNone},
		{"rest declining", func(s *Snapshot) { s.RestTrend = TrendDeclining }, ActionCancel},
		{"rest flat", func(s *Snapshot) { s.RestTrend = TrendFlat }, ActionCancel},
		{"blood loss", func(s *Snapshot) { s.HasBloodLoss = true }, ActionCancel},
		{"consciousness at threshold", func(s *Snapshot) { s.Consciousness = 0.41 }, ActionCancel},
		{"already pending", func(s *Snapshot) { s.HasPendingBill = true }, ActionNone},
		{"recipe unavailable", func(s *Snapshot) { s.BillAvailable = false }, ActionNone},
		{"no bill stack", func(s *Snapshot) { s.HasBillStack = false }, ActionNone},
		{"no rest need", func(s *Snapshot) { s.HasRestNeed = false }, ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := eligible()
			tt.mutate(&s)
			assert.Equal(t, tt.want, Decide(s, Settings{}))
		})
	}
}

func TestDecideBloodLossAlwaysCancels(t *testing.T) {
	for _, ignore := range []bool{false, true} {
		for _, trend := range []Trend{TrendDeclining, TrendFlat, TrendImproving} {
			for _, rest := range []float64{0.0, 0.3, 0.5, 0.7, 1.0} {
				s := Snapshot{
					HasRestNeed:    true,
					RestLevel:      rest,
					RestTrend:      trend,
					HasBloodLoss:   true,
					Consciousness:  0.9,
					HasBillStack:   true,
					HasPendingBill: true,
					BillAvailable:  true,
				}
				assert.Equal(t, ActionCancel, Decide(s, Settings{IgnoreRestCondition: ignore}),
					"rest=%.2f trend=%s ignore=%v", rest, trend, ignore)
			}
		}
	}
}

func TestDecideIgnoreRestCondition(t *testing.T) {
	settings := Settings{IgnoreRestCondition: true}

	// Lower bound is bypassed.
	s := eligible()
	s.RestLevel = 0.75
	assert.Equal(t, ActionSchedule, Decide(s, settings))

	// Upper bound cancel is bypassed too.
	s.RestLevel = 0.65
	s.HasPendingBill = true
	assert.Equal(t, ActionNone, Decide(s, settings))

	// Without the flag the same pending bill is pulled.
	assert.Equal(t, ActionCancel, Decide(s, Settings{}))
}

func TestDecideLeavesPendingBillBetweenBounds(t *testing.T) {
	s := eligible()
	s.RestLevel = 0.55
	s.HasPendingBill = true

	assert.Equal(t, ActionNone, Decide(s, Settings{}))
}

func TestDecideUnavailableRecipeDoesNotCancel(t *testing.T) {
	s := eligible()
	s.BillAvailable = false

	assert.Equal(t, ActionNone, Decide(s, Settings{}))
}

func TestEvaluateOnlyOnInterval(t *testing.T) {
	s := eligible()

	assert.Equal(t, ActionSchedule, Evaluate(0, true, true, true, s, Settings{}))
	assert.Equal(t, ActionSchedule, Evaluate(1500, true, true, true, s, Settings{}))

	for _, tick := range []int64{1, 749, 751, 1499} {
		assert.Equal(t, ActionNone, Evaluate(tick, true, true, true, s, Settings{}), "tick %d", tick)
	}
}

func TestEvaluateRequiresGates(t *testing.T) {
	s := eligible()
	s.HasBloodLoss = true // would cancel

	assert.Equal(t, ActionNone, Evaluate(750, false, true, true, s, Settings{}), "disabled")
	assert.Equal(t, ActionNone, Evaluate(750, true, false, true, s, Settings{}), "feature off")
	assert.Equal(t, ActionNone, Evaluate(750, true, true, false, s, Settings{}), "not spawned")
	assert.Equal(t, ActionCancel, Evaluate(750, true, true, true, s, Settings{}))
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "SCHEDULE", ActionSchedule.String())
	assert.Equal(t, "CANCEL", ActionCancel.String())
	assert.Equal(t, "NONE", ActionNone.String())
}
