// Package rules contains the pure calculation logic for colony mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

// EvaluationInterval is how often (in ticks) the hemogen policy samples a colonist.
const EvaluationInterval = 750

// Fixed thresholds for the hemogen policy.
const (
	ScheduleRestMax  = 0.40 // Rest must be at or below this to place a bill
	CancelRestMin    = 0.60 // A bill still pending at this rest is pulled
	MinConsciousness = 0.41 // Strictly above this to be eligible
)

// Trend is the direction a need is currently moving in.
type Trend int

const (
	TrendDeclining Trend = -1
	TrendFlat      Trend = 0
	TrendImproving Trend = 1
)

func (t Trend) String() string {
	switch t {
	case TrendImproving:
		return "improving"
	case TrendDeclining:
		return "declining"
	default:
		return "flat"
	}
}

// Action is the outcome of a policy evaluation.
type Action int

const (
	ActionNone Action = iota
	ActionSchedule
	ActionCancel
)

func (a Action) String() string {
	switch a {
	case ActionSchedule:
		return "SCHEDULE"
	case ActionCancel:
		return "CANCEL"
	default:
		return "NONE"
	}
}

// Settings holds the colony-wide policy options.
type Settings struct {
	IgnoreRestCondition bool `json:"ignore_rest_condition"`
}

// Snapshot is the read-only view of a colonist the policy decides on.
type Snapshot struct {
	// HasRestNeed is false for colonists that have no rest need at all.
	HasRestNeed    bool    `json:"has_rest_need"`
	RestLevel      float64 `json:"rest_level"`
	RestTrend      Trend   `json:"rest_trend"`
	HasBloodLoss   bool    `json:"has_blood_loss"`
	Consciousness  float64 `json:"consciousness"`
	HasBillStack   bool    `json:"has_bill_stack"`
	HasPendingBill bool    `json:"has_pending_bill"`
	BillAvailable  bool    `json:"bill_available"`
}

// ShouldEvaluate reports whether the policy runs for a colonist on this tick.
func ShouldEvaluate(tick int64, enabled, featureActive, spawned bool) bool {
	return enabled && featureActive && spawned && tick%EvaluationInterval == 0
}

// Decide runs the schedule guard, then the cancel guard.
// A state that satisfies neither is left alone.
func Decide(s Snapshot, settings Settings) Action {
	if canSchedule(s, settings) {
		return ActionSchedule
	}
	if mustCancel(s, settings) {
		return ActionCancel
	}
	return ActionNone
}

// Evaluate gates Decide behind ShouldEvaluate.
func Evaluate(tick int64, enabled, featureActive, spawned bool, s Snapshot, settings Settings) Action {
	if !ShouldEvaluate(tick, enabled, featureActive, spawned) {
		return ActionNone
	}
	return Decide(s, settings)
}

func canSchedule(s Snapshot, settings Settings) bool {
	return s.HasRestNeed &&
		(s.RestLevel <= ScheduleRestMax || settings.IgnoreRestCondition) &&
		s.RestTrend == TrendImproving &&
		!s.HasBloodLoss &&
		s.Consciousness > MinConsciousness &&
		s.HasBillStack &&
		!s.HasPendingBill &&
		s.BillAvailable
}

func mustCancel(s Snapshot, settings Settings) bool {
	if s.HasBloodLoss || s.Consciousness <= MinConsciousness {
		return true
	}
	if !s.HasRestNeed {
		return false
	}
	return s.RestTrend != TrendImproving ||
		(s.RestLevel >= CancelRestMin && !settings.IgnoreRestCondition)
}
