package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/MRamiBalles/HemogenFarm/internal/domain/bill"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/colonist"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/farm"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/rules"
	"github.com/MRamiBalles/HemogenFarm/internal/events"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
)

type staticSettings rules.Settings

func (s staticSettings) Current() rules.Settings { return rules.Settings(s) }

func newTestEngine(t *testing.T, settings rules.Settings) (*Engine, *events.EventLog) {
	t.Helper()
	el := events.NewEventLog(nil)
	e := NewEngine(el, staticSettings(settings), logger.NewTestLogger(t), Options{BiotechActive: true})
	return e, el
}

// awakeColonist starts day one fully rested, as a fresh colonist would.
func awakeColonist(id string) *colonist.Colonist {
	c := colonist.NewColonist(id, "Colonist "+id, colonist.FactionColony)
	c.Rest = &colonist.RestNeed{Level: 1.0, Trend: rules.TrendFlat}
	return c
}

func countType(el *events.EventLog, t events.EventType) int {
	return len(el.GetByType(t))
}

func TestClockAt(t *testing.T) {
	tests := []struct {
		tick  int64
		day   int
		hour  int
		night bool
	}{
		{0, 1, 6, false},
		{TicksPerHour * 15, 1, 21, false},
		{TicksPerHour * 16, 1, 22, true},
		{TicksPerHour * 18, 2, 0, true},
		{TicksPerHour * 23, 2, 5, true},
		{TicksPerDay, 2, 6, false},
	}
	for _, tt := range tests {
		clock := ClockAt(tt.tick)
		assert.Equal(t, tt.day, clock.GameDay, "tick %d", tt.tick)
		assert.Equal(t, tt.hour, clock.GameHour, "tick %d", tt.tick)
		assert.Equal(t, tt.night, clock.IsNightTime, "tick %d", tt.tick)
	}
}

func TestEngineFullNightExtractsOnce(t *testing.T) {
	e, el := newTestEngine(t, rules.Settings{})
	c := awakeColonist("C1")
	c.Farm.SetEnabled(true)
	e.RegisterColonist(c)

	e.Run(TicksPerDay)

	assert.Equal(t, 1, countType(el, events.EventTypeFellAsleep))
	assert.Equal(t, 1, countType(el, events.EventTypeBillScheduled))
	assert.Equal(t, 1, countType(el, events.EventTypeBillCompleted))
	assert.Equal(t, 0, countType(el, events.EventTypeBillCancelled))

	scheduled := el.GetByType(events.EventTypeBillScheduled)[0]
	assert.Equal(t, int64(0), scheduled.Tick%rules.EvaluationInterval)

	status, err := e.Colonist("C1")
	require.NoError(t, err)
	assert.Empty(t, status.Bills)
	assert.Greater(t, status.BloodLoss, 0.0)
	assert.Equal(t, int64(TicksPerDay), e.CurrentTick())
}

func TestEngineNeverHoldsTwoBills(t *testing.T) {
	e, _ := newTestEngine(t, rules.Settings{IgnoreRestCondition: true})
	c := awakeColonist("C1")
	c.Farm.SetEnabled(true)
	e.RegisterColonist(c)

	for i := 0; i < 3*TicksPerDay/rules.EvaluationInterval; i++ {
		e.Run(rules.EvaluationInterval)
		status, err := e.Colonist("C1")
		require.NoError(t, err)
		require.LessOrEqual(t, len(status.Bills), 1, "tick %d", e.CurrentTick())
	}
}

func TestEngineCancelsOnLowConsciousness(t *testing.T) {
	e, el := newTestEngine(t, rules.Settings{})
	c := awakeColonist("C1")
	c.Farm.SetEnabled(true)
	e.RegisterColonist(c)

	e.Run(40500)
	require.Equal(t, 1, countType(el, events.EventTypeBillScheduled))

	low := 0.30
	require.NoError(t, e.OverrideVitals("C1", Vitals{Consciousness: &low}))
	e.Run(rules.EvaluationInterval)

	cancelled := el.GetByType(events.EventTypeBillCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "LOW_CONSCIOUSNESS", cancelled[0].Payload.(events.BillPayload).Reason)

	status, _ := e.Colonist("C1")
	assert.Empty(t, status.Bills)
}

func TestEngineCancelsOnceRested(t *testing.T) {
	e, el := newTestEngine(t, rules.Settings{})
	c := awakeColonist("C1")
	c.Farm.SetEnabled(true)
	e.RegisterColonist(c)

	e.Run(40500)
	rested := 0.70
	require.NoError(t, e.OverrideVitals("C1", Vitals{RestLevel: &rested}))
	e.Run(rules.EvaluationInterval)

	cancelled := el.GetByType(events.EventTypeBillCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "RESTED", cancelled[0].Payload.(events.BillPayload).Reason)
}

func TestEngineDisabledColonistIsIgnored(t *testing.T) {
	e, el := newTestEngine(t, rules.Settings{})
	e.RegisterColonist(awakeColonist("C1"))

	_, err := e.AddManualBill("C1", bill.KindExtractHemogen)
	require.NoError(t, err)

	e.Run(TicksPerDay)

	assert.Equal(t, 0, countType(el, events.EventTypeBillScheduled))
	assert.Equal(t, 0, countType(el, events.EventTypeBillCancelled))
}

func TestEngineToggleAndGizmo(t *testing.T) {
	e, el := newTestEngine(t, rules.Settings{})
	e.RegisterColonist(awakeColonist("C1"))

	g, err := e.Gizmo("C1")
	require.NoError(t, err)
	assert.True(t, g.Visible)
	assert.False(t, g.Active)
	assert.Equal(t, farm.GizmoLabel, g.Label)

	enabled, err := e.ToggleFarm("C1")
	require.NoError(t, err)
	assert.True(t, enabled)

	g, _ = e.Gizmo("C1")
	assert.True(t, g.Active)
	assert.Equal(t, 1, countType(el, events.EventTypeFarmToggled))

	_, err = e.ToggleFarm("nobody")
	assert.ErrorIs(t, err, ErrColonistNotFound)
}

func TestEngineGizmoHiddenForGuestsAndHemogenic(t *testing.T) {
	e, _ := newTestEngine(t, rules.Settings{})

	guest := awakeColonist("G1")
	guest.Faction = colonist.FactionGuest
	e.RegisterColonist(guest)

	sanguophage := awakeColonist("S1")
	sanguophage.Genes = []string{colonist.GeneHemogenic}
	e.RegisterColonist(sanguophage)

	prisoner := awakeColonist("P1")
	prisoner.Faction = colonist.FactionPrisoner
	e.RegisterColonist(prisoner)

	for id, visible := range map[string]bool{"G1": false, "S1": false, "P1": true} {
		g, err := e.Gizmo(id)
		require.NoError(t, err)
		assert.Equal(t, visible, g.Visible, id)
	}
}

func TestEngineCompleteBill(t *testing.T) {
	e, el := newTestEngine(t, rules.Settings{})
	e.RegisterColonist(awakeColonist("C1"))

	assert.ErrorIs(t, e.CompleteBill("C1"), ErrNoPendingBill)

	_, err := e.AddManualBill("C1", bill.KindExtractHemogen)
	require.NoError(t, err)
	_, err = e.AddManualBill("C1", bill.KindExtractHemogen)
	assert.ErrorIs(t, err, bill.ErrDuplicateBill)

	require.NoError(t, e.CompleteBill("C1"))
	status, _ := e.Colonist("C1")
	assert.Empty(t, status.Bills)
	assert.InDelta(t, 0.45, status.BloodLoss, 1e-9)
	assert.InDelta(t, 0.55, status.Consciousness, 1e-9)
	assert.Equal(t, 1, countType(el, events.EventTypeBillCompleted))
}

func TestEngineRemoveColonist(t *testing.T) {
	e, _ := newTestEngine(t, rules.Settings{})
	e.RegisterColonist(awakeColonist("C1"))

	require.NoError(t, e.RemoveColonist("C1"))
	assert.ErrorIs(t, e.RemoveColonist("C1"), ErrColonistNotFound)
	assert.Empty(t, e.Colonists())
}

func TestTickerStopsWithoutLeaking(t *testing.T) {
	defer goleak.VerifyNone(t)

	var steps atomic.Int64
	tk := NewTicker(time.Millisecond, func(int64) { steps.Add(1) }, logger.NewNop())
	tk.SetTick(100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tk.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return steps.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.GreaterOrEqual(t, tk.CurrentTick(), int64(103))
	tk.Stop()
	tk.Stop()
}
