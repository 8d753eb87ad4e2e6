package engine

import (
	"errors"

	"go.uber.org/zap"

	"github.com/MRamiBalles/HemogenFarm/internal/domain/bill"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/colonist"
	"github.com/MRamiBalles/HemogenFarm/internal/events"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/metrics"
)

// ErrNoPendingBill is returned when completing a surgery that was never queued.
var ErrNoPendingBill = errors.New("no pending extract hemogen bill")

// SurgerySystem performs queued bills on sleeping patients, oldest first and
// one per patient per tick. For Extract Hemogen bills, completion is the only
// way a bill leaves the stack besides the policy's cancel.
type SurgerySystem struct {
	eventLog  *events.EventLog
	logger    *logger.Logger
	metrics   *metrics.Collector
	colonists map[string]*colonist.Colonist
}

// NewSurgerySystem creates a new surgery manager.
func NewSurgerySystem(eventLog *events.EventLog, log *logger.Logger, m *metrics.Collector) *SurgerySystem {
	return &SurgerySystem{
		eventLog:  eventLog,
		logger:    log,
		metrics:   m,
		colonists: make(map[string]*colonist.Colonist),
	}
}

// RegisterColonist adds a colonist to be tracked.
func (ss *SurgerySystem) RegisterColonist(c *colonist.Colonist) {
	ss.colonists[c.ID] = c
}

func (ss *SurgerySystem) UnregisterColonist(id string) {
	delete(ss.colonists, id)
}

// OnTimeTick completes the oldest bill whose patient has been asleep long enough.
func (ss *SurgerySystem) OnTimeTick(clock TimeTickPayload) {
	for _, c := range ss.colonists {
		if c.Bills == nil || !c.Spawned || c.Rest == nil || !c.Rest.Asleep {
			continue
		}
		for _, b := range c.Bills.Bills() {
			recipe, ok := bill.GetRecipe(b.Kind)
			if !ok || clock.TickNumber-b.PlacedTick < recipe.WorkTicks {
				continue
			}
			ss.perform(c, b, clock)
			break
		}
	}
}

// Complete performs the pending Extract Hemogen bill right away.
func (ss *SurgerySystem) Complete(c *colonist.Colonist, clock TimeTickPayload) error {
	if c.Bills == nil {
		return ErrNoPendingBill
	}
	b := c.Bills.First(bill.KindExtractHemogen)
	if b == nil {
		return ErrNoPendingBill
	}
	ss.perform(c, *b, clock)
	return nil
}

func (ss *SurgerySystem) perform(c *colonist.Colonist, b bill.Bill, clock TimeTickPayload) {
	recipe, _ := bill.GetRecipe(b.Kind)
	c.Bills.Remove(b.ID)

	hadBloodLoss := c.HasHediff(colonist.HediffBloodLoss)
	if recipe.BloodLossSeverity > 0 {
		c.AddHediff(colonist.HediffBloodLoss, recipe.BloodLossSeverity)
	}
	if recipe.BloodLossHeal > 0 {
		c.HealHediff(colonist.HediffBloodLoss, recipe.BloodLossHeal)
	}

	var restLevel float64
	if c.Rest != nil {
		restLevel = c.Rest.Level
	}

	if b.Kind == bill.KindExtractHemogen {
		ss.metrics.RecordBillCompleted()
	}
	ss.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeBillCompleted,
		ActorID:  events.ActorSurgery,
		TargetID: c.ID,
		Payload: events.BillPayload{
			ColonistID: c.ID,
			BillID:     b.ID,
			Kind:       string(b.Kind),
			Tick:       clock.TickNumber,
			RestLevel:  restLevel,
		},
		Tick:    clock.TickNumber,
		GameDay: clock.GameDay,
	})
	if hadBloodLoss && !c.HasHediff(colonist.HediffBloodLoss) {
		ss.eventLog.Append(events.GameEvent{
			Type:     events.EventTypeBloodLossHealed,
			ActorID:  events.ActorSurgery,
			TargetID: c.ID,
			Tick:     clock.TickNumber,
			GameDay:  clock.GameDay,
		})
	}
	ss.logger.Event(string(events.EventTypeBillCompleted), c.ID, recipe.Label, zap.Float64("blood_loss", c.Hediffs[colonist.HediffBloodLoss]))
}
