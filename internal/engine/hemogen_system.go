package engine

import (
	"errors"

	"go.uber.org/zap"

	"github.com/MRamiBalles/HemogenFarm/internal/domain/bill"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/colonist"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/rules"
	"github.com/MRamiBalles/HemogenFarm/internal/events"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/metrics"
)

// HemogenSystem places and pulls Extract Hemogen bills for colonists that
// have automatic farming enabled.
type HemogenSystem struct {
	eventLog      *events.EventLog
	logger        *logger.Logger
	metrics       *metrics.Collector
	featureActive bool
	colonists     map[string]*colonist.Colonist
}

// NewHemogenSystem creates the policy system. featureActive is the host flag
// that must be on for any automatic extraction to happen.
func NewHemogenSystem(eventLog *events.EventLog, log *logger.Logger, m *metrics.Collector, featureActive bool) *HemogenSystem {
	return &HemogenSystem{
		eventLog:      eventLog,
		logger:        log,
		metrics:       m,
		featureActive: featureActive,
		colonists:     make(map[string]*colonist.Colonist),
	}
}

// RegisterColonist adds a colonist to be tracked.
func (hs *HemogenSystem) RegisterColonist(c *colonist.Colonist) {
	hs.colonists[c.ID] = c
}

func (hs *HemogenSystem) UnregisterColonist(id string) {
	delete(hs.colonists, id)
}

// OnTimeTick evaluates the policy for every tracked colonist.
func (hs *HemogenSystem) OnTimeTick(clock TimeTickPayload, settings rules.Settings) {
	for _, c := range hs.colonists {
		if !rules.ShouldEvaluate(clock.TickNumber, c.Farm.Enabled(), hs.featureActive, c.Spawned) {
			continue
		}
		hs.metrics.RecordEvaluation()

		snap := c.Snapshot(bill.KindExtractHemogen)
		switch rules.Decide(snap, settings) {
		case rules.ActionSchedule:
			hs.schedule(c, clock, snap)
		case rules.ActionCancel:
			hs.cancel(c, clock, snap)
		}
	}
}

// schedule queues the bill without notifying the player.
func (hs *HemogenSystem) schedule(c *colonist.Colonist, clock TimeTickPayload, snap rules.Snapshot) {
	b, err := c.Bills.Insert(bill.KindExtractHemogen, clock.TickNumber, true)
	if errors.Is(err, bill.ErrDuplicateBill) {
		return
	}

	hs.metrics.RecordBillScheduled()
	hs.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeBillScheduled,
		ActorID:  events.ActorHemogenPolicy,
		TargetID: c.ID,
		Payload: events.BillPayload{
			ColonistID: c.ID,
			BillID:     b.ID,
			Kind:       string(b.Kind),
			Tick:       clock.TickNumber,
			RestLevel:  snap.RestLevel,
		},
		Tick:    clock.TickNumber,
		GameDay: clock.GameDay,
	})
	hs.logger.Debug("extract hemogen bill placed",
		zap.String("colonist", c.ID),
		zap.Int64("tick", clock.TickNumber),
		zap.Float64("rest", snap.RestLevel))
}

// cancel removes every Extract Hemogen bill. Nothing to remove is fine.
func (hs *HemogenSystem) cancel(c *colonist.Colonist, clock TimeTickPayload, snap rules.Snapshot) {
	if c.Bills == nil {
		return
	}
	removed := c.Bills.RemoveAll(bill.KindExtractHemogen)
	if removed == 0 {
		return
	}

	reason := cancelReason(snap)
	hs.metrics.RecordBillCancelled(removed)
	hs.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeBillCancelled,
		ActorID:  events.ActorHemogenPolicy,
		TargetID: c.ID,
		Payload: events.BillPayload{
			ColonistID: c.ID,
			Kind:       string(bill.KindExtractHemogen),
			Removed:    removed,
			Tick:       clock.TickNumber,
			RestLevel:  snap.RestLevel,
			Reason:     reason,
		},
		Tick:    clock.TickNumber,
		GameDay: clock.GameDay,
	})
	hs.logger.Event(string(events.EventTypeBillCancelled), c.ID, reason, zap.Int("removed", removed))
}

func cancelReason(s rules.Snapshot) string {
	switch {
	case s.HasBloodLoss:
		return "BLOOD_LOSS"
	case s.Consciousness <= rules.MinConsciousness:
		return "LOW_CONSCIOUSNESS"
	case s.RestTrend != rules.TrendImproving:
		return "NOT_RESTING"
	default:
		return "RESTED"
	}
}
