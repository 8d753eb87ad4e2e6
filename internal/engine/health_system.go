package engine

import (
	"github.com/MRamiBalles/HemogenFarm/internal/domain/colonist"
	"github.com/MRamiBalles/HemogenFarm/internal/events"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
)

// BloodLossHealPerTick heals a full extraction (0.45) in a little under half a day.
const BloodLossHealPerTick = 1.0 / TicksPerDay

// HealthSystem heals blood loss and derives consciousness from it.
type HealthSystem struct {
	eventLog  *events.EventLog
	logger    *logger.Logger
	colonists map[string]*colonist.Colonist
}

// NewHealthSystem creates a new health manager.
func NewHealthSystem(eventLog *events.EventLog, log *logger.Logger) *HealthSystem {
	return &HealthSystem{
		eventLog:  eventLog,
		logger:    log,
		colonists: make(map[string]*colonist.Colonist),
	}
}

// RegisterColonist adds a colonist to be tracked.
func (hs *HealthSystem) RegisterColonist(c *colonist.Colonist) {
	hs.colonists[c.ID] = c
}

func (hs *HealthSystem) UnregisterColonist(id string) {
	delete(hs.colonists, id)
}

// OnTimeTick heals one tick of blood loss and refreshes consciousness.
func (hs *HealthSystem) OnTimeTick(clock TimeTickPayload) {
	for _, c := range hs.colonists {
		if c.HasHediff(colonist.HediffBloodLoss) {
			c.HealHediff(colonist.HediffBloodLoss, BloodLossHealPerTick)
			if !c.HasHediff(colonist.HediffBloodLoss) {
				hs.eventLog.Append(events.GameEvent{
					Type:     events.EventTypeBloodLossHealed,
					ActorID:  events.ActorHealth,
					TargetID: c.ID,
					Tick:     clock.TickNumber,
					GameDay:  clock.GameDay,
				})
			}
		}
		c.Consciousness = consciousnessOf(c)
	}
}

// consciousnessOf is 1.0 minus blood loss severity unless an operator pinned it.
func consciousnessOf(c *colonist.Colonist) float64 {
	if c.ConsciousnessOverride != nil {
		return *c.ConsciousnessOverride
	}
	level := 1.0 - c.Hediffs[colonist.HediffBloodLoss]
	if level < 0 {
		level = 0
	}
	return level
}
