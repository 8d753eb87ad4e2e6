package engine

import (
	"github.com/MRamiBalles/HemogenFarm/internal/domain/colonist"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/rules"
	"github.com/MRamiBalles/HemogenFarm/internal/events"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
)

// Rest rates. A colonist awake from 06:00 to 22:00 drops from full to 0.30,
// and a night's sleep brings them back.
const (
	RestFallPerTick   = 0.70 / (16 * TicksPerHour)
	RestGainPerTick   = 0.70 / (8 * TicksPerHour)
	CollapseRestLevel = 0.15 // Falls asleep anywhere below this
	WakeRestLevel     = 0.60 // May get up in daytime once above this
)

// RestSystem moves colonists between awake and asleep and updates their rest need.
type RestSystem struct {
	eventLog  *events.EventLog
	logger    *logger.Logger
	colonists map[string]*colonist.Colonist
}

// NewRestSystem creates a new rest manager.
func NewRestSystem(eventLog *events.EventLog, log *logger.Logger) *RestSystem {
	return &RestSystem{
		eventLog:  eventLog,
		logger:    log,
		colonists: make(map[string]*colonist.Colonist),
	}
}

// RegisterColonist adds a colonist to be tracked.
func (rs *RestSystem) RegisterColonist(c *colonist.Colonist) {
	rs.colonists[c.ID] = c
}

func (rs *RestSystem) UnregisterColonist(id string) {
	delete(rs.colonists, id)
}

// OnTimeTick advances every colonist's rest by one tick.
func (rs *RestSystem) OnTimeTick(clock TimeTickPayload) {
	for _, c := range rs.colonists {
		if c.Rest == nil || !c.Spawned {
			continue
		}
		rest := c.Rest

		wasAsleep := rest.Asleep
		rest.Asleep = shouldSleep(rest, clock.IsNightTime)
		if rest.Asleep != wasAsleep {
			rs.emitSleepChange(c, clock)
		}

		if rest.Asleep {
			rest.Level += RestGainPerTick
			if rest.Level >= 1.0 {
				rest.Level = 1.0
				rest.Trend = rules.TrendFlat
			} else {
				rest.Trend = rules.TrendImproving
			}
			continue
		}

		rest.Level -= RestFallPerTick
		if rest.Level <= 0 {
			rest.Level = 0
			rest.Trend = rules.TrendFlat
		} else {
			rest.Trend = rules.TrendDeclining
		}
	}
}

// shouldSleep decides whether a colonist is in bed this tick.
func shouldSleep(rest *colonist.RestNeed, night bool) bool {
	if rest.Level < CollapseRestLevel {
		return true
	}
	if rest.Asleep {
		// Stay in bed until full, or until morning once reasonably rested.
		if rest.Level >= 1.0 {
			return false
		}
		return night || rest.Level < WakeRestLevel
	}
	return night && rest.Level < 1.0
}

func (rs *RestSystem) emitSleepChange(c *colonist.Colonist, clock TimeTickPayload) {
	eventType := events.EventTypeWokeUp
	if c.Rest.Asleep {
		eventType = events.EventTypeFellAsleep
	}
	rs.eventLog.Append(events.GameEvent{
		Type:     eventType,
		ActorID:  events.ActorRest,
		TargetID: c.ID,
		Payload:  map[string]float64{"rest_level": c.Rest.Level},
		Tick:     clock.TickNumber,
		GameDay:  clock.GameDay,
	})
}
