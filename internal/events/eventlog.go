// Package events provides the event log for the colony server.
// Every automatic bill placement, removal and completion is recorded here.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
)

// EventType defines the category of a colony event.
type EventType string

const (
	EventTypeColonistRegistered EventType = "COLONIST_REGISTERED"
	EventTypeColonistRemoved    EventType = "COLONIST_REMOVED"
	EventTypeFarmToggled        EventType = "FARM_TOGGLED"
	EventTypeSettingsChanged    EventType = "SETTINGS_CHANGED"
	EventTypeBillScheduled      EventType = "BILL_SCHEDULED"
	EventTypeBillCancelled      EventType = "BILL_CANCELLED"
	EventTypeBillCompleted      EventType = "BILL_COMPLETED"
	EventTypeFellAsleep         EventType = "FELL_ASLEEP"
	EventTypeWokeUp             EventType = "WOKE_UP"
	EventTypeBloodLossHealed    EventType = "BLOOD_LOSS_HEALED"
	EventTypeVitalsOverridden   EventType = "VITALS_OVERRIDDEN"
)

// System actor IDs.
const (
	ActorHemogenPolicy = "SYSTEM_HEMOGEN"
	ActorSurgery       = "SYSTEM_SURGERY"
	ActorRest          = "SYSTEM_REST"
	ActorHealth        = "SYSTEM_HEALTH"
	ActorOperator      = "OPERATOR"
)

// BillPayload is attached to bill events.
type BillPayload struct {
	ColonistID string  `json:"colonist_id"`
	BillID     string  `json:"bill_id,omitempty"`
	Kind       string  `json:"kind"`
	Removed    int     `json:"removed,omitempty"`
	Tick       int64   `json:"tick"`
	RestLevel  float64 `json:"rest_level"`
	Reason     string  `json:"reason,omitempty"`
}

// TogglePayload is attached to FARM_TOGGLED events.
type TogglePayload struct {
	ColonistID string `json:"colonist_id"`
	Enabled    bool   `json:"enabled"`
}

// SettingsPayload is attached to SETTINGS_CHANGED events.
type SettingsPayload struct {
	IgnoreRestCondition bool `json:"ignore_rest_condition"`
}

// GameEvent represents an immutable record of something that happened in the colony.
type GameEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`  // Who performed the action
	TargetID  string      `json:"target_id"` // Who was affected (optional)
	Payload   interface{} `json:"payload"`   // Event-specific data
	Tick      int64       `json:"tick"`
	GameDay   int         `json:"game_day"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the in-memory append-only log of colony events.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	persister EventPersister
	logger    *logger.Logger
	wg        sync.WaitGroup
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
		logger:    logger.NewNop(),
	}
}

// WithLogger sets where failed persister writes are reported.
func (el *EventLog) WithLogger(l *logger.Logger) *EventLog {
	el.logger = l
	return el
}

// Append adds a new event to the log. Events are immutable once appended.
// Missing IDs and timestamps are filled in.
func (el *EventLog) Append(event GameEvent) GameEvent {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	el.mu.Unlock()

	if el.persister != nil {
		// Write through off the tick path.
		el.wg.Add(1)
		go func(e GameEvent) {
			defer el.wg.Done()
			if err := el.persister.Append(e); err != nil {
				el.logger.Warn("event persist failed",
					zap.String("event_id", e.ID),
					zap.String("type", string(e.Type)),
					zap.Error(err))
			}
		}(event)
	}
	return event
}

// Flush waits for pending persister writes.
func (el *EventLog) Flush() {
	el.wg.Wait()
}

// Len returns the number of events in the log.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// GetByActor returns all events performed by a specific actor.
func (el *EventLog) GetByActor(actorID string) []GameEvent {
	return el.filter(func(e GameEvent) bool { return e.ActorID == actorID })
}

// GetByTarget returns all events that affected a specific colonist.
func (el *EventLog) GetByTarget(targetID string) []GameEvent {
	return el.filter(func(e GameEvent) bool { return e.TargetID == targetID })
}

// GetByDay returns all events that occurred on a specific game day.
func (el *EventLog) GetByDay(day int) []GameEvent {
	return el.filter(func(e GameEvent) bool { return e.GameDay == day })
}

// GetByType returns all events of one type.
func (el *EventLog) GetByType(t EventType) []GameEvent {
	return el.filter(func(e GameEvent) bool { return e.Type == t })
}

// Replay returns a copy of the full history.
func (el *EventLog) Replay() []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	out := make([]GameEvent, len(el.events))
	copy(out, el.events)
	return out
}

// Since returns the events appended after the first n.
func (el *EventLog) Since(n int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	if n >= len(el.events) {
		return nil
	}
	out := make([]GameEvent, len(el.events)-n)
	copy(out, el.events[n:])
	return out
}

func (el *EventLog) filter(keep func(GameEvent) bool) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if keep(e) {
			result = append(result, e)
		}
	}
	return result
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
