// Package storage provides the persistence layer for the colony server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"time"
)

// Persisted setting keys.
const (
	KeyShouldFarmHemogen   = "shouldFarmHemogen"
	KeyIgnoreRestCondition = "ignoreRestCondition"
)

// Event mirrors the colony event structure for persistence.
// The domain package should NOT import this; use interfaces instead.
type Event struct {
	ID        string                 `json:"id" db:"id"`
	ColonyID  string                 `json:"colony_id" db:"colony_id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	TargetID  string                 `json:"target_id" db:"target_id"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
	Tick      int64                  `json:"tick" db:"tick"`
	GameDay   int                    `json:"game_day" db:"game_day"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event Event) error

	// GetByColonyID retrieves all events for a colony, oldest first.
	GetByColonyID(ctx context.Context, colonyID string) ([]Event, error)

	// GetByTargetID retrieves all events that affected one colonist.
	GetByTargetID(ctx context.Context, colonyID, targetID string) ([]Event, error)

	// GetByGameDay retrieves all events from a specific in-game day.
	GetByGameDay(ctx context.Context, colonyID string, day int) ([]Event, error)

	// LastTick returns the highest tick recorded, or 0 for an empty ledger.
	LastTick(ctx context.Context, colonyID string) (int64, error)
}

// FarmState is the persisted per-colonist toggle plus enough identity to
// re-create the colonist on restart.
type FarmState struct {
	ColonistID        string    `json:"colonist_id" db:"colonist_id"`
	ColonyID          string    `json:"colony_id" db:"colony_id"`
	Name              string    `json:"name" db:"name"`
	Faction           string    `json:"faction" db:"faction"`
	Genes             []string  `json:"genes" db:"genes"`
	ShouldFarmHemogen bool      `json:"should_farm_hemogen" db:"shouldFarmHemogen"`
	LastUpdated       time.Time `json:"last_updated" db:"last_updated"`
}

// FarmStateRepository stores the automatic extraction toggle.
type FarmStateRepository interface {
	// Upsert updates or inserts a colonist's farm state.
	Upsert(ctx context.Context, state FarmState) error

	// Delete drops a colonist's row. Deleting a missing row is not an error.
	Delete(ctx context.Context, colonistID string) error

	// GetByColonyID retrieves every saved colonist of a colony.
	GetByColonyID(ctx context.Context, colonyID string) ([]FarmState, error)
}

// SettingsRepository stores colony-wide settings as key/value pairs.
type SettingsRepository interface {
	// GetBool returns def when the key was never written.
	GetBool(ctx context.Context, key string, def bool) (bool, error)

	// SetBool writes a key.
	SetBool(ctx context.Context, key string, value bool) error
}
