package storage

import (
	"context"
	"fmt"

	"github.com/MRamiBalles/HemogenFarm/internal/domain/bill"
	"github.com/MRamiBalles/HemogenFarm/internal/events"
)

// Reconstructor rebuilds a colonist's extraction history from the event log.
// This is used for:
// 1. The history endpoint, showing what the policy did while nobody watched
// 2. Auditing the one-pending-bill rule after the fact
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new history reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// BillTally counts what happened to a colonist's Extract Hemogen bills.
type BillTally struct {
	ColonistID        string `json:"colonist_id"`
	Scheduled         int    `json:"scheduled"`
	Cancelled         int    `json:"cancelled"`
	Completed         int    `json:"completed"`
	Pending           bool   `json:"pending"`
	LastCompletedTick int64  `json:"last_completed_tick"`
}

// HistoryEntry is a simplified event for the history screen.
type HistoryEntry struct {
	Tick      int64  `json:"tick"`
	GameDay   int    `json:"game_day"`
	EventType string `json:"event_type"`
	Summary   string `json:"summary"` // Human-readable description
	Impact    string `json:"impact"`  // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// RebuildTally replays a colonist's events into a bill tally.
func (r *Reconstructor) RebuildTally(ctx context.Context, colonyID, colonistID string) (*BillTally, error) {
	evs, err := r.eventRepo.GetByTargetID(ctx, colonyID, colonistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for colonist: %w", err)
	}

	tally := &BillTally{ColonistID: colonistID}
	for _, e := range evs {
		r.applyEvent(tally, e)
	}
	return tally, nil
}

// GenerateHistory lists a colonist's events from sinceDay onwards.
func (r *Reconstructor) GenerateHistory(ctx context.Context, colonyID, colonistID string, sinceDay int) ([]HistoryEntry, error) {
	evs, err := r.eventRepo.GetByTargetID(ctx, colonyID, colonistID)
	if err != nil {
		return nil, err
	}

	history := make([]HistoryEntry, 0, len(evs))
	for _, e := range evs {
		if e.GameDay < sinceDay {
			continue
		}
		history = append(history, HistoryEntry{
			Tick:      e.Tick,
			GameDay:   e.GameDay,
			EventType: e.EventType,
			Summary:   r.summarizeEvent(e),
			Impact:    r.determineImpact(e),
		})
	}
	return history, nil
}

// applyEvent folds one event into the tally.
func (r *Reconstructor) applyEvent(tally *BillTally, e Event) {
	switch events.EventType(e.EventType) {
	case events.EventTypeBillScheduled:
		tally.Scheduled++
		tally.Pending = true
	case events.EventTypeBillCancelled:
		tally.Cancelled++
		tally.Pending = false
	case events.EventTypeBillCompleted:
		if !isExtraction(e) {
			return
		}
		tally.Completed++
		tally.Pending = false
		tally.LastCompletedTick = e.Tick
	}
}

// summarizeEvent creates a human-readable summary.
func (r *Reconstructor) summarizeEvent(e Event) string {
	switch events.EventType(e.EventType) {
	case events.EventTypeBillScheduled:
		return fmt.Sprintf("Extract hemogen bill placed at rest %.2f.", payloadFloat(e, "rest_level"))
	case events.EventTypeBillCancelled:
		if reason, ok := e.Payload["reason"].(string); ok && reason != "" {
			return "Extract hemogen bill removed: " + reason + "."
		}
		return "Extract hemogen bill removed."
	case events.EventTypeBillCompleted:
		if !isExtraction(e) {
			kind, _ := e.Payload["kind"].(string)
			if recipe, ok := bill.GetRecipe(bill.Kind(kind)); ok {
				return recipe.Label + " performed."
			}
			return "Surgery performed."
		}
		return "Hemogen pack extracted."
	case events.EventTypeFarmToggled:
		if enabled, _ := e.Payload["enabled"].(bool); enabled {
			return "Automatic extraction enabled."
		}
		return "Automatic extraction disabled."
	case events.EventTypeFellAsleep:
		return "Went to sleep."
	case events.EventTypeWokeUp:
		return "Woke up."
	case events.EventTypeBloodLossHealed:
		return "Recovered from blood loss."
	case events.EventTypeColonistRemoved:
		return "Left the colony."
	default:
		return "Something happened to this colonist."
	}
}

// determineImpact classifies the event impact on the donor.
func (r *Reconstructor) determineImpact(e Event) string {
	switch events.EventType(e.EventType) {
	case events.EventTypeBillCompleted:
		if !isExtraction(e) {
			return "NEUTRAL"
		}
		return "NEGATIVE"
	case events.EventTypeBloodLossHealed, events.EventTypeWokeUp:
		return "POSITIVE"
	default:
		return "NEUTRAL"
	}
}

// isExtraction treats completions recorded without a kind as extractions.
func isExtraction(e Event) bool {
	kind, ok := e.Payload["kind"].(string)
	return !ok || kind == string(bill.KindExtractHemogen)
}

func payloadFloat(e Event, key string) float64 {
	v, _ := e.Payload[key].(float64)
	return v
}
