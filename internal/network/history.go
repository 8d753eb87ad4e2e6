package network

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/HemogenFarm/internal/events"
	"github.com/MRamiBalles/HemogenFarm/internal/infra/storage"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
)

// HistorySource rebuilds per-colonist history from the persisted ledger.
type HistorySource interface {
	RebuildTally(ctx context.Context, colonyID, colonistID string) (*storage.BillTally, error)
	GenerateHistory(ctx context.Context, colonyID, colonistID string, sinceDay int) ([]storage.HistoryEntry, error)
}

// EventHistoryHandler serves the event ledger.
type EventHistoryHandler struct {
	colonyID string
	eventLog *events.EventLog
	source   HistorySource
	logger   *logger.Logger
}

// NewEventHistoryHandler creates the history handler. source may be nil, in
// which case per-colonist history is unavailable.
func NewEventHistoryHandler(colonyID string, el *events.EventLog, source HistorySource, log *logger.Logger) *EventHistoryHandler {
	return &EventHistoryHandler{
		colonyID: colonyID,
		eventLog: el,
		source:   source,
		logger:   log,
	}
}

// HistoryResponse is the API response for the event listing.
type HistoryResponse struct {
	ColonyID    string             `json:"colony_id"`
	TotalEvents int                `json:"total_events"`
	FilteredBy  string             `json:"filtered_by,omitempty"`
	GeneratedAt string             `json:"generated_at"`
	Events      []events.GameEvent `json:"events"`
}

// ColonistHistoryResponse pairs the tally with the readable entries.
type ColonistHistoryResponse struct {
	Tally   *storage.BillTally     `json:"tally"`
	Entries []storage.HistoryEntry `json:"entries"`
}

// HandleEvents returns the in-memory event log.
// GET /api/events?day=N&type=BILL_SCHEDULED&target=C001
func (eh *EventHistoryHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	eventType := q.Get("type")
	target := q.Get("target")

	day := -1
	if dayStr := q.Get("day"); dayStr != "" {
		d, err := strconv.Atoi(dayStr)
		if err != nil || d < 1 {
			jsonError(w, "day must be a positive integer", http.StatusBadRequest)
			return
		}
		day = d
	}

	filtered := make([]events.GameEvent, 0)
	for _, e := range eh.eventLog.Replay() {
		if day > 0 && e.GameDay != day {
			continue
		}
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		if target != "" && e.TargetID != target {
			continue
		}
		filtered = append(filtered, e)
	}

	filterDesc := ""
	if day > 0 {
		filterDesc = "Day " + strconv.Itoa(day)
	}

	jsonSuccess(w, HistoryResponse{
		ColonyID:    eh.colonyID,
		TotalEvents: len(filtered),
		FilteredBy:  filterDesc,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      filtered,
	})
}

// HandleEventDetail returns one event.
// GET /api/events/{eventID}
func (eh *EventHistoryHandler) HandleEventDetail(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	for _, e := range eh.eventLog.Replay() {
		if e.ID == eventID {
			jsonSuccess(w, e)
			return
		}
	}
	jsonError(w, "Event not found", http.StatusNotFound)
}

// HandleStats returns counts of what the policy has done.
// GET /api/events/stats
func (eh *EventHistoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	allEvents := eh.eventLog.Replay()

	stats := map[string]int{
		"total_events":    len(allEvents),
		"bills_scheduled": 0,
		"bills_cancelled": 0,
		"bills_completed": 0,
	}
	for _, e := range allEvents {
		switch e.Type {
		case events.EventTypeBillScheduled:
			stats["bills_scheduled"]++
		case events.EventTypeBillCancelled:
			stats["bills_cancelled"]++
		case events.EventTypeBillCompleted:
			stats["bills_completed"]++
		}
	}

	jsonSuccess(w, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"stats":        stats,
	})
}

// HandleColonistHistory rebuilds a colonist's history from storage.
// GET /api/colonists/{id}/history?since_day=N
func (eh *EventHistoryHandler) HandleColonistHistory(w http.ResponseWriter, r *http.Request) {
	if eh.source == nil {
		jsonError(w, "history storage not configured", http.StatusServiceUnavailable)
		return
	}
	id := r.PathValue("id")

	sinceDay := 1
	if s := r.URL.Query().Get("since_day"); s != "" {
		d, err := strconv.Atoi(s)
		if err != nil {
			jsonError(w, "since_day must be an integer", http.StatusBadRequest)
			return
		}
		sinceDay = d
	}

	tally, err := eh.source.RebuildTally(r.Context(), eh.colonyID, id)
	if err != nil {
		eh.logger.Error("history tally failed: " + err.Error())
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	entries, err := eh.source.GenerateHistory(r.Context(), eh.colonyID, id, sinceDay)
	if err != nil {
		eh.logger.Error("history listing failed: " + err.Error())
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonSuccess(w, ColonistHistoryResponse{Tally: tally, Entries: entries})
}

// RegisterRoutes sets up the history routes.
func (eh *EventHistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/events", eh.HandleEvents)
	mux.HandleFunc("GET /api/events/stats", eh.HandleStats)
	mux.HandleFunc("GET /api/events/{eventID}", eh.HandleEventDetail)
	mux.HandleFunc("GET /api/colonists/{id}/history", eh.HandleColonistHistory)
}
