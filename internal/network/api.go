// Package network exposes the colony over HTTP and WebSocket.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MRamiBalles/HemogenFarm/internal/domain/bill"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/farm"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/rules"
	"github.com/MRamiBalles/HemogenFarm/internal/engine"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/metrics"
	"github.com/MRamiBalles/HemogenFarm/internal/settings"
)

// Colony is everything the surfaces can ask of the running colony.
type Colony interface {
	Colonists() []engine.ColonistStatus
	Colonist(id string) (engine.ColonistStatus, error)
	Gizmo(id string) (farm.Gizmo, error)
	ToggleFarm(ctx context.Context, id string) (bool, error)
	OverrideVitals(id string, v engine.Vitals) error
	CompleteBill(id string) error
	AddManualBill(id string, kind bill.Kind) (bill.Bill, error)
	RemoveColonist(ctx context.Context, id string) error
	CurrentSettings() rules.Settings
	SettingsSurface() []settings.Checkbox
	SetIgnoreRestCondition(ctx context.Context, value bool) (rules.Settings, error)
}

// API is the operator and dashboard HTTP surface.
type API struct {
	colony  Colony
	history *EventHistoryHandler
	hub     *Hub
	metrics *metrics.Collector
	logger  *logger.Logger
}

// NewAPI creates the HTTP API. hub may be nil when no WebSocket is served.
func NewAPI(colony Colony, history *EventHistoryHandler, hub *Hub, m *metrics.Collector, log *logger.Logger) *API {
	if m == nil {
		m = metrics.Get()
	}
	return &API{
		colony:  colony,
		history: history,
		hub:     hub,
		metrics: m,
		logger:  log,
	}
}

// RegisterRoutes sets up every route on mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/colonists", a.HandleColonists)
	mux.HandleFunc("GET /api/colonists/{id}", a.HandleColonist)
	mux.HandleFunc("DELETE /api/colonists/{id}", a.HandleRemoveColonist)
	mux.HandleFunc("GET /api/colonists/{id}/gizmo", a.HandleGizmo)
	mux.HandleFunc("POST /api/colonists/{id}/toggle", a.HandleToggle)
	mux.HandleFunc("PUT /api/colonists/{id}/vitals", a.HandleVitals)
	mux.HandleFunc("POST /api/colonists/{id}/bills", a.HandleAddBill)
	mux.HandleFunc("POST /api/colonists/{id}/bills/complete", a.HandleCompleteBill)
	mux.HandleFunc("GET /api/settings", a.HandleGetSettings)
	mux.HandleFunc("PUT /api/settings", a.HandlePutSettings)

	if a.history != nil {
		a.history.RegisterRoutes(mux)
	}

	mux.HandleFunc("GET /metrics", metrics.Handler(a.metrics))
	mux.HandleFunc("GET /metrics/prometheus", metrics.PrometheusHandler(a.metrics))

	if a.hub != nil {
		mux.HandleFunc("GET /ws", a.hub.ServeWs)
	}
}

// Handler returns a mux with every route registered.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return mux
}

// HandleColonists lists colonists with their farm state and pending bills.
// GET /api/colonists
func (a *API) HandleColonists(w http.ResponseWriter, r *http.Request) {
	jsonSuccess(w, a.colony.Colonists())
}

// HandleColonist returns one colonist.
// GET /api/colonists/{id}
func (a *API) HandleColonist(w http.ResponseWriter, r *http.Request) {
	status, err := a.colony.Colonist(r.PathValue("id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	jsonSuccess(w, status)
}

// HandleRemoveColonist takes a colonist out of the colony for good.
// DELETE /api/colonists/{id}
func (a *API) HandleRemoveColonist(w http.ResponseWriter, r *http.Request) {
	if err := a.colony.RemoveColonist(r.Context(), r.PathValue("id")); err != nil {
		a.fail(w, err)
		return
	}
	jsonSuccess(w, map[string]string{"status": "ok"})
}

// HandleGizmo returns the toggle as the player sees it.
// GET /api/colonists/{id}/gizmo
func (a *API) HandleGizmo(w http.ResponseWriter, r *http.Request) {
	g, err := a.colony.Gizmo(r.PathValue("id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	jsonSuccess(w, g)
}

// HandleToggle flips automatic extraction for a colonist.
// POST /api/colonists/{id}/toggle
func (a *API) HandleToggle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	enabled, err := a.colony.ToggleFarm(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	jsonSuccess(w, map[string]interface{}{
		"colonist_id": id,
		"enabled":     enabled,
	})
}

// HandleVitals applies an operator override.
// PUT /api/colonists/{id}/vitals
func (a *API) HandleVitals(w http.ResponseWriter, r *http.Request) {
	var v engine.Vitals
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	if err := a.colony.OverrideVitals(id, v); err != nil {
		a.fail(w, err)
		return
	}
	status, err := a.colony.Colonist(id)
	if err != nil {
		a.fail(w, err)
		return
	}
	jsonSuccess(w, status)
}

// HandleCompleteBill performs the pending bill immediately.
// POST /api/colonists/{id}/bills/complete
func (a *API) HandleCompleteBill(w http.ResponseWriter, r *http.Request) {
	if err := a.colony.CompleteBill(r.PathValue("id")); err != nil {
		a.fail(w, err)
		return
	}
	jsonSuccess(w, map[string]string{"status": "ok"})
}

// HandleAddBill queues an operator surgery for a colonist.
// POST /api/colonists/{id}/bills
func (a *API) HandleAddBill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind bill.Kind `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Kind == "" {
		jsonError(w, "kind is required", http.StatusBadRequest)
		return
	}
	b, err := a.colony.AddManualBill(r.PathValue("id"), req.Kind)
	if err != nil {
		a.fail(w, err)
		return
	}
	jsonSuccess(w, b)
}

// settingsResponse pairs the raw values with the panel surface.
type settingsResponse struct {
	IgnoreRestCondition bool                `json:"ignore_rest_condition"`
	Surface             []settings.Checkbox `json:"surface"`
}

// HandleGetSettings returns the colony-wide settings.
// GET /api/settings
func (a *API) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	jsonSuccess(w, settingsResponse{
		IgnoreRestCondition: a.colony.CurrentSettings().IgnoreRestCondition,
		Surface:             a.colony.SettingsSurface(),
	})
}

// HandlePutSettings changes the colony-wide settings.
// PUT /api/settings
func (a *API) HandlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IgnoreRestCondition *bool `json:"ignore_rest_condition"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IgnoreRestCondition == nil {
		jsonError(w, "ignore_rest_condition is required", http.StatusBadRequest)
		return
	}
	if _, err := a.colony.SetIgnoreRestCondition(r.Context(), *req.IgnoreRestCondition); err != nil {
		a.fail(w, err)
		return
	}
	a.HandleGetSettings(w, r)
}

// fail maps domain errors to status codes.
func (a *API) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrColonistNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, bill.ErrUnknownRecipe):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, engine.ErrNoPendingBill), errors.Is(err, bill.ErrDuplicateBill),
		errors.Is(err, bill.ErrRecipeUnavailable):
		jsonError(w, err.Error(), http.StatusConflict)
	default:
		a.logger.Error("request failed: " + err.Error())
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}

