package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/HemogenFarm/internal/colony"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/bill"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/farm"
	"github.com/MRamiBalles/HemogenFarm/internal/engine"
	"github.com/MRamiBalles/HemogenFarm/internal/events"
	"github.com/MRamiBalles/HemogenFarm/internal/infra/storage"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/metrics"
	"github.com/MRamiBalles/HemogenFarm/internal/settings"
)

type fakeHistory struct{}

func (fakeHistory) RebuildTally(_ context.Context, _, colonistID string) (*storage.BillTally, error) {
	return &storage.BillTally{ColonistID: colonistID, Scheduled: 2, Completed: 1}, nil
}

func (fakeHistory) GenerateHistory(_ context.Context, _, _ string, sinceDay int) ([]storage.HistoryEntry, error) {
	return []storage.HistoryEntry{{GameDay: sinceDay, EventType: string(events.EventTypeBillCompleted), Summary: "Hemogen pack extracted."}}, nil
}

func newTestColony(t *testing.T, log *logger.Logger) (*colony.Service, *events.EventLog) {
	t.Helper()
	el := events.NewEventLog(nil)
	st := settings.NewStore(nil, log)
	eng := engine.NewEngine(el, st, log, engine.Options{BiotechActive: true})
	svc := colony.NewService("COLONY_1", eng, st, nil, el, log)
	require.NoError(t, svc.Bootstrap(context.Background(), true))
	return svc, el
}

func newTestAPI(t *testing.T) (http.Handler, *events.EventLog) {
	t.Helper()
	log := logger.NewTestLogger(t)
	svc, el := newTestColony(t, log)
	history := NewEventHistoryHandler("COLONY_1", el, fakeHistory{}, log)
	return NewAPI(svc, history, nil, metrics.New(), log).Handler(), el
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestListColonists(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := do(t, h, http.MethodGet, "/api/colonists", "")
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]engine.ColonistStatus](t, rec)
	assert.Len(t, list, len(colony.StarterColony()))
	assert.Equal(t, "C001", list[0].ID)
	assert.False(t, list[0].FarmEnabled)
}

func TestGizmoVisibility(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := do(t, h, http.MethodGet, "/api/colonists/C001/gizmo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	g := decode[farm.Gizmo](t, rec)
	assert.Equal(t, farm.GizmoLabel, g.Label)
	assert.True(t, g.Visible)
	assert.False(t, g.Active)

	rec = do(t, h, http.MethodGet, "/api/colonists/G001/gizmo", "")
	assert.False(t, decode[farm.Gizmo](t, rec).Visible, "guests never see the toggle")

	rec = do(t, h, http.MethodGet, "/api/colonists/NOPE/gizmo", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleThroughAPI(t *testing.T) {
	h, el := newTestAPI(t)

	rec := do(t, h, http.MethodPost, "/api/colonists/C001/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]interface{}](t, rec)["enabled"])

	rec = do(t, h, http.MethodGet, "/api/colonists/C001/gizmo", "")
	assert.True(t, decode[farm.Gizmo](t, rec).Active)
	assert.Len(t, el.GetByType(events.EventTypeFarmToggled), 1)

	rec = do(t, h, http.MethodGet, "/api/colonists/C001/toggle", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := do(t, h, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[settingsResponse](t, rec).IgnoreRestCondition)

	rec = do(t, h, http.MethodPut, "/api/settings", `{"ignore_rest_condition": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[settingsResponse](t, rec)
	assert.True(t, got.IgnoreRestCondition)
	require.Len(t, got.Surface, 1)
	assert.Equal(t, settings.IgnoreRestLabel, got.Surface[0].Label)
	assert.True(t, got.Surface[0].Checked)

	rec = do(t, h, http.MethodPut, "/api/settings", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVitalsAndCompleteBill(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := do(t, h, http.MethodPut, "/api/colonists/C001/vitals", `{"rest_level": 0.2, "asleep": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[engine.ColonistStatus](t, rec)
	require.NotNil(t, status.Rest)
	assert.InDelta(t, 0.2, status.Rest.Level, 1e-9)
	assert.True(t, status.Rest.Asleep)

	rec = do(t, h, http.MethodPut, "/api/colonists/C001/vitals", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/colonists/C001/bills/complete", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "nothing pending")
}

func TestAddManualBill(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := do(t, h, http.MethodPost, "/api/colonists/C001/bills", `{"kind": "ANESTHETIZE"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	b := decode[bill.Bill](t, rec)
	assert.Equal(t, bill.KindAnesthetize, b.Kind)
	assert.False(t, b.Auto)

	rec = do(t, h, http.MethodGet, "/api/colonists/C001", "")
	status := decode[engine.ColonistStatus](t, rec)
	require.Len(t, status.Bills, 1)
	assert.Equal(t, b.ID, status.Bills[0].ID)

	rec = do(t, h, http.MethodPost, "/api/colonists/C001/bills", `{"kind": "ANESTHETIZE"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "duplicate")

	rec = do(t, h, http.MethodPost, "/api/colonists/C003/bills", `{"kind": "EXTRACT_HEMOGEN_PACK"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "hemogenic patient")

	rec = do(t, h, http.MethodPost, "/api/colonists/C001/bills", `{"kind": "AMPUTATE"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/colonists/C001/bills", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/colonists/nobody/bills", `{"kind": "ANESTHETIZE"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveColonistThroughAPI(t *testing.T) {
	h, el := newTestAPI(t)

	rec := do(t, h, http.MethodDelete, "/api/colonists/C002", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, el.GetByType(events.EventTypeColonistRemoved), 1)

	rec = do(t, h, http.MethodGet, "/api/colonists/C002", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/colonists/C002", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventListingFilters(t *testing.T) {
	h, _ := newTestAPI(t)
	do(t, h, http.MethodPost, "/api/colonists/C001/toggle", "")
	do(t, h, http.MethodPost, "/api/colonists/C002/toggle", "")

	rec := do(t, h, http.MethodGet, "/api/events?day=1&type=FARM_TOGGLED", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HistoryResponse](t, rec)
	assert.Equal(t, 2, resp.TotalEvents)
	assert.Equal(t, "Day 1", resp.FilteredBy)

	rec = do(t, h, http.MethodGet, "/api/events?type=FARM_TOGGLED&target=C002", "")
	assert.Equal(t, 1, decode[HistoryResponse](t, rec).TotalEvents)

	rec = do(t, h, http.MethodGet, "/api/events?day=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/events/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/events/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestColonistHistory(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := do(t, h, http.MethodGet, "/api/colonists/C001/history?since_day=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ColonistHistoryResponse](t, rec)
	assert.Equal(t, 2, resp.Tally.Scheduled)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, 3, resp.Entries[0].GameDay)
}

func TestMetricsRoutes(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := do(t, h, http.MethodGet, "/metrics/prometheus", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hemofarm_")

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
