package dietplans

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/mealtimings"
	"github.com/nutrivibes/api/internal/storage"
	"github.com/nutrivibes/api/internal/storage/memory"
	"github.com/nutrivibes/api/internal/userctx"
)

type testEnv struct {
	mux         *http.ServeMux
	dieticianID uuid.UUID
	clientID    uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	timings := mealtimings.NewService(store, 12)

	dieticianID := uuid.New()
	client := &storage.Client{DieticianID: dieticianID, FullName: "Handler Client", Email: "c@example.com"}
	if err := store.CreateClient(context.Background(), client); err != nil {
		t.Fatalf("create client: %v", err)
	}
	if err := timings.SeedDefaults(context.Background(), client.ID); err != nil {
		t.Fatalf("seed timings: %v", err)
	}

	svc := NewService(store, store, store, store, timings, 20)
	h := NewHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/clients/{id}/diet-plan", h.HandleGetWeek)
	mux.HandleFunc("POST /v1/clients/{id}/diet-plan", h.HandleSaveWeek)
	mux.HandleFunc("POST /v1/clients/{id}/diet-plan/grid/select", h.HandleGridSelect)
	mux.HandleFunc("POST /v1/clients/{id}/diet-plan/grid/cancel", h.HandleGridCancel)
	mux.HandleFunc("POST /v1/clients/{id}/diet-plan/grid/clear", h.HandleGridClear)
	mux.HandleFunc("POST /v1/clients/{id}/diet-plan/publish", h.HandlePublish)
	mux.HandleFunc("POST /v1/clients/{id}/diet-plan/unpublish", h.HandleUnpublish)
	mux.HandleFunc("POST /v1/clients/{id}/diet-plan/publish-all", h.HandlePublishAll)
	mux.HandleFunc("POST /v1/clients/{id}/diet-plan/week-buffer", h.HandleCopyWeek)
	mux.HandleFunc("POST /v1/clients/{id}/diet-plan/week-paste", h.HandlePasteWeek)
	mux.HandleFunc("GET /v1/diet-plan/week-buffer", h.HandleGetWeekBuffer)
	mux.HandleFunc("DELETE /v1/diet-plan/week-buffer", h.HandleClearWeekBuffer)

	return &testEnv{mux: mux, dieticianID: dieticianID, clientID: client.ID}
}

func (e *testEnv) do(t *testing.T, method, path, role string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(userctx.WithUser(req.Context(), userID.String(), role))
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeWeek(t *testing.T, rec *httptest.ResponseRecorder) weekResponse {
	t.Helper()
	var resp weekResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp.Error.Code
}

func TestHandleGetWeekBlank(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "GET", fmt.Sprintf("/v1/clients/%s/diet-plan?start_date=2026-08-31", e.clientID),
		userctx.RoleDietician, e.dieticianID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeWeek(t, rec)
	if resp.Week == nil || len(resp.Week.Days) != 7 {
		t.Fatal("expected a blank 7-day week")
	}
}

func TestHandleGetWeekRequiresStartDate(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "GET", fmt.Sprintf("/v1/clients/%s/diet-plan", e.clientID),
		userctx.RoleDietician, e.dieticianID, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSaveAndRevision(t *testing.T) {
	e := newTestEnv(t)
	path := fmt.Sprintf("/v1/clients/%s/diet-plan", e.clientID)

	rec := e.do(t, "GET", path+"?start_date=2026-08-31", userctx.RoleDietician, e.dieticianID, nil)
	week := decodeWeek(t, rec).Week
	week.Days[0].Meals[0].FoodItems = []FoodItem{item("omelette")}

	rec = e.do(t, "POST", path, userctx.RoleDietician, e.dieticianID, saveWeekRequest{
		WeekStartDate: week.StartDate, Days: week.Days, Revision: week.Revision,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("save status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeWeek(t, rec)
	if !resp.Applied || resp.Week.Revision != 1 {
		t.Fatalf("expected applied save at revision 1: applied=%v rev=%d", resp.Applied, resp.Week.Revision)
	}

	// Stale base revision: 200, not applied, authoritative week returned.
	rec = e.do(t, "POST", path, userctx.RoleDietician, e.dieticianID, saveWeekRequest{
		WeekStartDate: week.StartDate, Days: week.Days, Revision: 0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("stale save status %d", rec.Code)
	}
	resp = decodeWeek(t, rec)
	if resp.Applied {
		t.Error("stale save must not be applied")
	}
	if resp.Week.Revision != 1 {
		t.Errorf("expected authoritative revision 1, got %d", resp.Week.Revision)
	}
}

func TestHandleSaveMalformedWeek(t *testing.T) {
	e := newTestEnv(t)
	path := fmt.Sprintf("/v1/clients/%s/diet-plan", e.clientID)

	rec := e.do(t, "POST", path, userctx.RoleDietician, e.dieticianID, saveWeekRequest{
		WeekStartDate: "2026-08-31",
		Days:          []DayPlan{{Date: "2026-08-31"}}, // only one day
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed week, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "invalid_request" {
		t.Errorf("expected invalid_request, got %s", code)
	}
}

func TestHandleGridSelectAndPublishGuard(t *testing.T) {
	e := newTestEnv(t)
	base := fmt.Sprintf("/v1/clients/%s/diet-plan", e.clientID)

	rec := e.do(t, "GET", base+"?start_date=2026-08-31", userctx.RoleDietician, e.dieticianID, nil)
	week := decodeWeek(t, rec).Week
	week.Days[0].Meals[0].FoodItems = []FoodItem{item("porridge")}
	e.do(t, "POST", base, userctx.RoleDietician, e.dieticianID, saveWeekRequest{
		WeekStartDate: week.StartDate, Days: week.Days, Revision: week.Revision,
	})

	// Publish Monday, then try a row copy: 409 week_published.
	rec = e.do(t, "POST", base+"/publish", userctx.RoleDietician, e.dieticianID, dayRequest{StartDate: "2026-08-31", DayIndex: 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("publish status %d: %s", rec.Code, rec.Body.String())
	}

	e.do(t, "POST", base+"/grid/select", userctx.RoleDietician, e.dieticianID, gridSelectRequest{
		StartDate: "2026-08-31", Action: ActionCopy, Target: Target{Scope: ScopeRow, Meal: 0},
	})
	rec = e.do(t, "POST", base+"/grid/select", userctx.RoleDietician, e.dieticianID, gridSelectRequest{
		StartDate: "2026-08-31", Action: ActionCopy, Target: Target{Scope: ScopeRow, Meal: 1},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "week_published" {
		t.Errorf("expected week_published, got %s", code)
	}

	// Cell copy into the published Monday: 409 day_published.
	e.do(t, "POST", base+"/grid/cancel", userctx.RoleDietician, e.dieticianID, weekRequest{StartDate: "2026-08-31"})
	e.do(t, "POST", base+"/grid/select", userctx.RoleDietician, e.dieticianID, gridSelectRequest{
		StartDate: "2026-08-31", Action: ActionCopy, Target: Target{Scope: ScopeCell, Day: 1, Meal: 0},
	})
	rec = e.do(t, "POST", base+"/grid/select", userctx.RoleDietician, e.dieticianID, gridSelectRequest{
		StartDate: "2026-08-31", Action: ActionCopy, Target: Target{Scope: ScopeCell, Day: 0, Meal: 0},
	})
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "day_published" {
		t.Fatalf("expected 409 day_published, got %d", rec.Code)
	}
}

func TestHandleClientVisibility(t *testing.T) {
	e := newTestEnv(t)
	base := fmt.Sprintf("/v1/clients/%s/diet-plan", e.clientID)

	rec := e.do(t, "GET", base+"?start_date=2026-08-31", userctx.RoleDietician, e.dieticianID, nil)
	week := decodeWeek(t, rec).Week
	week.Days[0].Meals[0].FoodItems = []FoodItem{item("published food")}
	week.Days[1].Meals[0].FoodItems = []FoodItem{item("draft food")}
	e.do(t, "POST", base, userctx.RoleDietician, e.dieticianID, saveWeekRequest{
		WeekStartDate: week.StartDate, Days: week.Days, Revision: week.Revision,
	})
	e.do(t, "POST", base+"/publish", userctx.RoleDietician, e.dieticianID, dayRequest{StartDate: "2026-08-31", DayIndex: 0})

	// The client sees only the published Monday.
	rec = e.do(t, "GET", base+"?start_date=2026-08-31", userctx.RoleClient, e.clientID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("client read status %d", rec.Code)
	}
	resp := decodeWeek(t, rec)
	if len(resp.Week.Days) != 1 || resp.Week.Days[0].Status != StatusPublished {
		t.Fatalf("client must see exactly the published day, got %d days", len(resp.Week.Days))
	}

	// Another client cannot read this client's plan.
	rec = e.do(t, "GET", base+"?start_date=2026-08-31", userctx.RoleClient, uuid.New(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign client read: expected 404, got %d", rec.Code)
	}
}

func TestHandleWeekBufferLifecycle(t *testing.T) {
	e := newTestEnv(t)
	base := fmt.Sprintf("/v1/clients/%s/diet-plan", e.clientID)

	rec := e.do(t, "GET", "/v1/diet-plan/week-buffer", userctx.RoleDietician, e.dieticianID, nil)
	var status map[string]any
	json.NewDecoder(rec.Body).Decode(&status)
	if status["empty"] != true {
		t.Fatal("buffer must start empty")
	}

	rec = e.do(t, "GET", base+"?start_date=2026-08-31", userctx.RoleDietician, e.dieticianID, nil)
	week := decodeWeek(t, rec).Week
	week.Days[0].Meals[0].FoodItems = []FoodItem{item("copy me")}
	e.do(t, "POST", base, userctx.RoleDietician, e.dieticianID, saveWeekRequest{
		WeekStartDate: week.StartDate, Days: week.Days, Revision: week.Revision,
	})

	rec = e.do(t, "POST", base+"/week-buffer", userctx.RoleDietician, e.dieticianID, weekRequest{StartDate: "2026-08-31"})
	if rec.Code != http.StatusOK {
		t.Fatalf("copy week status %d", rec.Code)
	}

	rec = e.do(t, "POST", base+"/week-paste", userctx.RoleDietician, e.dieticianID, weekRequest{StartDate: "2026-09-07"})
	if rec.Code != http.StatusOK {
		t.Fatalf("paste week status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeWeek(t, rec)
	if resp.Week.Days[0].Meals[0].FoodItems[0].Name != "copy me" {
		t.Error("paste did not carry food into the new week")
	}

	rec = e.do(t, "DELETE", "/v1/diet-plan/week-buffer", userctx.RoleDietician, e.dieticianID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear buffer status %d", rec.Code)
	}
	rec = e.do(t, "POST", base+"/week-paste", userctx.RoleDietician, e.dieticianID, weekRequest{StartDate: "2026-09-07"})
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "buffer_empty" {
		t.Fatalf("expected 404 buffer_empty, got %d", rec.Code)
	}
}

func TestHandlePublishAllEndpoint(t *testing.T) {
	e := newTestEnv(t)
	base := fmt.Sprintf("/v1/clients/%s/diet-plan", e.clientID)

	rec := e.do(t, "GET", base+"?start_date=2026-08-31", userctx.RoleDietician, e.dieticianID, nil)
	week := decodeWeek(t, rec).Week
	week.Days[1].Meals[0].FoodItems = []FoodItem{item("a")}
	week.Days[4].Meals[0].FoodItems = []FoodItem{item("b")}
	e.do(t, "POST", base, userctx.RoleDietician, e.dieticianID, saveWeekRequest{
		WeekStartDate: week.StartDate, Days: week.Days, Revision: week.Revision,
	})

	rec = e.do(t, "POST", base+"/publish-all", userctx.RoleDietician, e.dieticianID, weekRequest{StartDate: "2026-08-31"})
	if rec.Code != http.StatusOK {
		t.Fatalf("publish-all status %d", rec.Code)
	}
	var resp struct {
		Week      *WeekPlan `json:"week"`
		Published []string  `json:"published_days"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Published) != 2 {
		t.Fatalf("expected 2 published days, got %v", resp.Published)
	}
	if resp.Week.Days[0].Status != StatusNoDiet {
		t.Error("empty day must not be force-published")
	}
}

func TestHandleUnauthorized(t *testing.T) {
	e := newTestEnv(t)
	path := fmt.Sprintf("/v1/clients/%s/diet-plan?start_date=2026-08-31", e.clientID)

	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}
