package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/mealtimings"
	"github.com/nutrivibes/api/internal/storage/memory"
	"github.com/nutrivibes/api/internal/userctx"
)

func newTestMux(t *testing.T) (*http.ServeMux, uuid.UUID) {
	t.Helper()
	store := memory.New()
	timings := mealtimings.NewService(store, 12)
	svc := NewService(store, timings, nil)
	h := NewHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/clients", h.HandleList)
	mux.HandleFunc("POST /v1/clients", h.HandleCreate)
	mux.HandleFunc("GET /v1/clients/{id}", h.HandleGet)
	mux.HandleFunc("PUT /v1/clients/{id}", h.HandleUpdate)
	mux.HandleFunc("DELETE /v1/clients/{id}", h.HandleArchive)
	mux.HandleFunc("PATCH /v1/clients/{id}", h.HandlePatchTimings)
	mux.HandleFunc("GET /v1/clients/{id}/meal-timings", h.HandleGetTimings)

	return mux, uuid.New()
}

func do(t *testing.T, mux *http.ServeMux, method, path string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(userctx.WithUser(req.Context(), userID.String(), userctx.RoleDietician))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func createClient(t *testing.T, mux *http.ServeMux, dieticianID uuid.UUID) ClientDTO {
	t.Helper()
	rec := do(t, mux, "POST", "/v1/clients", dieticianID, UpsertClientRequest{
		FullName: "Anna Smith", Email: "anna@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body.String())
	}
	var dto ClientDTO
	if err := json.NewDecoder(rec.Body).Decode(&dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return dto
}

func TestCreateAndListClients(t *testing.T) {
	mux, dieticianID := newTestMux(t)
	created := createClient(t, mux, dieticianID)

	rec := do(t, mux, "GET", "/v1/clients", dieticianID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	var resp struct {
		Clients []ClientDTO `json:"clients"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Clients) != 1 || resp.Clients[0].ID != created.ID {
		t.Fatalf("expected the created client in the list, got %+v", resp.Clients)
	}

	// Another dietician sees an empty roster.
	rec = do(t, mux, "GET", "/v1/clients", uuid.New(), nil)
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Clients) != 0 {
		t.Fatal("roster must be scoped to the dietician")
	}
}

func TestCreateClientValidation(t *testing.T) {
	mux, dieticianID := newTestMux(t)

	rec := do(t, mux, "POST", "/v1/clients", dieticianID, UpsertClientRequest{FullName: "No Email"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	bad := "not-a-date"
	rec = do(t, mux, "POST", "/v1/clients", dieticianID, UpsertClientRequest{
		FullName: "Bad Date", Email: "b@example.com", BirthDate: &bad,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad birth_date, got %d", rec.Code)
	}
}

func TestNewClientGetsDefaultTimings(t *testing.T) {
	mux, dieticianID := newTestMux(t)
	created := createClient(t, mux, dieticianID)

	rec := do(t, mux, "GET", fmt.Sprintf("/v1/clients/%s/meal-timings", created.ID), dieticianID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get timings status %d", rec.Code)
	}
	var resp struct {
		MealTimings []mealtimings.Timing `json:"meal_timings"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.MealTimings) != 7 {
		t.Fatalf("expected the default 7 timings, got %d", len(resp.MealTimings))
	}
}

func TestPatchTimings(t *testing.T) {
	mux, dieticianID := newTestMux(t)
	created := createClient(t, mux, dieticianID)
	path := "/v1/clients/" + created.ID

	rec := do(t, mux, "PATCH", path, dieticianID, patchTimingsRequest{
		MealTimings: []mealtimings.Timing{
			{MealNumber: 1, Time: "08:00"},
			{MealNumber: 2, Time: "13:00"},
			{MealNumber: 3, Time: "19:00"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, mux, "GET", path+"/meal-timings", dieticianID, nil)
	var resp struct {
		MealTimings []mealtimings.Timing `json:"meal_timings"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.MealTimings) != 3 || resp.MealTimings[2].Time != "19:00" {
		t.Fatalf("timings not replaced: %+v", resp.MealTimings)
	}

	// Invalid replacement is rejected.
	rec = do(t, mux, "PATCH", path, dieticianID, patchTimingsRequest{
		MealTimings: []mealtimings.Timing{{MealNumber: 1, Time: "25:99"}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid timing, got %d", rec.Code)
	}
}

func TestArchiveClient(t *testing.T) {
	mux, dieticianID := newTestMux(t)
	created := createClient(t, mux, dieticianID)

	rec := do(t, mux, "DELETE", "/v1/clients/"+created.ID, dieticianID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("archive status %d", rec.Code)
	}

	var resp struct {
		Clients []ClientDTO `json:"clients"`
	}
	rec = do(t, mux, "GET", "/v1/clients", dieticianID, nil)
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Clients) != 0 {
		t.Fatal("archived client must be hidden by default")
	}

	rec = do(t, mux, "GET", "/v1/clients?include_archived=1", dieticianID, nil)
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Clients) != 1 || !resp.Clients[0].IsArchived {
		t.Fatal("archived client must appear with include_archived=1")
	}
}

func TestGetForeignClient(t *testing.T) {
	mux, dieticianID := newTestMux(t)
	created := createClient(t, mux, dieticianID)

	rec := do(t, mux, "GET", "/v1/clients/"+created.ID, uuid.New(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign dietician, got %d", rec.Code)
	}
}
