package subscriptions

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/payments"
	"github.com/nutrivibes/api/internal/storage"
	"github.com/nutrivibes/api/internal/storage/memory"
	"github.com/nutrivibes/api/internal/userctx"
)

type env struct {
	mux         *http.ServeMux
	dieticianID uuid.UUID
	clientID    uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	dieticianID := uuid.New()
	client := &storage.Client{DieticianID: dieticianID, FullName: "Sub Client", Email: "sub@example.com"}
	if err := store.CreateClient(context.Background(), client); err != nil {
		t.Fatalf("create client: %v", err)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	svc := NewService(store, store, payments.NewMockProvider(), logger)
	h := NewHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/packages", h.HandleListPackages)
	mux.HandleFunc("POST /v1/packages", h.HandleCreatePackage)
	mux.HandleFunc("POST /v1/clients/{id}/subscriptions", h.HandleSubscribe)
	mux.HandleFunc("GET /v1/clients/{id}/subscriptions", h.HandleListSubscriptions)
	mux.HandleFunc("POST /v1/subscriptions/{id}/activate", h.HandleActivate)
	mux.HandleFunc("POST /v1/subscriptions/{id}/cancel", h.HandleCancel)

	return &env{mux: mux, dieticianID: dieticianID, clientID: client.ID}
}

func (e *env) do(t *testing.T, method, path, role string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(userctx.WithUser(req.Context(), userID.String(), role))
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *env) createPackage(t *testing.T) string {
	t.Helper()
	rec := e.do(t, "POST", "/v1/packages", userctx.RoleDietician, e.dieticianID, createPackageRequest{
		Name: "Monthly Coaching", DurationDays: 30, PriceCents: 4990000, Currency: "idr",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create package status %d: %s", rec.Code, rec.Body.String())
	}
	var dto map[string]any
	json.NewDecoder(rec.Body).Decode(&dto)
	if dto["currency"] != "IDR" {
		t.Fatalf("expected currency normalized to IDR, got %v", dto["currency"])
	}
	return dto["id"].(string)
}

func TestPackageLifecycle(t *testing.T) {
	e := newEnv(t)
	e.createPackage(t)

	rec := e.do(t, "GET", "/v1/packages", userctx.RoleClient, e.clientID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list packages status %d", rec.Code)
	}
	var resp struct {
		Packages []map[string]any `json:"packages"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Packages) != 1 {
		t.Fatalf("expected one package, got %d", len(resp.Packages))
	}

	// Clients cannot create packages.
	rec = e.do(t, "POST", "/v1/packages", userctx.RoleClient, e.clientID, createPackageRequest{
		Name: "Rogue", DurationDays: 1, Currency: "IDR",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestCreatePackageValidation(t *testing.T) {
	e := newEnv(t)

	cases := []createPackageRequest{
		{Name: "", DurationDays: 30, Currency: "IDR"},
		{Name: "X", DurationDays: 0, Currency: "IDR"},
		{Name: "X", DurationDays: 30, Currency: "rupiah"},
		{Name: "X", DurationDays: 30, PriceCents: -1, Currency: "IDR"},
	}
	for i, c := range cases {
		rec := e.do(t, "POST", "/v1/packages", userctx.RoleDietician, e.dieticianID, c)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("case %d: expected 400, got %d", i, rec.Code)
		}
	}
}

func TestSubscribeAndActivate(t *testing.T) {
	e := newEnv(t)
	pkgID := e.createPackage(t)

	rec := e.do(t, "POST", "/v1/clients/"+e.clientID.String()+"/subscriptions",
		userctx.RoleClient, e.clientID, subscribeRequest{PackageID: pkgID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("subscribe status %d: %s", rec.Code, rec.Body.String())
	}
	var sub map[string]any
	json.NewDecoder(rec.Body).Decode(&sub)
	if sub["status"] != storage.SubscriptionPending {
		t.Fatalf("expected pending, got %v", sub["status"])
	}
	if sub["payment_url"] == nil || sub["payment_url"] == "" {
		t.Fatal("expected a payment URL")
	}

	rec = e.do(t, "POST", "/v1/subscriptions/"+sub["id"].(string)+"/activate",
		userctx.RoleDietician, e.dieticianID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("activate status %d: %s", rec.Code, rec.Body.String())
	}
	var active map[string]any
	json.NewDecoder(rec.Body).Decode(&active)
	if active["status"] != storage.SubscriptionActive {
		t.Fatalf("expected active, got %v", active["status"])
	}
	if active["expires_at"] == nil {
		t.Fatal("expected expiry window set")
	}

	// A second activation on the same record is rejected.
	rec = e.do(t, "POST", "/v1/subscriptions/"+sub["id"].(string)+"/activate",
		userctx.RoleDietician, e.dieticianID, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on re-activation, got %d", rec.Code)
	}

	// And so is a second subscription while one is active.
	rec = e.do(t, "POST", "/v1/clients/"+e.clientID.String()+"/subscriptions",
		userctx.RoleClient, e.clientID, subscribeRequest{PackageID: pkgID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while active, got %d", rec.Code)
	}
}

func TestCancelSubscription(t *testing.T) {
	e := newEnv(t)
	pkgID := e.createPackage(t)

	rec := e.do(t, "POST", "/v1/clients/"+e.clientID.String()+"/subscriptions",
		userctx.RoleClient, e.clientID, subscribeRequest{PackageID: pkgID})
	var sub map[string]any
	json.NewDecoder(rec.Body).Decode(&sub)

	rec = e.do(t, "POST", "/v1/subscriptions/"+sub["id"].(string)+"/cancel",
		userctx.RoleClient, e.clientID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("cancel status %d", rec.Code)
	}

	rec = e.do(t, "POST", "/v1/subscriptions/"+sub["id"].(string)+"/activate",
		userctx.RoleDietician, e.dieticianID, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 activating cancelled subscription, got %d", rec.Code)
	}
}

func TestSubscriptionAccessControl(t *testing.T) {
	e := newEnv(t)
	pkgID := e.createPackage(t)

	// A foreign client cannot subscribe on this client's behalf.
	rec := e.do(t, "POST", "/v1/clients/"+e.clientID.String()+"/subscriptions",
		userctx.RoleClient, uuid.New(), subscribeRequest{PackageID: pkgID})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign client, got %d", rec.Code)
	}

	// A dietician who does not own the client is turned away too.
	rec = e.do(t, "GET", "/v1/clients/"+e.clientID.String()+"/subscriptions",
		userctx.RoleDietician, uuid.New(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign dietician, got %d", rec.Code)
	}

	rec = e.do(t, "GET", "/v1/clients/"+e.clientID.String()+"/subscriptions",
		userctx.RoleDietician, e.dieticianID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner list status %d", rec.Code)
	}
}
