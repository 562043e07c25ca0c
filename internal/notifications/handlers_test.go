package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/storage"
	"github.com/nutrivibes/api/internal/storage/memory"
	"github.com/nutrivibes/api/internal/userctx"
)

type env struct {
	mux      *http.ServeMux
	store    *memory.MemoryStorage
	clientID uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	h := NewHandler(NewService(store))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/notifications", h.HandleList)
	mux.HandleFunc("GET /v1/notifications/unread-count", h.HandleUnreadCount)
	mux.HandleFunc("POST /v1/notifications/mark-read", h.HandleMarkRead)
	mux.HandleFunc("POST /v1/notifications/mark-all-read", h.HandleMarkAllRead)

	return &env{mux: mux, store: store, clientID: uuid.New()}
}

func (e *env) seed(t *testing.T, kind, title string) uuid.UUID {
	t.Helper()
	n := &storage.Notification{ClientID: e.clientID, Kind: kind, Title: title, Body: "body"}
	if err := e.store.CreateNotification(context.Background(), n); err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	return n.ID
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

func TestInboxFlow(t *testing.T) {
	e := newEnv(t)
	first := e.seed(t, KindDietPublished, "Your plan is ready")
	e.seed(t, KindFollowupDue, "Session tomorrow")

	rec := e.do(t, "GET", "/v1/notifications", userctx.RoleClient, e.clientID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	var resp struct {
		Notifications []NotificationDTO `json:"notifications"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Notifications) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(resp.Notifications))
	}

	rec = e.do(t, "GET", "/v1/notifications/unread-count", userctx.RoleClient, e.clientID, nil)
	var count map[string]int
	json.NewDecoder(rec.Body).Decode(&count)
	if count["unread"] != 2 {
		t.Fatalf("expected 2 unread, got %d", count["unread"])
	}

	rec = e.do(t, "POST", "/v1/notifications/mark-read", userctx.RoleClient, e.clientID,
		markReadRequest{IDs: []string{first.String()}})
	var updated map[string]int
	json.NewDecoder(rec.Body).Decode(&updated)
	if updated["updated"] != 1 {
		t.Fatalf("expected 1 marked, got %d", updated["updated"])
	}

	rec = e.do(t, "GET", "/v1/notifications?unread=1", userctx.RoleClient, e.clientID, nil)
	resp.Notifications = nil
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Notifications) != 1 {
		t.Fatalf("expected 1 unread entry, got %d", len(resp.Notifications))
	}

	rec = e.do(t, "POST", "/v1/notifications/mark-all-read", userctx.RoleClient, e.clientID, nil)
	json.NewDecoder(rec.Body).Decode(&updated)
	if updated["updated"] != 1 {
		t.Fatalf("expected 1 remaining marked, got %d", updated["updated"])
	}

	rec = e.do(t, "GET", "/v1/notifications/unread-count", userctx.RoleClient, e.clientID, nil)
	json.NewDecoder(rec.Body).Decode(&count)
	if count["unread"] != 0 {
		t.Fatalf("expected 0 unread, got %d", count["unread"])
	}
}

func TestInboxIsClientOnly(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, "GET", "/v1/notifications", userctx.RoleDietician, uuid.New(), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for dietician, got %d", rec.Code)
	}
}

func TestInboxOwnershipIsolated(t *testing.T) {
	e := newEnv(t)
	e.seed(t, KindDietPublished, "Your plan is ready")

	other := uuid.New()
	rec := e.do(t, "GET", "/v1/notifications", userctx.RoleClient, other, nil)
	var resp struct {
		Notifications []NotificationDTO `json:"notifications"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Notifications) != 0 {
		t.Fatalf("foreign client should see nothing, got %d", len(resp.Notifications))
	}
}

func TestMarkReadEmptyRejected(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, "POST", "/v1/notifications/mark-read", userctx.RoleClient, e.clientID, markReadRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty ids, got %d", rec.Code)
	}
}
