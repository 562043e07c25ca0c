package followups

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/storage"
	"github.com/nutrivibes/api/internal/userctx"
)

// Handler handles HTTP requests for follow-up sessions.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createFollowupRequest struct {
	ClientID    string  `json:"client_id"`
	ScheduledAt string  `json:"scheduled_at"` // RFC3339
	Note        *string `json:"note"`
}

type rescheduleRequest struct {
	ScheduledAt string  `json:"scheduled_at"`
	Note        *string `json:"note"`
}

type transitionRequest struct {
	Status string `json:"status"`
}

// HandleCreate handles POST /v1/followups (dietician only).
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	dieticianID, ok := requireDietician(w, r)
	if !ok {
		return
	}
	var req createFollowupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "client_id must be a UUID")
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "scheduled_at must be RFC3339")
		return
	}
	f, err := h.service.Create(r.Context(), dieticianID, clientID, scheduledAt, req.Note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, followupDTO(f))
}

// HandleList handles GET /v1/followups?from=&to=&client_id=. Dieticians
// see their calendar; clients see their own sessions.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var list []storage.Followup
	if userctx.IsClient(r.Context()) {
		list, err = h.service.ListForClient(r.Context(), userID, from, to)
	} else {
		var clientID *uuid.UUID
		if raw := r.URL.Query().Get("client_id"); raw != "" {
			id, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", "client_id must be a UUID")
				return
			}
			clientID = &id
		}
		list, err = h.service.List(r.Context(), userID, clientID, from, to)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(list))
	for i := range list {
		out = append(out, followupDTO(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"followups": out})
}

// HandleReschedule handles PUT /v1/followups/{id}.
func (h *Handler) HandleReschedule(w http.ResponseWriter, r *http.Request) {
	dieticianID, ok := requireDietician(w, r)
	if !ok {
		return
	}
	followupID, ok := parseFollowupID(w, r)
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "scheduled_at must be RFC3339")
		return
	}
	f, err := h.service.Reschedule(r.Context(), dieticianID, followupID, scheduledAt, req.Note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, followupDTO(f))
}

// HandleTransition handles POST /v1/followups/{id}/status.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	dieticianID, ok := requireDietician(w, r)
	if !ok {
		return
	}
	followupID, ok := parseFollowupID(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	f, err := h.service.Transition(r.Context(), dieticianID, followupID, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, followupDTO(f))
}

// HandleRemindDue handles POST /v1/followups/remind-due. The reminder
// loop runs the same pass on a ticker; this endpoint exists for ops and
// cron-style triggering.
func (h *Handler) HandleRemindDue(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireDietician(w, r); !ok {
		return
	}
	sent, err := h.service.RunReminderPass(r.Context(), time.Now().UTC())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -7)
	to := now.AddDate(0, 1, 0)

	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, errors.New("from must be RFC3339")
		}
		from = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, errors.New("to must be RFC3339")
		}
		to = t
	}
	return from, to, nil
}

func followupDTO(f *storage.Followup) map[string]any {
	dto := map[string]any{
		"id":           f.ID.String(),
		"client_id":    f.ClientID.String(),
		"scheduled_at": f.ScheduledAt.Format(time.RFC3339),
		"status":       f.Status,
		"note":         f.Note,
	}
	if f.ReminderSentAt != nil {
		dto["reminder_sent_at"] = f.ReminderSentAt.Format(time.RFC3339)
	}
	return dto
}

func parseFollowupID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid follow-up ID")
		return uuid.Nil, false
	}
	return id, true
}

func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid user identity")
		return uuid.Nil, false
	}
	return id, true
}

func requireDietician(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := requireUser(w, r)
	if !ok {
		return uuid.Nil, false
	}
	if userctx.IsClient(r.Context()) {
		writeError(w, http.StatusForbidden, "forbidden", "Only dieticians can manage follow-ups")
		return uuid.Nil, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrClientNotFound):
		writeError(w, http.StatusNotFound, "client_not_found", "Client not found")
	case errors.Is(err, ErrFollowupNotFound):
		writeError(w, http.StatusNotFound, "followup_not_found", "Follow-up not found")
	case errors.Is(err, ErrBadTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
