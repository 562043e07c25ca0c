package dietplans

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/userctx"
)

// Handler handles HTTP requests for weekly diet plans.
type Handler struct {
	service *Service
}

// NewHandler creates a new diet plans handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type weekResponse struct {
	Week    *WeekPlan    `json:"week"`
	State   *ActionState `json:"grid_state,omitempty"`
	Applied bool         `json:"applied,omitempty"`
	Skipped []string     `json:"skipped_days,omitempty"`
}

type saveWeekRequest struct {
	WeekStartDate string    `json:"week_start_date"`
	Days          []DayPlan `json:"days"`
	Revision      int64     `json:"revision"`
}

type gridSelectRequest struct {
	StartDate string `json:"start_date"`
	Action    string `json:"action"` // copy | swap
	Target    Target `json:"target"`
}

type gridClearRequest struct {
	StartDate string `json:"start_date"`
	Target    Target `json:"target"`
}

type dayRequest struct {
	StartDate string `json:"start_date"`
	DayIndex  int    `json:"day_index"`
}

type weekRequest struct {
	StartDate string `json:"start_date"`
}

// HandleGetWeek handles GET /v1/clients/{id}/diet-plan?start_date=YYYY-MM-DD.
// Dieticians get the full editing view; clients get only published days
// of their own plan.
func (h *Handler) HandleGetWeek(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clientID, ok := parseClientID(w, r)
	if !ok {
		return
	}
	startDate := r.URL.Query().Get("start_date")
	if startDate == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "start_date is required")
		return
	}

	if userctx.IsClient(ctx) {
		userID, _ := userctx.GetUserID(ctx)
		if userID != clientID.String() {
			writeError(w, http.StatusNotFound, "not_found", "Client not found")
			return
		}
		week, err := h.service.GetWeekForClient(ctx, clientID, startDate)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, weekResponse{Week: week})
		return
	}

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}
	week, state, err := h.service.GetWeek(ctx, dieticianID, clientID, startDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weekResponse{Week: week, State: state})
}

// HandleSaveWeek handles POST /v1/clients/{id}/diet-plan. Used for the
// explicit "save as draft" action; the revision in the body is the one
// the caller loaded. A stale revision is not an error: the response
// carries the authoritative week and applied=false.
func (h *Handler) HandleSaveWeek(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clientID, ok := parseClientID(w, r)
	if !ok {
		return
	}

	var req saveWeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	week, applied, err := h.service.SaveDraft(ctx, dieticianID, clientID, req.WeekStartDate, req.Days, req.Revision)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weekResponse{Week: week, Applied: applied})
}

// HandleGridSelect handles POST /v1/clients/{id}/diet-plan/grid/select.
func (h *Handler) HandleGridSelect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clientID, ok := parseClientID(w, r)
	if !ok {
		return
	}

	var req gridSelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	week, state, result, err := h.service.Select(ctx, dieticianID, clientID, req.StartDate, req.Action, req.Target)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weekResponse{Week: week, State: state, Applied: result.Applied})
}

// HandleGridCancel handles POST /v1/clients/{id}/diet-plan/grid/cancel.
func (h *Handler) HandleGridCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clientID, ok := parseClientID(w, r)
	if !ok {
		return
	}

	var req weekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	state, err := h.service.CancelSelection(ctx, dieticianID, clientID, req.StartDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weekResponse{State: state})
}

// HandleGridClear handles POST /v1/clients/{id}/diet-plan/grid/clear.
func (h *Handler) HandleGridClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clientID, ok := parseClientID(w, r)
	if !ok {
		return
	}

	var req gridClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	week, err := h.service.ClearScope(ctx, dieticianID, clientID, req.StartDate, req.Target)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weekResponse{Week: week})
}

// HandlePublish handles POST /v1/clients/{id}/diet-plan/publish.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	h.handleDayAction(w, r, h.service.PublishDay)
}

// HandleUnpublish handles POST /v1/clients/{id}/diet-plan/unpublish.
func (h *Handler) HandleUnpublish(w http.ResponseWriter, r *http.Request) {
	h.handleDayAction(w, r, h.service.UnpublishDay)
}

func (h *Handler) handleDayAction(w http.ResponseWriter, r *http.Request,
	action func(ctx context.Context, dieticianID, clientID uuid.UUID, startDate string, dayIdx int) (*WeekPlan, error),
) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clientID, ok := parseClientID(w, r)
	if !ok {
		return
	}

	var req dayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	week, err := action(ctx, dieticianID, clientID, req.StartDate, req.DayIndex)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weekResponse{Week: week})
}

// HandlePublishAll handles POST /v1/clients/{id}/diet-plan/publish-all.
func (h *Handler) HandlePublishAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clientID, ok := parseClientID(w, r)
	if !ok {
		return
	}

	var req weekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	week, published, err := h.service.PublishAllDays(ctx, dieticianID, clientID, req.StartDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Week      *WeekPlan `json:"week"`
		Published []string  `json:"published_days"`
	}{Week: week, Published: published})
}

// HandleCopyWeek handles POST /v1/clients/{id}/diet-plan/week-buffer.
func (h *Handler) HandleCopyWeek(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clientID, ok := parseClientID(w, r)
	if !ok {
		return
	}

	var req weekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	if err := h.service.CopyWeek(ctx, dieticianID, clientID, req.StartDate); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"copied_from": req.StartDate})
}

// HandleGetWeekBuffer handles GET /v1/diet-plan/week-buffer.
func (h *Handler) HandleGetWeekBuffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}

	row, err := h.service.GetWeekBuffer(ctx, dieticianID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get week buffer")
		return
	}
	if row == nil {
		writeJSON(w, http.StatusOK, map[string]any{"empty": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"empty":       false,
		"copied_from": row.CopiedFrom,
		"copied_at":   row.CreatedAt,
	})
}

// HandleClearWeekBuffer handles DELETE /v1/diet-plan/week-buffer.
func (h *Handler) HandleClearWeekBuffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.service.ClearWeekBuffer(ctx, dieticianID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to clear week buffer")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePasteWeek handles POST /v1/clients/{id}/diet-plan/week-paste.
func (h *Handler) HandlePasteWeek(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clientID, ok := parseClientID(w, r)
	if !ok {
		return
	}

	var req weekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	week, skipped, err := h.service.PasteWeek(ctx, dieticianID, clientID, req.StartDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weekResponse{Week: week, Skipped: skipped})
}

func parseClientID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid client ID")
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

// writeServiceError maps service errors onto the HTTP error taxonomy:
// publish guards are conflicts, validation problems are bad requests.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDayPublished):
		writeError(w, http.StatusConflict, "day_published", err.Error())
	case errors.Is(err, ErrWeekPublished):
		writeError(w, http.StatusConflict, "week_published", err.Error())
	case errors.Is(err, ErrClientNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Client not found")
	case errors.Is(err, ErrEmptyBuffer):
		writeError(w, http.StatusNotFound, "buffer_empty", "No copied week in buffer")
	case errors.Is(err, ErrBadIndex), errors.Is(err, ErrBadDate),
		errors.Is(err, ErrNotMonday), errors.Is(err, ErrBadPayload):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "Operation failed")
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
