package clients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/mealtimings"
	"github.com/nutrivibes/api/internal/userctx"
)

// Handler handles HTTP requests for the client roster.
type Handler struct {
	service *Service
}

// NewHandler creates a new clients handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type patchTimingsRequest struct {
	MealTimings []mealtimings.Timing `json:"meal_timings"`
}

// HandleList handles GET /v1/clients?include_archived=1.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}
	includeArchived := r.URL.Query().Get("include_archived") == "1"

	list, err := h.service.List(ctx, dieticianID, includeArchived)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list clients")
		return
	}
	out := make([]ClientDTO, 0, len(list))
	for i := range list {
		out = append(out, toDTO(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": out})
}

// HandleGet handles GET /v1/clients/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clientID, ok := parseID(w, r)
	if !ok {
		return
	}

	client, err := h.service.Get(ctx, dieticianID, clientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(client))
}

// HandleCreate handles POST /v1/clients.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req UpsertClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	client, err := h.service.Create(ctx, dieticianID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDTO(client))
}

// HandleUpdate handles PUT /v1/clients/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clientID, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpsertClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	client, err := h.service.Update(ctx, dieticianID, clientID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(client))
}

// HandleArchive handles DELETE /v1/clients/{id}.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clientID, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Archive(ctx, dieticianID, clientID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetTimings handles GET /v1/clients/{id}/meal-timings.
func (h *Handler) HandleGetTimings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clientID, ok := parseID(w, r)
	if !ok {
		return
	}

	timings, err := h.service.GetTimings(ctx, dieticianID, clientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"meal_timings": timings})
}

// HandlePatchTimings handles PATCH /v1/clients/{id} with a meal_timings
// payload. The registry change is client-global and takes effect for
// every week loaded afterwards.
func (h *Handler) HandlePatchTimings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dieticianID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clientID, ok := parseID(w, r)
	if !ok {
		return
	}

	var req patchTimingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}
	if req.MealTimings == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "meal_timings is required")
		return
	}

	updated, err := h.service.UpdateTimings(ctx, dieticianID, clientID, req.MealTimings)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"meal_timings": updated})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
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

func writeServiceError(w http.ResponseWriter, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Client not found")
	case strings.HasPrefix(msg, "validation failed: "):
		writeError(w, http.StatusBadRequest, "invalid_request", strings.TrimPrefix(msg, "validation failed: "))
	case errors.Is(err, mealtimings.ErrInvalidTime),
		errors.Is(err, mealtimings.ErrBadMealNumber),
		errors.Is(err, mealtimings.ErrTooManyTimings),
		errors.Is(err, mealtimings.ErrEmptyTimingList):
		writeError(w, http.StatusBadRequest, "invalid_request", msg)
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
