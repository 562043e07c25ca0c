package tracking

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/storage"
	"github.com/nutrivibes/api/internal/userctx"
)

// Handler handles HTTP requests for tracking logs.
type Handler struct {
	service *Service

	uploadMaxBytes    int64
	uploadAllowedMime map[string]bool
}

// NewHandler creates a new tracking handler.
func NewHandler(service *Service, uploadMaxMB int, uploadAllowedMime string) *Handler {
	allowed := make(map[string]bool)
	for _, m := range strings.Split(uploadAllowedMime, ",") {
		m = strings.TrimSpace(strings.ToLower(m))
		if m != "" {
			allowed[m] = true
		}
	}
	return &Handler{
		service:           service,
		uploadMaxBytes:    int64(uploadMaxMB) * 1024 * 1024,
		uploadAllowedMime: allowed,
	}
}

type logWeightRequest struct {
	Date     string  `json:"date"`
	WeightKg float64 `json:"weight_kg"`
}

type logWaterRequest struct {
	AmountMl int `json:"amount_ml"`
}

type logMealRequest struct {
	Date       string  `json:"date"`
	MealNumber int     `json:"meal_number"`
	Status     string  `json:"status"`
	Note       *string `json:"note"`
}

type logCycleRequest struct {
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Note      *string `json:"note"`
}

// resolveClient determines whose logs the request is about: a client
// acts on their own data, a dietician passes client_id and must own it.
func (h *Handler) resolveClient(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	ctx := r.Context()
	userID, ok := userctx.GetUserID(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return uuid.Nil, false
	}
	callerID, err := uuid.Parse(userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid user identity")
		return uuid.Nil, false
	}

	clientID := callerID
	if raw := r.URL.Query().Get("client_id"); raw != "" {
		clientID, err = uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Invalid client_id")
			return uuid.Nil, false
		}
	}

	if err := h.service.VerifyAccess(ctx, callerID, clientID, userctx.IsClient(ctx)); err != nil {
		writeServiceError(w, err)
		return uuid.Nil, false
	}
	return clientID, true
}

// HandleLogWeight handles POST /v1/logs/weight.
func (h *Handler) HandleLogWeight(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.resolveClient(w, r)
	if !ok {
		return
	}

	var req logWeightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	entry, err := h.service.LogWeight(r.Context(), clientID, req.Date, req.WeightKg)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleListWeights handles GET /v1/logs/weight?from=&to=.
func (h *Handler) HandleListWeights(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.resolveClient(w, r)
	if !ok {
		return
	}

	entries, err := h.service.ListWeights(r.Context(), clientID, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// HandleLogWater handles POST /v1/logs/water.
func (h *Handler) HandleLogWater(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.resolveClient(w, r)
	if !ok {
		return
	}

	var req logWaterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	total, err := h.service.LogWater(r.Context(), clientID, req.AmountMl)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total_ml": total})
}

// HandleWaterDaily handles GET /v1/logs/water/daily?date=.
func (h *Handler) HandleWaterDaily(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.resolveClient(w, r)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	total, err := h.service.GetWaterDaily(r.Context(), clientID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "total_ml": total})
}

// HandleLogMeal handles POST /v1/logs/meals.
func (h *Handler) HandleLogMeal(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.resolveClient(w, r)
	if !ok {
		return
	}

	var req logMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	entry, err := h.service.LogMeal(r.Context(), clientID, req.Date, req.MealNumber, req.Status, req.Note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleListMealLogs handles GET /v1/logs/meals?date=.
func (h *Handler) HandleListMealLogs(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.resolveClient(w, r)
	if !ok {
		return
	}

	entries, err := h.service.ListMealLogs(r.Context(), clientID, r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// HandleAddMeasurement handles POST /v1/logs/measurements
// (multipart/form-data: date, chest_cm, waist_cm, hips_cm, photo).
func (h *Handler) HandleAddMeasurement(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.resolveClient(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes)
	if err := r.ParseMultipartForm(h.uploadMaxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid multipart form or file too large")
		return
	}

	date := r.FormValue("date")
	chest := parseOptionalFloat(r.FormValue("chest_cm"))
	waist := parseOptionalFloat(r.FormValue("waist_cm"))
	hips := parseOptionalFloat(r.FormValue("hips_cm"))

	var photo []byte
	var photoMime string
	if file, header, err := r.FormFile("photo"); err == nil {
		defer file.Close()
		photoMime = strings.ToLower(header.Header.Get("Content-Type"))
		if !h.uploadAllowedMime[photoMime] {
			writeError(w, http.StatusBadRequest, "invalid_request", "Unsupported photo type")
			return
		}
		photo, err = io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_payload", "Failed to read photo")
			return
		}
	}

	entry, err := h.service.AddMeasurement(r.Context(), clientID, date, chest, waist, hips, photo, photoMime)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, measurementDTO(entry))
}

// HandleListMeasurements handles GET /v1/logs/measurements?from=&to=.
func (h *Handler) HandleListMeasurements(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.resolveClient(w, r)
	if !ok {
		return
	}

	entries, err := h.service.ListMeasurements(r.Context(), clientID, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for i := range entries {
		out = append(out, measurementDTO(&entries[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// HandleGetPhoto handles GET /v1/logs/measurements/{id}/photo. S3 mode
// redirects to a presigned URL; local mode streams the bytes.
func (h *Handler) HandleGetPhoto(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.resolveClient(w, r)
	if !ok {
		return
	}
	measurementID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid measurement ID")
		return
	}

	url, err := h.service.PhotoURL(r.Context(), clientID, measurementID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if url != "" {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	data, contentType, err := h.service.PhotoBytes(r.Context(), clientID, measurementID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// HandleLogCycle handles POST /v1/logs/cycle.
func (h *Handler) HandleLogCycle(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.resolveClient(w, r)
	if !ok {
		return
	}

	var req logCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	entry, err := h.service.LogCycle(r.Context(), clientID, req.StartDate, req.EndDate, req.Note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleListCycles handles GET /v1/logs/cycle?from=&to=.
func (h *Handler) HandleListCycles(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.resolveClient(w, r)
	if !ok {
		return
	}

	entries, err := h.service.ListCycles(r.Context(), clientID, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func measurementDTO(e *storage.MeasurementEntry) map[string]any {
	dto := map[string]any{
		"id":        e.ID.String(),
		"date":      e.Date,
		"chest_cm":  e.ChestCm,
		"waist_cm":  e.WaistCm,
		"hips_cm":   e.HipsCm,
		"has_photo": e.PhotoKey != nil,
	}
	return dto
}

func parseOptionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrClientNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Client not found")
	case errors.Is(err, ErrPhotoNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Photo not found")
	case errors.Is(err, ErrInvalidInput):
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
