package subscriptions

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/storage"
	"github.com/nutrivibes/api/internal/userctx"
)

// Handler handles HTTP requests for packages and subscriptions.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createPackageRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DurationDays int    `json:"duration_days"`
	PriceCents   int64  `json:"price_cents"`
	Currency     string `json:"currency"`
}

// HandleListPackages handles GET /v1/packages. Dieticians may pass
// ?include_inactive=1 to see retired packages.
func (h *Handler) HandleListPackages(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	onlyActive := true
	if !userctx.IsClient(r.Context()) && r.URL.Query().Get("include_inactive") == "1" {
		onlyActive = false
	}
	packages, err := h.service.ListPackages(r.Context(), onlyActive)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(packages))
	for i := range packages {
		out = append(out, packageDTO(&packages[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"packages": out})
}

// HandleCreatePackage handles POST /v1/packages (dietician only).
func (h *Handler) HandleCreatePackage(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	if userctx.IsClient(r.Context()) {
		writeError(w, http.StatusForbidden, "forbidden", "Only dieticians can manage packages")
		return
	}
	var req createPackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	pkg, err := h.service.CreatePackage(r.Context(), req.Name, req.Description, req.DurationDays, req.PriceCents, req.Currency)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, packageDTO(pkg))
}

type subscribeRequest struct {
	PackageID string `json:"package_id"`
}

// HandleSubscribe handles POST /v1/clients/{id}/subscriptions.
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clientID, ok := parseClientID(w, r)
	if !ok {
		return
	}
	if err := h.service.VerifyAccess(r.Context(), callerID, clientID, userctx.IsClient(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	packageID, err := uuid.Parse(req.PackageID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "package_id must be a UUID")
		return
	}
	sub, err := h.service.Subscribe(r.Context(), clientID, packageID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, subscriptionDTO(sub))
}

// HandleListSubscriptions handles GET /v1/clients/{id}/subscriptions.
func (h *Handler) HandleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clientID, ok := parseClientID(w, r)
	if !ok {
		return
	}
	if err := h.service.VerifyAccess(r.Context(), callerID, clientID, userctx.IsClient(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	subs, err := h.service.ListSubscriptions(r.Context(), clientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(subs))
	for i := range subs {
		out = append(out, subscriptionDTO(&subs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": out})
}

// HandleActivate handles POST /v1/subscriptions/{id}/activate. In mock
// payment mode this stands in for the provider callback.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	subID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid subscription ID")
		return
	}
	sub, err := h.service.Activate(r.Context(), subID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subscriptionDTO(sub))
}

// HandleCancel handles POST /v1/subscriptions/{id}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	subID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid subscription ID")
		return
	}
	if err := h.service.Cancel(r.Context(), subID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func packageDTO(p *storage.SubscriptionPackage) map[string]any {
	return map[string]any{
		"id":            p.ID.String(),
		"name":          p.Name,
		"description":   p.Description,
		"duration_days": p.DurationDays,
		"price_cents":   p.PriceCents,
		"currency":      p.Currency,
		"is_active":     p.IsActive,
	}
}

func subscriptionDTO(s *storage.Subscription) map[string]any {
	dto := map[string]any{
		"id":          s.ID.String(),
		"client_id":   s.ClientID.String(),
		"package_id":  s.PackageID.String(),
		"status":      s.Status,
		"order_id":    s.OrderID,
		"payment_url": s.PaymentURL,
		"created_at":  s.CreatedAt.Format(time.RFC3339),
	}
	if s.StartsAt != nil {
		dto["starts_at"] = s.StartsAt.Format(time.RFC3339)
	}
	if s.ExpiresAt != nil {
		dto["expires_at"] = s.ExpiresAt.Format(time.RFC3339)
	}
	return dto
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

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrClientNotFound):
		writeError(w, http.StatusNotFound, "client_not_found", "Client not found")
	case errors.Is(err, ErrPackageNotFound):
		writeError(w, http.StatusNotFound, "package_not_found", "Package not found")
	case errors.Is(err, ErrSubscriptionNotFound):
		writeError(w, http.StatusNotFound, "subscription_not_found", "Subscription not found")
	case errors.Is(err, ErrAlreadyActive):
		writeError(w, http.StatusConflict, "already_active", "Client already has an active subscription")
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
