package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/config"
	"github.com/nutrivibes/api/internal/userctx"
)

type Handlers struct {
	config  *config.Config
	service *Service
}

func NewHandlers(cfg *config.Config, service *Service) *Handlers {
	return &Handlers{config: cfg, service: service}
}

type devTokenRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type devTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
}

// HandleDevToken handles POST /v1/auth/dev-token. Only available with
// AUTH_MODE=dev; there is no real sign-in flow in this service.
func (h *Handlers) HandleDevToken(w http.ResponseWriter, r *http.Request) {
	if h.config.AuthMode != "dev" {
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Dev tokens are disabled")
		return
	}

	var req devTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = uuid.NewString()
	} else if _, err := uuid.Parse(req.UserID); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "user_id must be a UUID")
		return
	}
	if req.Role == "" {
		req.Role = userctx.RoleDietician
	}

	token, err := h.service.GenerateToken(req.UserID, req.Role)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "role must be dietician or client")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(devTokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.config.JWTTTLMinutes) * 60,
		UserID:      req.UserID,
		Role:        req.Role,
	})
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
