package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/astro-auth-api/internal/application/auth"
	"github.com/astro-auth-api/internal/application/user"
	"github.com/astro-auth-api/internal/pkg/validate"
	"github.com/astro-auth-api/internal/transport/http/middleware"
)

// AuthHandler handles the OTP sign-in flow and token introspection.
type AuthHandler struct {
	authSvc auth.Service
	userSvc user.Service
}

func NewAuthHandler(authSvc auth.Service, userSvc user.Service) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, userSvc: userSvc}
}

func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ttl, err := h.authSvc.SendOTP(r.Context(), req.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SendOTPEnvelope{
		Message:          "OTP sent successfully",
		Email:            req.Email,
		ExpiresInMinutes: ttl,
	})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.authSvc.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.userSvc.Get(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Logout is a confirmation endpoint. Tokens are stateless, so discarding the
// token is the client's job; this just acknowledges it behind auth.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	slog.Info("user logged out", "user_id", claims.Subject)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Logged out successfully"})
}

func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, TokenVerifyEnvelope{
		Message: "Token is valid",
		UserID:  claims.Subject,
		Email:   claims.Email,
	})
}
