package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/RamiroHerreraX/lacteos-auth/internal/auth"
	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
	"github.com/RamiroHerreraX/lacteos-auth/internal/services"
	pkghttp "github.com/RamiroHerreraX/lacteos-auth/pkg/http"
)

// AuthServiceInterface defines the interface for the login pipeline
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, ip string) (*services.LoginResponse, error)
	VerifyOTP(ctx context.Context, email, code, ip string) (*services.VerifyOTPResponse, error)
	Logout(ctx context.Context, email, token string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service AuthServiceInterface
}

func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// Request DTOs

// LoginRequest represents the request body for the password step
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyOTPRequest represents the request body for the code step
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"otp" validate:"required,len=6,numeric"`
}

// Login handles the password step of the two-step login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	ip := pkghttp.ExtractClientIP(r)

	resp, err := h.service.Login(r.Context(), req.Email, req.Password, ip)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// VerifyOTP handles the code step and returns the session credential
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	ip := pkghttp.ExtractClientIP(r)

	resp, err := h.service.VerifyOTP(r.Context(), req.Email, req.Code, ip)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Logout ends the caller's session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	token := bearerToken(r)
	if err := h.service.Logout(r.Context(), claims.Email, token); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "session closed"})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return header[7:]
	}
	return ""
}

// writeAuthError maps service errors onto the wire taxonomy.
func writeAuthError(w http.ResponseWriter, err error) {
	var blockedErr *models.BlockedError
	switch {
	case errors.As(err, &blockedErr):
		pkghttp.WriteBlocked(w, "Account temporarily blocked", int(blockedErr.RetryAfter.Seconds()))
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Account not found")
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteBadRequest(w, "Incorrect password")
	case errors.Is(err, models.ErrIncorrectOTP):
		pkghttp.WriteBadRequest(w, "Incorrect verification code")
	case errors.Is(err, models.ErrOTPExpired):
		pkghttp.WriteBadRequest(w, "Verification code expired")
	case errors.Is(err, models.ErrInvalidToken):
		pkghttp.WriteBadRequest(w, "Invalid reset token")
	case errors.Is(err, models.ErrTokenExpired):
		pkghttp.WriteBadRequest(w, "Reset token expired")
	case errors.Is(err, models.ErrEmailMismatch):
		pkghttp.WriteBadRequest(w, "Token was issued for a different account")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Access denied")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
