package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/RamiroHerreraX/lacteos-auth/internal/services"
	pkghttp "github.com/RamiroHerreraX/lacteos-auth/pkg/http"
)

// ResetServiceInterface defines the interface for the reset token lifecycle
type ResetServiceInterface interface {
	RequestReset(ctx context.Context, email string) (*services.RequestResetResponse, error)
	VerifyResetOTP(ctx context.Context, email, token, code string) (*services.VerifyResetOTPResponse, error)
	ResetPassword(ctx context.Context, token, newPassword, ip string) error
	RecoverUsername(ctx context.Context, email string) (*services.RequestResetResponse, error)
}

// ResetHandler handles password-reset HTTP requests
type ResetHandler struct {
	service ResetServiceInterface
}

func NewResetHandler(service ResetServiceInterface) *ResetHandler {
	return &ResetHandler{service: service}
}

// RequestResetRequest represents the request body for starting a reset
type RequestResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyResetOTPRequest represents the request body for the admin OTP step
type VerifyResetOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
	Code  string `json:"otp" validate:"required,len=6,numeric"`
}

// ResetPasswordRequest represents the request body for the final step
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// RequestReset starts a password reset for the account
func (h *ResetHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req RequestResetRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	resp, err := h.service.RequestReset(r.Context(), req.Email)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// VerifyResetOTP validates the admin code and rotates the token
func (h *ResetHandler) VerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyResetOTPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	resp, err := h.service.VerifyResetOTP(r.Context(), req.Email, req.Token, req.Code)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ResetPassword consumes the token and sets the new password
func (h *ResetHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ip := pkghttp.ExtractClientIP(r)

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword, ip); err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// RecoverUsername mails the account name registered for the address
func (h *ResetHandler) RecoverUsername(w http.ResponseWriter, r *http.Request) {
	var req RequestResetRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	resp, err := h.service.RecoverUsername(r.Context(), req.Email)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
