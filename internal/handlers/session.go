package handlers

import (
	"context"
	"net/http"

	"github.com/RamiroHerreraX/lacteos-auth/internal/auth"
	"github.com/RamiroHerreraX/lacteos-auth/internal/services"
	pkghttp "github.com/RamiroHerreraX/lacteos-auth/pkg/http"
)

// SessionServiceInterface defines the interface for the session registry
type SessionServiceInterface interface {
	ListHistory(ctx context.Context, userID string) ([]*services.SessionEntry, error)
}

// SessionHandler handles session history HTTP requests
type SessionHandler struct {
	service SessionServiceInterface
}

func NewSessionHandler(service SessionServiceInterface) *SessionHandler {
	return &SessionHandler{service: service}
}

// History returns the caller's reconciled session history, newest first. The
// identity comes from the verified credential, never from the request.
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	entries, err := h.service.ListHistory(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
