package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
)

// SessionEntry is one row of the session history as returned to clients.
type SessionEntry struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	IP           string              `json:"ip"`
	Location     *models.GeoLocation `json:"location,omitempty"`
	State        string              `json:"state"`
	CreatedAt    time.Time           `json:"created_at"`
	LastActivity time.Time           `json:"last_activity"`
	ExpiresAt    time.Time           `json:"expires_at"`
	DurationSecs int64               `json:"duration_seconds"`
}

// SessionService exposes the session registry to handlers and the background
// sweeper.
type SessionService struct {
	sessions   SessionRepository
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewSessionService(sessions SessionRepository, sessionTTL time.Duration, logger *slog.Logger) *SessionService {
	return &SessionService{
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// ListHistory returns the user's reconciled session history, newest first.
// The repository deactivates their expired and duplicate-active rows before
// the read, so the result never shows two concurrent actives.
func (s *SessionService) ListHistory(ctx context.Context, userID string) ([]*SessionEntry, error) {
	sessions, err := s.sessions.ListHistory(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list session history", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	entries := make([]*SessionEntry, 0, len(sessions))
	for _, session := range sessions {
		entries = append(entries, &SessionEntry{
			ID:           session.ID,
			UserID:       session.UserID,
			Name:         session.Name,
			Email:        session.Email,
			IP:           session.IP,
			Location:     session.Location,
			State:        session.State,
			CreatedAt:    session.CreatedAt,
			LastActivity: session.LastActivity,
			ExpiresAt:    session.ExpiresAt,
			DurationSecs: int64(session.Duration.Seconds()),
		})
	}

	return entries, nil
}

// Touch extends the caller's session window after authenticated activity.
// A missing row means the session already expired; the caller treats that
// as a stale credential.
func (s *SessionService) Touch(ctx context.Context, token string) error {
	return s.sessions.Touch(ctx, token, s.sessionTTL)
}

// SweepExpired deactivates every session whose window elapsed.
func (s *SessionService) SweepExpired(ctx context.Context) (int, error) {
	return s.sessions.SweepExpired(ctx)
}
