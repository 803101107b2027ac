package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_ListHistory(t *testing.T) {
	now := time.Now()
	sessions := &MockSessionRepository{
		ListHistoryFunc: func(ctx context.Context, userID string) ([]*models.Session, error) {
			assert.Equal(t, "user123", userID)
			return []*models.Session{
				{
					ID:        "s2",
					UserID:    "user123",
					State:     models.SessionActive,
					CreatedAt: now,
					ExpiresAt: now.Add(5 * time.Minute),
				},
				{
					ID:        "s1",
					UserID:    "user123",
					State:     models.SessionDeactivated,
					CreatedAt: now.Add(-1 * time.Hour),
					Duration:  95 * time.Second,
				},
			}, nil
		},
	}

	svc := NewSessionService(sessions, 5*time.Minute, testLogger())

	entries, err := svc.ListHistory(context.Background(), "user123")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "s2", entries[0].ID)
	assert.Equal(t, models.SessionActive, entries[0].State)
	assert.Equal(t, int64(95), entries[1].DurationSecs)
}

func TestSessionService_ListHistory_RepoError(t *testing.T) {
	sessions := &MockSessionRepository{
		ListHistoryFunc: func(ctx context.Context, userID string) ([]*models.Session, error) {
			return nil, errors.New("connection refused")
		},
	}

	svc := NewSessionService(sessions, 5*time.Minute, testLogger())

	_, err := svc.ListHistory(context.Background(), "user123")
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestSessionService_Touch_UsesConfiguredLifetime(t *testing.T) {
	var gotLifetime time.Duration
	sessions := &MockSessionRepository{
		TouchFunc: func(ctx context.Context, token string, lifetime time.Duration) error {
			gotLifetime = lifetime
			return nil
		},
	}

	svc := NewSessionService(sessions, 5*time.Minute, testLogger())

	require.NoError(t, svc.Touch(context.Background(), "token"))
	assert.Equal(t, 5*time.Minute, gotLifetime)
}
