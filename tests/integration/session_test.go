package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
	"github.com/RamiroHerreraX/lacteos-auth/internal/repositories"
)

func countActiveSessions(ctx context.Context, t *testing.T, db *TestDB, userID string) int {
	t.Helper()
	var count int
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sessions WHERE user_id = $1 AND state = 'active'`,
		userID,
	).Scan(&count)
	require.NoError(t, err)
	return count
}

func TestSessionRepository_SingleActiveSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer db.Teardown(ctx)

	user, err := SeedUser(ctx, db.DB, "Maria Lopez", "maria@example.com", "TestPassword123!", models.RoleEditor)
	require.NoError(t, err)

	sessions := repositories.NewSessionRepository(db.DB)

	for i := 0; i < 3; i++ {
		_, err = sessions.Create(ctx, &models.Session{
			UserID: user.ID,
			Name:   user.Name,
			Email:  user.Email,
			IP:     "203.0.113.9",
			Token:  fmt.Sprintf("token-%d", i),
		}, 5*time.Minute)
		require.NoError(t, err)

		// Each login supersedes the previous session.
		assert.Equal(t, 1, countActiveSessions(ctx, t, db, user.ID))
	}

	mine, err := sessions.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, mine, 3)

	history, err := sessions.ListHistory(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// Newest first, and only the newest still active.
	assert.Equal(t, "token-2", history[0].Token)
	assert.Equal(t, models.SessionActive, history[0].State)
	assert.Equal(t, models.SessionDeactivated, history[1].State)
	assert.Equal(t, models.SessionDeactivated, history[2].State)
}

func TestSessionRepository_ConcurrentCreates_SingleActive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer db.Teardown(ctx)

	user, err := SeedUser(ctx, db.DB, "Maria Lopez", "maria@example.com", "TestPassword123!", models.RoleEditor)
	require.NoError(t, err)

	sessions := repositories.NewSessionRepository(db.DB)

	const logins = 8
	var wg sync.WaitGroup
	errs := make([]error, logins)
	for i := 0; i < logins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = sessions.Create(ctx, &models.Session{
				UserID: user.ID,
				Name:   user.Name,
				Email:  user.Email,
				IP:     "203.0.113.9",
				Token:  fmt.Sprintf("race-token-%d", i),
			}, 5*time.Minute)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "create %d", i)
	}

	// Racing logins must serialize; the rest get deactivated.
	assert.Equal(t, 1, countActiveSessions(ctx, t, db, user.ID))
}

func TestSessionRepository_ListHistory_ScopedToUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer db.Teardown(ctx)

	maria, err := SeedUser(ctx, db.DB, "Maria Lopez", "maria@example.com", "TestPassword123!", models.RoleEditor)
	require.NoError(t, err)
	diego, err := SeedUser(ctx, db.DB, "Diego Torres", "diego@example.com", "TestPassword123!", models.RoleReader)
	require.NoError(t, err)

	sessions := repositories.NewSessionRepository(db.DB)

	for i, owner := range []*models.User{maria, maria, diego} {
		_, err = sessions.Create(ctx, &models.Session{
			UserID: owner.ID,
			Name:   owner.Name,
			Email:  owner.Email,
			Token:  fmt.Sprintf("scoped-token-%d", i),
		}, 5*time.Minute)
		require.NoError(t, err)
	}

	history, err := sessions.ListHistory(ctx, maria.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, entry := range history {
		assert.Equal(t, maria.ID, entry.UserID)
	}

	history, err = sessions.ListHistory(ctx, diego.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, diego.ID, history[0].UserID)
}

func TestSessionRepository_ListHistory_DeactivatesExpired(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer db.Teardown(ctx)

	user, err := SeedUser(ctx, db.DB, "Maria Lopez", "maria@example.com", "TestPassword123!", models.RoleReader)
	require.NoError(t, err)

	sessions := repositories.NewSessionRepository(db.DB)

	created, err := sessions.Create(ctx, &models.Session{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Token:  "expiring-token",
	}, 5*time.Minute)
	require.NoError(t, err)

	// Force the window into the past.
	_, err = db.Pool.Exec(ctx,
		`UPDATE sessions SET expires_at = NOW() - INTERVAL '1 minute' WHERE id = $1`,
		created.ID,
	)
	require.NoError(t, err)

	history, err := sessions.ListHistory(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.SessionDeactivated, history[0].State)
	assert.Positive(t, history[0].Duration)
}

func TestSessionRepository_SweepExpired(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer db.Teardown(ctx)

	user, err := SeedUser(ctx, db.DB, "Maria Lopez", "maria@example.com", "TestPassword123!", models.RoleReader)
	require.NoError(t, err)

	sessions := repositories.NewSessionRepository(db.DB)

	created, err := sessions.Create(ctx, &models.Session{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Token:  "sweep-token",
	}, 5*time.Minute)
	require.NoError(t, err)

	closed, err := sessions.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, closed)

	_, err = db.Pool.Exec(ctx,
		`UPDATE sessions SET expires_at = NOW() - INTERVAL '1 minute' WHERE id = $1`,
		created.ID,
	)
	require.NoError(t, err)

	closed, err = sessions.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
}

func TestResetTokenRepository_OneTokenPerEmail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer db.Teardown(ctx)

	tokens := repositories.NewResetTokenRepository(db.DB)

	first := &models.ResetToken{
		Token:     "first-token",
		Email:     "maria@example.com",
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	require.NoError(t, tokens.Create(ctx, first))

	second := &models.ResetToken{
		Token:     "second-token",
		Email:     "Maria@Example.com",
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	require.NoError(t, tokens.Create(ctx, second))

	// The first token was replaced, case-insensitively.
	_, err = tokens.GetByToken(ctx, "first-token")
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := tokens.GetByToken(ctx, "second-token")
	require.NoError(t, err)
	assert.Equal(t, "Maria@Example.com", got.Email)
}
