package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func authedRequest(t *testing.T, tm *TokenManager, role string) *http.Request {
	t.Helper()
	token, err := tm.GenerateSessionToken("user123", "maria@example.com", role)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	tm := NewTokenManager(testSecret, 1*time.Hour)
	handler := AuthMiddleware(tm)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	tm := NewTokenManager(testSecret, 1*time.Hour)
	handler := AuthMiddleware(tm)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_ValidToken_InjectsClaims(t *testing.T) {
	tm := NewTokenManager(testSecret, 1*time.Hour)

	var claims *models.TokenClaims
	handler := AuthMiddleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims = GetUserFromContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, tm, models.RoleEditor))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "maria@example.com", claims.Email)
}

func TestActivityMiddleware_StaleIdentityRejected(t *testing.T) {
	tm := NewTokenManager(testSecret, 1*time.Hour)
	tracker := NewActivityTracker(1 * time.Minute)

	handler := AuthMiddleware(tm)(ActivityMiddleware(tracker)(okHandler()))

	// Identity never recorded: token valid but no live session activity.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, tm, models.RoleReader))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// After recording (as login does), the request goes through.
	tracker.Record("maria@example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, tm, models.RoleReader))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestActivityTracker_IdleBeyondLimit(t *testing.T) {
	tracker := &memoryActivityTracker{
		last:  make(map[string]time.Time),
		limit: 1 * time.Minute,
		now:   time.Now,
	}

	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	current := base
	tracker.now = func() time.Time { return current }

	tracker.Record("maria@example.com")

	current = base.Add(59 * time.Second)
	assert.True(t, tracker.Touch("maria@example.com"))

	// The touch refreshed the window.
	current = current.Add(59 * time.Second)
	assert.True(t, tracker.Touch("maria@example.com"))

	current = current.Add(2 * time.Minute)
	assert.False(t, tracker.Touch("maria@example.com"))

	// Entry dropped on rejection; a later touch inside any window still fails.
	current = current.Add(time.Second)
	assert.False(t, tracker.Touch("maria@example.com"))
}

func TestActivityTracker_ConcurrentTouches(t *testing.T) {
	tracker := NewActivityTracker(1 * time.Minute)
	tracker.Record("maria@example.com")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Touch("maria@example.com")
		}()
	}
	wg.Wait()

	assert.True(t, tracker.Touch("maria@example.com"))
}

type touchRecorder struct {
	tokens []string
}

func (tr *touchRecorder) Touch(_ context.Context, token string) error {
	tr.tokens = append(tr.tokens, token)
	return nil
}

func TestSessionRefreshMiddleware_TouchesBearerToken(t *testing.T) {
	toucher := &touchRecorder{}
	handler := SessionRefreshMiddleware(toucher)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer session-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"session-token"}, toucher.tokens)
}

func TestSessionRefreshMiddleware_NoToken_PassesThrough(t *testing.T) {
	toucher := &touchRecorder{}
	handler := SessionRefreshMiddleware(toucher)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, toucher.tokens)
}
