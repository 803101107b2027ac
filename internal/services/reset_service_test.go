package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
	pkgauth "github.com/RamiroHerreraX/lacteos-auth/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resetFixture struct {
	users  *MockUserRepository
	tokens *MockResetTokenRepository
	mirror *MockTokenMirror
	cache  *MockIdentityCache
	mailer *MockMailer
	svc    *ResetService

	stored  map[string]*models.ResetToken
	deleted []string
}

func newResetFixture(t *testing.T, user *models.User) *resetFixture {
	t.Helper()

	f := &resetFixture{
		users:  &MockUserRepository{},
		tokens: &MockResetTokenRepository{},
		mirror: &MockTokenMirror{},
		cache:  &MockIdentityCache{},
		mailer: &MockMailer{},
		stored: make(map[string]*models.ResetToken),
	}

	if user != nil {
		f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
			if email == user.Email {
				return user, nil
			}
			return nil, models.ErrNotFound
		}
	}

	f.tokens.CreateFunc = func(ctx context.Context, token *models.ResetToken) error {
		f.stored[token.Token] = token
		return nil
	}
	f.tokens.GetByTokenFunc = func(ctx context.Context, raw string) (*models.ResetToken, error) {
		if token, ok := f.stored[raw]; ok {
			return token, nil
		}
		return nil, models.ErrNotFound
	}
	f.tokens.DeleteFunc = func(ctx context.Context, raw string) error {
		if _, ok := f.stored[raw]; !ok {
			return models.ErrNotFound
		}
		delete(f.stored, raw)
		f.deleted = append(f.deleted, raw)
		return nil
	}

	f.svc = NewResetService(ResetServiceParams{
		Users:       f.users,
		Tokens:      f.tokens,
		Mirror:      f.mirror,
		Identities:  f.cache,
		Codes:       &MockCodeGenerator{},
		Mailer:      f.mailer,
		ResetURL:    "http://localhost:4200/reset",
		StdExpiry:   15 * time.Minute,
		AdminExpiry: 5 * time.Minute,
		Logger:      testLogger(),
		AuditLogger: testAuditLogger(),
	})

	return f
}

func (f *resetFixture) onlyStoredToken(t *testing.T) *models.ResetToken {
	t.Helper()
	require.Len(t, f.stored, 1)
	for _, token := range f.stored {
		return token
	}
	return nil
}

func TestResetService_RequestReset_UnknownAccount(t *testing.T) {
	f := newResetFixture(t, nil)

	_, err := f.svc.RequestReset(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestResetService_RequestReset_StandardUser(t *testing.T) {
	user := newTestUser(t, models.RoleReader)
	f := newResetFixture(t, user)

	mailedToken := ""
	f.mailer.SendResetLinkFunc = func(ctx context.Context, email, token string, expiresAt time.Time) error {
		mailedToken = token
		return nil
	}

	resp, err := f.svc.RequestReset(context.Background(), user.Email)
	require.NoError(t, err)
	assert.Empty(t, resp.Token)
	assert.Empty(t, resp.OTP)

	token := f.onlyStoredToken(t)
	assert.Equal(t, token.Token, mailedToken)
	assert.Nil(t, token.OTP)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), token.ExpiresAt, 5*time.Second)
}

func TestResetService_RequestReset_Admin_GetsOTP(t *testing.T) {
	user := newTestUser(t, models.RoleAdmin)
	f := newResetFixture(t, user)

	mailedCode := ""
	f.mailer.SendAdminResetOTPFunc = func(ctx context.Context, email, token, code string, expiresAt time.Time) error {
		mailedCode = code
		return nil
	}

	_, err := f.svc.RequestReset(context.Background(), user.Email)
	require.NoError(t, err)
	assert.Equal(t, "123456", mailedCode)

	token := f.onlyStoredToken(t)
	require.NotNil(t, token.OTP)
	assert.Equal(t, "123456", *token.OTP)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), token.ExpiresAt, 5*time.Second)
}

func TestResetService_RequestReset_MailFailure_DisclosesInline(t *testing.T) {
	user := newTestUser(t, models.RoleAdmin)
	f := newResetFixture(t, user)

	f.mailer.SendAdminResetOTPFunc = func(ctx context.Context, email, token, code string, expiresAt time.Time) error {
		return errors.New("ses unavailable")
	}

	resp, err := f.svc.RequestReset(context.Background(), user.Email)
	require.NoError(t, err)

	token := f.onlyStoredToken(t)
	assert.Equal(t, token.Token, resp.Token)
	assert.Equal(t, "123456", resp.OTP)
}

func TestResetService_RequestReset_MirrorsOffline(t *testing.T) {
	user := newTestUser(t, models.RoleReader)
	f := newResetFixture(t, user)

	mirrored := false
	f.mirror.SaveFunc = func(token *models.ResetToken) { mirrored = true }

	_, err := f.svc.RequestReset(context.Background(), user.Email)
	require.NoError(t, err)
	assert.True(t, mirrored)
}

func TestResetService_RequestReset_StoreDown_MirrorOnly(t *testing.T) {
	user := newTestUser(t, models.RoleReader)
	f := newResetFixture(t, user)

	f.tokens.CreateFunc = func(ctx context.Context, token *models.ResetToken) error {
		return errors.New("dial tcp: connection refused")
	}
	var mirrored *models.ResetToken
	f.mirror.SaveFunc = func(token *models.ResetToken) { mirrored = token }

	_, err := f.svc.RequestReset(context.Background(), user.Email)
	require.NoError(t, err)
	require.NotNil(t, mirrored)
	assert.Equal(t, user.Email, mirrored.Email)
}

func TestResetService_VerifyResetOTP_InvalidToken(t *testing.T) {
	f := newResetFixture(t, nil)

	_, err := f.svc.VerifyResetOTP(context.Background(), "maria@example.com", "no-such-token", "123456")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestResetService_VerifyResetOTP_EmailMismatch(t *testing.T) {
	user := newTestUser(t, models.RoleAdmin)
	f := newResetFixture(t, user)

	_, err := f.svc.RequestReset(context.Background(), user.Email)
	require.NoError(t, err)
	token := f.onlyStoredToken(t)

	_, err = f.svc.VerifyResetOTP(context.Background(), "other@example.com", token.Token, "123456")
	assert.ErrorIs(t, err, models.ErrEmailMismatch)
}

func TestResetService_VerifyResetOTP_Expired_DeletesToken(t *testing.T) {
	user := newTestUser(t, models.RoleAdmin)
	f := newResetFixture(t, user)

	code := "123456"
	f.stored["expired-token"] = &models.ResetToken{
		Token:     "expired-token",
		Email:     user.Email,
		OTP:       &code,
		ExpiresAt: time.Now().Add(-1 * time.Minute),
	}

	_, err := f.svc.VerifyResetOTP(context.Background(), user.Email, "expired-token", code)
	assert.ErrorIs(t, err, models.ErrTokenExpired)
	assert.Contains(t, f.deleted, "expired-token")
}

func TestResetService_VerifyResetOTP_WrongCode(t *testing.T) {
	user := newTestUser(t, models.RoleAdmin)
	f := newResetFixture(t, user)

	_, err := f.svc.RequestReset(context.Background(), user.Email)
	require.NoError(t, err)
	token := f.onlyStoredToken(t)

	_, err = f.svc.VerifyResetOTP(context.Background(), user.Email, token.Token, "000000")
	assert.ErrorIs(t, err, models.ErrIncorrectOTP)

	// Token survives a wrong guess.
	assert.Contains(t, f.stored, token.Token)
}

func TestResetService_VerifyResetOTP_Success_RotatesToken(t *testing.T) {
	user := newTestUser(t, models.RoleAdmin)
	f := newResetFixture(t, user)

	_, err := f.svc.RequestReset(context.Background(), user.Email)
	require.NoError(t, err)
	first := f.onlyStoredToken(t)

	resp, err := f.svc.VerifyResetOTP(context.Background(), user.Email, first.Token, "123456")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, resp.Token)
	assert.Contains(t, resp.URL, resp.Token)
	assert.Contains(t, f.deleted, first.Token)

	next := f.onlyStoredToken(t)
	assert.Equal(t, resp.Token, next.Token)
	assert.Nil(t, next.OTP)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), next.ExpiresAt, 5*time.Second)
}

func TestResetService_ResetPassword_TooShort(t *testing.T) {
	f := newResetFixture(t, nil)

	err := f.svc.ResetPassword(context.Background(), "any-token", "abc", "203.0.113.9")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestResetService_ResetPassword_InvalidToken(t *testing.T) {
	f := newResetFixture(t, nil)

	err := f.svc.ResetPassword(context.Background(), "no-such-token", "NewPass1!", "203.0.113.9")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestResetService_ResetPassword_Expired_DeletesToken(t *testing.T) {
	f := newResetFixture(t, nil)

	f.stored["expired-token"] = &models.ResetToken{
		Token:     "expired-token",
		Email:     "maria@example.com",
		ExpiresAt: time.Now().Add(-1 * time.Minute),
	}

	err := f.svc.ResetPassword(context.Background(), "expired-token", "NewPass1!", "203.0.113.9")
	assert.ErrorIs(t, err, models.ErrTokenExpired)
	assert.Contains(t, f.deleted, "expired-token")
}

func TestResetService_ResetPassword_Success(t *testing.T) {
	user := newTestUser(t, models.RoleReader)
	f := newResetFixture(t, user)

	updatedHash := ""
	f.users.UpdatePasswordHashFunc = func(ctx context.Context, email, passwordHash string) error {
		require.Equal(t, user.Email, email)
		updatedHash = passwordHash
		return nil
	}

	_, err := f.svc.RequestReset(context.Background(), user.Email)
	require.NoError(t, err)
	token := f.onlyStoredToken(t)

	err = f.svc.ResetPassword(context.Background(), token.Token, "NewPass1!", "203.0.113.9")
	require.NoError(t, err)

	require.NotEmpty(t, updatedHash)
	assert.NoError(t, pkgauth.ComparePassword(updatedHash, "NewPass1!"))

	// Token consumed; the link is single-use.
	assert.Empty(t, f.stored)
	err = f.svc.ResetPassword(context.Background(), token.Token, "NewPass1!", "203.0.113.9")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestResetService_ResetPassword_StoreDown_UpdatesCache(t *testing.T) {
	user := newTestUser(t, models.RoleReader)
	f := newResetFixture(t, user)

	f.users.UpdatePasswordHashFunc = func(ctx context.Context, email, passwordHash string) error {
		return errors.New("dial tcp: connection refused")
	}

	var cached *models.User
	f.cache.LookupFunc = func(email string) (*models.User, error) {
		copied := *user
		return &copied, nil
	}
	f.cache.RememberFunc = func(u *models.User) { cached = u }

	_, err := f.svc.RequestReset(context.Background(), user.Email)
	require.NoError(t, err)
	token := f.onlyStoredToken(t)

	err = f.svc.ResetPassword(context.Background(), token.Token, "NewPass1!", "203.0.113.9")
	require.NoError(t, err)

	require.NotNil(t, cached)
	assert.NoError(t, pkgauth.ComparePassword(cached.PasswordHash, "NewPass1!"))
}

func TestResetService_ResetPassword_TokenFromMirror(t *testing.T) {
	user := newTestUser(t, models.RoleReader)
	f := newResetFixture(t, user)

	f.tokens.GetByTokenFunc = func(ctx context.Context, raw string) (*models.ResetToken, error) {
		return nil, errors.New("dial tcp: connection refused")
	}
	f.mirror.GetFunc = func(raw string) (*models.ResetToken, error) {
		if raw != "mirrored-token" {
			return nil, models.ErrNotFound
		}
		return &models.ResetToken{
			Token:     "mirrored-token",
			Email:     user.Email,
			ExpiresAt: time.Now().Add(10 * time.Minute),
		}, nil
	}

	updated := false
	f.users.UpdatePasswordHashFunc = func(ctx context.Context, email, passwordHash string) error {
		updated = true
		return nil
	}

	err := f.svc.ResetPassword(context.Background(), "mirrored-token", "NewPass1!", "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestResetService_RecoverUsername(t *testing.T) {
	user := newTestUser(t, models.RoleReader)
	f := newResetFixture(t, user)

	mailedName := ""
	f.mailer.SendUsernameReminderFunc = func(ctx context.Context, email, name string) error {
		mailedName = name
		return nil
	}

	resp, err := f.svc.RecoverUsername(context.Background(), user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.Name, mailedName)
	assert.NotEqual(t, user.Name, resp.Message)
}

func TestResetService_RecoverUsername_MailFailure_DisclosesInline(t *testing.T) {
	user := newTestUser(t, models.RoleReader)
	f := newResetFixture(t, user)

	f.mailer.SendUsernameReminderFunc = func(ctx context.Context, email, name string) error {
		return errors.New("ses unavailable")
	}

	resp, err := f.svc.RecoverUsername(context.Background(), user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.Name, resp.Message)
}
