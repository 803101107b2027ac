package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
	pkglogger "github.com/RamiroHerreraX/lacteos-auth/pkg/logger"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc            func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc         func(ctx context.Context, email string) (*models.User, error)
	CreateFunc             func(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePasswordHashFunc func(ctx context.Context, email, passwordHash string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	if m.UpdatePasswordHashFunc != nil {
		return m.UpdatePasswordHashFunc(ctx, email, passwordHash)
	}
	return nil
}

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	CreateFunc       func(ctx context.Context, session *models.Session, lifetime time.Duration) (*models.Session, error)
	ListHistoryFunc  func(ctx context.Context, userID string) ([]*models.Session, error)
	TouchFunc        func(ctx context.Context, token string, lifetime time.Duration) error
	DeactivateFunc   func(ctx context.Context, token string) error
	SweepExpiredFunc func(ctx context.Context) (int, error)
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session, lifetime time.Duration) (*models.Session, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session, lifetime)
	}
	session.State = models.SessionActive
	return session, nil
}

func (m *MockSessionRepository) ListHistory(ctx context.Context, userID string) ([]*models.Session, error) {
	if m.ListHistoryFunc != nil {
		return m.ListHistoryFunc(ctx, userID)
	}
	return []*models.Session{}, nil
}

func (m *MockSessionRepository) Touch(ctx context.Context, token string, lifetime time.Duration) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, token, lifetime)
	}
	return nil
}

func (m *MockSessionRepository) Deactivate(ctx context.Context, token string) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, token)
	}
	return nil
}

func (m *MockSessionRepository) SweepExpired(ctx context.Context) (int, error) {
	if m.SweepExpiredFunc != nil {
		return m.SweepExpiredFunc(ctx)
	}
	return 0, nil
}

// MockResetTokenRepository implements ResetTokenRepository for testing
type MockResetTokenRepository struct {
	CreateFunc     func(ctx context.Context, token *models.ResetToken) error
	GetByTokenFunc func(ctx context.Context, token string) (*models.ResetToken, error)
	DeleteFunc     func(ctx context.Context, token string) error
}

func (m *MockResetTokenRepository) Create(ctx context.Context, token *models.ResetToken) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}
	return nil
}

func (m *MockResetTokenRepository) GetByToken(ctx context.Context, token string) (*models.ResetToken, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockResetTokenRepository) Delete(ctx context.Context, token string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, token)
	}
	return nil
}

// MockIdentityCache implements IdentityCache for testing
type MockIdentityCache struct {
	RememberFunc func(user *models.User)
	LookupFunc   func(email string) (*models.User, error)
}

func (m *MockIdentityCache) Remember(user *models.User) {
	if m.RememberFunc != nil {
		m.RememberFunc(user)
	}
}

func (m *MockIdentityCache) Lookup(email string) (*models.User, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(email)
	}
	return nil, models.ErrNotFound
}

// MockTokenMirror implements TokenMirror for testing
type MockTokenMirror struct {
	SaveFunc   func(token *models.ResetToken)
	GetFunc    func(token string) (*models.ResetToken, error)
	DeleteFunc func(token string)
}

func (m *MockTokenMirror) Save(token *models.ResetToken) {
	if m.SaveFunc != nil {
		m.SaveFunc(token)
	}
}

func (m *MockTokenMirror) Get(token string) (*models.ResetToken, error) {
	if m.GetFunc != nil {
		return m.GetFunc(token)
	}
	return nil, models.ErrNotFound
}

func (m *MockTokenMirror) Delete(token string) {
	if m.DeleteFunc != nil {
		m.DeleteFunc(token)
	}
}

// MockMailer implements Mailer for testing
type MockMailer struct {
	SendLoginOTPFunc         func(ctx context.Context, email, code string, expiresAt time.Time) error
	SendResetLinkFunc        func(ctx context.Context, email, token string, expiresAt time.Time) error
	SendAdminResetOTPFunc    func(ctx context.Context, email, token, code string, expiresAt time.Time) error
	SendUsernameReminderFunc func(ctx context.Context, email, name string) error
}

func (m *MockMailer) SendLoginOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	if m.SendLoginOTPFunc != nil {
		return m.SendLoginOTPFunc(ctx, email, code, expiresAt)
	}
	return nil
}

func (m *MockMailer) SendResetLink(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendResetLinkFunc != nil {
		return m.SendResetLinkFunc(ctx, email, token, expiresAt)
	}
	return nil
}

func (m *MockMailer) SendAdminResetOTP(ctx context.Context, email, token, code string, expiresAt time.Time) error {
	if m.SendAdminResetOTPFunc != nil {
		return m.SendAdminResetOTPFunc(ctx, email, token, code, expiresAt)
	}
	return nil
}

func (m *MockMailer) SendUsernameReminder(ctx context.Context, email, name string) error {
	if m.SendUsernameReminderFunc != nil {
		return m.SendUsernameReminderFunc(ctx, email, name)
	}
	return nil
}

// MockGeoResolver implements GeoResolver for testing
type MockGeoResolver struct {
	ResolveFunc func(ctx context.Context, ip string) (*models.GeoLocation, error)
}

func (m *MockGeoResolver) Resolve(ctx context.Context, ip string) (*models.GeoLocation, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, ip)
	}
	return nil, nil
}

// MockCodeGenerator implements CodeGenerator for testing
type MockCodeGenerator struct {
	GenerateFunc func() (string, error)
}

func (m *MockCodeGenerator) Generate() (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	return "123456", nil
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	GenerateSessionTokenFunc func(userID, email, role string) (string, error)
}

func (m *MockTokenIssuer) GenerateSessionToken(userID, email, role string) (string, error) {
	if m.GenerateSessionTokenFunc != nil {
		return m.GenerateSessionTokenFunc(userID, email, role)
	}
	return "test-token", nil
}

// MockActivityTracker implements auth.ActivityTracker for testing
type MockActivityTracker struct {
	RecordFunc func(email string)
	TouchFunc  func(email string) bool
	ForgetFunc func(email string)
}

func (m *MockActivityTracker) Record(email string) {
	if m.RecordFunc != nil {
		m.RecordFunc(email)
	}
}

func (m *MockActivityTracker) Touch(email string) bool {
	if m.TouchFunc != nil {
		return m.TouchFunc(email)
	}
	return true
}

func (m *MockActivityTracker) Forget(email string) {
	if m.ForgetFunc != nil {
		m.ForgetFunc(email)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(testLogger())
}
