package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/RamiroHerreraX/lacteos-auth/internal/auth"
	"github.com/RamiroHerreraX/lacteos-auth/internal/database"
	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
	pkgauth "github.com/RamiroHerreraX/lacteos-auth/pkg/auth"
	pkglogger "github.com/RamiroHerreraX/lacteos-auth/pkg/logger"
)

// UserRepository defines the interface for user persistence operations
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, email, passwordHash string) error
}

// SessionRepository defines the interface for session persistence operations
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session, lifetime time.Duration) (*models.Session, error)
	ListHistory(ctx context.Context, userID string) ([]*models.Session, error)
	Touch(ctx context.Context, token string, lifetime time.Duration) error
	Deactivate(ctx context.Context, token string) error
	SweepExpired(ctx context.Context) (int, error)
}

// IdentityCache is the offline credential mirror consulted when the
// relational store is unreachable.
type IdentityCache interface {
	Remember(user *models.User)
	Lookup(email string) (*models.User, error)
}

// LockoutTracker enforces the progressive lockout policy.
type LockoutTracker interface {
	IsBlocked(email string) (time.Duration, bool)
	RecordFailure(email string) (time.Duration, bool)
	RecordSuccess(email string)
}

// CodeGenerator produces one-time login codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// TokenIssuer mints signed session credentials.
type TokenIssuer interface {
	GenerateSessionToken(userID, email, role string) (string, error)
}

// LoginResponse reports the outcome of the password step. ChallengeInline is
// set only when mail delivery failed and the code had to be disclosed in the
// response body.
type LoginResponse struct {
	Message         string    `json:"message"`
	ExpiresAt       time.Time `json:"expires_at"`
	ChallengeInline string    `json:"otp,omitempty"`
}

// VerifyOTPResponse completes the login: the signed credential plus the
// session's resolved origin.
type VerifyOTPResponse struct {
	Token    string              `json:"token"`
	Role     string              `json:"role"`
	Name     string              `json:"name"`
	Location *models.GeoLocation `json:"location,omitempty"`
}

// AuthService drives the two-step login pipeline: password check with
// progressive lockout, then an emailed one-time code that, once verified,
// yields a signed credential and a session row.
type AuthService struct {
	users       UserRepository
	sessions    SessionRepository
	identities  IdentityCache
	lockout     LockoutTracker
	challenges  *ChallengeStore
	codes       CodeGenerator
	tokens      TokenIssuer
	geo         GeoResolver
	mailer      Mailer
	activity    auth.ActivityTracker
	otpExpiry   time.Duration
	sessionTTL  time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

type AuthServiceParams struct {
	Users       UserRepository
	Sessions    SessionRepository
	Identities  IdentityCache
	Lockout     LockoutTracker
	Challenges  *ChallengeStore
	Codes       CodeGenerator
	Tokens      TokenIssuer
	Geo         GeoResolver
	Mailer      Mailer
	Activity    auth.ActivityTracker
	OTPExpiry   time.Duration
	SessionTTL  time.Duration
	Logger      *slog.Logger
	AuditLogger *pkglogger.AuditLogger
}

func NewAuthService(p AuthServiceParams) *AuthService {
	return &AuthService{
		users:       p.Users,
		sessions:    p.Sessions,
		identities:  p.Identities,
		lockout:     p.Lockout,
		challenges:  p.Challenges,
		codes:       p.Codes,
		tokens:      p.Tokens,
		geo:         p.Geo,
		mailer:      p.Mailer,
		activity:    p.Activity,
		otpExpiry:   p.OTPExpiry,
		sessionTTL:  p.SessionTTL,
		logger:      p.Logger,
		auditLogger: p.AuditLogger,
	}
}

// Login runs the password step. On success a one-time code is issued and
// mailed; the caller completes the login with VerifyOTP.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.ErrBadRequest
	}

	if retryAfter, blocked := s.lockout.IsBlocked(email); blocked {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_blocked",
			Email:         email,
			IPAddress:     ip,
			FailureReason: "lockout_active",
			Success:       false,
		})
		return nil, &models.BlockedError{RetryAfter: retryAfter}
	}

	user, err := s.lookupUser(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				Email:         email,
				IPAddress:     ip,
				FailureReason: "unknown_account",
				Success:       false,
			})
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		retryAfter, blocked := s.lockout.RecordFailure(email)
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			Email:         email,
			IPAddress:     ip,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		if blocked {
			return nil, &models.BlockedError{RetryAfter: retryAfter}
		}
		return nil, models.ErrInvalidCredentials
	}

	s.lockout.RecordSuccess(email)

	code, err := s.codes.Generate()
	if err != nil {
		s.logger.Error("failed to generate login code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()
	challenge := &models.OTPChallenge{
		Email:     email,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.otpExpiry),
	}
	s.challenges.Put(challenge)

	resp := &LoginResponse{
		Message:   "verification code sent",
		ExpiresAt: challenge.ExpiresAt,
	}

	if err := s.mailer.SendLoginOTP(ctx, email, code, challenge.ExpiresAt); err != nil {
		// Delivery failure falls back to inline disclosure rather than
		// stranding the user mid-login.
		s.auditLogger.LogDisclosureFallback("login_otp", email)
		resp.Message = "verification code could not be emailed"
		resp.ChallengeInline = code
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_password_ok",
		UserID:    user.ID,
		Email:     email,
		IPAddress: ip,
		Success:   true,
	})

	return resp, nil
}

// VerifyOTP completes the login. The supplied code is checked against the
// pending challenge; success mints the credential and opens a session,
// deactivating any prior one.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code, ip string) (*VerifyOTPResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !auth.ValidCodeFormat(code) {
		return nil, models.ErrBadRequest
	}

	challenge, ok := s.challenges.Get(email)
	if !ok {
		// Never requested, or already consumed.
		return nil, models.ErrNotFound
	}
	if challenge.Expired(time.Now()) {
		s.challenges.Delete(email)
		return nil, models.ErrOTPExpired
	}
	if challenge.Code != code {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "otp_failed",
			Email:         email,
			IPAddress:     ip,
			FailureReason: "code_mismatch",
			Success:       false,
		})
		return nil, models.ErrIncorrectOTP
	}
	s.challenges.Delete(email)

	user, err := s.lookupUser(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := s.tokens.GenerateSessionToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.Error("failed to mint session token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	location, err := s.geo.Resolve(ctx, ip)
	if err != nil {
		s.logger.Warn("geo resolution failed", slog.Any("error", err))
		location = nil
	}

	session := &models.Session{
		UserID:   user.ID,
		Name:     user.Name,
		Email:    user.Email,
		IP:       ip,
		Location: location,
		Token:    token,
	}
	if _, err := s.sessions.Create(ctx, session, s.sessionTTL); err != nil {
		s.logger.Error("failed to create session", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.activity.Record(email)

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_completed",
		UserID:    user.ID,
		Email:     email,
		IPAddress: ip,
		Success:   true,
	})

	return &VerifyOTPResponse{
		Token:    token,
		Role:     user.Role,
		Name:     user.Name,
		Location: location,
	}, nil
}

// Logout deactivates the session behind the credential and forgets the
// user's activity entry.
func (s *AuthService) Logout(ctx context.Context, email, token string) error {
	if err := s.sessions.Deactivate(ctx, token); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to deactivate session", slog.Any("error", err))
		return models.ErrInternalServer
	}
	s.activity.Forget(strings.ToLower(strings.TrimSpace(email)))
	return nil
}

// lookupUser fetches the account from the relational store, falling back to
// the offline identity cache when the store is unreachable. Successful store
// reads refresh the cache.
func (s *AuthService) lookupUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		s.identities.Remember(user)
		return user, nil
	}
	if !database.IsUnavailable(err) {
		return nil, err
	}

	s.logger.Warn("user store unreachable, consulting offline cache",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.Any("error", err),
	)

	cached, cacheErr := s.identities.Lookup(email)
	if cacheErr != nil {
		return nil, models.ErrStoreUnavailable
	}
	return cached, nil
}
