package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/RamiroHerreraX/lacteos-auth/internal/database"
	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
	pkgauth "github.com/RamiroHerreraX/lacteos-auth/pkg/auth"
	pkglogger "github.com/RamiroHerreraX/lacteos-auth/pkg/logger"
)

// ResetTokenRepository defines the interface for reset token persistence
type ResetTokenRepository interface {
	Create(ctx context.Context, token *models.ResetToken) error
	GetByToken(ctx context.Context, token string) (*models.ResetToken, error)
	Delete(ctx context.Context, token string) error
}

// TokenMirror is the offline copy of issued reset tokens, written alongside
// every store write and read when the store is unreachable.
type TokenMirror interface {
	Save(token *models.ResetToken)
	Get(token string) (*models.ResetToken, error)
	Delete(token string)
}

// RequestResetResponse reports an issued reset. Token and OTP are set only
// when mail delivery failed and the secret had to be disclosed inline.
type RequestResetResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
	OTP     string `json:"otp,omitempty"`
}

// VerifyResetOTPResponse carries the follow-up token issued once the admin
// OTP checks out.
type VerifyResetOTPResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// ResetService owns the password-reset token lifecycle. Administrators get a
// short-lived token gated by an emailed OTP; everyone else gets a plain reset
// link. An account holds at most one live token at a time.
type ResetService struct {
	users       UserRepository
	tokens      ResetTokenRepository
	mirror      TokenMirror
	identities  IdentityCache
	codes       CodeGenerator
	mailer      Mailer
	resetURL    string
	stdExpiry   time.Duration
	adminExpiry time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

type ResetServiceParams struct {
	Users       UserRepository
	Tokens      ResetTokenRepository
	Mirror      TokenMirror
	Identities  IdentityCache
	Codes       CodeGenerator
	Mailer      Mailer
	ResetURL    string
	StdExpiry   time.Duration
	AdminExpiry time.Duration
	Logger      *slog.Logger
	AuditLogger *pkglogger.AuditLogger
}

func NewResetService(p ResetServiceParams) *ResetService {
	return &ResetService{
		users:       p.Users,
		tokens:      p.Tokens,
		mirror:      p.Mirror,
		identities:  p.Identities,
		codes:       p.Codes,
		mailer:      p.Mailer,
		resetURL:    p.ResetURL,
		stdExpiry:   p.StdExpiry,
		adminExpiry: p.AdminExpiry,
		logger:      p.Logger,
		auditLogger: p.AuditLogger,
	}
}

// RequestReset issues a reset token for the account. The token is persisted
// before any mail is attempted, so a delivery failure can fall back to inline
// disclosure without losing the record.
func (s *ResetService) RequestReset(ctx context.Context, email string) (*RequestResetResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.lookupUser(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	raw, err := pkgauth.GenerateResetToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token := &models.ResetToken{
		Token: raw,
		Email: email,
	}

	if user.IsAdmin() {
		code, err := s.codes.Generate()
		if err != nil {
			s.logger.Error("failed to generate reset code", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		token.OTP = &code
		token.ExpiresAt = time.Now().Add(s.adminExpiry)
	} else {
		token.ExpiresAt = time.Now().Add(s.stdExpiry)
	}

	if err := s.persistToken(ctx, token); err != nil {
		return nil, err
	}

	resp := &RequestResetResponse{Message: "reset instructions sent"}

	var mailErr error
	if token.RequiresOTP() {
		mailErr = s.mailer.SendAdminResetOTP(ctx, email, token.Token, *token.OTP, token.ExpiresAt)
	} else {
		mailErr = s.mailer.SendResetLink(ctx, email, token.Token, token.ExpiresAt)
	}
	if mailErr != nil {
		s.auditLogger.LogDisclosureFallback("reset_token", email)
		resp.Message = "reset instructions could not be emailed"
		resp.Token = token.Token
		if token.OTP != nil {
			resp.OTP = *token.OTP
		}
	}

	return resp, nil
}

// VerifyResetOTP validates the admin OTP. Success consumes the record and
// issues a fresh OTP-less token with the standard window, so the remainder of
// the flow is identical to a non-admin reset.
func (s *ResetService) VerifyResetOTP(ctx context.Context, email, rawToken, code string) (*VerifyResetOTPResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	token, err := s.fetchToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		s.logger.Error("failed to look up reset token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !strings.EqualFold(token.Email, email) {
		return nil, models.ErrEmailMismatch
	}
	if token.Expired(time.Now()) {
		s.deleteToken(ctx, token.Token)
		return nil, models.ErrTokenExpired
	}
	if token.OTP == nil || *token.OTP != code {
		return nil, models.ErrIncorrectOTP
	}

	raw, err := pkgauth.GenerateResetToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	next := &models.ResetToken{
		Token:     raw,
		Email:     email,
		ExpiresAt: time.Now().Add(s.stdExpiry),
	}
	if err := s.persistToken(ctx, next); err != nil {
		return nil, err
	}
	s.deleteToken(ctx, token.Token)

	url := fmt.Sprintf("%s?token=%s", s.resetURL, next.Token)
	if err := s.mailer.SendResetLink(ctx, email, next.Token, next.ExpiresAt); err != nil {
		s.logger.Warn("failed to mail follow-up reset link",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err),
		)
	}

	return &VerifyResetOTPResponse{Token: next.Token, URL: url}, nil
}

// ResetPassword consumes the token and replaces the account password. The
// token is deleted whether or not the update succeeds; a failed reset means
// starting over.
func (s *ResetService) ResetPassword(ctx context.Context, rawToken, newPassword, ip string) error {
	if err := pkgauth.ValidateResetPassword(newPassword); err != nil {
		return models.ErrBadRequest
	}

	token, err := s.fetchToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidToken
		}
		s.logger.Error("failed to look up reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if token.Expired(time.Now()) {
		s.deleteToken(ctx, token.Token)
		return models.ErrTokenExpired
	}

	defer s.deleteToken(ctx, token.Token)

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.UpdatePasswordHash(ctx, token.Email, hash); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogPasswordChange(token.Email, ip, false)
			return models.ErrNotFound
		}
		if !database.IsUnavailable(err) {
			s.auditLogger.LogPasswordChange(token.Email, ip, false)
			s.logger.Error("failed to update password", slog.Any("error", err))
			return models.ErrInternalServer
		}

		// Store unreachable: record the new hash in the offline cache so
		// the change is visible locally and can be reconciled later.
		cached, cacheErr := s.identities.Lookup(token.Email)
		if cacheErr != nil {
			s.auditLogger.LogPasswordChange(token.Email, ip, false)
			return models.ErrStoreUnavailable
		}
		cached.PasswordHash = hash
		cached.UpdatedAt = time.Now()
		s.identities.Remember(cached)
	}

	s.auditLogger.LogPasswordChange(token.Email, ip, true)
	return nil
}

// RecoverUsername mails the account name registered for the address.
func (s *ResetService) RecoverUsername(ctx context.Context, email string) (*RequestResetResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.lookupUser(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	resp := &RequestResetResponse{Message: "account name sent"}
	if err := s.mailer.SendUsernameReminder(ctx, email, user.Name); err != nil {
		s.auditLogger.LogDisclosureFallback("username_reminder", email)
		resp.Message = user.Name
	}

	return resp, nil
}

// persistToken writes the token to the store and mirrors it offline. A store
// failure is tolerated as long as the mirror holds the record.
func (s *ResetService) persistToken(ctx context.Context, token *models.ResetToken) error {
	err := s.tokens.Create(ctx, token)
	if err != nil && !database.IsUnavailable(err) {
		s.logger.Error("failed to persist reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if err != nil {
		s.logger.Warn("reset token store unreachable, relying on offline mirror",
			slog.Any("error", err),
		)
	}
	s.mirror.Save(token)
	return nil
}

// fetchToken reads from the store, falling back to the offline mirror when
// unreachable.
func (s *ResetService) fetchToken(ctx context.Context, raw string) (*models.ResetToken, error) {
	token, err := s.tokens.GetByToken(ctx, raw)
	if err == nil {
		return token, nil
	}
	if errors.Is(err, models.ErrNotFound) {
		// The store answered; check the mirror only for tokens persisted
		// while it was down.
		if mirrored, mErr := s.mirror.Get(raw); mErr == nil {
			return mirrored, nil
		}
		return nil, models.ErrNotFound
	}
	if !database.IsUnavailable(err) {
		return nil, err
	}
	return s.mirror.Get(raw)
}

func (s *ResetService) deleteToken(ctx context.Context, raw string) {
	if err := s.tokens.Delete(ctx, raw); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Warn("failed to delete reset token", slog.Any("error", err))
	}
	s.mirror.Delete(raw)
}

// lookupUser mirrors AuthService.lookupUser for the reset flows.
func (s *ResetService) lookupUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		s.identities.Remember(user)
		return user, nil
	}
	if !database.IsUnavailable(err) {
		return nil, err
	}

	cached, cacheErr := s.identities.Lookup(email)
	if cacheErr != nil {
		return nil, models.ErrStoreUnavailable
	}
	return cached, nil
}
