package handlers

import (
	"context"

	"github.com/RamiroHerreraX/lacteos-auth/internal/services"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc     func(ctx context.Context, email, password, ip string) (*services.LoginResponse, error)
	VerifyOTPFunc func(ctx context.Context, email, code, ip string) (*services.VerifyOTPResponse, error)
	LogoutFunc    func(ctx context.Context, email, token string) error
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ip string) (*services.LoginResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, ip)
	}
	return &services.LoginResponse{Message: "verification code sent"}, nil
}

func (m *MockAuthService) VerifyOTP(ctx context.Context, email, code, ip string) (*services.VerifyOTPResponse, error) {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, email, code, ip)
	}
	return &services.VerifyOTPResponse{Token: "test-token"}, nil
}

func (m *MockAuthService) Logout(ctx context.Context, email, token string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, email, token)
	}
	return nil
}

// MockResetService implements ResetServiceInterface for testing
type MockResetService struct {
	RequestResetFunc    func(ctx context.Context, email string) (*services.RequestResetResponse, error)
	VerifyResetOTPFunc  func(ctx context.Context, email, token, code string) (*services.VerifyResetOTPResponse, error)
	ResetPasswordFunc   func(ctx context.Context, token, newPassword, ip string) error
	RecoverUsernameFunc func(ctx context.Context, email string) (*services.RequestResetResponse, error)
}

func (m *MockResetService) RequestReset(ctx context.Context, email string) (*services.RequestResetResponse, error) {
	if m.RequestResetFunc != nil {
		return m.RequestResetFunc(ctx, email)
	}
	return &services.RequestResetResponse{Message: "reset instructions sent"}, nil
}

func (m *MockResetService) VerifyResetOTP(ctx context.Context, email, token, code string) (*services.VerifyResetOTPResponse, error) {
	if m.VerifyResetOTPFunc != nil {
		return m.VerifyResetOTPFunc(ctx, email, token, code)
	}
	return &services.VerifyResetOTPResponse{Token: "next-token"}, nil
}

func (m *MockResetService) ResetPassword(ctx context.Context, token, newPassword, ip string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, newPassword, ip)
	}
	return nil
}

func (m *MockResetService) RecoverUsername(ctx context.Context, email string) (*services.RequestResetResponse, error) {
	if m.RecoverUsernameFunc != nil {
		return m.RecoverUsernameFunc(ctx, email)
	}
	return &services.RequestResetResponse{Message: "account name sent"}, nil
}

// MockSessionService implements SessionServiceInterface for testing
type MockSessionService struct {
	ListHistoryFunc func(ctx context.Context, userID string) ([]*services.SessionEntry, error)
}

func (m *MockSessionService) ListHistory(ctx context.Context, userID string) ([]*services.SessionEntry, error) {
	if m.ListHistoryFunc != nil {
		return m.ListHistoryFunc(ctx, userID)
	}
	return []*services.SessionEntry{}, nil
}
