package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent is one security-relevant occurrence: a login attempt, an OTP
// verification, a credential change.
type AuditEvent struct {
	EventType     string
	UserID        string
	Email         string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes audit events through the structured logger so they land
// in the same stream as request logs and can be filtered by audit_type.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

func (al *AuditLogger) emit(success bool, attrs []slog.Attr) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	attrs = append(attrs, slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)))
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

// LogAuthAttempt records a login or OTP verification attempt.
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.emit(event.Success, attrs)
}

// LogPasswordChange records the outcome of a password reset.
func (al *AuditLogger) LogPasswordChange(email, ipAddress string, success bool) {
	attrs := []slog.Attr{
		slog.String("audit_type", "password"),
		slog.String("event_type", "password_reset"),
		slog.Bool("success", success),
		slog.String("email", SanitizedEmail(email)),
	}
	if ipAddress != "" {
		attrs = append(attrs, slog.String("ip_address", ipAddress))
	}

	al.emit(success, attrs)
}

// LogDisclosureFallback records that a secret (OTP or reset link) was returned
// inline because mail delivery failed. The fallback is intentional but weakens
// the delivery channel, so every occurrence is audited.
func (al *AuditLogger) LogDisclosureFallback(kind, email string) {
	al.emit(false, []slog.Attr{
		slog.String("audit_type", "disclosure_fallback"),
		slog.String("event_type", kind),
		slog.String("email", SanitizedEmail(email)),
	})
}
