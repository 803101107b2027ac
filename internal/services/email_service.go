package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	appconfig "github.com/RamiroHerreraX/lacteos-auth/internal/config"
	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
)

// Mailer defines the outbound email operations the auth flows depend on.
// Implementations must treat delivery as best-effort; callers decide whether
// a failure is fatal or triggers the inline disclosure fallback.
type Mailer interface {
	SendLoginOTP(ctx context.Context, email, code string, expiresAt time.Time) error
	SendResetLink(ctx context.Context, email, token string, expiresAt time.Time) error
	SendAdminResetOTP(ctx context.Context, email, token, code string, expiresAt time.Time) error
	SendUsernameReminder(ctx context.Context, email, name string) error
}

// AWSSESMailer sends email using AWS SES.
type AWSSESMailer struct {
	sesClient   *ses.Client
	fromAddress string
	resetURL    string
	sendTimeout time.Duration
	logger      *slog.Logger
}

func NewAWSSESMailer(cfg appconfig.EmailConfig, logger *slog.Logger) (*AWSSESMailer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESMailer{
		sesClient:   ses.NewFromConfig(awsCfg),
		fromAddress: cfg.FromAddress,
		resetURL:    cfg.ResetURLBase,
		sendTimeout: cfg.SendTimeout,
		logger:      logger,
	}, nil
}

func (m *AWSSESMailer) SendLoginOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	minutes := int(time.Until(expiresAt).Round(time.Minute).Minutes())
	subject := "Your verification code"
	body := fmt.Sprintf(`Hello,

Your login verification code is:

    %s

The code expires in %d minutes. If you did not try to sign in, change your password immediately.

This is an automated message. Please do not reply.
`, code, minutes)

	return m.send(ctx, email, subject, body)
}

func (m *AWSSESMailer) SendResetLink(ctx context.Context, email, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s?token=%s", m.resetURL, token)
	minutes := int(time.Until(expiresAt).Round(time.Minute).Minutes())
	subject := "Password reset request"
	body := fmt.Sprintf(`Hello,

A password reset was requested for your account. Open the link below to choose a new password:

    %s

The link expires in %d minutes. If you did not request a reset, you can ignore this message; your password will not change.

This is an automated message. Please do not reply.
`, link, minutes)

	return m.send(ctx, email, subject, body)
}

func (m *AWSSESMailer) SendAdminResetOTP(ctx context.Context, email, token, code string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s?token=%s", m.resetURL, token)
	minutes := int(time.Until(expiresAt).Round(time.Minute).Minutes())
	subject := "Administrator password reset"
	body := fmt.Sprintf(`Hello,

A password reset was requested for your administrator account. Your verification code is:

    %s

Enter it at the link below to continue:

    %s

Both expire in %d minutes. If you did not request a reset, review your account access immediately.

This is an automated message. Please do not reply.
`, code, link, minutes)

	return m.send(ctx, email, subject, body)
}

func (m *AWSSESMailer) SendUsernameReminder(ctx context.Context, email, name string) error {
	subject := "Your account name"
	body := fmt.Sprintf(`Hello,

You asked to be reminded of the account name registered for this address:

    %s

If you did not request this reminder, you can ignore this message.

This is an automated message. Please do not reply.
`, name)

	return m.send(ctx, email, subject, body)
}

func (m *AWSSESMailer) send(ctx context.Context, to, subject, textBody string) error {
	ctx, cancel := context.WithTimeout(ctx, m.sendTimeout)
	defer cancel()

	input := &ses.SendEmailInput{
		Source: aws.String(m.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := m.sesClient.SendEmail(ctx, input); err != nil {
		m.logger.Error("failed to send email via SES",
			slog.String("subject", subject),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %v", models.ErrDeliveryFailed, err)
	}

	return nil
}
