package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// ResendEmailService implements EmailService using Resend
type ResendEmailService struct {
	client *resend.Client
	config *EmailConfig
	log    *zap.Logger
}

// NewResendEmailService creates a new Resend email service
func NewResendEmailService(config *EmailConfig, log *zap.Logger) (*ResendEmailService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	if config.FromEmail == "" {
		return nil, fmt.Errorf("from email is required")
	}

	return &ResendEmailService{
		client: resend.NewClient(config.APIKey),
		config: config,
		log:    log,
	}, nil
}

// SendWelcomeEmail greets the first administrator of a new clinic
func (s *ResendEmailService) SendWelcomeEmail(ctx context.Context, to, name, clinicName string) error {
	return s.send(ctx, to, "Bem-vindo ao Caleidoscópio", WelcomeEmailTemplate(name, clinicName, s.config.LoginURL))
}

// SendPasswordChangedEmail sends a notification when password is changed
func (s *ResendEmailService) SendPasswordChangedEmail(ctx context.Context, to, name string) error {
	return s.send(ctx, to, "Sua senha foi alterada", PasswordChangedEmailTemplate(name))
}

func (s *ResendEmailService) send(ctx context.Context, to, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail),
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		s.log.Warn("failed to send email", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.log.Info("email sent", zap.String("to", to), zap.String("id", sent.Id))
	return nil
}
