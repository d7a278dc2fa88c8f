package email

import (
	"context"

	"go.uber.org/zap"
)

// EmailService defines the interface for sending emails
type EmailService interface {
	// SendWelcomeEmail greets the first administrator of a new clinic
	SendWelcomeEmail(ctx context.Context, to, name, clinicName string) error

	// SendPasswordChangedEmail sends a notification when password is changed
	SendPasswordChangedEmail(ctx context.Context, to, name string) error
}

// EmailConfig holds email service configuration
type EmailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	LoginURL  string
}

// NoopEmailService logs instead of sending. Used when EMAIL_ENABLED=false.
type NoopEmailService struct {
	log *zap.Logger
}

func NewNoopEmailService(log *zap.Logger) *NoopEmailService {
	return &NoopEmailService{log: log}
}

func (s *NoopEmailService) SendWelcomeEmail(ctx context.Context, to, name, clinicName string) error {
	s.log.Debug("email disabled, skipping welcome email", zap.String("to", to), zap.String("clinic", clinicName))
	return nil
}

func (s *NoopEmailService) SendPasswordChangedEmail(ctx context.Context, to, name string) error {
	s.log.Debug("email disabled, skipping password changed email", zap.String("to", to))
	return nil
}
