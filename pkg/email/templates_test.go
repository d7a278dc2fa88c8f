package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWelcomeEmailTemplate_Escapes(t *testing.T) {
	out := WelcomeEmailTemplate("<Ana>", "Clínica & Cia", "https://manager.local/login")
	assert.Contains(t, out, "&lt;Ana&gt;")
	assert.Contains(t, out, "Clínica &amp; Cia")
	assert.Contains(t, out, `href="https://manager.local/login"`)
}

func TestNoopEmailService(t *testing.T) {
	var svc EmailService = NewNoopEmailService(zap.NewNop())
	assert.NoError(t, svc.SendWelcomeEmail(context.Background(), "a@b.com", "Ana", "Clinic"))
	assert.NoError(t, svc.SendPasswordChangedEmail(context.Background(), "a@b.com", "Ana"))
}

func TestNewResendEmailService_RequiresConfig(t *testing.T) {
	_, err := NewResendEmailService(&EmailConfig{FromEmail: "x@y.com"}, zap.NewNop())
	assert.Error(t, err)
	_, err = NewResendEmailService(&EmailConfig{APIKey: "re_123"}, zap.NewNop())
	assert.Error(t, err)
}
