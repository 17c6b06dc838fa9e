package membership

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
)

// Mailer delivers invitation emails. Delivery is best-effort: the
// invitation row is already committed when SendInvitation runs, a failed
// send is logged and the invite can be re-validated from the stored token.
type Mailer interface {
	SendInvitation(ctx context.Context, inv *Invitation, acceptURL string) error
	SendPasswordReset(ctx context.Context, email, resetURL string) error
}

// InvitationEmail is the rendered message handed to a transport.
type InvitationEmail struct {
	To      string
	Subject string
	HTML    string
}

// EmailTransport sends a rendered email. Implementations wrap SMTP or an
// email API; the default logMailer just logs.
type EmailTransport interface {
	Send(ctx context.Context, email InvitationEmail) error
}

// TemplateMailer renders invitation emails from the embedded django
// templates and hands them to a transport.
type TemplateMailer struct {
	engine    *django.Engine
	transport EmailTransport
	logger    Logger
}

// NewTemplateMailer builds a mailer over the embedded templates
func NewTemplateMailer(transport EmailTransport) (*TemplateMailer, error) {
	engine := django.NewPathForwardingFileSystem(http.FS(GetTemplatesFS()), "/data/templates", ".html")
	if err := engine.Load(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load mail templates")
	}

	return &TemplateMailer{
		engine:    engine,
		transport: transport,
		logger:    defLogger{},
	}, nil
}

func (m *TemplateMailer) WithLogger(logger Logger) *TemplateMailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// SendInvitation renders and dispatches the invitation email
func (m *TemplateMailer) SendInvitation(ctx context.Context, inv *Invitation, acceptURL string) error {
	if inv == nil {
		return errors.New("invitation must not be nil", errors.CategoryInternal)
	}

	var buf bytes.Buffer
	bind := map[string]any{
		"name":       inv.Name,
		"role_type":  string(inv.RoleType),
		"accept_url": acceptURL,
		"expires_at": inv.ExpiresAt,
	}

	if err := m.engine.Render(&buf, "invitation", bind); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to render invitation email")
	}

	email := InvitationEmail{
		To:      inv.Email,
		Subject: "You have been invited to join the network",
		HTML:    buf.String(),
	}

	if m.transport == nil {
		m.logger.Info("invitation email (no transport configured)", "to", email.To, "url", acceptURL)
		return nil
	}

	return m.transport.Send(ctx, email)
}

// SendPasswordReset renders and dispatches the reset email
func (m *TemplateMailer) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	var buf bytes.Buffer
	bind := map[string]any{
		"reset_url": resetURL,
	}

	if err := m.engine.Render(&buf, "password_reset", bind); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to render password reset email")
	}

	msg := InvitationEmail{
		To:      email,
		Subject: "Reset your password",
		HTML:    buf.String(),
	}

	if m.transport == nil {
		m.logger.Info("password reset email (no transport configured)", "to", email, "url", resetURL)
		return nil
	}

	return m.transport.Send(ctx, msg)
}

var _ Mailer = (*TemplateMailer)(nil)

// LogMailer logs instead of delivering, useful in development and tests.
type LogMailer struct {
	Logger Logger
}

func (m LogMailer) SendInvitation(_ context.Context, inv *Invitation, acceptURL string) error {
	logger := m.Logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Info("invitation email", "to", inv.Email, "role", string(inv.RoleType), "url", acceptURL)
	return nil
}

func (m LogMailer) SendPasswordReset(_ context.Context, email, resetURL string) error {
	logger := m.Logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Info("password reset email", "to", email, "url", resetURL)
	return nil
}

var _ Mailer = LogMailer{}
