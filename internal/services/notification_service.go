package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/getsentry/sentry-go"
	"github.com/wneessen/go-mail"
)

const NotificationSubject = "Actualización de su incidencia"

// Notifier tells an incident owner that an administrator changed it.
type Notifier interface {
	IncidentUpdated(ctx context.Context, to string, incident *models.Incident) error
}

// NewNotifier returns the SMTP notifier when credentials are configured and a
// logging no-op otherwise.
func NewNotifier(cfg *config.Config) Notifier {
	if !cfg.MailEnabled() {
		slog.Warn("mail credentials not configured, incident notifications are disabled")
		return LogNotifier{}
	}
	return &SMTPNotifier{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.EmailUser,
		password: cfg.EmailPassword,
		from:     cfg.EmailFrom,
		timeout:  cfg.NotifyTimeout,
	}
}

// NotificationBody renders the plain-text email for an updated incident.
func NotificationBody(incident *models.Incident) string {
	var b strings.Builder
	b.WriteString("Su incidencia ha sido actualizada.\nNuevo estado: ")
	b.WriteString(incident.Status)
	if incident.Resolution != nil && *incident.Resolution != "" {
		b.WriteString("\n\nResolución:\n")
		b.WriteString(*incident.Resolution)
	}
	return b.String()
}

type SMTPNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	timeout  time.Duration
}

func (n *SMTPNotifier) IncidentUpdated(ctx context.Context, to string, incident *models.Incident) error {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("invalid sender %q: %w", n.from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(NotificationSubject)
	msg.SetBodyString(mail.TypeTextPlain, NotificationBody(incident))

	// One client per message: the client keeps connection state.
	client, err := mail.NewClient(n.host,
		mail.WithPort(n.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.username),
		mail.WithPassword(n.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return client.DialAndSendWithContext(ctx, msg)
}

// LogNotifier records the notification instead of sending it.
type LogNotifier struct{}

func (LogNotifier) IncidentUpdated(_ context.Context, to string, incident *models.Incident) error {
	slog.Info("incident notification skipped (mail disabled)", "incident_id", incident.ID, "to", to)
	return nil
}

func reportError(err error) {
	sentry.CaptureException(err)
}
