package notify

import (
	"context"
	"fmt"
	"time"

	gomail "gopkg.in/mail.v2"

	"github.com/Bonaventura-EW/olx-monitor/internal/contextkeys"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
)

// EmailConfig holds the SMTP settings of the report mailbox. Port 465 dials
// with implicit TLS, anything else upgrades via STARTTLS.
type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	From       string
	To         string
}

// EmailSender delivers rendered reports over SMTP.
type EmailSender struct {
	cfg EmailConfig
}

func NewEmailSender(cfg EmailConfig) (*EmailSender, error) {
	if cfg.SMTPServer == "" || cfg.From == "" || cfg.To == "" {
		return nil, fmt.Errorf("email sender: SMTP server, sender and recipient are required")
	}
	return &EmailSender{cfg: cfg}, nil
}

// Send delivers the message with the plain-text body as the alternative for
// clients that do not render HTML.
func (s *EmailSender) Send(ctx context.Context, msg *port.RenderedReport) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "EmailSender"})

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	dialer := gomail.NewDialer(s.cfg.SMTPServer, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)
	dialer.Timeout = 10 * time.Second

	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("email sender: send to %s: %w", s.cfg.To, err)
	}

	logger.Info("Report e-mail sent", port.Fields{"to": s.cfg.To, "subject": msg.Subject})
	return nil
}
