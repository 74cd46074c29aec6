package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gomail "gopkg.in/mail.v2"
)

const defaultDialTimeout = 10 * time.Second

// EmailConfig is the SMTP account and recipient list for report mail.
type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	FromEmail  string
	ToEmails   []string
	Enabled    bool
	Timeout    time.Duration // zero means 10s
}

type EmailSender struct {
	cfg EmailConfig
	now func() time.Time
}

func NewEmailSender(cfg EmailConfig) *EmailSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultDialTimeout
	}
	return &EmailSender{cfg: cfg, now: time.Now}
}

// Send mails msg to every recipient. It does nothing when the sender is disabled.
func (s *EmailSender) Send(ctx context.Context, msg *RenderedMessage) error {
	if !s.cfg.Enabled {
		return nil
	}
	logger := zerolog.Ctx(ctx)

	m, err := s.buildMessage(msg)
	if err != nil {
		return err
	}

	d := gomail.NewDialer(s.cfg.SMTPServer, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)
	d.Timeout = s.cfg.Timeout

	started := s.now()
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send report mail via %s:%d: %w", s.cfg.SMTPServer, s.cfg.SMTPPort, err)
	}

	logger.Info().
		Int("recipients", len(s.cfg.ToEmails)).
		Str("subject", msg.Subject).
		Dur("took", s.now().Sub(started)).
		Msg("Report mailed")
	return nil
}

func (s *EmailSender) buildMessage(msg *RenderedMessage) (*gomail.Message, error) {
	if len(s.cfg.ToEmails) == 0 {
		return nil, errors.New("no email recipients configured")
	}

	m := gomail.NewMessage()
	m.SetHeaders(map[string][]string{
		"From":    {s.cfg.FromEmail},
		"To":      s.cfg.ToEmails,
		"Subject": {msg.Subject},
	})
	m.SetDateHeader("Date", s.now())

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}
	return m, nil
}
