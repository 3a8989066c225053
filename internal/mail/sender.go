package mail

import (
	"fmt"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/mkarimov/fastauth/internal/config"
)

// Sender delivers a single email. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender delivers mail over plain SMTP with auth.
type SMTPSender struct {
	config *config.MailConfig
}

func NewSMTPSender(cfg *config.MailConfig) *SMTPSender {
	return &SMTPSender{config: cfg}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)

	msg := []byte(
		"From: " + s.config.From + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"\r\n" +
			body + "\r\n")

	return smtp.SendMail(addr, auth, s.config.From, []string{to}, msg)
}

// NoopSender discards mail. Used when delivery is disabled in config.
type NoopSender struct{}

func (NoopSender) Send(to, subject, body string) error { return nil }

// Dispatcher sends mail fire-and-forget: dispatch never blocks the caller
// and delivery failures only surface in the log. Failed sends are retried a
// bounded number of times with backoff.
type Dispatcher struct {
	sender     Sender
	log        *zap.Logger
	maxRetries int
	backoff    time.Duration
}

func NewDispatcher(sender Sender, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sender:     sender,
		log:        log,
		maxRetries: 3,
		backoff:    10 * time.Second,
	}
}

// Dispatch queues the email for asynchronous delivery and returns
// immediately.
func (d *Dispatcher) Dispatch(to, subject, body string) {
	go func() {
		var err error
		for attempt := 0; attempt <= d.maxRetries; attempt++ {
			if attempt > 0 {
				time.Sleep(d.backoff)
			}
			if err = d.sender.Send(to, subject, body); err == nil {
				return
			}
			d.log.Warn("email delivery failed",
				zap.String("to", to),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
		}
		d.log.Error("giving up on email delivery",
			zap.String("to", to),
			zap.Error(err))
	}()
}
