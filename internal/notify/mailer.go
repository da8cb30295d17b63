package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	verr "vaulta/internal/errors"
	"vaulta/internal/metrics"
	"vaulta/internal/retry"
)

// Mailer delivers rendered messages over SMTP with backoff. Each
// delivery attempt runs under its own timeout and the whole retry loop
// sits behind a circuit breaker, so a dead relay fails fast instead of
// stalling every caller.
type Mailer struct {
	dialer  *gomail.Dialer
	from    string
	timeout time.Duration
	backoff *retry.Backoff
	breaker *retry.Breaker
	log     *zap.Logger
	metrics *metrics.Collector
}

// NewMailer creates a Mailer for the given SMTP endpoint. timeout
// bounds a single delivery attempt; zero means no per-attempt bound.
func NewMailer(host string, port int, username, password, from string, timeout time.Duration, log *zap.Logger, m *metrics.Collector) *Mailer {
	return &Mailer{
		dialer:  gomail.NewDialer(host, port, username, password),
		from:    from,
		timeout: timeout,
		backoff: retry.DeliveryBackoff(),
		breaker: retry.NewBreaker(retry.RelayBreakerConfig()),
		log:     log,
		metrics: m,
	}
}

// Send delivers one message as plain text with an HTML alternative.
// Transient relay failures are retried; context cancellation aborts
// the retry loop.
func (m *Mailer) Send(ctx context.Context, to []string, subject, plain, htmlBody string) error {
	if len(to) == 0 {
		return verr.ErrNoRecipient
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plain)
	msg.AddAlternative("text/html", htmlBody)

	err := m.backoff.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			m.log.Warn("retrying delivery",
				zap.Int("attempt", attempt),
				zap.Strings("to", to))
		}
		return m.breaker.Execute(func() error {
			return m.attempt(ctx, msg)
		})
	})
	if err != nil {
		m.metrics.RecordError(err.Error())
		return verr.WrapDelivery("send", to[0], err)
	}
	m.metrics.EmailSent()
	m.log.Info("notification sent",
		zap.Strings("to", to),
		zap.String("subject", subject))
	return nil
}

// attempt runs one DialAndSend under the per-attempt timeout. gomail
// does not take a context, so the send runs in its own goroutine and
// the deadline is enforced from outside; an abandoned attempt's
// connection is torn down by the SMTP server or process exit.
func (m *Mailer) attempt(ctx context.Context, msg *gomail.Message) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ── Template-backed sending ──────────────────────────────────────────

// TemplateSource resolves templates by name; the store satisfies it.
type TemplateSource interface {
	GetTemplate(ctx context.Context, name string) (*Template, error)
}

// Sender binds a template source to a mailer.
type Sender struct {
	Templates TemplateSource
	Mailer    *Mailer
	Domain    string
}

// Notify renders the named template with data and sends it to the
// given recipients.
func (s *Sender) Notify(ctx context.Context, name string, to []string, data map[string]interface{}) error {
	t, err := s.Templates.GetTemplate(ctx, name)
	if err != nil {
		return err
	}
	htmlBody, err := t.RenderHTML(s.Domain, data)
	if err != nil {
		return err
	}
	plain, err := t.RenderPlain(s.Domain, data)
	if err != nil {
		return err
	}
	return s.Mailer.Send(ctx, to, t.Subject, plain, htmlBody)
}
