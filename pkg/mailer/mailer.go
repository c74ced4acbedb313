// Package mailer sends operator notifications over SMTP. Delivery is
// best-effort: callers log failures and move on.
package mailer

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/wneessen/go-mail"
)

// Sender delivers a plain-text message to one or more recipients.
type Sender interface {
	Send(ctx context.Context, subject, body string, to []string) error
}

// SMTPOptions configures the SMTP sender.
type SMTPOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPSender implements Sender over SMTP using go-mail.
type SMTPSender struct {
	opts SMTPOptions
}

// NewSMTPSender creates an SMTP-backed Sender.
func NewSMTPSender(opts SMTPOptions) *SMTPSender {
	if opts.Port == 0 {
		opts.Port = 587
	}
	return &SMTPSender{opts: opts}
}

func (s *SMTPSender) Send(ctx context.Context, subject, body string, to []string) error {
	if len(to) == 0 {
		return eris.New("mailer: no recipients")
	}

	msg := mail.NewMsg()
	if err := msg.From(s.opts.From); err != nil {
		return eris.Wrap(err, "mailer: set from")
	}
	if err := msg.To(to...); err != nil {
		return eris.Wrap(err, "mailer: set recipients")
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	clientOpts := []mail.Option{
		mail.WithPort(s.opts.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if s.opts.User != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.opts.User),
			mail.WithPassword(s.opts.Password),
		)
	}

	client, err := mail.NewClient(s.opts.Host, clientOpts...)
	if err != nil {
		return eris.Wrap(err, "mailer: create client")
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return eris.Wrap(err, "mailer: send")
	}
	return nil
}
