package relay

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-mail/mail"
	"github.com/google/uuid"

	"github.com/ignite/optin-mailer/internal/domain"
)

// SMTPSender is satisfied by *mail.Dialer.
type SMTPSender interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPTransport sends through a plain SMTP server.
// Settings: host, port (default 587), username, password, encryption
// ("tls" for STARTTLS, the default; "ssl" for implicit TLS; "none").
type SMTPTransport struct {
	timeout time.Duration
	dial    func(host string, port int, username, password, encryption string) SMTPSender
}

func NewSMTPTransport(timeout time.Duration) *SMTPTransport {
	t := &SMTPTransport{timeout: timeout}
	t.dial = t.newDialer
	return t
}

// WithDialer replaces how the SMTP connection is made.
func (t *SMTPTransport) WithDialer(dial func(host string, port int, username, password, encryption string) SMTPSender) *SMTPTransport {
	t.dial = dial
	return t
}

func (t *SMTPTransport) newDialer(host string, port int, username, password, encryption string) SMTPSender {
	d := mail.NewDialer(host, port, username, password)
	d.Timeout = t.timeout
	d.TLSConfig = &tls.Config{ServerName: host}
	switch strings.ToLower(encryption) {
	case "ssl":
		d.SSL = true
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	default:
		d.StartTLSPolicy = mail.MandatoryStartTLS
	}
	return d
}

func (t *SMTPTransport) Send(ctx context.Context, content string, opts domain.MessageOptions, svc *domain.EmailService) (string, error) {
	if err := requireSettings(svc, "host"); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", &RelayError{Transport: domain.EmailServiceSMTP, Err: err}
	}

	port := 587
	if p := svc.Setting("port"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", &RelayError{Transport: domain.EmailServiceSMTP, Err: fmt.Errorf("invalid port %q: %w", p, err)}
		}
		port = n
	}

	host := svc.Setting("host")
	messageID := fmt.Sprintf("%s@%s", uuid.NewString(), host)

	m := mail.NewMessage()
	m.SetAddressHeader("From", opts.FromEmail, opts.FromName)
	m.SetHeader("To", opts.To)
	m.SetHeader("Subject", opts.Subject)
	m.SetHeader("Message-ID", "<"+messageID+">")
	m.SetBody("text/html", content)

	d := t.dial(host, port, svc.Setting("username"), svc.Setting("password"), svc.Setting("encryption"))
	if err := d.DialAndSend(m); err != nil {
		return "", &RelayError{Transport: domain.EmailServiceSMTP, Err: fmt.Errorf("smtp send: %w", err)}
	}
	return messageID, nil
}
