// Package relay hands rendered messages to the email provider configured in
// an EmailService. Each provider has its own Transport; the Relay picks one
// by service type. Sends are attempted once: there is no retry at this
// layer.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/ignite/optin-mailer/internal/domain"
	"github.com/ignite/optin-mailer/internal/pkg/logger"
)

// Transport delivers one message through a single provider and returns the
// provider's message id, which may be empty.
type Transport interface {
	Send(ctx context.Context, content string, opts domain.MessageOptions, svc *domain.EmailService) (string, error)
}

// HTTPDoer is the subset of *http.Client the HTTP transports use.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures the default transports.
type Options struct {
	Timeout          time.Duration
	HTTPClient       HTTPDoer
	SparkPostBaseURL string
	MailgunBaseURL   string
	SendGridBaseURL  string
	SESRegion        string
}

// Relay routes sends to the transport registered for the service type.
type Relay struct {
	transports map[domain.EmailServiceType]Transport
}

// New builds a relay with every supported provider registered.
func New(opts Options) *Relay {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	r := &Relay{transports: make(map[domain.EmailServiceType]Transport)}
	r.Register(domain.EmailServiceSES, NewSESTransport(opts.SESRegion))
	r.Register(domain.EmailServiceSparkPost, NewSparkPostTransport(client, opts.SparkPostBaseURL))
	r.Register(domain.EmailServiceMailgun, NewMailgunTransport(client, opts.MailgunBaseURL))
	r.Register(domain.EmailServiceSendGrid, NewSendGridTransport(client, opts.SendGridBaseURL))
	r.Register(domain.EmailServiceSMTP, NewSMTPTransport(opts.Timeout))
	return r
}

// Register installs or replaces the transport for a service type.
func (r *Relay) Register(t domain.EmailServiceType, tr Transport) {
	r.transports[t] = tr
}

// Send delivers content through the provider svc points at. Failures are
// always *RelayError.
func (r *Relay) Send(ctx context.Context, content string, opts domain.MessageOptions, svc *domain.EmailService) (string, error) {
	if svc == nil {
		return "", &RelayError{Err: errors.New("no email service")}
	}

	tr, ok := r.transports[svc.Type]
	if !ok {
		return "", &RelayError{Transport: svc.Type, Err: fmt.Errorf("%w: %q", ErrUnsupportedTransport, svc.Type)}
	}

	id, err := tr.Send(ctx, content, opts, svc)
	if err != nil {
		var relayErr *RelayError
		if !errors.As(err, &relayErr) {
			relayErr = &RelayError{Transport: svc.Type, Err: err}
		}
		logger.Warn("Relay send failed",
			"transport", string(svc.Type),
			"email_service_id", svc.ID,
			"to", opts.To,
			"error", relayErr.Error(),
		)
		return "", relayErr
	}

	logger.Debug("Relay accepted message",
		"transport", string(svc.Type),
		"email_service_id", svc.ID,
		"message_id", id,
	)
	return id, nil
}

// formatFrom renders an RFC 5322 From value. The name is quoted, and
// RFC 2047 encoded when it is not ASCII.
func formatFrom(opts domain.MessageOptions) string {
	if opts.FromName == "" {
		return opts.FromEmail
	}
	return (&mail.Address{Name: opts.FromName, Address: opts.FromEmail}).String()
}

func requireSettings(svc *domain.EmailService, keys ...string) error {
	for _, k := range keys {
		if svc.Setting(k) == "" {
			return &RelayError{Transport: svc.Type, Err: fmt.Errorf("%w: %s", ErrMissingCredentials, k)}
		}
	}
	return nil
}
