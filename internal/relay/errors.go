package relay

import (
	"errors"
	"fmt"

	"github.com/ignite/optin-mailer/internal/domain"
)

var (
	// ErrUnsupportedTransport means no transport is registered for the
	// email service type.
	ErrUnsupportedTransport = errors.New("unsupported email service type")
	// ErrMissingCredentials means a required setting is empty.
	ErrMissingCredentials = errors.New("missing email service setting")
	// ErrRejected means the provider answered with an error status.
	ErrRejected = errors.New("provider rejected message")
)

// RelayError reports a failed provider send. StatusCode is the provider's
// HTTP status when there was one.
type RelayError struct {
	Transport  domain.EmailServiceType
	StatusCode int
	Err        error
}

func (e *RelayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("relay %s: status %d: %v", e.Transport, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("relay %s: %v", e.Transport, e.Err)
}

func (e *RelayError) Unwrap() error { return e.Err }
