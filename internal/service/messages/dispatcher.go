package messages

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ignite/optin-mailer/internal/domain"
	"github.com/ignite/optin-mailer/internal/metrics"
	"github.com/ignite/optin-mailer/internal/pkg/logger"
)

// ContentMerger renders a message's template into the final body.
type ContentMerger interface {
	Render(ctx context.Context, msg *domain.Message) (string, error)
}

// EmailServiceResolver picks the email service a message is sent through.
type EmailServiceResolver interface {
	Resolve(ctx context.Context, msg *domain.Message) (*domain.EmailService, error)
}

// Relay performs the provider send and returns the provider message id,
// which may be empty when the provider does not return one.
type Relay interface {
	Send(ctx context.Context, content string, opts domain.MessageOptions, svc *domain.EmailService) (string, error)
}

// HashPolicy decides which hash a confirmation message carries.
type HashPolicy string

const (
	// HashFresh generates a new random hash for every dispatch. Two
	// dispatches for the same subscriber carry different hashes.
	HashFresh HashPolicy = "fresh"
	// HashSubscriber reuses the subscriber's stored confirmation hash.
	HashSubscriber HashPolicy = "subscriber"
)

// ConfirmationSettings holds the static identity of confirmation messages.
type ConfirmationSettings struct {
	Subject    string
	FromName   string
	FromEmail  string
	HashPolicy HashPolicy
	Tracking   domain.TrackingOptions
}

// ConfirmationDispatcher sends exactly one confirmation email per call.
// It adds no recovery logic: merge, resolution and relay errors are
// returned unmodified.
type ConfirmationDispatcher struct {
	merge    ContentMerger
	resolver EmailServiceResolver
	relay    Relay
	settings ConfirmationSettings
	newHash  func() string
}

// NewConfirmationDispatcher wires the dispatcher's collaborators.
func NewConfirmationDispatcher(merge ContentMerger, resolver EmailServiceResolver, relay Relay, settings ConfirmationSettings) *ConfirmationDispatcher {
	if settings.HashPolicy == "" {
		settings.HashPolicy = HashFresh
	}
	return &ConfirmationDispatcher{
		merge:    merge,
		resolver: resolver,
		relay:    relay,
		settings: settings,
		newHash:  func() string { return "confirmation-" + uuid.NewString() },
	}
}

// Dispatch builds, renders, resolves and relays a confirmation message for
// the subscriber. Calling it twice sends twice.
func (d *ConfirmationDispatcher) Dispatch(ctx context.Context, workspaceID int64, subscriber *domain.Subscriber) (string, error) {
	msg := d.newConfirmationMessage(workspaceID, subscriber)
	msg.Subscriber = subscriber

	content, err := d.merge.Render(ctx, msg)
	if err != nil {
		metrics.ObserveDispatch("template_error")
		return "", err
	}

	svc, err := d.resolver.Resolve(ctx, msg)
	if err != nil {
		var resErr *ResolutionError
		if errors.As(err, &resErr) {
			metrics.ObserveDispatch("resolution_error")
		} else {
			metrics.ObserveDispatch("store_error")
		}
		return "", err
	}

	opts := domain.MessageOptions{
		To:        msg.RecipientEmail,
		FromEmail: msg.FromEmail,
		FromName:  msg.FromName,
		Subject:   msg.Subject,
		Tracking:  TrackingOptionsFromMessage(msg),
	}

	messageID, err := d.relay.Send(ctx, content, opts, svc)
	if err != nil {
		metrics.ObserveDispatch("relay_error")
		return "", err
	}

	metrics.ObserveDispatch("sent")
	logger.Info("Message has been dispatched.",
		"message_id", messageID,
		"workspace_id", workspaceID,
		"email_service_id", svc.ID,
		"message_hash", msg.Hash,
	)
	return messageID, nil
}

func (d *ConfirmationDispatcher) newConfirmationMessage(workspaceID int64, subscriber *domain.Subscriber) *domain.Message {
	msg := domain.NewConfirmationMessage(workspaceID, subscriber.Email)
	msg.Subject = d.settings.Subject
	msg.FromName = d.settings.FromName
	msg.FromEmail = d.settings.FromEmail
	msg.Hash = d.hashFor(subscriber)

	tracking := d.settings.Tracking
	msg.Tracking = &tracking
	return msg
}

func (d *ConfirmationDispatcher) hashFor(subscriber *domain.Subscriber) string {
	if d.settings.HashPolicy == HashSubscriber && subscriber.Hash != "" {
		return subscriber.Hash
	}
	return d.newHash()
}

// TrackingOptionsFromMessage returns the message's tracking override, or
// the defaults when it has none.
func TrackingOptionsFromMessage(msg *domain.Message) domain.TrackingOptions {
	if msg.Tracking != nil {
		return *msg.Tracking
	}
	return domain.DefaultTrackingOptions()
}

