package subscription

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/optin-mailer/internal/domain"
	"github.com/ignite/optin-mailer/internal/metrics"
	"github.com/ignite/optin-mailer/internal/pkg/logger"
)

// StaleAfter is how long an unconfirmed subscriber waits before another
// subscribe call sends a fresh confirmation email.
const StaleAfter = 24 * time.Hour

// Dispatcher sends a single confirmation email to a subscriber.
type Dispatcher interface {
	Dispatch(ctx context.Context, workspaceID int64, subscriber *domain.Subscriber) (string, error)
}

// ConfirmedEvent describes a subscriber that just confirmed.
type ConfirmedEvent struct {
	WorkspaceID  int64     `json:"workspace_id"`
	SubscriberID int64     `json:"subscriber_id"`
	Email        string    `json:"email"`
	TagID        *int64    `json:"tag_id,omitempty"`
	ConfirmedAt  time.Time `json:"confirmed_at"`
}

// ConfirmationObserver is notified after a confirmation has been persisted.
type ConfirmationObserver interface {
	SubscriberConfirmed(ctx context.Context, ev ConfirmedEvent) error
}

// SubscribeInput carries the accepted subscribe request fields.
type SubscribeInput struct {
	WorkspaceID int64
	Email       string
	FirstName   string
	LastName    string
}

// ConfirmInput carries the accepted confirm request fields.
type ConfirmInput struct {
	WorkspaceID int64
	Email       string
	Hash        string
	TagID       *int64
}

// Service implements the subscribe and confirm flows. It is safe for
// concurrent use if the store and dispatcher are.
type Service struct {
	store      SubscriberStore
	dispatcher Dispatcher
	observer   ConfirmationObserver
}

// NewService creates a subscription service. observer may be nil.
func NewService(store SubscriberStore, dispatcher Dispatcher, observer ConfirmationObserver) *Service {
	return &Service{store: store, dispatcher: dispatcher, observer: observer}
}

// NewSubscriberRecord builds the row inserted for a first-time subscriber.
// Only the listed fields are taken from the input; the subscriber starts
// unconfirmed.
func NewSubscriberRecord(in SubscribeInput, now time.Time) *domain.Subscriber {
	unsubscribedAt := now
	return &domain.Subscriber{
		WorkspaceID:    in.WorkspaceID,
		Email:          in.Email,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Hash:           uuid.NewString(),
		UnsubscribedAt: &unsubscribedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NeedsConfirmation reports whether an existing subscriber should be sent
// another confirmation email.
func NeedsConfirmation(s *domain.Subscriber, now time.Time) bool {
	return s.UnsubscribedAt != nil && s.CreatedAt.Before(now.Add(-StaleAfter))
}

// Subscribe gets or creates the subscriber and dispatches a confirmation
// when it is new or stale. Dispatch errors are returned as is.
func (s *Service) Subscribe(ctx context.Context, in SubscribeInput, now time.Time) error {
	in.Email = strings.TrimSpace(in.Email)
	if in.WorkspaceID <= 0 {
		return ErrInvalidWorkspace
	}
	if in.Email == "" {
		return ErrEmailRequired
	}

	record := NewSubscriberRecord(in, now)
	sub, created, err := s.store.GetOrCreate(ctx, in.WorkspaceID, SubscriberMatch{Email: in.Email}, record)
	if err != nil {
		return err
	}

	outcome := "existing"
	switch {
	case created:
		outcome = "created"
	case NeedsConfirmation(sub, now):
		outcome = "resent"
	}
	metrics.ObserveSubscribe(outcome)

	if outcome == "existing" {
		return nil
	}

	if _, err := s.dispatcher.Dispatch(ctx, in.WorkspaceID, sub); err != nil {
		logger.Error("Confirmation dispatch failed",
			"workspace_id", in.WorkspaceID,
			"subscriber_id", sub.ID,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

// Confirm marks the subscriber matching (workspace, email, hash) as
// confirmed. It returns false when nothing matches.
func (s *Service) Confirm(ctx context.Context, in ConfirmInput, now time.Time) (bool, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.WorkspaceID <= 0 {
		return false, ErrInvalidWorkspace
	}
	if in.Email == "" {
		return false, ErrEmailRequired
	}
	if in.Hash == "" {
		return false, ErrHashRequired
	}

	sub, err := s.store.FindByMany(ctx, in.WorkspaceID, SubscriberMatch{Email: in.Email, Hash: in.Hash})
	if err != nil {
		return false, err
	}
	if sub == nil {
		metrics.ObserveConfirm("not_found")
		return false, nil
	}

	sub.UnsubscribedAt = nil
	sub.UpdatedAt = now
	if err := s.store.Save(ctx, sub); err != nil {
		return false, err
	}
	metrics.ObserveConfirm("confirmed")

	if s.observer != nil {
		ev := ConfirmedEvent{
			WorkspaceID:  sub.WorkspaceID,
			SubscriberID: sub.ID,
			Email:        sub.Email,
			TagID:        in.TagID,
			ConfirmedAt:  now,
		}
		if err := s.observer.SubscriberConfirmed(ctx, ev); err != nil {
			logger.Warn("Confirmation observer failed",
				"workspace_id", sub.WorkspaceID,
				"subscriber_id", sub.ID,
				"error", err.Error(),
			)
		}
	}
	return true, nil
}
