package api

import (
	"context"
	"time"

	"github.com/ignite/optin-mailer/internal/service/subscription"
)

// SubscriptionService is the part of subscription.Service the handlers use.
type SubscriptionService interface {
	Subscribe(ctx context.Context, in subscription.SubscribeInput, now time.Time) error
	Confirm(ctx context.Context, in subscription.ConfirmInput, now time.Time) (bool, error)
}

// Handlers holds the dependencies of the public HTTP endpoints.
type Handlers struct {
	subscriptions SubscriptionService
	now           func() time.Time
}

// NewHandlers creates the handlers. clock defaults to time.Now.
func NewHandlers(subscriptions SubscriptionService, clock func() time.Time) *Handlers {
	if clock == nil {
		clock = time.Now
	}
	return &Handlers{subscriptions: subscriptions, now: clock}
}
