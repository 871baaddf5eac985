package subscription

import (
	"context"

	"github.com/ignite/optin-mailer/internal/domain"
)

// SubscriberMatch lists the fields a subscriber lookup must match exactly.
// Empty fields are not part of the match.
type SubscriberMatch struct {
	Email string
	Hash  string
}

// SubscriberStore is the workspace-scoped data access contract for
// subscribers. Implementations must be safe for concurrent use.
type SubscriberStore interface {
	// GetOrCreate returns the subscriber matching match in the workspace,
	// inserting record when none exists. The bool reports whether the row
	// was created by this call. Two concurrent calls for the same email
	// must yield one row.
	GetOrCreate(ctx context.Context, workspaceID int64, match SubscriberMatch, record *domain.Subscriber) (*domain.Subscriber, bool, error)

	// FindByMany returns the subscriber matching every non-empty field, or
	// nil with no error when there is none.
	FindByMany(ctx context.Context, workspaceID int64, match SubscriberMatch) (*domain.Subscriber, error)

	// Save persists the mutable fields of an existing subscriber.
	Save(ctx context.Context, s *domain.Subscriber) error
}
