package domain

import "time"

// Subscriber represents a single email recipient within a workspace.
// A nil UnsubscribedAt means the address is confirmed and subscribed.
type Subscriber struct {
	ID             int64      `json:"id" db:"id"`
	WorkspaceID    int64      `json:"workspace_id" db:"workspace_id"`
	Email          string     `json:"email" db:"email"`
	FirstName      string     `json:"first_name" db:"first_name"`
	LastName       string     `json:"last_name" db:"last_name"`
	Hash           string     `json:"-" db:"hash"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at" db:"unsubscribed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Confirmed reports whether the subscriber has completed the opt-in.
func (s *Subscriber) Confirmed() bool {
	return s.UnsubscribedAt == nil
}
