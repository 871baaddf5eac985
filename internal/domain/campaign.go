package domain

import "time"

// Campaign is the subset of a campaign the sending path needs: which email
// service it is bound to and its tracking preferences.
type Campaign struct {
	ID              int64         `json:"id" db:"id"`
	WorkspaceID     int64         `json:"workspace_id" db:"workspace_id"`
	Name            string        `json:"name" db:"name"`
	EmailServiceID  *int64        `json:"email_service_id" db:"email_service_id"`
	IsOpenTracking  bool          `json:"is_open_tracking" db:"is_open_tracking"`
	IsClickTracking bool          `json:"is_click_tracking" db:"is_click_tracking"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	EmailService    *EmailService `json:"email_service,omitempty" db:"-"`
}

// TrackingOptions returns the campaign's open and click tracking flags.
func (c *Campaign) TrackingOptions() TrackingOptions {
	return TrackingOptions{Open: c.IsOpenTracking, Click: c.IsClickTracking}
}
