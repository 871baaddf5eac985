package domain

// Origin tags where a message came from. It is fixed when the message is
// constructed and decides which email-service resolution path applies.
type Origin string

const (
	OriginAutomation   Origin = "automation"
	OriginCampaign     Origin = "campaign"
	OriginConfirmation Origin = "confirmation"
)

// Message is a single outbound email unit. It is built per dispatch and
// never persisted by this service.
type Message struct {
	WorkspaceID    int64  `json:"workspace_id"`
	Origin         Origin `json:"origin"`
	SourceID       int64  `json:"source_id"`
	RecipientEmail string `json:"recipient_email"`
	FromName       string `json:"from_name"`
	FromEmail      string `json:"from_email"`
	Subject        string `json:"subject"`
	Hash           string `json:"hash"`

	// Subscriber is attached for confirmation messages so the merge
	// service can render subscriber variables.
	Subscriber *Subscriber `json:"-"`

	// Tracking overrides the per-origin defaults when non-nil.
	Tracking *TrackingOptions `json:"tracking,omitempty"`
}

// NewAutomationMessage builds a message originating from an automation
// schedule.
func NewAutomationMessage(workspaceID, scheduleID int64, recipient string) *Message {
	return &Message{
		WorkspaceID:    workspaceID,
		Origin:         OriginAutomation,
		SourceID:       scheduleID,
		RecipientEmail: recipient,
	}
}

// NewCampaignMessage builds a message originating from a campaign.
func NewCampaignMessage(workspaceID, campaignID int64, recipient string) *Message {
	return &Message{
		WorkspaceID:    workspaceID,
		Origin:         OriginCampaign,
		SourceID:       campaignID,
		RecipientEmail: recipient,
	}
}

// NewConfirmationMessage builds an opt-in confirmation message. Confirmation
// messages have no source entity.
func NewConfirmationMessage(workspaceID int64, recipient string) *Message {
	return &Message{
		WorkspaceID:    workspaceID,
		Origin:         OriginConfirmation,
		RecipientEmail: recipient,
	}
}

// TrackingOptions toggles open and click tracking for a single send.
type TrackingOptions struct {
	Open  bool `json:"open"`
	Click bool `json:"click"`
}

// DefaultTrackingOptions is used when a message carries no override.
func DefaultTrackingOptions() TrackingOptions {
	return TrackingOptions{Open: true, Click: true}
}

// MessageOptions is what the relay needs besides the rendered body.
type MessageOptions struct {
	To        string          `json:"to"`
	FromEmail string          `json:"from_email"`
	FromName  string          `json:"from_name"`
	Subject   string          `json:"subject"`
	Tracking  TrackingOptions `json:"tracking"`
}
