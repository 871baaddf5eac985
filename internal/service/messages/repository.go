package messages

import (
	"context"

	"github.com/ignite/optin-mailer/internal/domain"
)

// CampaignRepository looks up campaigns with their email service loaded.
type CampaignRepository interface {
	// Find returns the campaign scoped to the workspace. Returns ErrNotFound
	// if it doesn't exist. EmailService is nil when none is attached.
	Find(ctx context.Context, workspaceID, campaignID int64) (*domain.Campaign, error)
}

// AutomationScheduleRepository looks up automation schedules eager-loaded
// through step -> automation -> email service.
type AutomationScheduleRepository interface {
	// Find returns ErrNotFound if the schedule doesn't exist.
	Find(ctx context.Context, scheduleID int64) (*domain.AutomationSchedule, error)
}

// EmailServiceRepository lists a workspace's configured email services.
type EmailServiceRepository interface {
	// All returns the workspace's email services in the store's natural
	// order (ascending id). An empty slice is not an error.
	All(ctx context.Context, workspaceID int64) ([]domain.EmailService, error)
}
