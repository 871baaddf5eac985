package messages

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/optin-mailer/internal/domain"
	"github.com/ignite/optin-mailer/internal/metrics"
)

// Resolver maps a message to the single email service that must send it.
// The message origin is authoritative; nothing is inferred.
type Resolver struct {
	campaigns     CampaignRepository
	schedules     AutomationScheduleRepository
	emailServices EmailServiceRepository
}

// NewResolver creates a resolver backed by the given repositories.
func NewResolver(campaigns CampaignRepository, schedules AutomationScheduleRepository, emailServices EmailServiceRepository) *Resolver {
	return &Resolver{
		campaigns:     campaigns,
		schedules:     schedules,
		emailServices: emailServices,
	}
}

// Resolve returns the email service for msg. It fails with a
// *ResolutionError when none can be determined; store failures are
// returned wrapped as-is. A campaign message without a tracking override
// takes the campaign's tracking flags.
func (r *Resolver) Resolve(ctx context.Context, msg *domain.Message) (*domain.EmailService, error) {
	switch msg.Origin {
	case domain.OriginAutomation:
		return r.resolveAutomation(ctx, msg)
	case domain.OriginCampaign:
		return r.resolveCampaign(ctx, msg)
	case domain.OriginConfirmation:
		return r.resolveConfirmation(ctx, msg)
	default:
		return nil, r.fail(msg, ErrUnrecognizedOrigin)
	}
}

func (r *Resolver) resolveAutomation(ctx context.Context, msg *domain.Message) (*domain.EmailService, error) {
	schedule, err := r.schedules.Find(ctx, msg.SourceID)
	if errors.Is(err, ErrNotFound) {
		return nil, r.fail(msg, ErrScheduleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find automation schedule %d: %w", msg.SourceID, err)
	}

	svc := schedule.ResolvedEmailService()
	if svc == nil {
		return nil, r.fail(msg, ErrEmailServiceNotFound)
	}
	return svc, nil
}

func (r *Resolver) resolveCampaign(ctx context.Context, msg *domain.Message) (*domain.EmailService, error) {
	c, err := r.campaigns.Find(ctx, msg.WorkspaceID, msg.SourceID)
	if errors.Is(err, ErrNotFound) {
		return nil, r.fail(msg, ErrCampaignNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find campaign %d: %w", msg.SourceID, err)
	}

	if c.EmailService == nil {
		return nil, r.fail(msg, ErrEmailServiceNotFound)
	}
	if msg.Tracking == nil {
		tracking := c.TrackingOptions()
		msg.Tracking = &tracking
	}
	return c.EmailService, nil
}

// resolveConfirmation picks the first configured service of the workspace.
// There is no default/priority flag on email services, so "first" means
// the store's natural order.
func (r *Resolver) resolveConfirmation(ctx context.Context, msg *domain.Message) (*domain.EmailService, error) {
	services, err := r.emailServices.All(ctx, msg.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("list email services for workspace %d: %w", msg.WorkspaceID, err)
	}
	if len(services) == 0 {
		return nil, r.fail(msg, ErrNoWorkspaceEmailService)
	}
	svc := services[0]
	return &svc, nil
}

func (r *Resolver) fail(msg *domain.Message, reason error) error {
	err := &ResolutionError{
		WorkspaceID: msg.WorkspaceID,
		Origin:      msg.Origin,
		SourceID:    msg.SourceID,
		Err:         reason,
	}
	metrics.ObserveResolutionFailure(string(msg.Origin), err.reason())
	return err
}
