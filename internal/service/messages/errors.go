package messages

import (
	"errors"
	"fmt"

	"github.com/ignite/optin-mailer/internal/domain"
)

// ErrNotFound is returned by repositories when a looked-up row is missing.
var ErrNotFound = errors.New("record not found")

// Resolution failure reasons. Match them with errors.Is on a
// *ResolutionError.
var (
	ErrScheduleNotFound        = errors.New("schedule not found")
	ErrCampaignNotFound        = errors.New("campaign not found")
	ErrEmailServiceNotFound    = errors.New("email service not found")
	ErrNoWorkspaceEmailService = errors.New("no email service configured for workspace")
	ErrUnrecognizedOrigin      = errors.New("unrecognized message origin")
)

// ResolutionError reports that no email service could be determined for a
// message. It is a configuration or data inconsistency and is never retried.
type ResolutionError struct {
	WorkspaceID int64
	Origin      domain.Origin
	SourceID    int64
	Err         error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve email service (workspace=%d origin=%q source=%d): %v",
		e.WorkspaceID, e.Origin, e.SourceID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// reason returns a short metric label for the failure.
func (e *ResolutionError) reason() string {
	switch {
	case errors.Is(e.Err, ErrScheduleNotFound):
		return "schedule_not_found"
	case errors.Is(e.Err, ErrCampaignNotFound):
		return "campaign_not_found"
	case errors.Is(e.Err, ErrEmailServiceNotFound):
		return "email_service_not_found"
	case errors.Is(e.Err, ErrNoWorkspaceEmailService):
		return "no_workspace_email_service"
	default:
		return "unrecognized_origin"
	}
}
