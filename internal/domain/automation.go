package domain

import "time"

// AutomationSchedule is one scheduled execution of an automation step for
// a subscriber. Messages originating from automations point at a schedule.
type AutomationSchedule struct {
	ID               int64           `json:"id" db:"id"`
	AutomationStepID int64           `json:"automation_step_id" db:"automation_step_id"`
	SubscriberID     int64           `json:"subscriber_id" db:"subscriber_id"`
	ScheduledAt      time.Time       `json:"scheduled_at" db:"scheduled_at"`
	Step             *AutomationStep `json:"automation_step,omitempty" db:"-"`
}

// AutomationStep is a single step in an automation flow.
type AutomationStep struct {
	ID           int64       `json:"id" db:"id"`
	AutomationID int64       `json:"automation_id" db:"automation_id"`
	Automation   *Automation `json:"automation,omitempty" db:"-"`
}

// Automation owns the email service its steps send through.
type Automation struct {
	ID             int64         `json:"id" db:"id"`
	WorkspaceID    int64         `json:"workspace_id" db:"workspace_id"`
	Name           string        `json:"name" db:"name"`
	EmailServiceID *int64        `json:"email_service_id" db:"email_service_id"`
	EmailService   *EmailService `json:"email_service,omitempty" db:"-"`
}

// ResolvedEmailService walks the eager-loaded chain
// schedule -> step -> automation -> email service. Any missing link
// yields nil.
func (s *AutomationSchedule) ResolvedEmailService() *EmailService {
	if s == nil || s.Step == nil || s.Step.Automation == nil {
		return nil
	}
	return s.Step.Automation.EmailService
}
