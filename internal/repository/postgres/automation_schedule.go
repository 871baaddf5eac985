package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/optin-mailer/internal/domain"
	"github.com/ignite/optin-mailer/internal/service/messages"
)

// AutomationScheduleRepo implements messages.AutomationScheduleRepository.
type AutomationScheduleRepo struct{ db *sql.DB }

func NewAutomationScheduleRepo(db *sql.DB) *AutomationScheduleRepo {
	return &AutomationScheduleRepo{db: db}
}

// Find loads a schedule with its step, automation and email service. Links
// that are missing after the schedule are left nil.
func (r *AutomationScheduleRepo) Find(ctx context.Context, scheduleID int64) (*domain.AutomationSchedule, error) {
	s := &domain.AutomationSchedule{}
	var (
		stepID, stepAutomationID          sql.NullInt64
		automationID, automationWorkspace sql.NullInt64
		automationName                    sql.NullString
		automationServiceID               sql.NullInt64
		es                                nullableEmailService
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT sch.id, sch.automation_step_id, sch.subscriber_id, sch.scheduled_at,
		       st.id, st.automation_id,
		       a.id, a.workspace_id, a.name, a.email_service_id,
		       es.id, es.workspace_id, es.name, es.type, es.settings, es.created_at, es.updated_at
		FROM automation_schedules sch
		LEFT JOIN automation_steps st ON st.id = sch.automation_step_id
		LEFT JOIN automations a ON a.id = st.automation_id
		LEFT JOIN email_services es ON es.id = a.email_service_id
		WHERE sch.id = $1
	`, scheduleID).Scan(
		&s.ID, &s.AutomationStepID, &s.SubscriberID, &s.ScheduledAt,
		&stepID, &stepAutomationID,
		&automationID, &automationWorkspace, &automationName, &automationServiceID,
		&es.ID, &es.WorkspaceID, &es.Name, &es.Type, &es.Settings, &es.CreatedAt, &es.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, messages.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get automation schedule: %w", err)
	}

	if !stepID.Valid {
		return s, nil
	}
	s.Step = &domain.AutomationStep{ID: stepID.Int64, AutomationID: stepAutomationID.Int64}

	if !automationID.Valid {
		return s, nil
	}
	a := &domain.Automation{
		ID:          automationID.Int64,
		WorkspaceID: automationWorkspace.Int64,
		Name:        automationName.String,
	}
	if automationServiceID.Valid {
		id := automationServiceID.Int64
		a.EmailServiceID = &id
	}
	if a.EmailService, err = es.toDomain(); err != nil {
		return nil, fmt.Errorf("get automation schedule: %w", err)
	}
	s.Step.Automation = a
	return s, nil
}
