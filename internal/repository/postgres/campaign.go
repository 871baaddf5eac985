package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/optin-mailer/internal/domain"
	"github.com/ignite/optin-mailer/internal/service/messages"
)

// CampaignRepo implements messages.CampaignRepository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

// Find returns the workspace campaign with its email service eager-loaded.
// EmailService is nil when the campaign has none or it no longer exists.
func (r *CampaignRepo) Find(ctx context.Context, workspaceID, campaignID int64) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var serviceID sql.NullInt64
	var es nullableEmailService

	err := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.workspace_id, c.name, c.email_service_id,
		       c.is_open_tracking, c.is_click_tracking, c.created_at,
		       es.id, es.workspace_id, es.name, es.type, es.settings, es.created_at, es.updated_at
		FROM campaigns c
		LEFT JOIN email_services es ON es.id = c.email_service_id
		WHERE c.id = $1 AND c.workspace_id = $2
	`, campaignID, workspaceID).Scan(
		&c.ID, &c.WorkspaceID, &c.Name, &serviceID,
		&c.IsOpenTracking, &c.IsClickTracking, &c.CreatedAt,
		&es.ID, &es.WorkspaceID, &es.Name, &es.Type, &es.Settings, &es.CreatedAt, &es.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, messages.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}

	if serviceID.Valid {
		id := serviceID.Int64
		c.EmailServiceID = &id
	}
	if c.EmailService, err = es.toDomain(); err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}
