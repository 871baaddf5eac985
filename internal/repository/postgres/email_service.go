package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ignite/optin-mailer/internal/domain"
)

// EmailServiceRepo implements messages.EmailServiceRepository.
type EmailServiceRepo struct{ db *sql.DB }

func NewEmailServiceRepo(db *sql.DB) *EmailServiceRepo { return &EmailServiceRepo{db: db} }

// All returns the workspace's email services in creation order.
func (r *EmailServiceRepo) All(ctx context.Context, workspaceID int64) ([]domain.EmailService, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, type, settings, created_at, updated_at
		FROM email_services
		WHERE workspace_id = $1
		ORDER BY id
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list email services: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailService
	for rows.Next() {
		var e domain.EmailService
		var settings []byte
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &e.Name, &e.Type, &settings, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan email service: %w", err)
		}
		if e.Settings, err = decodeSettings(settings); err != nil {
			return nil, fmt.Errorf("email service %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list email services: %w", err)
	}
	return out, nil
}

// decodeSettings reads the settings JSONB column. Non-string values keep
// their JSON text so numeric ports and booleans survive.
func decodeSettings(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return map[string]string{}, nil
	}
	var values map[string]json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = string(v)
	}
	return out, nil
}

// nullableEmailService scans a LEFT JOINed email_services row.
type nullableEmailService struct {
	ID          sql.NullInt64
	WorkspaceID sql.NullInt64
	Name        sql.NullString
	Type        sql.NullString
	Settings    []byte
	CreatedAt   sql.NullTime
	UpdatedAt   sql.NullTime
}

func (n nullableEmailService) toDomain() (*domain.EmailService, error) {
	if !n.ID.Valid {
		return nil, nil
	}
	settings, err := decodeSettings(n.Settings)
	if err != nil {
		return nil, err
	}
	return &domain.EmailService{
		ID:          n.ID.Int64,
		WorkspaceID: n.WorkspaceID.Int64,
		Name:        n.Name.String,
		Type:        domain.EmailServiceType(n.Type.String),
		Settings:    settings,
		CreatedAt:   n.CreatedAt.Time,
		UpdatedAt:   n.UpdatedAt.Time,
	}, nil
}
