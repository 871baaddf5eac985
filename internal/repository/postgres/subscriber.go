package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ignite/optin-mailer/internal/domain"
	"github.com/ignite/optin-mailer/internal/service/subscription"
)

// SubscriberRepo implements subscription.SubscriberStore against PostgreSQL.
type SubscriberRepo struct{ db *sql.DB }

// NewSubscriberRepo creates a Postgres-backed subscriber repository.
func NewSubscriberRepo(db *sql.DB) *SubscriberRepo { return &SubscriberRepo{db: db} }

const subscriberColumns = `id, workspace_id, email, COALESCE(first_name,''), COALESCE(last_name,''),
		       hash, unsubscribed_at, created_at, updated_at`

func scanSubscriber(row interface{ Scan(...interface{}) error }) (*domain.Subscriber, error) {
	s := &domain.Subscriber{}
	var unsubscribedAt sql.NullTime
	if err := row.Scan(
		&s.ID, &s.WorkspaceID, &s.Email, &s.FirstName, &s.LastName,
		&s.Hash, &unsubscribedAt, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if unsubscribedAt.Valid {
		t := unsubscribedAt.Time
		s.UnsubscribedAt = &t
	}
	return s, nil
}

// GetOrCreate inserts record unless a subscriber with the same workspace and
// email exists. The unique (workspace_id, email) index makes concurrent
// calls converge on one row.
func (r *SubscriberRepo) GetOrCreate(ctx context.Context, workspaceID int64, match subscription.SubscriberMatch, record *domain.Subscriber) (*domain.Subscriber, bool, error) {
	if match.Email == "" {
		return nil, false, errors.New("get or create subscriber: email match required")
	}

	var unsubscribedAt interface{}
	if record.UnsubscribedAt != nil {
		unsubscribedAt = *record.UnsubscribedAt
	}

	created, err := scanSubscriber(r.db.QueryRowContext(ctx, `
		INSERT INTO subscribers
			(workspace_id, email, first_name, last_name, hash, unsubscribed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (workspace_id, email) DO NOTHING
		RETURNING `+subscriberColumns,
		workspaceID, match.Email, record.FirstName, record.LastName, record.Hash,
		unsubscribedAt, record.CreatedAt, record.UpdatedAt,
	))
	if err == nil {
		return created, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("create subscriber: %w", err)
	}

	existing, err := r.FindByMany(ctx, workspaceID, match)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("create subscriber: conflicting row for workspace %d not found", workspaceID)
	}
	return existing, false, nil
}

// FindByMany returns the subscriber matching every non-empty field of match,
// or nil when there is none.
func (r *SubscriberRepo) FindByMany(ctx context.Context, workspaceID int64, match subscription.SubscriberMatch) (*domain.Subscriber, error) {
	conds := []string{"workspace_id = $1"}
	args := []interface{}{workspaceID}
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("email", match.Email)
	add("hash", match.Hash)

	q := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE ` + strings.Join(conds, " AND ") + ` LIMIT 1`
	s, err := scanSubscriber(r.db.QueryRowContext(ctx, q, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find subscriber: %w", err)
	}
	return s, nil
}

// Save writes back the subscriber's mutable fields.
func (r *SubscriberRepo) Save(ctx context.Context, s *domain.Subscriber) error {
	var unsubscribedAt interface{}
	if s.UnsubscribedAt != nil {
		unsubscribedAt = *s.UnsubscribedAt
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscribers
		SET first_name = $1, last_name = $2, unsubscribed_at = $3, updated_at = $4
		WHERE id = $5 AND workspace_id = $6
	`, s.FirstName, s.LastName, unsubscribedAt, s.UpdatedAt, s.ID, s.WorkspaceID)
	if err != nil {
		return fmt.Errorf("save subscriber: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("save subscriber %d: no such row", s.ID)
	}
	return nil
}
