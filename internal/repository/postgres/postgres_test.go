package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/optin-mailer/internal/domain"
	"github.com/ignite/optin-mailer/internal/service/messages"
	"github.com/ignite/optin-mailer/internal/service/subscription"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var (
	ts             = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	subscriberCols = []string{"id", "workspace_id", "email", "first_name", "last_name", "hash", "unsubscribed_at", "created_at", "updated_at"}
	serviceCols    = []string{"id", "workspace_id", "name", "type", "settings", "created_at", "updated_at"}
)

func TestSubscriberGetOrCreateInserts(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewSubscriberRepo(db)

	record := &domain.Subscriber{Email: "alice@example.com", FirstName: "Alice", Hash: "h1", UnsubscribedAt: &ts, CreatedAt: ts, UpdatedAt: ts}
	mock.ExpectQuery("INSERT INTO subscribers").
		WithArgs(int64(1), "alice@example.com", "Alice", "", "h1", ts, ts, ts).
		WillReturnRows(sqlmock.NewRows(subscriberCols).
			AddRow(10, 1, "alice@example.com", "Alice", "", "h1", ts, ts, ts))

	sub, created, err := repo.GetOrCreate(context.Background(), 1, subscription.SubscriberMatch{Email: "alice@example.com"}, record)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(10), sub.ID)
	require.NotNil(t, sub.UnsubscribedAt)
}

func TestSubscriberGetOrCreateReturnsExisting(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewSubscriberRepo(db)

	mock.ExpectQuery("INSERT INTO subscribers").
		WillReturnRows(sqlmock.NewRows(subscriberCols))
	mock.ExpectQuery(`SELECT .+ FROM subscribers WHERE workspace_id = \$1 AND email = \$2 LIMIT 1`).
		WithArgs(int64(1), "alice@example.com").
		WillReturnRows(sqlmock.NewRows(subscriberCols).
			AddRow(7, 1, "alice@example.com", "", "", "old", nil, ts.Add(-48*time.Hour), ts))

	record := subscription.NewSubscriberRecord(subscription.SubscribeInput{WorkspaceID: 1, Email: "alice@example.com"}, ts)
	sub, created, err := repo.GetOrCreate(context.Background(), 1, subscription.SubscriberMatch{Email: "alice@example.com"}, record)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(7), sub.ID)
	assert.Equal(t, "old", sub.Hash)
	assert.Nil(t, sub.UnsubscribedAt)
}

func TestSubscriberFindByManyMiss(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewSubscriberRepo(db)

	mock.ExpectQuery(`FROM subscribers WHERE workspace_id = \$1 AND email = \$2 AND hash = \$3`).
		WithArgs(int64(1), "alice@example.com", "wrong").
		WillReturnRows(sqlmock.NewRows(subscriberCols))

	sub, err := repo.FindByMany(context.Background(), 1, subscription.SubscriberMatch{Email: "alice@example.com", Hash: "wrong"})
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestSubscriberFindByManyError(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewSubscriberRepo(db)

	mock.ExpectQuery("FROM subscribers").WillReturnError(errors.New("connection reset"))

	_, err := repo.FindByMany(context.Background(), 1, subscription.SubscriberMatch{Email: "a@example.com"})
	assert.ErrorContains(t, err, "find subscriber")
}

func TestSubscriberSave(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewSubscriberRepo(db)

	mock.ExpectExec("UPDATE subscribers").
		WithArgs("Alice", "", nil, ts, int64(7), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Save(context.Background(), &domain.Subscriber{ID: 7, WorkspaceID: 1, FirstName: "Alice", UpdatedAt: ts}))

	mock.ExpectExec("UPDATE subscribers").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.Error(t, repo.Save(context.Background(), &domain.Subscriber{ID: 8, WorkspaceID: 1}))
}

func TestCampaignFind(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCampaignRepo(db)

	cols := []string{"id", "workspace_id", "name", "email_service_id", "is_open_tracking", "is_click_tracking", "created_at",
		"es_id", "es_workspace_id", "es_name", "es_type", "es_settings", "es_created_at", "es_updated_at"}
	mock.ExpectQuery("FROM campaigns c").
		WithArgs(int64(5), int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(5, 1, "Launch", 3, true, false, ts, 3, 1, "Primary", "sparkpost", []byte(`{"key":"abc"}`), ts, ts))

	c, err := repo.Find(context.Background(), 1, 5)
	require.NoError(t, err)
	require.NotNil(t, c.EmailServiceID)
	assert.Equal(t, int64(3), *c.EmailServiceID)
	require.NotNil(t, c.EmailService)
	assert.Equal(t, domain.EmailServiceSparkPost, c.EmailService.Type)
	assert.Equal(t, "abc", c.EmailService.Setting("key"))
	assert.True(t, c.IsOpenTracking)
}

func TestCampaignFindWithoutEmailService(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCampaignRepo(db)

	cols := []string{"id", "workspace_id", "name", "email_service_id", "is_open_tracking", "is_click_tracking", "created_at",
		"es_id", "es_workspace_id", "es_name", "es_type", "es_settings", "es_created_at", "es_updated_at"}
	mock.ExpectQuery("FROM campaigns c").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(5, 1, "Launch", nil, true, true, ts, nil, nil, nil, nil, nil, nil, nil))

	c, err := repo.Find(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Nil(t, c.EmailServiceID)
	assert.Nil(t, c.EmailService)
}

func TestCampaignFindMissing(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCampaignRepo(db)

	mock.ExpectQuery("FROM campaigns c").WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), 1, 99)
	assert.ErrorIs(t, err, messages.ErrNotFound)
}

func TestAutomationScheduleFindChain(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewAutomationScheduleRepo(db)

	cols := []string{"id", "automation_step_id", "subscriber_id", "scheduled_at",
		"st_id", "st_automation_id", "a_id", "a_workspace_id", "a_name", "a_email_service_id",
		"es_id", "es_workspace_id", "es_name", "es_type", "es_settings", "es_created_at", "es_updated_at"}
	mock.ExpectQuery("FROM automation_schedules sch").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(42, 8, 10, ts, 8, 2, 2, 1, "Welcome", 4, 4, 1, "SES", "ses", []byte(`{"key":"k","secret":"s","port":587}`), ts, ts))

	s, err := repo.Find(context.Background(), 42)
	require.NoError(t, err)
	svc := s.ResolvedEmailService()
	require.NotNil(t, svc)
	assert.Equal(t, int64(4), svc.ID)
	assert.Equal(t, "587", svc.Setting("port"))
}

func TestAutomationScheduleFindBrokenChain(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewAutomationScheduleRepo(db)

	cols := []string{"id", "automation_step_id", "subscriber_id", "scheduled_at",
		"st_id", "st_automation_id", "a_id", "a_workspace_id", "a_name", "a_email_service_id",
		"es_id", "es_workspace_id", "es_name", "es_type", "es_settings", "es_created_at", "es_updated_at"}
	mock.ExpectQuery("FROM automation_schedules sch").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(42, 8, 10, ts, 8, 2, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil))

	s, err := repo.Find(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, s.Step)
	assert.Nil(t, s.Step.Automation)
	assert.Nil(t, s.ResolvedEmailService())
}

func TestAutomationScheduleFindMissing(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewAutomationScheduleRepo(db)

	mock.ExpectQuery("FROM automation_schedules sch").WillReturnError(sql.ErrNoRows)
	_, err := repo.Find(context.Background(), 1)
	assert.ErrorIs(t, err, messages.ErrNotFound)
}

func TestEmailServiceAll(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewEmailServiceRepo(db)

	mock.ExpectQuery(`FROM email_services\s+WHERE workspace_id = \$1\s+ORDER BY id`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(serviceCols).
			AddRow(2, 1, "first", "mailgun", []byte(`{"key":"k","domain":"mg.example.com","zone":null}`), ts, ts).
			AddRow(5, 1, "second", "smtp", nil, ts, ts))

	all, err := repo.All(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].ID)
	assert.Equal(t, "mg.example.com", all[0].Setting("domain"))
	_, hasZone := all[0].Settings["zone"]
	assert.False(t, hasZone)
	assert.Empty(t, all[1].Settings)
}

func TestEmailServiceAllBadSettings(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewEmailServiceRepo(db)

	mock.ExpectQuery("FROM email_services").
		WillReturnRows(sqlmock.NewRows(serviceCols).AddRow(2, 1, "first", "mailgun", []byte(`not json`), ts, ts))

	_, err := repo.All(context.Background(), 1)
	assert.ErrorContains(t, err, "decode settings")
}

func TestDecodeSettingsDropsNull(t *testing.T) {
	got, err := decodeSettings([]byte(`{"host":"smtp.example.com","port":587,"password":null,"tls": true}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"host": "smtp.example.com", "port": "587", "tls": "true"}, got)
}
