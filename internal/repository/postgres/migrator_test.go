package postgres

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigratorUpAppliesPending(t *testing.T) {
	db, mock := setupTestDB(t)
	files := fstest.MapFS{
		"001_subscribers.sql":    {Data: []byte("CREATE TABLE subscribers (id BIGSERIAL);")},
		"002_email_services.sql": {Data: []byte("CREATE TABLE email_services (id BIGSERIAL);")},
		"003_empty.sql":          {Data: []byte("  \n")},
		"README.md":              {Data: []byte("ignored")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT name FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("001_subscribers.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE email_services").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("002_email_services.sql").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := NewMigrator(db, files).Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMigratorUpStopsOnFailure(t *testing.T) {
	db, mock := setupTestDB(t)
	files := fstest.MapFS{
		"001_bad.sql":  {Data: []byte("CREATE TABLE oops (")},
		"002_next.sql": {Data: []byte("CREATE TABLE next (id INT);")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT name FROM schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE oops \(`).WillReturnError(errors.New("syntax error at end of input"))
	mock.ExpectRollback()

	n, err := NewMigrator(db, files).Up(context.Background())
	assert.Zero(t, n)
	assert.ErrorContains(t, err, "apply 001_bad.sql")
}
