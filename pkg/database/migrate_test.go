package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	createVersionsSQL = regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")
	checkVersionSQL   = regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)")
	recordVersionSQL  = regexp.QuoteMeta("INSERT INTO schema_migrations (version) VALUES ($1)")
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"0002_targets.up.sql": {Data: []byte("CREATE TABLE targets (id int)")},
		"0001_init.up.sql":    {Data: []byte("CREATE TABLE campaigns (id int)")},
		"0001_init.down.sql":  {Data: []byte("DROP TABLE campaigns")},
		"README.md":           {Data: []byte("not a migration")},
		"archive/0003.up.sql": {Data: []byte("SELECT 1")},
	}
}

func newMigratorMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestRunMigrations_AppliesPendingInOrder(t *testing.T) {
	mock := newMigratorMock(t)

	mock.ExpectExec(createVersionsSQL).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	mock.ExpectQuery(checkVersionSQL).WithArgs("0001_init.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery(checkVersionSQL).WithArgs("0002_targets.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE targets (id int)")).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(recordVersionSQL).WithArgs("0002_targets.up.sql").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := RunMigrations(context.Background(), mock, testMigrations())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_FailedMigrationRollsBack(t *testing.T) {
	mock := newMigratorMock(t)

	mock.ExpectExec(createVersionsSQL).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(checkVersionSQL).WithArgs("0001_init.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE campaigns (id int)")).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err := RunMigrations(context.Background(), mock, testMigrations())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute migration 0001_init.up.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_VersionTableError(t *testing.T) {
	mock := newMigratorMock(t)

	mock.ExpectExec(createVersionsSQL).WillReturnError(errors.New("permission denied"))

	err := RunMigrations(context.Background(), mock, testMigrations())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create schema_migrations table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_CheckError(t *testing.T) {
	mock := newMigratorMock(t)

	mock.ExpectExec(createVersionsSQL).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(checkVersionSQL).WithArgs("0001_init.up.sql").WillReturnError(errors.New("connection reset"))

	err := RunMigrations(context.Background(), mock, testMigrations())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check migration 0001_init.up.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}
