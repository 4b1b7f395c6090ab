package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/safar/go-sql-shop/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ErrorClassUniqueViolation, ClassifyError(&pq.Error{Code: "23505"}))
	assert.Equal(t, ErrorClassCheckViolation, ClassifyError(fmt.Errorf("update: %w", &pq.Error{Code: "23514"})))
	assert.Equal(t, ErrorClassSerialization, ClassifyError(&pq.Error{Code: "40P01"}))
	assert.Equal(t, ErrorClassOther, ClassifyError(errors.New("boom")))
	assert.Equal(t, ErrorClassOther, ClassifyError(nil))
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
}

func TestWithTransactionCommits(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = WithTransaction(context.Background(), db, DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM cart_items`)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	calls := 0
	err = WithTransaction(context.Background(), db, DefaultTxOptions(), func(*sql.Tx) error {
		calls++
		return ErrInsufficientStock
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 1, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateOrdersFiles(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"000002_b.up.sql":   {Data: []byte("CREATE TABLE b ()")},
		"000001_a.up.sql":   {Data: []byte("CREATE TABLE a ()")},
		"000001_a.down.sql": {Data: []byte("DROP TABLE a")},
		"000002_b.down.sql": {Data: []byte("DROP TABLE b")},
		"README.md":         {Data: []byte("ignored")},
	}

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a ()")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b ()")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE b")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE a")).WillReturnResult(sqlmock.NewResult(0, 0))

	up, err := Migrate(context.Background(), db, fsys, MigrateUp)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_a.up.sql", "000002_b.up.sql"}, up)

	down, err := Migrate(context.Background(), db, fsys, MigrateDown)
	require.NoError(t, err)
	assert.Equal(t, []string{"000002_b.down.sql", "000001_a.down.sql"}, down)

	_, err = Migrate(context.Background(), db, fsys, "sideways")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenRequiresURL(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), config.DatabaseConfig{})
	require.Error(t, err)
}
