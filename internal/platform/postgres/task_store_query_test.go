package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/store"
)

const (
	selectAll  = `SELECT id, document FROM "tasks" ORDER BY created_at, id`
	selectByID = `SELECT document FROM "tasks" WHERE id = $1`
)

func TestPostgresTaskStore_FindAll(t *testing.T) {
	t.Run("decodes rows in insertion order", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectAll)).WillReturnRows(
			sqlmock.NewRows([]string{"id", "document"}).
				AddRow("t-1", []byte(`{"description":"buy milk","isCompleted":false}`)).
				AddRow("t-2", []byte(`{"description":"walk dog","isCompleted":true}`)),
		)

		tasks, err := newTaskStore(t, db).FindAll(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []*domain.Task{
			{ID: "t-1", Description: "buy milk"},
			{ID: "t-2", Description: "walk dog", IsCompleted: true},
		}, tasks)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty table yields empty slice", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectAll)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "document"}))

		tasks, err := newTaskStore(t, db).FindAll(context.Background())

		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
	})

	t.Run("query failure is store unavailable", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectAll)).
			WillReturnError(errors.New("read tcp 10.0.0.5:5432: connection reset by peer"))

		tasks, err := newTaskStore(t, db).FindAll(context.Background())

		assert.Nil(t, tasks)
		assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	})

	t.Run("corrupt document is an error", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectAll)).WillReturnRows(
			sqlmock.NewRows([]string{"id", "document"}).AddRow("t-1", []byte(`not json`)),
		)

		tasks, err := newTaskStore(t, db).FindAll(context.Background())

		assert.Nil(t, tasks)
		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "decode failed", storeErr.Message)
	})
}

func TestPostgresTaskStore_FindByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectByID)).WithArgs("t-1").WillReturnRows(
			sqlmock.NewRows([]string{"document"}).
				AddRow([]byte(`{"description":"buy milk","isCompleted":true}`)),
		)

		task, err := newTaskStore(t, db).FindByID(context.Background(), "t-1")

		require.NoError(t, err)
		assert.Equal(t, &domain.Task{ID: "t-1", Description: "buy milk", IsCompleted: true}, task)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row is not found", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectByID)).WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"document"}))

		task, err := newTaskStore(t, db).FindByID(context.Background(), "missing")

		assert.Nil(t, task)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("query failure is store unavailable", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectByID)).WithArgs("t-1").
			WillReturnError(errors.New("connection refused"))

		task, err := newTaskStore(t, db).FindByID(context.Background(), "t-1")

		assert.Nil(t, task)
		assert.ErrorIs(t, err, store.ErrStoreUnavailable)
		assert.False(t, store.IsNotFoundError(err))
	})
}

func TestPostgresTaskStore_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := newTaskStore(t, db)

	mock.ExpectPing()
	assert.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.ErrorIs(t, s.Ping(context.Background()), store.ErrStoreUnavailable)

	assert.NoError(t, mock.ExpectationsWereMet())
}
