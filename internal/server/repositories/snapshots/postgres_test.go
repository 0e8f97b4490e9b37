package snapshots

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresRepository(db), mock
}

func TestGet(t *testing.T) {
	q := `(?s)^SELECT\s+content,\s*clock,\s*updated_at\s+FROM\s+snapshots\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+scope\s*=\s*\$2$`

	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		now := time.Now()
		mock.ExpectQuery(q).WithArgs("u1", "notes").
			WillReturnRows(sqlmock.NewRows([]string{"content", "clock", "updated_at"}).AddRow(`{"items":[]}`, int64(77), now))

		s, err := repo.Get(context.Background(), "u1", "notes")
		require.NoError(t, err)
		assert.Equal(t, "u1", s.UserID)
		assert.Equal(t, "notes", s.Scope)
		assert.Equal(t, `{"items":[]}`, s.Content)
		assert.EqualValues(t, 77, s.Clock)
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("u1", "notes").WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), "u1", "notes")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WillReturnError(errors.New("boom"))

		_, err := repo.Get(context.Background(), "u1", "notes")
		assert.EqualError(t, err, "db error: boom")
	})
}

func TestClock(t *testing.T) {
	q := `(?s)^SELECT\s+COALESCE\(MAX\(clock\),\s*0\)\s+FROM\s+snapshots`

	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(q).WithArgs("u1", "notes").
		WillReturnRows(sqlmock.NewRows([]string{"clock"}).AddRow(int64(0)))

	clock, err := repo.Clock(context.Background(), "u1", "notes")
	require.NoError(t, err)
	assert.Zero(t, clock)
}

func TestPut(t *testing.T) {
	q := `(?s)^INSERT\s+INTO\s+snapshots.*ON\s+CONFLICT\s+\(user_id,\s*scope\)\s+DO\s+UPDATE.*GREATEST\(EXCLUDED\.clock,\s*snapshots\.clock\s*\+\s*1\).*RETURNING\s+clock$`

	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("u1", "notes", "payload").
			WillReturnRows(sqlmock.NewRows([]string{"clock"}).AddRow(int64(1700000000000)))

		clock, err := repo.Put(context.Background(), "u1", "notes", "payload")
		require.NoError(t, err)
		assert.EqualValues(t, 1700000000000, clock)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WillReturnError(errors.New("fk violation"))

		_, err := repo.Put(context.Background(), "u1", "notes", "payload")
		assert.EqualError(t, err, "db error: fk violation")
	})
}
