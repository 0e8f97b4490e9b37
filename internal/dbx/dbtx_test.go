package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newItemsDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE items (id TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	return db
}

func itemCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func insert(id string) func(context.Context, DBTX) error {
	return func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO items (id) VALUES (?)`, id)
		return err
	}
}

func TestWithTx(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		fn      func(context.Context, DBTX) error
		wantErr error
		want    int
	}{
		{name: "commit", fn: insert("a"), want: 1},
		{
			name: "fn error rolls back",
			fn: func(ctx context.Context, tx DBTX) error {
				require.NoError(t, insert("a")(ctx, tx))
				return boom
			},
			wantErr: boom,
		},
		{
			name: "statement error rolls back",
			fn: func(ctx context.Context, tx DBTX) error {
				require.NoError(t, insert("a")(ctx, tx))
				return insert("a")(ctx, tx)
			},
			wantErr: errors.New("any"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newItemsDB(t)
			err := WithTx(context.Background(), db, nil, tt.fn)
			if tt.wantErr != nil {
				require.Error(t, err)
				if tt.wantErr == boom {
					require.ErrorIs(t, err, boom)
				}
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, itemCount(t, db))
		})
	}
}

func TestWithTx_PanicRollsBack(t *testing.T) {
	db := newItemsDB(t)

	assert.PanicsWithValue(t, "kaput", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, insert("a")(ctx, tx))
			panic("kaput")
		})
	})
	assert.Zero(t, itemCount(t, db))
}

func TestWithTx_BeginError(t *testing.T) {
	db := newItemsDB(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(context.Context, DBTX) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestWithTx_CommitError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(sql.ErrConnDone)

	err = WithTx(context.Background(), db, nil, func(context.Context, DBTX) error { return nil })
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceholders(t *testing.T) {
	for n, want := range map[int]string{-1: "", 0: "", 1: "?", 3: "?, ?, ?"} {
		assert.Equal(t, want, Placeholders(n), "n=%d", n)
	}
}

func TestArgs(t *testing.T) {
	assert.Equal(t, []any{"a", "b"}, Args([]string{"a", "b"}))
	assert.Empty(t, Args(nil))
}
