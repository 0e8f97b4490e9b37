// Package snapshots stores one serialized collection per (user, scope).
package snapshots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID, scope string) (*models.Snapshot, error) {
	query :=
		`SELECT content, clock, updated_at FROM snapshots
		 WHERE user_id = $1 AND scope = $2`

	s := &models.Snapshot{UserID: userID, Scope: scope}
	err := r.db.QueryRowContext(ctx, query, userID, scope).Scan(&s.Content, &s.Clock, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Clock(ctx context.Context, userID, scope string) (int64, error) {
	query :=
		`SELECT COALESCE(MAX(clock), 0) FROM snapshots
		 WHERE user_id = $1 AND scope = $2`

	var clock int64
	if err := r.db.QueryRowContext(ctx, query, userID, scope).Scan(&clock); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return clock, nil
}

// Put upserts the snapshot. The clock is wall-clock milliseconds unless
// that would not advance past the stored one.
func (r *PostgresRepository) Put(ctx context.Context, userID, scope, content string) (int64, error) {
	query :=
		`INSERT INTO snapshots (user_id, scope, content, clock, updated_at)
		 VALUES ($1, $2, $3, (extract(epoch FROM clock_timestamp()) * 1000)::bigint, now())
		 ON CONFLICT (user_id, scope) DO UPDATE
		 SET content = EXCLUDED.content,
		     clock = GREATEST(EXCLUDED.clock, snapshots.clock + 1),
		     updated_at = EXCLUDED.updated_at
		 RETURNING clock`

	var clock int64
	if err := r.db.QueryRowContext(ctx, query, userID, scope, content).Scan(&clock); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return clock, nil
}
