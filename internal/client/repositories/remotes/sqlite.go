package remotes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
)

const selectColumns = `SELECT id, name, rank, type, config, connected, last_remote_change, last_pushed, info FROM remotes`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRemote(s scanner) (*models.Remote, error) {
	var (
		r   models.Remote
		cfg []byte
	)
	if err := s.Scan(&r.ID, &r.Name, &r.Rank, &r.Type, &cfg, &r.Connected, &r.LastRemoteChange, &r.LastPushed, &r.Info); err != nil {
		return nil, err
	}
	r.Config = map[string]any{}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &r.Config); err != nil {
			return nil, fmt.Errorf("failed to decode config of remote %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, rm *models.Remote) error {
	cfg := rm.Config
	if cfg == nil {
		cfg = map[string]any{}
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config of remote %s: %w", rm.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO remotes (id, name, rank, type, config, connected, last_remote_change, last_pushed, info)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			rank = excluded.rank,
			type = excluded.type,
			config = excluded.config,
			connected = excluded.connected,
			last_remote_change = excluded.last_remote_change,
			last_pushed = excluded.last_pushed,
			info = excluded.info`,
		rm.ID, rm.Name, rm.Rank, rm.Type, string(raw), rm.Connected, rm.LastRemoteChange, rm.LastPushed, rm.Info)
	if err != nil {
		return fmt.Errorf("failed to upsert remote %s: %w", rm.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Remote, error) {
	rm, err := scanRemote(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("remote %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get remote %s: %w", id, err)
	}
	return rm, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Remote, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY rank, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Remote, 0)
	for rows.Next() {
		rm, err := scanRemote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan remote row: %w", err)
		}
		result = append(result, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate remote rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM remote_items WHERE remote_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete known items of remote %s: %w", id, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM remotes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete remote %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Known(ctx context.Context, id string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT item_id FROM remote_items WHERE remote_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list known items of remote %s: %w", id, err)
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, fmt.Errorf("failed to scan known item row: %w", err)
		}
		known[item] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate known item rows: %w", err)
	}
	return known, nil
}

func (r *SQLiteRepository) SetKnown(ctx context.Context, id string, items []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM remote_items WHERE remote_id = ?`, id); err != nil {
		return fmt.Errorf("failed to reset known items of remote %s: %w", id, err)
	}
	for _, item := range items {
		if _, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO remote_items (remote_id, item_id) VALUES (?, ?)`, id, item); err != nil {
			return fmt.Errorf("failed to record known item %s of remote %s: %w", item, id, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) SetRank(ctx context.Context, id string, rank int) error {
	return r.exec(ctx, id, `UPDATE remotes SET rank = ? WHERE id = ?`, rank, id)
}

func (r *SQLiteRepository) SetState(ctx context.Context, id string, connected bool, info string) error {
	return r.exec(ctx, id, `UPDATE remotes SET connected = ?, info = ? WHERE id = ?`, connected, info, id)
}

func (r *SQLiteRepository) SetClocks(ctx context.Context, id string, lastRemoteChange, lastPushed int64) error {
	return r.exec(ctx, id, `UPDATE remotes SET last_remote_change = ?, last_pushed = ? WHERE id = ?`, lastRemoteChange, lastPushed, id)
}

func (r *SQLiteRepository) exec(ctx context.Context, id string, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update remote %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("remote %s: %w", id, common.ErrorNotFound)
	}
	return nil
}
