package items

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

const selectColumns = `SELECT id, type, parent, notebook, title, content, preview, tags,
	deleted, created, updated, conflict, meta FROM items`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*models.Item, error) {
	var (
		it   models.Item
		kind string
		meta []byte
	)
	if err := s.Scan(&it.ID, &kind, &it.Parent, &it.Notebook, &it.Title, &it.Content, &it.Preview,
		&it.Tags, &it.Deleted, &it.Created, &it.Updated, &it.Conflict, &meta); err != nil {
		return nil, err
	}
	it.Type = models.ItemType(kind)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &it.Meta); err != nil {
			return nil, fmt.Errorf("failed to decode meta of item %s: %w", it.ID, err)
		}
	}
	return &it, nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*models.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		result = append(result, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Item, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", id, err)
	}
	return it, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check item %s: %w", id, err)
	}
	return n > 0, nil
}

// Upsert inserts the item or overwrites every column of an existing row.
func (r *SQLiteRepository) Upsert(ctx context.Context, it *models.Item) error {
	meta, err := json.Marshal(it.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode meta of item %s: %w", it.ID, err)
	}

	query := `INSERT INTO items (id, type, parent, notebook, title, content, preview, tags,
			deleted, created, updated, conflict, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			parent = excluded.parent,
			notebook = excluded.notebook,
			title = excluded.title,
			content = excluded.content,
			preview = excluded.preview,
			tags = excluded.tags,
			deleted = excluded.deleted,
			created = excluded.created,
			updated = excluded.updated,
			conflict = excluded.conflict,
			meta = excluded.meta`
	_, err = r.db.ExecContext(ctx, query, it.ID, string(it.Type), it.Parent, it.Notebook, it.Title,
		it.Content, it.Preview, it.Tags, it.Deleted, it.Created, it.Updated, it.Conflict, string(meta))
	if err != nil {
		return fmt.Errorf("failed to upsert item %s: %w", it.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM items WHERE id IN (` + dbx.Placeholders(len(ids)) + `)`
	if _, err := r.db.ExecContext(ctx, query, dbx.Args(ids)...); err != nil {
		return fmt.Errorf("failed to delete items: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Item, error) {
	return r.query(ctx, selectColumns+` ORDER BY id`)
}

func (r *SQLiteRepository) Children(ctx context.Context, parent string) ([]*models.Item, error) {
	return r.query(ctx, selectColumns+` WHERE parent = ? ORDER BY created, id`, parent)
}

func (r *SQLiteRepository) ByType(ctx context.Context, t models.ItemType) ([]*models.Item, error) {
	return r.query(ctx, selectColumns+` WHERE type = ? ORDER BY created, id`, string(t))
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	return nil
}
