package changes

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, c *models.Change) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO local_changes (id, item, change, field, updated) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Item, string(c.Kind), string(c.Field), c.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert change for %s: %w", c.Item, err)
	}
	return nil
}

func (r *SQLiteRepository) Touch(ctx context.Context, id string, ts int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE local_changes SET updated = ? WHERE id = ?`, ts, id); err != nil {
		return fmt.Errorf("failed to touch change %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM local_changes WHERE id IN (` + dbx.Placeholders(len(ids)) + `)`
	if _, err := r.db.ExecContext(ctx, query, dbx.Args(ids)...); err != nil {
		return fmt.Errorf("failed to delete changes: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteForItem(ctx context.Context, item string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM local_changes WHERE item = ?`, item); err != nil {
		return fmt.Errorf("failed to delete changes for %s: %w", item, err)
	}
	return nil
}

func (r *SQLiteRepository) ForItem(ctx context.Context, item string) ([]*models.Change, error) {
	return r.query(ctx, `SELECT id, item, change, field, updated FROM local_changes WHERE item = ? ORDER BY updated, id`, item)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Change, error) {
	return r.query(ctx, `SELECT id, item, change, field, updated FROM local_changes ORDER BY updated, id`)
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM local_changes`); err != nil {
		return fmt.Errorf("failed to clear changes: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*models.Change, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select changes: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Change, 0)
	for rows.Next() {
		var (
			c           models.Change
			kind, field string
		)
		if err := rows.Scan(&c.ID, &c.Item, &kind, &field, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan change row: %w", err)
		}
		c.Kind = models.ChangeKind(kind)
		c.Field = models.Field(field)
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate change rows: %w", err)
	}
	return result, nil
}
