package ancestors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, child string, path []string) error {
	for depth, parent := range path {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO ancestors (child_id, parent_id, depth) VALUES (?, ?, ?)
			 ON CONFLICT(child_id, parent_id) DO UPDATE SET depth = excluded.depth`,
			child, parent, depth)
		if err != nil {
			return fmt.Errorf("failed to insert ancestor %s of %s: %w", parent, child, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) DeleteFor(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM ancestors WHERE child_id IN (` + dbx.Placeholders(len(ids)) + `)`
	if _, err := r.db.ExecContext(ctx, query, dbx.Args(ids)...); err != nil {
		return fmt.Errorf("failed to delete ancestors: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Path(ctx context.Context, child string) ([]string, error) {
	return r.ids(ctx, `SELECT parent_id FROM ancestors WHERE child_id = ? ORDER BY depth`, child)
}

func (r *SQLiteRepository) Descendants(ctx context.Context, parent string) ([]string, error) {
	return r.ids(ctx, `SELECT child_id FROM ancestors WHERE parent_id = ? ORDER BY depth, child_id`, parent)
}

func (r *SQLiteRepository) All(ctx context.Context) ([]Row, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT child_id, parent_id, depth FROM ancestors ORDER BY child_id, depth`)
	if err != nil {
		return nil, fmt.Errorf("failed to select ancestors: %w", err)
	}
	defer rows.Close()

	result := make([]Row, 0)
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.Child, &row.Parent, &row.Depth); err != nil {
			return nil, fmt.Errorf("failed to scan ancestor row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ancestor rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) SetBreadcrumb(ctx context.Context, item, breadcrumb string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO search (item_id, breadcrumb) VALUES (?, ?)
		 ON CONFLICT(item_id) DO UPDATE SET breadcrumb = excluded.breadcrumb`, item, breadcrumb)
	if err != nil {
		return fmt.Errorf("failed to set breadcrumb of %s: %w", item, err)
	}
	return nil
}

func (r *SQLiteRepository) Breadcrumb(ctx context.Context, item string) (string, error) {
	var b string
	err := r.db.QueryRowContext(ctx, `SELECT breadcrumb FROM search WHERE item_id = ?`, item).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("breadcrumb of %s: %w", item, common.ErrorNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get breadcrumb of %s: %w", item, err)
	}
	return b, nil
}

func (r *SQLiteRepository) DeleteBreadcrumbs(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM search WHERE item_id IN (` + dbx.Placeholders(len(ids)) + `)`
	if _, err := r.db.ExecContext(ctx, query, dbx.Args(ids)...); err != nil {
		return fmt.Errorf("failed to delete breadcrumbs: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ancestors`); err != nil {
		return fmt.Errorf("failed to clear ancestors: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM search`); err != nil {
		return fmt.Errorf("failed to clear breadcrumbs: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ids(ctx context.Context, query string, arg string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to select ancestors: %w", err)
	}
	defer rows.Close()

	result := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ancestor id: %w", err)
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ancestor ids: %w", err)
	}
	return result, nil
}
