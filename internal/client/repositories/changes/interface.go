// Package changes persists Local Change Journal entries.
package changes

import (
	"context"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

type Repository interface {
	Insert(ctx context.Context, c *models.Change) error
	// Touch moves the timestamp of an existing entry.
	Touch(ctx context.Context, id string, ts int64) error
	Delete(ctx context.Context, ids ...string) error
	DeleteForItem(ctx context.Context, item string) error
	// ForItem returns the entries of one item, oldest first.
	ForItem(ctx context.Context, item string) ([]*models.Change, error)
	// List returns every entry, oldest first.
	List(ctx context.Context) ([]*models.Change, error)
	Clear(ctx context.Context) error
}
