// Package items stores collection items in the local SQLite database.
package items

import (
	"context"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

// Repository describes persistence of collection items.
type Repository interface {
	// Get returns common.ErrorNotFound when the id is unknown.
	Get(ctx context.Context, id string) (*models.Item, error)
	Exists(ctx context.Context, id string) (bool, error)
	Upsert(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, ids ...string) error
	List(ctx context.Context) ([]*models.Item, error)
	Children(ctx context.Context, parent string) ([]*models.Item, error)
	ByType(ctx context.Context, t models.ItemType) ([]*models.Item, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
