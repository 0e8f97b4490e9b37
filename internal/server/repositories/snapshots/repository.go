package snapshots

import (
	"context"

	"github.com/dmitrijs2005/gophnotes/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when nothing was pushed yet.
	Get(ctx context.Context, userID, scope string) (*models.Snapshot, error)
	// Clock is 0 for a scope that was never pushed.
	Clock(ctx context.Context, userID, scope string) (int64, error)
	// Put replaces the content and returns the new clock.
	Put(ctx context.Context, userID, scope, content string) (int64, error)
}
