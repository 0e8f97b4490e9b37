// Package remotes persists configured remotes and their sync state.
package remotes

import (
	"context"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

type Repository interface {
	Upsert(ctx context.Context, r *models.Remote) error
	// Get returns common.ErrorNotFound for unknown ids.
	Get(ctx context.Context, id string) (*models.Remote, error)
	// List returns remotes ordered by rank.
	List(ctx context.Context) ([]*models.Remote, error)
	Delete(ctx context.Context, id string) error
	SetRank(ctx context.Context, id string, rank int) error
	SetState(ctx context.Context, id string, connected bool, info string) error
	SetClocks(ctx context.Context, id string, lastRemoteChange, lastPushed int64) error

	// Known returns the ids of the items the remote held after the last
	// successful exchange with it.
	Known(ctx context.Context, id string) (map[string]bool, error)
	// SetKnown replaces the known item set of a remote.
	SetKnown(ctx context.Context, id string, items []string) error
}
