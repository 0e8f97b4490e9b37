// Package metadata stores small key/value settings of the local collection
// such as the last local change clock and the selected notebook.
package metadata

import "context"

const (
	KeyLastLocalChange = "last_local_change"
	KeyCurrentNotebook = "current_notebook"
	KeyValues          = "values"
)

type Repository interface {
	// Get returns (nil, nil) for absent keys.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	GetInt64(ctx context.Context, key string) (int64, error)
	SetInt64(ctx context.Context, key string, value int64) error
	Delete(ctx context.Context, key string) error
}
