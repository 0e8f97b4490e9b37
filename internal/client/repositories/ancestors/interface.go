// Package ancestors persists the materialized ancestry closure and the
// breadcrumb rows derived from it.
package ancestors

import "context"

// Row links a child to one of its ancestors. Depth 0 is the direct parent.
type Row struct {
	Child  string
	Parent string
	Depth  int
}

type Repository interface {
	// Insert writes the path of child; path[0] is the direct parent.
	Insert(ctx context.Context, child string, path []string) error
	// DeleteFor removes every row whose child is one of ids.
	DeleteFor(ctx context.Context, ids ...string) error
	// Path returns the ancestors of child ordered by depth.
	Path(ctx context.Context, child string) ([]string, error)
	// Descendants returns every item that has parent among its ancestors.
	Descendants(ctx context.Context, parent string) ([]string, error)
	All(ctx context.Context) ([]Row, error)
	SetBreadcrumb(ctx context.Context, item, breadcrumb string) error
	Breadcrumb(ctx context.Context, item string) (string, error)
	DeleteBreadcrumbs(ctx context.Context, ids ...string) error
	Clear(ctx context.Context) error
}
