// Package ancestry maintains the materialized transitive closure of item
// parents together with a breadcrumb per item.
//
// The index is derived state. The entity store calls Reindex after every
// parent write inside the same transaction, and the sync engine calls
// Rebuild after a merge.
package ancestry

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/ancestors"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/items"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

type Index struct {
	rows  ancestors.Repository
	items items.Repository
}

func New(rows ancestors.Repository, it items.Repository) *Index {
	return &Index{rows: rows, items: it}
}

// Reindex recomputes the path of id and of every item below it.
func (x *Index) Reindex(ctx context.Context, id string) error {
	// Descendants are found through the old rows, which still name id.
	desc, err := x.rows.Descendants(ctx, id)
	if err != nil {
		return err
	}

	lookup := func(id string) (*models.Item, error) { return x.items.Get(ctx, id) }
	if err := x.write(ctx, id, lookup); err != nil {
		return err
	}
	for _, d := range desc {
		if err := x.write(ctx, d, lookup); err != nil {
			return err
		}
	}
	return nil
}

// Rebuild drops the whole index and recomputes it from items.
func (x *Index) Rebuild(ctx context.Context) error {
	all, err := x.items.List(ctx)
	if err != nil {
		return err
	}
	if err := x.rows.Clear(ctx); err != nil {
		return err
	}

	byID := make(map[string]*models.Item, len(all))
	for _, it := range all {
		byID[it.ID] = it
	}
	lookup := func(id string) (*models.Item, error) {
		if it, ok := byID[id]; ok {
			return it, nil
		}
		return nil, common.ErrorNotFound
	}

	for _, it := range all {
		if err := x.write(ctx, it.ID, lookup); err != nil {
			return err
		}
	}
	return nil
}

// Remove drops the rows and breadcrumbs of ids.
func (x *Index) Remove(ctx context.Context, ids ...string) error {
	if err := x.rows.DeleteFor(ctx, ids...); err != nil {
		return err
	}
	return x.rows.DeleteBreadcrumbs(ctx, ids...)
}

// Path returns the ancestors of id, direct parent first.
func (x *Index) Path(ctx context.Context, id string) ([]string, error) {
	return x.rows.Path(ctx, id)
}

// Descendants returns every item below id, nearest first.
func (x *Index) Descendants(ctx context.Context, id string) ([]string, error) {
	return x.rows.Descendants(ctx, id)
}

// Breadcrumb returns the comma-joined ids from the owning notebook down to
// the item itself.
func (x *Index) Breadcrumb(ctx context.Context, id string) (string, error) {
	return x.rows.Breadcrumb(ctx, id)
}

func (x *Index) write(ctx context.Context, id string, lookup func(string) (*models.Item, error)) error {
	path, err := walk(id, lookup)
	if err != nil {
		return err
	}
	if err := x.rows.DeleteFor(ctx, id); err != nil {
		return err
	}
	if err := x.rows.Insert(ctx, id, path); err != nil {
		return err
	}
	return x.rows.SetBreadcrumb(ctx, id, breadcrumb(id, path))
}

// walk follows parent pointers from id. It stops at the root, at a missing
// parent, or when a cycle is detected.
func walk(id string, lookup func(string) (*models.Item, error)) ([]string, error) {
	it, err := lookup(id)
	if err != nil {
		return nil, err
	}

	path := make([]string, 0, 4)
	seen := map[string]bool{id: true}
	for parent := it.Parent; parent != ""; {
		if parent == common.RootID {
			path = append(path, common.RootID)
			break
		}
		if seen[parent] {
			break
		}
		p, err := lookup(parent)
		if errors.Is(err, common.ErrorNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		seen[parent] = true
		path = append(path, parent)
		parent = p.Parent
	}
	return path, nil
}

func breadcrumb(id string, path []string) string {
	parts := make([]string, 0, len(path)+1)
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == common.RootID {
			continue
		}
		parts = append(parts, path[i])
	}
	parts = append(parts, id)
	return strings.Join(parts, ",")
}
