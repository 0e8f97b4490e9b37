// Package remotes is the Remote State Store: the ranked list of configured
// remotes and their connection and clock state. Rank 0 is the primary.
package remotes

import (
	"context"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/gophnotes/internal/client/collection"
	"github.com/dmitrijs2005/gophnotes/internal/client/drivers"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/google/uuid"
)

type Manager struct {
	store    *collection.Store
	registry *drivers.Registry
}

func NewManager(store *collection.Store, registry *drivers.Registry) *Manager {
	return &Manager{store: store, registry: registry}
}

// Add validates the config against the driver type and appends the remote
// after the existing ones.
func (m *Manager) Add(ctx context.Context, name, typ string, cfg map[string]any) (*models.Remote, error) {
	if err := m.registry.Validate(typ, cfg); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = map[string]any{}
	}

	r := &models.Remote{ID: uuid.NewString(), Name: name, Type: typ, Config: cfg}
	err := m.store.Update(ctx, func(ctx context.Context, tx *collection.Tx) error {
		list, err := tx.Remotes.List(ctx)
		if err != nil {
			return err
		}
		r.Rank = len(list)
		return tx.Remotes.Upsert(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Remove deletes a remote, closes the rank gap, and compacts the journal
// against the remaining remotes.
func (m *Manager) Remove(ctx context.Context, id string) error {
	return m.store.Update(ctx, func(ctx context.Context, tx *collection.Tx) error {
		if _, err := tx.Remotes.Get(ctx, id); err != nil {
			return err
		}
		if err := tx.Remotes.Delete(ctx, id); err != nil {
			return err
		}
		list, err := tx.Remotes.List(ctx)
		if err != nil {
			return err
		}
		for i, r := range list {
			if r.Rank != i {
				if err := tx.Remotes.SetRank(ctx, r.ID, i); err != nil {
					return err
				}
			}
		}
		_, err = tx.CompactJournal(ctx)
		return err
	})
}

// Reorder assigns ranks in the order of ids, which must name every remote
// exactly once.
func (m *Manager) Reorder(ctx context.Context, ids []string) error {
	return m.store.Update(ctx, func(ctx context.Context, tx *collection.Tx) error {
		list, err := tx.Remotes.List(ctx)
		if err != nil {
			return err
		}
		have := make([]string, 0, len(list))
		for _, r := range list {
			have = append(have, r.ID)
		}
		want := slices.Clone(ids)
		slices.Sort(have)
		slices.Sort(want)
		if !slices.Equal(have, want) {
			return fmt.Errorf("reorder must list every remote once: %w", common.ErrorNotFound)
		}
		for i, id := range ids {
			if err := tx.Remotes.SetRank(ctx, id, i); err != nil {
				return err
			}
		}
		return nil
	})
}

func (m *Manager) List(ctx context.Context) ([]*models.Remote, error) {
	var out []*models.Remote
	err := m.store.View(ctx, func(ctx context.Context, tx *collection.Tx) error {
		var err error
		out, err = tx.Remotes.List(ctx)
		return err
	})
	return out, err
}

func (m *Manager) Get(ctx context.Context, id string) (*models.Remote, error) {
	var out *models.Remote
	err := m.store.View(ctx, func(ctx context.Context, tx *collection.Tx) error {
		var err error
		out, err = tx.Remotes.Get(ctx, id)
		return err
	})
	return out, err
}

// Primary returns the lowest ranked remote.
func (m *Manager) Primary(ctx context.Context) (*models.Remote, error) {
	list, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no remotes configured: %w", common.ErrorNotFound)
	}
	return list[0], nil
}

func (m *Manager) SetState(ctx context.Context, id string, connected bool, info string) error {
	return m.store.Update(ctx, func(ctx context.Context, tx *collection.Tx) error {
		return tx.Remotes.SetState(ctx, id, connected, info)
	})
}

// Resolve finds a remote by id or, failing that, by name.
func (m *Manager) Resolve(ctx context.Context, ref string) (*models.Remote, error) {
	list, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range list {
		if r.ID == ref {
			return r, nil
		}
	}
	for _, r := range list {
		if r.Name == ref {
			return r, nil
		}
	}
	return nil, fmt.Errorf("remote %q: %w", ref, common.ErrorNotFound)
}
