// Package journal maintains the Local Change Journal: the compacted list of
// local mutations that still have to reach at least one remote.
//
// The journal holds at most one add or delete entry per item and at most one
// update entry per (item, field). It also owns the lastLocalChange clock.
package journal

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/changes"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/oklog/ulid/v2"
)

// newID is replaced in tests that need predictable entry ids.
var newID = func() string { return ulid.Make().String() }

type Journal struct {
	changes changes.Repository
	meta    metadata.Repository
	log     logging.Logger
}

// New binds a journal to repositories that normally share one transaction.
func New(ch changes.Repository, meta metadata.Repository, log logging.Logger) *Journal {
	if log == nil {
		log = logging.NewNop()
	}
	return &Journal{changes: ch, meta: meta, log: log.With("module", "journal")}
}

// Record adds a mutation to the journal and compacts it against the
// existing entries of the same item. A delete always leaves a delete entry;
// use Discard for items that never reached a remote.
func (j *Journal) Record(ctx context.Context, item string, kind models.ChangeKind, field models.Field, ts int64) error {
	existing, err := j.changes.ForItem(ctx, item)
	if err != nil {
		return err
	}

	switch kind {
	case models.ChangeAdd:
		err = j.recordAdd(ctx, item, existing, ts)
	case models.ChangeUpdate:
		if field == "" {
			return fmt.Errorf("update of %s without a field: %w", item, errInvalidEntry)
		}
		err = j.recordUpdate(ctx, item, field, existing, ts)
	case models.ChangeDelete:
		err = j.recordDelete(ctx, item, existing, ts)
	default:
		return fmt.Errorf("change kind %q: %w", kind, errInvalidEntry)
	}
	if err != nil {
		return err
	}

	return j.bumpLastLocalChange(ctx, ts)
}

func (j *Journal) recordAdd(ctx context.Context, item string, existing []*models.Change, ts int64) error {
	if add := find(existing, models.ChangeAdd, ""); add != nil {
		// Re-adding refreshes the entry so every remote sees it as outstanding.
		return j.changes.Touch(ctx, add.ID, ts)
	}
	if len(existing) > 0 {
		if err := j.changes.DeleteForItem(ctx, item); err != nil {
			return err
		}
	}
	return j.insert(ctx, item, models.ChangeAdd, "", ts)
}

func (j *Journal) recordUpdate(ctx context.Context, item string, field models.Field, existing []*models.Change, ts int64) error {
	if add := find(existing, models.ChangeAdd, ""); add != nil {
		// The pending add carries the whole item. Its timestamp still moves so
		// remotes that already received the add get the newer state.
		return j.changes.Touch(ctx, add.ID, ts)
	}
	if upd := find(existing, models.ChangeUpdate, field); upd != nil {
		return j.changes.Touch(ctx, upd.ID, ts)
	}
	return j.insert(ctx, item, models.ChangeUpdate, field, ts)
}

func (j *Journal) recordDelete(ctx context.Context, item string, existing []*models.Change, ts int64) error {
	if len(existing) > 0 {
		if err := j.changes.DeleteForItem(ctx, item); err != nil {
			return err
		}
	}
	return j.insert(ctx, item, models.ChangeDelete, "", ts)
}

// Discard records the deletion of an item no remote has ever received: its
// pending entries go away and nothing is left to push. The local clock still
// moves.
func (j *Journal) Discard(ctx context.Context, item string, ts int64) error {
	if err := j.changes.DeleteForItem(ctx, item); err != nil {
		return err
	}
	return j.bumpLastLocalChange(ctx, ts)
}

func (j *Journal) insert(ctx context.Context, item string, kind models.ChangeKind, field models.Field, ts int64) error {
	return j.changes.Insert(ctx, &models.Change{
		ID:        newID(),
		Item:      item,
		Kind:      kind,
		Field:     field,
		Timestamp: ts,
	})
}

func (j *Journal) bumpLastLocalChange(ctx context.Context, ts int64) error {
	last, err := j.LastLocalChange(ctx)
	if err != nil {
		return err
	}
	if ts <= last {
		return nil
	}
	return j.meta.SetInt64(ctx, metadata.KeyLastLocalChange, ts)
}

// LastLocalChange is the timestamp of the newest recorded mutation.
func (j *Journal) LastLocalChange(ctx context.Context) (int64, error) {
	return j.meta.GetInt64(ctx, metadata.KeyLastLocalChange)
}

// Bump moves lastLocalChange to ts for changes that have no journal entry of
// their own, such as synchronized collection values.
func (j *Journal) Bump(ctx context.Context, ts int64) error {
	return j.bumpLastLocalChange(ctx, ts)
}

// SetLastLocalChange overwrites the clock; used by force-pull.
func (j *Journal) SetLastLocalChange(ctx context.Context, ts int64) error {
	return j.meta.SetInt64(ctx, metadata.KeyLastLocalChange, ts)
}

func (j *Journal) List(ctx context.Context) ([]*models.Change, error) {
	return j.changes.List(ctx)
}

// ForItem lists the pending entries of one item.
func (j *Journal) ForItem(ctx context.Context, item string) ([]*models.Change, error) {
	return j.changes.ForItem(ctx, item)
}

// Outstanding returns the entries newer than since, skipping items for which
// skip reports true.
func (j *Journal) Outstanding(ctx context.Context, since int64, skip func(item string) bool) ([]*models.Change, error) {
	all, err := j.changes.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Change, 0, len(all))
	for _, c := range all {
		if c.Timestamp <= since {
			continue
		}
		if skip != nil && skip(c.Item) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (j *Journal) Clear(ctx context.Context) error {
	return j.changes.Clear(ctx)
}

// Forget drops every entry of item. Used when a merge makes local history
// for it irrelevant.
func (j *Journal) Forget(ctx context.Context, item string) error {
	return j.changes.DeleteForItem(ctx, item)
}

// ForgetField drops the update entry of (item, field), if any.
func (j *Journal) ForgetField(ctx context.Context, item string, field models.Field) error {
	existing, err := j.changes.ForItem(ctx, item)
	if err != nil {
		return err
	}
	if upd := find(existing, models.ChangeUpdate, field); upd != nil {
		return j.changes.Delete(ctx, upd.ID)
	}
	return nil
}

// Compact removes entries every remote has already received, that is entries
// not newer than upTo. Entries of items for which keep reports true stay.
func (j *Journal) Compact(ctx context.Context, upTo int64, keep func(item string) bool) (int, error) {
	all, err := j.changes.List(ctx)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0)
	for _, c := range all {
		if c.Timestamp > upTo {
			continue
		}
		if keep != nil && keep(c.Item) {
			continue
		}
		ids = append(ids, c.ID)
	}
	if err := j.changes.Delete(ctx, ids...); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func find(entries []*models.Change, kind models.ChangeKind, field models.Field) *models.Change {
	for _, c := range entries {
		if c.Kind == kind && c.Field == field {
			return c
		}
	}
	return nil
}
