package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/gophnotes/internal/client/ancestry"
	"github.com/dmitrijs2005/gophnotes/internal/client/journal"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/items"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/remotes"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/timex"
	"github.com/google/uuid"
)

// newID is replaced in tests.
var newID = func() string { return uuid.NewString() }

// Tx bundles the repositories and derived indexes bound to one transaction.
// Every mutation through Tx keeps field metadata, the journal and the
// ancestry index consistent with the item rows.
type Tx struct {
	Items    items.Repository
	Remotes  remotes.Repository
	Metadata metadata.Repository
	Journal  *journal.Journal
	Ancestry *ancestry.Index
	Clock    timex.Clock

	previewLen int
	log        logging.Logger
}

// NewID returns a fresh item id.
func (tx *Tx) NewID() string {
	return newID()
}

// Create adds an empty item of kind under parent.
func (tx *Tx) Create(ctx context.Context, kind models.ItemType, parent string) (*models.Item, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidKind, kind)
	}
	nb, err := tx.placement(ctx, kind, parent)
	if err != nil {
		return nil, err
	}

	now := tx.Clock.Now()
	it := &models.Item{
		ID:       newID(),
		Type:     kind,
		Parent:   parent,
		Notebook: nb,
		Created:  now,
		Updated:  now,
	}
	it.StampAll(now)

	if err := tx.Items.Upsert(ctx, it); err != nil {
		return nil, err
	}
	if err := tx.Ancestry.Reindex(ctx, it.ID); err != nil {
		return nil, err
	}
	if err := tx.Journal.Record(ctx, it.ID, models.ChangeAdd, "", now); err != nil {
		return nil, err
	}
	return it, nil
}

// SetField writes a content-bearing field. Parent writes are routed to
// SetParent; notebook is derived and cannot be set directly.
func (tx *Tx) SetField(ctx context.Context, id string, f models.Field, value string) error {
	switch f {
	case models.FieldParent:
		return tx.SetParent(ctx, id, value)
	case models.FieldNotebook:
		return fmt.Errorf("%w: notebook follows parent", common.ErrInvalidField)
	}
	if _, err := models.ParseField(string(f)); err != nil {
		return err
	}

	it, err := tx.Items.Get(ctx, id)
	if err != nil {
		return err
	}

	next := it.Clone()
	if err := next.SetValue(f, value); err != nil {
		return err
	}
	if next.Value(f) == it.Value(f) {
		return nil
	}

	now := tx.Clock.Now()
	_ = it.SetValue(f, value)
	it.Stamp(f, now)
	if f == models.FieldContent {
		it.Preview = models.MakePreview(it.Content, tx.previewLen)
	}
	if now > it.Updated {
		it.Updated = now
	}
	cleared := tx.clearConflict(it)

	if err := tx.Items.Upsert(ctx, it); err != nil {
		return err
	}
	if err := tx.journalEdit(ctx, it, f, cleared, now); err != nil {
		return err
	}
	return tx.touchAncestors(ctx, it.ID, now)
}

// SetParent moves id under parent. The parent and notebook clocks move; the
// item's updated time and its ancestors are left alone.
func (tx *Tx) SetParent(ctx context.Context, id, parent string) error {
	it, err := tx.Items.Get(ctx, id)
	if err != nil {
		return err
	}
	if it.Parent == parent {
		return nil
	}
	if parent == id {
		return fmt.Errorf("%w: %s cannot contain itself", common.ErrInvalidParent, id)
	}
	desc, err := tx.Ancestry.Descendants(ctx, id)
	if err != nil {
		return err
	}
	if slices.Contains(desc, parent) {
		return fmt.Errorf("%w: %s is inside %s", common.ErrInvalidParent, parent, id)
	}
	nb, err := tx.placement(ctx, it.Type, parent)
	if err != nil {
		return err
	}

	now := tx.Clock.Now()
	it.Parent = parent
	it.Stamp(models.FieldParent, now)
	notebookChanged := it.Notebook != nb
	if notebookChanged {
		it.Notebook = nb
		it.Stamp(models.FieldNotebook, now)
	}
	cleared := tx.clearConflict(it)

	if err := tx.Items.Upsert(ctx, it); err != nil {
		return err
	}
	if err := tx.Ancestry.Reindex(ctx, id); err != nil {
		return err
	}
	if err := tx.journalEdit(ctx, it, models.FieldParent, cleared, now); err != nil {
		return err
	}
	if notebookChanged {
		if err := tx.Journal.Record(ctx, id, models.ChangeUpdate, models.FieldNotebook, now); err != nil {
			return err
		}
		return tx.rewriteNotebook(ctx, desc, nb, now)
	}
	return nil
}

func (tx *Tx) rewriteNotebook(ctx context.Context, ids []string, nb string, now int64) error {
	for _, d := range ids {
		child, err := tx.Items.Get(ctx, d)
		if err != nil {
			return err
		}
		if child.Notebook == nb {
			continue
		}
		child.Notebook = nb
		child.Stamp(models.FieldNotebook, now)
		if err := tx.Items.Upsert(ctx, child); err != nil {
			return err
		}
		if err := tx.Journal.Record(ctx, d, models.ChangeUpdate, models.FieldNotebook, now); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes id from the store. Folders either take their whole
// subtree with them or hand their children to their own parent; documents
// always take their pages; notebooks always cascade.
func (tx *Tx) Delete(ctx context.Context, id string, moveChildrenUp bool) error {
	it, err := tx.Items.Get(ctx, id)
	if err != nil {
		return err
	}

	if moveChildrenUp && it.Type == models.ItemTypeFolder {
		children, err := tx.Items.Children(ctx, id)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := tx.SetParent(ctx, c.ID, it.Parent); err != nil {
				return err
			}
		}
	}

	desc, err := tx.Ancestry.Descendants(ctx, id)
	if err != nil {
		return err
	}
	now := tx.Clock.Now()

	// Deepest first so a partially applied journal never names a parent
	// that is already gone.
	doomed := append(slices.Clone(desc), id)
	slices.Reverse(doomed)

	// An item without a baseline never reached any remote, so there is
	// nothing to delete anywhere but here.
	unsent := make(map[string]bool, len(doomed))
	for _, d := range doomed {
		di, err := tx.Items.Get(ctx, d)
		if err != nil {
			return err
		}
		unsent[d] = di.NeverSynced()
	}

	if err := tx.Items.Delete(ctx, doomed...); err != nil {
		return err
	}
	if err := tx.Ancestry.Remove(ctx, doomed...); err != nil {
		return err
	}
	for _, d := range doomed {
		if unsent[d] {
			err = tx.Journal.Discard(ctx, d, now)
		} else {
			err = tx.Journal.Record(ctx, d, models.ChangeDelete, "", now)
		}
		if err != nil {
			return err
		}
	}

	if it.Type == models.ItemTypeNotebook {
		cur, err := tx.CurrentNotebook(ctx)
		if err != nil {
			return err
		}
		if cur == id {
			return tx.Metadata.Delete(ctx, metadata.KeyCurrentNotebook)
		}
	}
	return nil
}

// Breadcrumb resolves the breadcrumb of id into items.
func (tx *Tx) Breadcrumb(ctx context.Context, id string) ([]*models.Item, error) {
	path, err := tx.Ancestry.Path(ctx, id)
	if err != nil {
		return nil, err
	}
	self, err := tx.Items.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Item, 0, len(path)+1)
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == common.RootID {
			continue
		}
		it, err := tx.Items.Get(ctx, path[i])
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return append(out, self), nil
}

func (tx *Tx) Values(ctx context.Context) (models.Values, error) {
	var v models.Values
	raw, err := tx.Metadata.Get(ctx, metadata.KeyValues)
	if err != nil || raw == nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("failed to decode collection values: %w", err)
	}
	return v, nil
}

// PutValues stores v as is, without stamping.
func (tx *Tx) PutValues(ctx context.Context, v models.Values) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode collection values: %w", err)
	}
	return tx.Metadata.Set(ctx, metadata.KeyValues, raw)
}

func (tx *Tx) SetDefaultSort(ctx context.Context, by string, desc bool) error {
	v, err := tx.Values(ctx)
	if err != nil {
		return err
	}
	if v.DefaultSortBy == by && v.DefaultSortDesc == desc {
		return nil
	}
	now := tx.Clock.Now()
	v.DefaultSortBy, v.DefaultSortDesc, v.LastUpdated = by, desc, now
	if err := tx.PutValues(ctx, v); err != nil {
		return err
	}
	return tx.Journal.Bump(ctx, now)
}

// CurrentNotebook is process-local and never synchronized.
func (tx *Tx) CurrentNotebook(ctx context.Context) (string, error) {
	raw, err := tx.Metadata.Get(ctx, metadata.KeyCurrentNotebook)
	return string(raw), err
}

func (tx *Tx) SetCurrentNotebook(ctx context.Context, id string) error {
	it, err := tx.Items.Get(ctx, id)
	if err != nil {
		return err
	}
	if it.Type != models.ItemTypeNotebook {
		return fmt.Errorf("%w: %s is a %s", common.ErrInvalidKind, id, it.Type)
	}
	return tx.Metadata.Set(ctx, metadata.KeyCurrentNotebook, []byte(id))
}

// placement validates parent for kind and returns the owning notebook.
func (tx *Tx) placement(ctx context.Context, kind models.ItemType, parent string) (string, error) {
	if parent == common.RootID {
		if kind != models.ItemTypeNotebook {
			return "", fmt.Errorf("%w: only notebooks live at the root", common.ErrInvalidParent)
		}
		return "", nil
	}

	p, err := tx.Items.Get(ctx, parent)
	if errors.Is(err, common.ErrorNotFound) {
		return "", fmt.Errorf("%w: %s does not exist", common.ErrInvalidParent, parent)
	}
	if err != nil {
		return "", err
	}
	if !allowedUnder(kind, p.Type) {
		return "", fmt.Errorf("%w: a %s cannot live in a %s", common.ErrInvalidParent, kind, p.Type)
	}
	if p.Type == models.ItemTypeNotebook {
		return p.ID, nil
	}
	return p.Notebook, nil
}

func allowedUnder(kind, parent models.ItemType) bool {
	switch kind {
	case models.ItemTypeFolder, models.ItemTypeDocument:
		return parent == models.ItemTypeNotebook || parent == models.ItemTypeFolder
	case models.ItemTypePage:
		return parent == models.ItemTypeDocument
	}
	return false
}

// clearConflict drops the conflict flag; editing a conflict resolves it.
func (tx *Tx) clearConflict(it *models.Item) bool {
	if !it.IsConflict() {
		return false
	}
	it.Conflict = ""
	return true
}

// journalEdit records the edit of f. Resolving a conflict copy journals an
// add, since no remote has seen it; resolving a rescued orphan journals every
// field that moved away from its baseline, the rescue's parent and notebook
// included.
func (tx *Tx) journalEdit(ctx context.Context, it *models.Item, f models.Field, cleared bool, now int64) error {
	if !cleared {
		return tx.Journal.Record(ctx, it.ID, models.ChangeUpdate, f, now)
	}
	if it.NeverSynced() {
		return tx.Journal.Record(ctx, it.ID, models.ChangeAdd, "", now)
	}
	fields := it.DirtyFields()
	if !slices.Contains(fields, f) {
		fields = append(fields, f)
	}
	for _, df := range fields {
		if err := tx.Journal.Record(ctx, it.ID, models.ChangeUpdate, df, now); err != nil {
			return err
		}
	}
	return nil
}

// touchAncestors rolls updated forward on every ancestor below the root.
func (tx *Tx) touchAncestors(ctx context.Context, id string, now int64) error {
	path, err := tx.Ancestry.Path(ctx, id)
	if err != nil {
		return err
	}
	for _, a := range path {
		if a == common.RootID {
			continue
		}
		anc, err := tx.Items.Get(ctx, a)
		if errors.Is(err, common.ErrorNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if anc.Updated >= now {
			continue
		}
		anc.Updated = now
		if err := tx.Items.Upsert(ctx, anc); err != nil {
			return err
		}
	}
	return nil
}

// CompactJournal drops entries that every configured remote has received.
// Entries of unresolved conflicts are never dropped. Without remotes nothing
// is compacted.
func (tx *Tx) CompactJournal(ctx context.Context) (int, error) {
	list, err := tx.Remotes.List(ctx)
	if err != nil || len(list) == 0 {
		return 0, err
	}
	upTo := list[0].LastPushed
	for _, r := range list[1:] {
		upTo = min(upTo, r.LastPushed)
	}
	if upTo == 0 {
		return 0, nil
	}

	all, err := tx.Items.List(ctx)
	if err != nil {
		return 0, err
	}
	conflicts := make(map[string]bool)
	for _, it := range all {
		if it.IsConflict() {
			conflicts[it.ID] = true
		}
	}
	return tx.Journal.Compact(ctx, upTo, func(id string) bool { return conflicts[id] })
}
