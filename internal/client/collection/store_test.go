package collection

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gophnotes/internal/client/localdb"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *timex.ManualClock) {
	t.Helper()
	ctx := context.Background()
	db, err := localdb.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := timex.NewManualClock(1000)
	return New(db, repomanager.NewSQLiteRepositoryManager(), WithClock(clock)), clock
}

func mustCreate(t *testing.T, s *Store, kind models.ItemType, parent string) *models.Item {
	t.Helper()
	it, err := s.Create(context.Background(), kind, parent)
	require.NoError(t, err)
	return it
}

func mustGet(t *testing.T, s *Store, id string) *models.Item {
	t.Helper()
	it, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	return it
}

func clearJournal(t *testing.T, s *Store) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), func(ctx context.Context, tx *Tx) error {
		return tx.Journal.Clear(ctx)
	}))
}

// markSynced gives ids a baseline, as if they had been exchanged with a
// remote, and empties the journal.
func markSynced(t *testing.T, s *Store, ids ...string) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), func(ctx context.Context, tx *Tx) error {
		for _, id := range ids {
			it, err := tx.Items.Get(ctx, id)
			if err != nil {
				return err
			}
			it.MarkAllSynced()
			if err := tx.Items.Upsert(ctx, it); err != nil {
				return err
			}
		}
		return tx.Journal.Clear(ctx)
	}))
}

func TestCreate_KindRules(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	nb := mustCreate(t, s, models.ItemTypeNotebook, common.RootID)
	assert.Empty(t, nb.Notebook)

	f := mustCreate(t, s, models.ItemTypeFolder, nb.ID)
	assert.Equal(t, nb.ID, f.Notebook)

	d := mustCreate(t, s, models.ItemTypeDocument, f.ID)
	assert.Equal(t, nb.ID, d.Notebook)

	p := mustCreate(t, s, models.ItemTypePage, d.ID)
	assert.Equal(t, nb.ID, p.Notebook)

	cases := []struct {
		kind   models.ItemType
		parent string
	}{
		{models.ItemTypeFolder, common.RootID},
		{models.ItemTypeNotebook, nb.ID},
		{models.ItemTypePage, f.ID},
		{models.ItemTypeDocument, d.ID},
		{models.ItemTypeDocument, "missing"},
	}
	for _, tc := range cases {
		_, err := s.Create(ctx, tc.kind, tc.parent)
		assert.ErrorIs(t, err, common.ErrInvalidParent, "%s under %s", tc.kind, tc.parent)
	}

	_, err := s.Create(ctx, models.ItemType("x"), nb.ID)
	assert.ErrorIs(t, err, common.ErrInvalidKind)
}

func TestSetField_StampsAndPreview(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	nb := mustCreate(t, s, models.ItemTypeNotebook, common.RootID)
	d := mustCreate(t, s, models.ItemTypeDocument, nb.ID)

	require.NoError(t, s.SetField(ctx, d.ID, models.FieldContent, "hello   world"))
	got := mustGet(t, s, d.ID)
	assert.Equal(t, "hello world", got.Preview)
	assert.Equal(t, models.HashValue("hello   world"), got.Meta.Content.Hash)
	assert.Greater(t, got.Meta.Content.Updated, d.Meta.Content.Updated)
	assert.Equal(t, got.Meta.Content.Updated, got.Updated)

	// Same value is a no-op.
	require.NoError(t, s.SetField(ctx, d.ID, models.FieldContent, "hello   world"))
	assert.Equal(t, got.Updated, mustGet(t, s, d.ID).Updated)

	require.NoError(t, s.SetField(ctx, d.ID, models.FieldTags, " a, b ,a"))
	assert.Equal(t, "a,b", mustGet(t, s, d.ID).Tags)

	assert.ErrorIs(t, s.SetField(ctx, d.ID, models.FieldNotebook, nb.ID), common.ErrInvalidField)
	assert.ErrorIs(t, s.SetField(ctx, d.ID, models.FieldDeleted, "maybe"), common.ErrInvalidField)
	assert.ErrorIs(t, s.SetField(ctx, "missing", models.FieldTitle, "x"), common.ErrorNotFound)
}

func TestCascadingTouch(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	nb := mustCreate(t, s, models.ItemTypeNotebook, common.RootID)
	f1 := mustCreate(t, s, models.ItemTypeFolder, nb.ID)
	f2 := mustCreate(t, s, models.ItemTypeFolder, f1.ID)
	d := mustCreate(t, s, models.ItemTypeDocument, f2.ID)
	other := mustCreate(t, s, models.ItemTypeFolder, nb.ID)

	require.NoError(t, s.SetField(ctx, d.ID, models.FieldContent, "deep edit"))

	edited := mustGet(t, s, d.ID)
	for _, id := range []string{f2.ID, f1.ID, nb.ID} {
		assert.Equal(t, edited.Updated, mustGet(t, s, id).Updated, id)
	}
	assert.Equal(t, other.Updated, mustGet(t, s, other.ID).Updated)
}

func TestMoveIsolation(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	nb := mustCreate(t, s, models.ItemTypeNotebook, common.RootID)
	src := mustCreate(t, s, models.ItemTypeFolder, nb.ID)
	dst := mustCreate(t, s, models.ItemTypeFolder, nb.ID)
	d := mustCreate(t, s, models.ItemTypeDocument, src.ID)

	srcBefore := mustGet(t, s, src.ID)
	dstBefore := mustGet(t, s, dst.ID)

	require.NoError(t, s.SetParent(ctx, d.ID, dst.ID))

	moved := mustGet(t, s, d.ID)
	assert.Equal(t, dst.ID, moved.Parent)
	assert.Equal(t, d.Updated, moved.Updated)
	assert.Equal(t, d.Created, moved.Created)
	assert.Greater(t, moved.Meta.Parent.Updated, d.Meta.Parent.Updated)
	assert.Equal(t, srcBefore.Updated, mustGet(t, s, src.ID).Updated)
	assert.Equal(t, dstBefore.Updated, mustGet(t, s, dst.ID).Updated)

	crumbs, err := s.Breadcrumb(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, crumbs, 3)
	assert.Equal(t, []string{nb.ID, dst.ID, d.ID}, []string{crumbs[0].ID, crumbs[1].ID, crumbs[2].ID})
}

func TestSetParent_RejectsCycles(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	nb := mustCreate(t, s, models.ItemTypeNotebook, common.RootID)
	f1 := mustCreate(t, s, models.ItemTypeFolder, nb.ID)
	f2 := mustCreate(t, s, models.ItemTypeFolder, f1.ID)

	assert.ErrorIs(t, s.SetParent(ctx, f1.ID, f2.ID), common.ErrInvalidParent)
	assert.ErrorIs(t, s.SetParent(ctx, f1.ID, f1.ID), common.ErrInvalidParent)
	assert.Equal(t, nb.ID, mustGet(t, s, f1.ID).Parent)
}

func TestSetParent_AcrossNotebooksRewritesDescendants(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	nb1 := mustCreate(t, s, models.ItemTypeNotebook, common.RootID)
	nb2 := mustCreate(t, s, models.ItemTypeNotebook, common.RootID)
	f := mustCreate(t, s, models.ItemTypeFolder, nb1.ID)
	d := mustCreate(t, s, models.ItemTypeDocument, f.ID)
	p := mustCreate(t, s, models.ItemTypePage, d.ID)
	clearJournal(t, s)

	require.NoError(t, s.SetParent(ctx, f.ID, nb2.ID))

	for _, id := range []string{f.ID, d.ID, p.ID} {
		it := mustGet(t, s, id)
		assert.Equal(t, nb2.ID, it.Notebook, id)
	}
	assert.Equal(t, d.Updated, mustGet(t, s, d.ID).Updated)

	changes, err := s.Changes(ctx)
	require.NoError(t, err)
	fields := map[string][]models.Field{}
	for _, c := range changes {
		fields[c.Item] = append(fields[c.Item], c.Field)
	}
	assert.ElementsMatch(t, []models.Field{models.FieldParent, models.FieldNotebook}, fields[f.ID])
	assert.Equal(t, []models.Field{models.FieldNotebook}, fields[d.ID])
	assert.Equal(t, []models.Field{models.FieldNotebook}, fields[p.ID])
}

func TestJournalCompaction(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	nb := mustCreate(t, s, models.ItemTypeNotebook, common.RootID)
	d := mustCreate(t, s, models.ItemTypeDocument, nb.ID)
	for _, v := range []string{"one", "two", "three"} {
		require.NoError(t, s.SetField(ctx, d.ID, models.FieldTitle, v))
	}

	changes, err := s.Changes(ctx)
	require.NoError(t, err)
	var forDoc []*models.Change
	for _, c := range changes {
		if c.Item == d.ID {
			forDoc = append(forDoc, c)
		}
	}
	require.Len(t, forDoc, 1)
	assert.Equal(t, models.ChangeAdd, forDoc[0].Kind)

	clearJournal(t, s)
	tmp := mustCreate(t, s, models.ItemTypeDocument, nb.ID)
	require.NoError(t, s.Delete(ctx, tmp.ID, false))
	changes, err = s.Changes(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDelete_FolderCascadeOrMoveUp(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	nb := mustCreate(t, s, models.ItemTypeNotebook, common.RootID)
	f := mustCreate(t, s, models.ItemTypeFolder, nb.ID)
	d := mustCreate(t, s, models.ItemTypeDocument, f.ID)
	p := mustCreate(t, s, models.ItemTypePage, d.ID)

	g := mustCreate(t, s, models.ItemTypeFolder, nb.ID)
	kept := mustCreate(t, s, models.ItemTypeDocument, g.ID)

	require.NoError(t, s.Delete(ctx, f.ID, false))
	for _, id := range []string{f.ID, d.ID, p.ID} {
		ok, err := s.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok, id)
	}

	require.NoError(t, s.Delete(ctx, g.ID, true))
	got := mustGet(t, s, kept.ID)
	assert.Equal(t, nb.ID, got.Parent)

	children, err := s.Children(ctx, nb.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, kept.ID, children[0].ID)
}

func TestDelete_DocumentTakesPages(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	nb := mustCreate(t, s, models.ItemTypeNotebook, common.RootID)
	d := mustCreate(t, s, models.ItemTypeDocument, nb.ID)
	p1 := mustCreate(t, s, models.ItemTypePage, d.ID)
	p2 := mustCreate(t, s, models.ItemTypePage, d.ID)
	markSynced(t, s, nb.ID, d.ID, p1.ID, p2.ID)

	require.NoError(t, s.Delete(ctx, d.ID, true))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	changes, err := s.Changes(ctx)
	require.NoError(t, err)
	deleted := map[string]bool{}
	for _, c := range changes {
		assert.Equal(t, models.ChangeDelete, c.Kind)
		deleted[c.Item] = true
	}
	assert.Equal(t, map[string]bool{d.ID: true, p1.ID: true, p2.ID: true}, deleted)
}

func TestEditingConflictClearsFlag(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	nb := mustCreate(t, s, models.ItemTypeNotebook, common.RootID)
	d := mustCreate(t, s, models.ItemTypeDocument, nb.ID)
	require.NoError(t, s.Update(ctx, func(ctx context.Context, tx *Tx) error {
		it, err := tx.Items.Get(ctx, d.ID)
		if err != nil {
			return err
		}
		it.Conflict = "original"
		it.ClearSynced()
		if err := tx.Items.Upsert(ctx, it); err != nil {
			return err
		}
		return tx.Journal.Clear(ctx)
	}))

	require.NoError(t, s.SetField(ctx, d.ID, models.FieldTitle, "resolved"))

	got := mustGet(t, s, d.ID)
	assert.False(t, got.IsConflict())

	changes, err := s.Changes(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, models.ChangeAdd, changes[0].Kind)
	assert.Equal(t, d.ID, changes[0].Item)
}

func TestDelete_SyncedItemLeavesDeleteEntry(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	nb := mustCreate(t, s, models.ItemTypeNotebook, common.RootID)
	d := mustCreate(t, s, models.ItemTypeDocument, nb.ID)
	fresh := mustCreate(t, s, models.ItemTypePage, d.ID)
	markSynced(t, s, nb.ID, d.ID)

	// The journal still holds an add for a page created after the baseline.
	p := mustCreate(t, s, models.ItemTypePage, d.ID)
	require.NoError(t, s.Update(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.Journal.Record(ctx, d.ID, models.ChangeAdd, "", 1)
	}))
	require.NoError(t, s.SetField(ctx, d.ID, models.FieldTitle, "edited"))

	require.NoError(t, s.Delete(ctx, d.ID, false))

	changes, err := s.Changes(ctx)
	require.NoError(t, err)
	byItem := map[string]models.ChangeKind{}
	for _, c := range changes {
		byItem[c.Item] = c.Kind
	}
	assert.Equal(t, map[string]models.ChangeKind{d.ID: models.ChangeDelete}, byItem,
		"pages %s and %s never left this device", fresh.ID, p.ID)
}

func TestEditingRescuedOrphanJournalsItsMove(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	conflicts := &models.Item{ID: common.ConflictsNotebookID, Type: models.ItemTypeNotebook, Parent: common.RootID}
	conflicts.StampAll(1)
	orphan := &models.Item{ID: "orphan", Type: models.ItemTypeDocument, Parent: "gone", Title: "lost"}
	orphan.StampAll(1)
	orphan.MarkAllSynced()
	require.NoError(t, s.Update(ctx, func(ctx context.Context, tx *Tx) error {
		orphan.Parent, orphan.Notebook, orphan.Conflict = conflicts.ID, conflicts.ID, orphan.ID
		orphan.Stamp(models.FieldParent, 2)
		orphan.Stamp(models.FieldNotebook, 2)
		for _, it := range []*models.Item{conflicts, orphan} {
			if err := tx.Items.Upsert(ctx, it); err != nil {
				return err
			}
		}
		return tx.Ancestry.Rebuild(ctx)
	}))

	require.NoError(t, s.SetField(ctx, orphan.ID, models.FieldTitle, "found"))
	assert.False(t, mustGet(t, s, orphan.ID).IsConflict())

	changes, err := s.Changes(ctx)
	require.NoError(t, err)
	var fields []models.Field
	for _, c := range changes {
		require.Equal(t, orphan.ID, c.Item)
		require.Equal(t, models.ChangeUpdate, c.Kind)
		fields = append(fields, c.Field)
	}
	assert.ElementsMatch(t, []models.Field{models.FieldParent, models.FieldNotebook, models.FieldTitle}, fields)

	require.NoError(t, s.Delete(ctx, orphan.ID, false))
	changes, err = s.Changes(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, models.ChangeDelete, changes[0].Kind)
}

func TestValuesAndCurrentNotebook(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	v, err := s.Values(ctx)
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, s.SetDefaultSort(ctx, "title", true))
	v, err = s.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, "title", v.DefaultSortBy)
	assert.True(t, v.DefaultSortDesc)
	assert.NotZero(t, v.LastUpdated)

	nb := mustCreate(t, s, models.ItemTypeNotebook, common.RootID)
	d := mustCreate(t, s, models.ItemTypeDocument, nb.ID)
	assert.ErrorIs(t, s.SetCurrentNotebook(ctx, d.ID), common.ErrInvalidKind)
	require.NoError(t, s.SetCurrentNotebook(ctx, nb.ID))

	cur, err := s.CurrentNotebook(ctx)
	require.NoError(t, err)
	assert.Equal(t, nb.ID, cur)

	require.NoError(t, s.Delete(ctx, nb.ID, false))
	cur, err = s.CurrentNotebook(ctx)
	require.NoError(t, err)
	assert.Empty(t, cur)

	nbs, err := s.Notebooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, nbs)
}
