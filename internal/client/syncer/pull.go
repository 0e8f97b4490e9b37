package syncer

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/gophnotes/internal/client/collection"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophnotes/internal/client/snapshot"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

// Pull merges the remote snapshot into the local collection.
func (e *Engine) Pull(ctx context.Context, remoteID string) (Result, error) {
	return e.pull(ctx, remoteID, false)
}

// ForcePull replaces the local collection with the remote snapshot and
// drops every pending local change.
func (e *Engine) ForcePull(ctx context.Context, remoteID string) (Result, error) {
	return e.pull(ctx, remoteID, true)
}

func (e *Engine) pull(ctx context.Context, remoteID string, force bool) (res Result, err error) {
	op := "pull"
	if force {
		op = "force_pull"
	}
	timer := e.metrics.timer(op)
	defer func() {
		timer.ObserveDuration()
		e.metrics.observe(op, err, res)
	}()

	l := e.lock(remoteID)
	l.Lock()
	defer l.Unlock()

	d, err := e.driver(ctx, remoteID)
	if err != nil {
		return res, err
	}
	pulled, err := d.Pull(ctx)
	if err != nil {
		e.log.Warn(ctx, "pull failed", "remote", remoteID, "error", err)
		return res, err
	}
	snap, err := e.codec.Decode(pulled.Content)
	if err != nil {
		e.log.Error(ctx, "remote snapshot rejected", "remote", remoteID, "error", err)
		return res, err
	}

	if !force && pulled.Content == "" {
		e.log.Info(ctx, "remote is empty", "remote", remoteID)
		return res, nil
	}

	err = e.store.Update(ctx, func(ctx context.Context, tx *collection.Tx) error {
		r, err := tx.Remotes.Get(ctx, remoteID)
		if err != nil {
			return err
		}
		if force {
			return e.replace(ctx, tx, r, snap, pulled.LastRemoteChange, &res)
		}
		if err := e.heal(ctx, tx); err != nil {
			return err
		}
		return e.merge(ctx, tx, r, snap, pulled.LastRemoteChange, &res)
	})
	if err != nil {
		return Result{}, err
	}

	e.log.Info(ctx, "pulled", "remote", remoteID, "force", force,
		"created", res.Created, "updated", res.Updated, "deleted", res.Deleted,
		"conflicts", res.Conflicts, "rescued", res.Rescued)
	return res, nil
}

// replace makes the local collection an exact copy of snap.
func (e *Engine) replace(ctx context.Context, tx *collection.Tx, r *models.Remote, snap *snapshot.Snapshot, remoteClock int64, res *Result) error {
	before, err := tx.Items.Count(ctx)
	if err != nil {
		return err
	}
	if err := tx.Items.Clear(ctx); err != nil {
		return err
	}
	if err := tx.Journal.Clear(ctx); err != nil {
		return err
	}
	for _, it := range snap.Items {
		it.MarkAllSynced()
		if err := tx.Items.Upsert(ctx, it); err != nil {
			return err
		}
	}
	res.Deleted = before
	res.Created = len(snap.Items)
	if err := tx.Remotes.SetKnown(ctx, r.ID, itemIDs(snap.Items)); err != nil {
		return err
	}

	if err := tx.PutValues(ctx, snap.Values); err != nil {
		return err
	}
	if err := tx.Ancestry.Rebuild(ctx); err != nil {
		return err
	}
	if err := e.dropStaleCurrentNotebook(ctx, tx); err != nil {
		return err
	}
	e.observeClocks(snap, remoteClock)

	last, err := tx.Journal.LastLocalChange(ctx)
	if err != nil {
		return err
	}
	settled := max(remoteClock, last)
	if err := tx.Journal.SetLastLocalChange(ctx, settled); err != nil {
		return err
	}
	return tx.Remotes.SetClocks(ctx, r.ID, settled, settled)
}

// merge applies snap on top of the local collection.
func (e *Engine) merge(ctx context.Context, tx *collection.Tx, r *models.Remote, snap *snapshot.Snapshot, remoteClock int64, res *Result) error {
	all, err := tx.Items.List(ctx)
	if err != nil {
		return err
	}
	local := make(map[string]*models.Item, len(all))
	for _, it := range all {
		local[it.ID] = it
	}
	entries, err := tx.Journal.List(ctx)
	if err != nil {
		return err
	}
	pending := groupEntries(entries)
	remote := snap.Index()
	known, err := tx.Remotes.Known(ctx, r.ID)
	if err != nil {
		return err
	}
	now := tx.Clock.Now()

	for _, rit := range snap.Items {
		lit, ok := local[rit.ID]
		if !ok {
			if err := e.mergeMissingLocally(ctx, tx, rit, pending[rit.ID], res); err != nil {
				return err
			}
			continue
		}

		m := mergeItem(lit, rit, e.previewLen)
		if m.conflict {
			if err := e.keepConflicting(ctx, tx, lit, now, res, "field conflict"); err != nil {
				return err
			}
		}
		if !m.changed {
			continue
		}
		if err := tx.Items.Upsert(ctx, m.item); err != nil {
			return err
		}
		for _, f := range m.accepted {
			if err := tx.Journal.ForgetField(ctx, lit.ID, f); err != nil {
				return err
			}
		}
		if len(m.accepted) > 0 {
			res.Updated++
		}
	}

	for _, id := range sortedIDs(local) {
		if _, ok := remote[id]; ok {
			continue
		}
		// Only items this remote once held can have been deleted there; the
		// rest are waiting for their first push to it.
		lit := local[id]
		if lit.IsConflict() || !known[id] {
			continue
		}
		if lastEdit(pending[id]) > snap.Updated {
			if err := e.keepConflicting(ctx, tx, lit, now, res, "edited item deleted remotely"); err != nil {
				return err
			}
		}
		if err := tx.Items.Delete(ctx, id); err != nil {
			return err
		}
		if err := tx.Ancestry.Remove(ctx, id); err != nil {
			return err
		}
		if err := tx.Journal.Forget(ctx, id); err != nil {
			return err
		}
		res.Deleted++
	}

	values, err := tx.Values(ctx)
	if err != nil {
		return err
	}
	if snap.Values.LastUpdated > values.LastUpdated {
		if err := tx.PutValues(ctx, snap.Values); err != nil {
			return err
		}
	}

	rescued, err := e.rescueOrphans(ctx, tx, now)
	if err != nil {
		return err
	}
	res.Rescued = rescued

	if err := tx.Ancestry.Rebuild(ctx); err != nil {
		return err
	}
	if err := e.dropStaleCurrentNotebook(ctx, tx); err != nil {
		return err
	}
	e.observeClocks(snap, remoteClock)
	if err := tx.Remotes.SetKnown(ctx, r.ID, itemIDs(snap.Items)); err != nil {
		return err
	}

	outstanding, err := e.outstanding(ctx, tx, 0)
	if err != nil {
		return err
	}
	last, err := tx.Journal.LastLocalChange(ctx)
	if err != nil {
		return err
	}
	return tx.Remotes.SetClocks(ctx, r.ID, settledClock(remoteClock, last, len(outstanding) > 0), r.LastPushed)
}

// keepConflicting preserves the local state of an item the remote overrode.
// Documents and pages get a conflict copy; folders and notebooks only hold
// structure, so the remote side is taken as is.
func (e *Engine) keepConflicting(ctx context.Context, tx *collection.Tx, lit *models.Item, now int64, res *Result, reason string) error {
	if !copiesOnConflict(lit.Type) {
		e.log.Warn(ctx, reason+", remote kept", "item", lit.ID, "type", lit.Type)
		return nil
	}
	c := conflictCopy(lit, tx.NewID())
	if err := tx.Items.Upsert(ctx, c); err != nil {
		return err
	}
	if err := tx.Journal.Record(ctx, c.ID, models.ChangeAdd, "", now); err != nil {
		return err
	}
	res.Conflicts++
	e.log.Warn(ctx, reason, "item", lit.ID, "copy", c.ID)
	return nil
}

func copiesOnConflict(t models.ItemType) bool {
	return t == models.ItemTypeDocument || t == models.ItemTypePage
}

// mergeMissingLocally handles a remote item with no local counterpart. A
// pending local delete wins unless the remote edited the item afterwards.
func (e *Engine) mergeMissingLocally(ctx context.Context, tx *collection.Tx, rit *models.Item, entries []*models.Change, res *Result) error {
	if del := findKind(entries, models.ChangeDelete); del != nil {
		if rit.LastFieldUpdate() <= del.Timestamp {
			return nil
		}
		if err := tx.Journal.Forget(ctx, rit.ID); err != nil {
			return err
		}
	}
	if rit.Preview == "" && rit.Content != "" {
		rit.Preview = models.MakePreview(rit.Content, e.previewLen)
	}
	rit.MarkAllSynced()
	if err := tx.Items.Upsert(ctx, rit); err != nil {
		return err
	}
	res.Created++
	return nil
}

// rescueOrphans moves items whose parent is gone, or that sit in a parent
// cycle, into the conflicts notebook and flags them as conflicts.
func (e *Engine) rescueOrphans(ctx context.Context, tx *collection.Tx, now int64) (int, error) {
	all, err := tx.Items.List(ctx)
	if err != nil {
		return 0, err
	}
	byID := make(map[string]*models.Item, len(all))
	for _, it := range all {
		byID[it.ID] = it
	}

	var orphans []*models.Item
	for _, it := range all {
		if it.Type == models.ItemTypeNotebook || it.Parent == common.RootID {
			continue
		}
		if _, ok := byID[it.Parent]; !ok {
			orphans = append(orphans, it)
		}
	}
	for _, it := range all {
		if it.Type != models.ItemTypeNotebook && inCycle(it, byID) {
			orphans = append(orphans, it)
			// Breaks the cycle for the remaining walks.
			it.Parent = common.ConflictsNotebookID
			byID[common.ConflictsNotebookID] = &models.Item{ID: common.ConflictsNotebookID, Parent: common.RootID}
		}
	}

	fixed := 0
	for _, it := range all {
		if it.Type == models.ItemTypeNotebook && it.Parent != common.RootID {
			it.Parent = common.RootID
			it.Stamp(models.FieldParent, now)
			if err := tx.Items.Upsert(ctx, it); err != nil {
				return 0, err
			}
			fixed++
		}
	}
	if len(orphans) == 0 {
		return fixed, nil
	}

	if err := e.ensureConflictsNotebook(ctx, tx, now); err != nil {
		return 0, err
	}
	for _, it := range orphans {
		e.log.Warn(ctx, "orphan rescued", "item", it.ID, "parent", it.Parent)
		it.Parent = common.ConflictsNotebookID
		it.Notebook = common.ConflictsNotebookID
		it.Stamp(models.FieldParent, now)
		it.Stamp(models.FieldNotebook, now)
		it.Conflict = it.ID
		if err := tx.Items.Upsert(ctx, it); err != nil {
			return 0, err
		}
	}
	return fixed + len(orphans), nil
}

func inCycle(it *models.Item, byID map[string]*models.Item) bool {
	seen := map[string]bool{}
	for cur := it; cur != nil; cur = byID[cur.Parent] {
		if cur.Parent == common.RootID {
			return false
		}
		if seen[cur.ID] {
			return cur.ID == it.ID
		}
		seen[cur.ID] = true
	}
	return false
}

func (e *Engine) ensureConflictsNotebook(ctx context.Context, tx *collection.Tx, now int64) error {
	ok, err := tx.Items.Exists(ctx, common.ConflictsNotebookID)
	if err != nil || ok {
		return err
	}
	nb := &models.Item{
		ID:      common.ConflictsNotebookID,
		Type:    models.ItemTypeNotebook,
		Parent:  common.RootID,
		Title:   "Conflicts",
		Created: now,
		Updated: now,
	}
	nb.StampAll(now)
	if err := tx.Items.Upsert(ctx, nb); err != nil {
		return err
	}
	return tx.Journal.Record(ctx, nb.ID, models.ChangeAdd, "", now)
}

func (e *Engine) dropStaleCurrentNotebook(ctx context.Context, tx *collection.Tx) error {
	cur, err := tx.CurrentNotebook(ctx)
	if err != nil || cur == "" {
		return err
	}
	ok, err := tx.Items.Exists(ctx, cur)
	if err != nil || ok {
		return err
	}
	return tx.Metadata.Delete(ctx, metadata.KeyCurrentNotebook)
}

// observeClocks keeps the local clock ahead of every clock seen remotely, so
// later local edits are never stamped older than what they overwrite.
func (e *Engine) observeClocks(snap *snapshot.Snapshot, remoteClock int64) {
	e.observe(remoteClock)
	for _, it := range snap.Items {
		e.observe(it.LastFieldUpdate())
	}
}

func (e *Engine) observe(ts int64) {
	if obs, ok := e.store.Clock().(interface{ Observe(int64) }); ok {
		obs.Observe(ts)
	}
}

// settledClock is the lastRemoteChange recorded after a pull. With nothing
// left to push it catches up with the local clock; with pending entries it
// stays below it so HasLocalChanges keeps reporting them.
func settledClock(remoteClock, lastLocal int64, pending bool) int64 {
	if !pending {
		return max(remoteClock, lastLocal)
	}
	if remoteClock >= lastLocal {
		return lastLocal - 1
	}
	return remoteClock
}

func groupEntries(entries []*models.Change) map[string][]*models.Change {
	m := make(map[string][]*models.Change)
	for _, c := range entries {
		m[c.Item] = append(m[c.Item], c)
	}
	return m
}

func findKind(entries []*models.Change, kind models.ChangeKind) *models.Change {
	for _, c := range entries {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// lastEdit is the newest pending add or update. An add absorbs later
// updates, so its timestamp is the last edit too.
func lastEdit(entries []*models.Change) int64 {
	var ts int64
	for _, c := range entries {
		if c.Kind != models.ChangeDelete && c.Timestamp > ts {
			ts = c.Timestamp
		}
	}
	return ts
}

func itemIDs(items []*models.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func sortedIDs(m map[string]*models.Item) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
