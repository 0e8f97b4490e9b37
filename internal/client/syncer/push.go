package syncer

import (
	"context"

	"github.com/dmitrijs2005/gophnotes/internal/client/collection"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/snapshot"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

// Push sends the outstanding local changes to the remote. The remote
// snapshot is fetched first and the journal entries newer than the remote's
// push watermark are applied on top of it, so concurrent remote edits to
// other items survive.
func (e *Engine) Push(ctx context.Context, remoteID string) (Result, error) {
	return e.push(ctx, remoteID, false)
}

// ForcePush replaces the remote snapshot with the whole local collection,
// except unresolved conflicts.
func (e *Engine) ForcePush(ctx context.Context, remoteID string) (Result, error) {
	return e.push(ctx, remoteID, true)
}

func (e *Engine) push(ctx context.Context, remoteID string, force bool) (res Result, err error) {
	op := "push"
	if force {
		op = "force_push"
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

	if err := e.store.Update(ctx, e.heal); err != nil {
		return res, err
	}

	base := &snapshot.Snapshot{}
	if !force {
		pulled, err := d.Pull(ctx)
		if err != nil {
			e.log.Warn(ctx, "push fetch failed", "remote", remoteID, "error", err)
			return res, err
		}
		if base, err = e.codec.Decode(pulled.Content); err != nil {
			e.log.Error(ctx, "remote snapshot rejected", "remote", remoteID, "error", err)
			return res, err
		}
	}

	var (
		out       *snapshot.Snapshot
		lastLocal int64
	)
	err = e.store.View(ctx, func(ctx context.Context, tx *collection.Tx) error {
		var err error
		lastLocal, err = tx.Journal.LastLocalChange(ctx)
		if err != nil {
			return err
		}
		r, err := tx.Remotes.Get(ctx, remoteID)
		if err != nil {
			return err
		}
		out, res.Pushed, err = e.outgoing(ctx, tx, r, base, force)
		return err
	})
	if err != nil {
		return res, err
	}
	out.Updated = lastLocal
	out.Version = common.ModelVersion

	content, err := e.codec.Encode(out)
	if err != nil {
		return res, err
	}
	remoteClock, err := d.Push(ctx, content)
	if err != nil {
		e.log.Warn(ctx, "push failed", "remote", remoteID, "error", err)
		return res, err
	}

	e.observe(remoteClock)

	err = e.store.Update(ctx, func(ctx context.Context, tx *collection.Tx) error {
		if err := markPushed(ctx, tx, out); err != nil {
			return err
		}
		if err := tx.Remotes.SetClocks(ctx, remoteID, lastLocal, lastLocal); err != nil {
			return err
		}
		if err := tx.Remotes.SetKnown(ctx, remoteID, itemIDs(out.Items)); err != nil {
			return err
		}
		n, err := tx.CompactJournal(ctx)
		if err != nil {
			return err
		}
		e.log.Debug(ctx, "journal compacted", "entries", n)
		return nil
	})
	if err != nil {
		return res, err
	}

	e.log.Info(ctx, "pushed", "remote", remoteID, "force", force,
		"items", res.Pushed, "total", len(out.Items), "remote_clock", remoteClock)
	return res, nil
}

// outgoing builds the snapshot to send and counts the items that carry
// local changes.
func (e *Engine) outgoing(ctx context.Context, tx *collection.Tx, r *models.Remote, base *snapshot.Snapshot, force bool) (*snapshot.Snapshot, int, error) {
	all, err := tx.Items.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	local := make(map[string]*models.Item, len(all))
	for _, it := range all {
		local[it.ID] = it
	}
	values, err := tx.Values(ctx)
	if err != nil {
		return nil, 0, err
	}

	if force {
		items := make([]*models.Item, 0, len(all))
		for _, it := range all {
			if !it.IsConflict() {
				items = append(items, it)
			}
		}
		return &snapshot.Snapshot{Items: items, Values: values}, len(items), nil
	}

	target := base.Index()
	touched := make(map[string]bool)
	known, err := tx.Remotes.Known(ctx, r.ID)
	if err != nil {
		return nil, 0, err
	}

	for _, it := range all {
		if it.IsConflict() {
			continue
		}
		_, held := target[it.ID]
		switch {
		case r.LastPushed == 0:
			// First push to this remote: everything local is new to it.
			// Pending deletes still apply below.
		case !held && !known[it.ID]:
			// Never sent here, for example pulled from another remote.
		default:
			continue
		}
		target[it.ID] = it
		touched[it.ID] = true
	}
	entries, err := e.outstanding(ctx, tx, r.LastPushed)
	if err != nil {
		return nil, 0, err
	}
	for _, c := range entries {
		applyEntry(target, local, c, e.previewLen)
		touched[c.Item] = true
	}

	if values.LastUpdated < base.Values.LastUpdated {
		values = base.Values
	}

	items := make([]*models.Item, 0, len(target))
	for _, it := range target {
		items = append(items, it)
	}
	return &snapshot.Snapshot{Items: items, Values: values}, len(touched), nil
}

// applyEntry writes one journal entry onto the remote item set. Local wins
// ties on push.
func applyEntry(target, local map[string]*models.Item, c *models.Change, previewLen int) {
	switch c.Kind {
	case models.ChangeDelete:
		delete(target, c.Item)
	case models.ChangeAdd:
		if it, ok := local[c.Item]; ok {
			target[c.Item] = it
		}
	case models.ChangeUpdate:
		lit, ok := local[c.Item]
		if !ok {
			return
		}
		rit, ok := target[c.Item]
		if !ok {
			target[c.Item] = lit
			return
		}
		if rit == lit {
			return
		}
		lm, rm := lit.Meta.Get(c.Field), rit.Meta.Get(c.Field)
		if lm.Updated < rm.Updated {
			return
		}
		merged := rit.Clone()
		merged.CopyField(lit, c.Field)
		if c.Field == models.FieldContent {
			merged.Preview = models.MakePreview(merged.Content, previewLen)
		}
		if c.Field.ContentBearing() && lit.Updated > merged.Updated {
			merged.Updated = lit.Updated
		}
		target[c.Item] = merged
	}
}

// outstanding lists journal entries newer than since, skipping unresolved
// conflicts.
func (e *Engine) outstanding(ctx context.Context, tx *collection.Tx, since int64) ([]*models.Change, error) {
	all, err := tx.Items.List(ctx)
	if err != nil {
		return nil, err
	}
	conflicts := make(map[string]bool)
	for _, it := range all {
		if it.IsConflict() {
			conflicts[it.ID] = true
		}
	}
	return tx.Journal.Outstanding(ctx, since, func(id string) bool { return conflicts[id] })
}

// markPushed moves the baseline of every local field whose value now equals
// the pushed one. Fields where the remote kept a newer value keep their old
// baseline so the next pull still sees both sides as changed.
func markPushed(ctx context.Context, tx *collection.Tx, out *snapshot.Snapshot) error {
	for _, sent := range out.Items {
		it, err := tx.Items.Get(ctx, sent.ID)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return err
		}
		changed := false
		for _, f := range models.SyncedFields {
			m := it.Meta.Get(f)
			h := models.HashValue(sent.Value(f))
			if m.Hash == h && m.Synced != h {
				m.Synced = h
				changed = true
			}
		}
		if changed {
			if err := tx.Items.Upsert(ctx, it); err != nil {
				return err
			}
		}
	}
	return nil
}
