package syncer

import (
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

type decision int

const (
	same decision = iota
	keepLocal
	acceptRemote
	conflict
)

func (d decision) String() string {
	switch d {
	case same:
		return "same"
	case keepLocal:
		return "keep-local"
	case acceptRemote:
		return "accept-remote"
	}
	return "conflict"
}

// decide compares one field three ways: local value, remote value, and the
// baseline hash last exchanged with a remote. A side that still holds the
// baseline has not changed and yields to the other. When both changed the
// newer clock wins and equal clocks conflict. Without a baseline both sides
// count as changed.
func decide(l, r models.FieldMeta) decision {
	if l.Hash == r.Hash {
		return same
	}
	localChanged := l.Synced == 0 || l.Hash != l.Synced
	remoteChanged := l.Synced == 0 || r.Hash != l.Synced

	switch {
	case !remoteChanged:
		return keepLocal
	case !localChanged:
		return acceptRemote
	case r.Updated > l.Updated:
		return acceptRemote
	case l.Updated > r.Updated:
		return keepLocal
	}
	return conflict
}

// mergeResult is the outcome of merging one item present on both sides.
type mergeResult struct {
	item     *models.Item
	accepted []models.Field
	conflict bool
	changed  bool
}

// mergeItem merges remote into a copy of local. Conflicting fields take the
// remote value; the caller preserves the local value in a conflict copy.
// Items that already are unresolved conflicts keep their local value.
func mergeItem(local, remote *models.Item, previewLen int) mergeResult {
	out := local.Clone()
	res := mergeResult{item: out}

	for _, f := range models.SyncedFields {
		lm := *local.Meta.Get(f)
		rm := *remote.Meta.Get(f)
		m := out.Meta.Get(f)

		d := decide(lm, rm)
		if d == conflict && local.IsConflict() {
			d = keepLocal
		}

		switch d {
		case same:
			m.Updated = max(lm.Updated, rm.Updated)
			m.Synced = m.Hash
		case keepLocal:
			m.Synced = rm.Hash
		case acceptRemote, conflict:
			out.CopyField(remote, f)
			// The clock never moves backwards, even when an older remote
			// value wins because the local side still held the baseline.
			m.Updated = max(lm.Updated, rm.Updated)
			m.Synced = rm.Hash
			res.accepted = append(res.accepted, f)
			if d == conflict {
				res.conflict = true
			}
			if f == models.FieldContent {
				out.Preview = models.MakePreview(out.Content, previewLen)
			}
		}
		if *out.Meta.Get(f) != lm {
			res.changed = true
		}
	}

	if remote.Updated > out.Updated {
		out.Updated = remote.Updated
		res.changed = true
	}
	if out.Created == 0 && remote.Created != 0 {
		out.Created = remote.Created
		res.changed = true
	}
	return res
}

// conflictCopy clones the pre-merge local state of an item under a new id.
// The copy has no baseline, so it looks like a fresh local item.
func conflictCopy(local *models.Item, id string) *models.Item {
	c := local.Clone()
	c.ID = id
	c.Conflict = local.ID
	c.ClearSynced()
	return c
}
