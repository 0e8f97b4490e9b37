package models

import "github.com/cespare/xxhash/v2"

// FieldMeta is the clock and content hash attached to a synchronized field.
// Synced holds the hash of the value last exchanged with a remote and is the
// baseline for three-way merges; zero means no baseline is known, which is
// why HashValue never returns zero. Synced is local bookkeeping and is never
// written into snapshots.
type FieldMeta struct {
	Updated int64  `json:"u"`
	Hash    uint64 `json:"h"`
	Synced  uint64 `json:"s,omitempty"`
}

// Dirty reports whether the local value differs from the baseline.
func (m FieldMeta) Dirty() bool {
	return m.Synced == 0 || m.Hash != m.Synced
}

// Meta is the parallel metadata struct for every synchronized field.
type Meta struct {
	Parent   FieldMeta `json:"parent"`
	Notebook FieldMeta `json:"notebook"`
	Title    FieldMeta `json:"title"`
	Content  FieldMeta `json:"content"`
	Tags     FieldMeta `json:"tags"`
	Deleted  FieldMeta `json:"deleted"`
}

// Get returns a pointer to the metadata of f. Unknown fields panic, since
// callers only pass values from SyncedFields.
func (m *Meta) Get(f Field) *FieldMeta {
	switch f {
	case FieldParent:
		return &m.Parent
	case FieldNotebook:
		return &m.Notebook
	case FieldTitle:
		return &m.Title
	case FieldContent:
		return &m.Content
	case FieldTags:
		return &m.Tags
	case FieldDeleted:
		return &m.Deleted
	}
	panic("models: no metadata for field " + string(f))
}

// HashValue is the content hash used in FieldMeta. Zero is reserved for
// "no baseline".
func HashValue(v string) uint64 {
	return nonZero(xxhash.Sum64String(v))
}

func nonZero(h uint64) uint64 {
	if h == 0 {
		return 1
	}
	return h
}

// Stamp records a local write of f at now. The field clock never moves
// backwards; the baseline is left alone.
func (it *Item) Stamp(f Field, now int64) {
	m := it.Meta.Get(f)
	if now > m.Updated {
		m.Updated = now
	}
	m.Hash = HashValue(it.Value(f))
}

// StampAll stamps every synchronized field, used for freshly created items.
func (it *Item) StampAll(now int64) {
	for _, f := range SyncedFields {
		it.Stamp(f, now)
	}
}

// Rehash recomputes hashes from the current values without touching clocks.
// Decoded snapshots are rehashed so a sender cannot lie about a value.
func (it *Item) Rehash() {
	for _, f := range SyncedFields {
		it.Meta.Get(f).Hash = HashValue(it.Value(f))
	}
}

// MarkSynced sets the baseline of f to hash.
func (it *Item) MarkSynced(f Field, hash uint64) {
	it.Meta.Get(f).Synced = hash
}

// MarkAllSynced makes the current values the baseline of every field.
func (it *Item) MarkAllSynced() {
	for _, f := range SyncedFields {
		m := it.Meta.Get(f)
		m.Synced = m.Hash
	}
}

// ClearSynced forgets all baselines; the item then looks never synced.
func (it *Item) ClearSynced() {
	for _, f := range SyncedFields {
		it.Meta.Get(f).Synced = 0
	}
}

// DirtyFields lists the fields whose value differs from the baseline.
func (it *Item) DirtyFields() []Field {
	var out []Field
	for _, f := range SyncedFields {
		if it.Meta.Get(f).Dirty() {
			out = append(out, f)
		}
	}
	return out
}

// NeverSynced reports whether no field has a baseline.
func (it *Item) NeverSynced() bool {
	for _, f := range SyncedFields {
		if it.Meta.Get(f).Synced != 0 {
			return false
		}
	}
	return true
}

// LastFieldUpdate is the newest field clock.
func (it *Item) LastFieldUpdate() int64 {
	var latest int64
	for _, f := range SyncedFields {
		if u := it.Meta.Get(f).Updated; u > latest {
			latest = u
		}
	}
	return latest
}
