package syncer

import (
	"testing"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/stretchr/testify/assert"
)

func meta(updated int64, v string, synced string) models.FieldMeta {
	m := models.FieldMeta{Updated: updated, Hash: models.HashValue(v)}
	if synced != "" {
		m.Synced = models.HashValue(synced)
	}
	return m
}

func TestDecide(t *testing.T) {
	cases := []struct {
		name string
		l, r models.FieldMeta
		want decision
	}{
		{"same value", meta(5, "a", ""), meta(9, "a", ""), same},
		{"only local changed", meta(5, "b", "a"), meta(9, "a", ""), keepLocal},
		{"only remote changed", meta(9, "a", "a"), meta(5, "b", ""), acceptRemote},
		{"both changed remote newer", meta(5, "b", "a"), meta(9, "c", ""), acceptRemote},
		{"both changed local newer", meta(9, "b", "a"), meta(5, "c", ""), keepLocal},
		{"both changed same clock", meta(9, "b", "a"), meta(9, "c", ""), conflict},
		{"no baseline remote newer", meta(5, "b", ""), meta(9, "c", ""), acceptRemote},
		{"no baseline local newer", meta(9, "b", ""), meta(5, "c", ""), keepLocal},
		{"no baseline tie", meta(10, "A", ""), meta(10, "B", ""), conflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, decide(tc.l, tc.r), tc.want.String())
		})
	}
}

func item(id, title string, ts int64) *models.Item {
	it := &models.Item{ID: id, Type: models.ItemTypeDocument, Parent: "nb", Notebook: "nb", Title: title, Created: 1, Updated: ts}
	it.StampAll(ts)
	return it
}

func TestMergeItem_Conflict(t *testing.T) {
	local := item("i", "A", 10)
	remote := item("i", "B", 10)

	res := mergeItem(local, remote, 0)
	assert.True(t, res.conflict)
	assert.True(t, res.changed)
	assert.Equal(t, "B", res.item.Title)
	assert.Equal(t, []models.Field{models.FieldTitle}, res.accepted)
	assert.Equal(t, "A", local.Title)

	for _, f := range models.SyncedFields {
		assert.Equal(t, remote.Meta.Get(f).Hash, res.item.Meta.Get(f).Synced, f)
	}

	again := mergeItem(res.item, remote, 0)
	assert.False(t, again.conflict)
	assert.False(t, again.changed)
	assert.Empty(t, again.accepted)
}

func TestMergeItem_ConflictItemKeepsLocal(t *testing.T) {
	local := item("i", "A", 10)
	local.Conflict = "i"
	remote := item("i", "B", 10)

	res := mergeItem(local, remote, 0)
	assert.False(t, res.conflict)
	assert.Equal(t, "A", res.item.Title)
}

func TestMergeItem_ContentRefreshesPreview(t *testing.T) {
	local := item("i", "t", 5)
	local.MarkAllSynced()
	remote := item("i", "t", 5)
	remote.Content = "fresh   text"
	remote.Stamp(models.FieldContent, 8)
	remote.Updated = 8

	res := mergeItem(local, remote, 0)
	assert.Equal(t, "fresh   text", res.item.Content)
	assert.Equal(t, "fresh text", res.item.Preview)
	assert.Equal(t, int64(8), res.item.Updated)
}

func TestConflictCopy(t *testing.T) {
	local := item("i", "A", 10)
	local.MarkAllSynced()

	c := conflictCopy(local, "copy")
	assert.Equal(t, "copy", c.ID)
	assert.Equal(t, "i", c.Conflict)
	assert.True(t, c.NeverSynced())
	assert.Equal(t, "A", c.Title)
	assert.False(t, local.NeverSynced())
}

func TestMergeItem_AcceptedRemoteKeepsNewerClock(t *testing.T) {
	local := item("i", "A", 100)
	local.MarkAllSynced()
	remote := item("i", "B", 50)

	res := mergeItem(local, remote, 0)
	assert.Equal(t, []models.Field{models.FieldTitle}, res.accepted)
	assert.Equal(t, "B", res.item.Title)
	assert.Equal(t, int64(100), res.item.Meta.Title.Updated)
	assert.Equal(t, models.HashValue("B"), res.item.Meta.Title.Hash)
	assert.Equal(t, models.HashValue("B"), res.item.Meta.Title.Synced)
}
