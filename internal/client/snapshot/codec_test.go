package snapshot

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItem(id string) *models.Item {
	it := &models.Item{
		ID: id, Type: models.ItemTypeDocument, Parent: "nb", Notebook: "nb",
		Title: "Title " + id, Content: "body of " + id, Tags: "a,b", Created: 5, Updated: 9,
	}
	it.Preview = models.MakePreview(it.Content, 80)
	it.StampAll(9)
	return it
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	c := NewJSONCodec()
	in := &Snapshot{
		Items:   []*models.Item{sampleItem("b"), sampleItem("a")},
		Values:  models.Values{DefaultSortBy: "title", DefaultSortDesc: true, LastUpdated: 3},
		Updated: 42,
	}
	in.Items[0].MarkAllSynced()

	content, err := c.Encode(in)
	require.NoError(t, err)
	assert.NotContains(t, content, `"s":`, "baselines stay local")

	out, err := c.Decode(content)
	require.NoError(t, err)
	assert.Equal(t, int64(42), out.Updated)
	assert.Equal(t, common.ModelVersion, out.Version)
	assert.Equal(t, in.Values, out.Values)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "a", out.Items[0].ID, "items are sorted by id")

	got := out.Index()["b"]
	want := sampleItem("b")
	assert.Equal(t, want, got)
}

func TestEncode_Deterministic(t *testing.T) {
	c := NewJSONCodec()
	a, err := c.Encode(&Snapshot{Items: []*models.Item{sampleItem("x"), sampleItem("y")}})
	require.NoError(t, err)
	b, err := c.Encode(&Snapshot{Items: []*models.Item{sampleItem("y"), sampleItem("x")}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecode_Empty(t *testing.T) {
	s, err := NewJSONCodec().Decode("  ")
	require.NoError(t, err)
	assert.Empty(t, s.Items)
}

func TestDecode_RehashesValues(t *testing.T) {
	s, err := NewJSONCodec().Decode(`{"i":[{"i":"x","ty":"f","p":"nb","t":"Docs","T":{"u":4,"h":1}}],"u":1,"v":1}`)
	require.NoError(t, err)
	require.Len(t, s.Items, 1)
	assert.Equal(t, models.HashValue("Docs"), s.Items[0].Meta.Title.Hash)
	assert.Equal(t, int64(4), s.Items[0].Meta.Title.Updated)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		schema  bool
	}{
		{"not json", `{"i":[`, false},
		{"trailing data", `{"i":[]} {}`, false},
		{"missing id", `{"i":[{"ty":"f"}]}`, false},
		{"duplicate id", `{"i":[{"i":"a","ty":"f"},{"i":"a","ty":"f"}]}`, false},
		{"unknown kind", `{"i":[{"i":"a","ty":"x"}]}`, true},
		{"unknown item key", `{"i":[{"i":"a","ty":"f","zz":1}]}`, true},
		{"unknown top-level key", `{"i":[],"extra":true}`, true},
		{"future version", `{"i":[],"v":99}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJSONCodec().Decode(tt.content)
			require.Error(t, err)
			assert.True(t, IsMalformed(err))
			assert.Equal(t, tt.schema, errors.Is(err, common.ErrConflictingSchema))
		})
	}
}
