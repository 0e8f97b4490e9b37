// Package models defines the client-side collection model: items, their
// per-field metadata, journal entries, remotes and synchronized values.
package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/common"
)

// ItemType is the kind of a collection node. Values match the wire format.
type ItemType string

const (
	ItemTypeNotebook ItemType = "n"
	ItemTypeFolder   ItemType = "f"
	ItemTypeDocument ItemType = "d"
	ItemTypePage     ItemType = "p"
)

// Valid reports whether t is one of the known kinds.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeNotebook, ItemTypeFolder, ItemTypeDocument, ItemTypePage:
		return true
	}
	return false
}

func (t ItemType) String() string {
	switch t {
	case ItemTypeNotebook:
		return "notebook"
	case ItemTypeFolder:
		return "folder"
	case ItemTypeDocument:
		return "document"
	case ItemTypePage:
		return "page"
	}
	return string(t)
}

// ParseItemType accepts both the wire letter and the long name.
func ParseItemType(s string) (ItemType, error) {
	switch strings.ToLower(s) {
	case "n", "notebook":
		return ItemTypeNotebook, nil
	case "f", "folder":
		return ItemTypeFolder, nil
	case "d", "doc", "document":
		return ItemTypeDocument, nil
	case "p", "page":
		return ItemTypePage, nil
	}
	return "", fmt.Errorf("%w: %q", common.ErrInvalidKind, s)
}

// Field names a synchronized item attribute.
type Field string

const (
	FieldParent   Field = "parent"
	FieldNotebook Field = "notebook"
	FieldTitle    Field = "title"
	FieldContent  Field = "content"
	FieldTags     Field = "tags"
	FieldDeleted  Field = "deleted"
)

// SyncedFields lists every field that carries FieldMeta, in merge order.
var SyncedFields = []Field{FieldParent, FieldNotebook, FieldTitle, FieldContent, FieldTags, FieldDeleted}

// ContentBearing reports whether writing f rolls Item.Updated forward.
// Moves (parent/notebook) do not.
func (f Field) ContentBearing() bool {
	switch f {
	case FieldTitle, FieldContent, FieldTags, FieldDeleted:
		return true
	}
	return false
}

func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(s))
	for _, known := range SyncedFields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", common.ErrInvalidField, s)
}

// Item is a node of the collection tree.
type Item struct {
	ID       string
	Type     ItemType
	Parent   string
	Notebook string
	Title    string
	Content  string
	Preview  string
	Tags     string
	Deleted  bool
	Created  int64
	Updated  int64
	// Conflict references the item this one was split from by a merge.
	Conflict string
	Meta     Meta
}

// IsConflict reports whether the item is an unresolved conflict.
func (it *Item) IsConflict() bool {
	return it.Conflict != ""
}

// Value returns the string form of field f. Booleans use strconv.FormatBool.
func (it *Item) Value(f Field) string {
	switch f {
	case FieldParent:
		return it.Parent
	case FieldNotebook:
		return it.Notebook
	case FieldTitle:
		return it.Title
	case FieldContent:
		return it.Content
	case FieldTags:
		return it.Tags
	case FieldDeleted:
		return strconv.FormatBool(it.Deleted)
	}
	return ""
}

// SetValue writes the string form of field f without touching metadata.
func (it *Item) SetValue(f Field, v string) error {
	switch f {
	case FieldParent:
		it.Parent = v
	case FieldNotebook:
		it.Notebook = v
	case FieldTitle:
		it.Title = v
	case FieldContent:
		it.Content = v
	case FieldTags:
		it.Tags = NormalizeTags(v)
	case FieldDeleted:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: deleted=%q", common.ErrInvalidField, v)
		}
		it.Deleted = b
	default:
		return fmt.Errorf("%w: %q", common.ErrInvalidField, f)
	}
	return nil
}

// CopyField copies the value and metadata of f from src.
func (it *Item) CopyField(src *Item, f Field) {
	_ = it.SetValue(f, src.Value(f))
	*it.Meta.Get(f) = *src.Meta.Get(f)
}

// Clone returns a deep copy.
func (it *Item) Clone() *Item {
	c := *it
	return &c
}

// TagList splits the comma-joined tag set.
func (it *Item) TagList() []string {
	if it.Tags == "" {
		return nil
	}
	return strings.Split(it.Tags, ",")
}

// NormalizeTags trims, drops empties and duplicates, keeping first-seen order.
func NormalizeTags(s string) string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return strings.Join(out, ",")
}
