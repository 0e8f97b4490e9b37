// Package snapshot implements the content codec that turns a collection
// into the opaque string handed to remote drivers, and back.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

// Snapshot is a whole collection as exchanged with a remote.
type Snapshot struct {
	Items  []*models.Item
	Values models.Values
	// Updated is the sender's lastLocalChange at the time of the push.
	Updated int64
	Version int
}

// Index returns the items keyed by id.
func (s *Snapshot) Index() map[string]*models.Item {
	m := make(map[string]*models.Item, len(s.Items))
	for _, it := range s.Items {
		m[it.ID] = it
	}
	return m
}

// Codec serializes snapshots.
type Codec interface {
	Encode(s *Snapshot) (string, error)
	Decode(content string) (*Snapshot, error)
}

// JSONCodec writes the compact JSON format with minimized keys.
type JSONCodec struct{}

func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

type wireMeta struct {
	U int64  `json:"u"`
	H uint64 `json:"h"`
}

type wireItem struct {
	ID           string   `json:"i"`
	Type         string   `json:"ty"`
	Parent       string   `json:"p"`
	ParentMeta   wireMeta `json:"P"`
	Notebook     string   `json:"nb,omitempty"`
	NotebookMeta wireMeta `json:"NB"`
	Title        string   `json:"t"`
	TitleMeta    wireMeta `json:"T"`
	Content      string   `json:"c,omitempty"`
	ContentMeta  wireMeta `json:"C"`
	Preview      string   `json:"pw,omitempty"`
	Tags         string   `json:"ta,omitempty"`
	TagsMeta     wireMeta `json:"TA"`
	Deleted      bool     `json:"d,omitempty"`
	DeletedMeta  wireMeta `json:"D"`
	Created      int64    `json:"cr"`
	Updated      int64    `json:"u"`
	Conflict     string   `json:"cf,omitempty"`
}

type wireSnapshot struct {
	Items   []wireItem    `json:"i"`
	Values  models.Values `json:"o"`
	Updated int64         `json:"u"`
	Version int           `json:"v"`
}

func toWireMeta(m models.FieldMeta) wireMeta {
	return wireMeta{U: m.Updated, H: m.Hash}
}

func fromWireMeta(w wireMeta) models.FieldMeta {
	return models.FieldMeta{Updated: w.U, Hash: w.H}
}

// Encode writes items sorted by id so equal collections encode equally.
// Merge baselines are local bookkeeping and are not written.
func (c *JSONCodec) Encode(s *Snapshot) (string, error) {
	items := make([]wireItem, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, wireItem{
			ID:           it.ID,
			Type:         string(it.Type),
			Parent:       it.Parent,
			ParentMeta:   toWireMeta(it.Meta.Parent),
			Notebook:     it.Notebook,
			NotebookMeta: toWireMeta(it.Meta.Notebook),
			Title:        it.Title,
			TitleMeta:    toWireMeta(it.Meta.Title),
			Content:      it.Content,
			ContentMeta:  toWireMeta(it.Meta.Content),
			Preview:      it.Preview,
			Tags:         it.Tags,
			TagsMeta:     toWireMeta(it.Meta.Tags),
			Deleted:      it.Deleted,
			DeletedMeta:  toWireMeta(it.Meta.Deleted),
			Created:      it.Created,
			Updated:      it.Updated,
			Conflict:     it.Conflict,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	version := s.Version
	if version == 0 {
		version = common.ModelVersion
	}

	b, err := json.Marshal(wireSnapshot{Items: items, Values: s.Values, Updated: s.Updated, Version: version})
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(b), nil
}

// Decode parses content. Empty content is an empty collection.
func (c *JSONCodec) Decode(content string) (*Snapshot, error) {
	if strings.TrimSpace(content) == "" {
		return &Snapshot{Version: common.ModelVersion}, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	dec.DisallowUnknownFields()

	var w wireSnapshot
	if err := dec.Decode(&w); err != nil {
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			return nil, schemaError(err.Error())
		}
		return nil, fmt.Errorf("%w: %w", common.ErrMalformedSnapshot, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", common.ErrMalformedSnapshot)
	}
	if w.Version > common.ModelVersion {
		return nil, schemaError(fmt.Sprintf("model version %d is newer than %d", w.Version, common.ModelVersion))
	}

	s := &Snapshot{Values: w.Values, Updated: w.Updated, Version: w.Version, Items: make([]*models.Item, 0, len(w.Items))}
	seen := make(map[string]struct{}, len(w.Items))
	for _, wi := range w.Items {
		if wi.ID == "" {
			return nil, fmt.Errorf("%w: item without id", common.ErrMalformedSnapshot)
		}
		if _, dup := seen[wi.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item %s", common.ErrMalformedSnapshot, wi.ID)
		}
		seen[wi.ID] = struct{}{}

		kind := models.ItemType(wi.Type)
		if !kind.Valid() {
			return nil, schemaError(fmt.Sprintf("item %s has unknown kind %q", wi.ID, wi.Type))
		}

		it := &models.Item{
			ID:       wi.ID,
			Type:     kind,
			Parent:   wi.Parent,
			Notebook: wi.Notebook,
			Title:    wi.Title,
			Content:  wi.Content,
			Preview:  wi.Preview,
			Tags:     wi.Tags,
			Deleted:  wi.Deleted,
			Created:  wi.Created,
			Updated:  wi.Updated,
			Conflict: wi.Conflict,
			Meta: models.Meta{
				Parent:   fromWireMeta(wi.ParentMeta),
				Notebook: fromWireMeta(wi.NotebookMeta),
				Title:    fromWireMeta(wi.TitleMeta),
				Content:  fromWireMeta(wi.ContentMeta),
				Tags:     fromWireMeta(wi.TagsMeta),
				Deleted:  fromWireMeta(wi.DeletedMeta),
			},
		}
		it.Rehash()
		if it.Preview == "" && it.Content != "" {
			it.Preview = models.MakePreview(it.Content, models.PreviewLength)
		}
		s.Items = append(s.Items, it)
	}

	return s, nil
}

func schemaError(detail string) error {
	return fmt.Errorf("%w: %w: %s", common.ErrConflictingSchema, common.ErrMalformedSnapshot, detail)
}

// IsMalformed reports whether err came from decoding a bad snapshot.
func IsMalformed(err error) bool {
	return errors.Is(err, common.ErrMalformedSnapshot)
}
