package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

var errInvalidEntry = errors.New("invalid journal entry")

// Violation describes one broken journal invariant.
type Violation struct {
	Item   string
	Reason string
}

func (v Violation) String() string {
	return v.Item + ": " + v.Reason
}

// Verify checks the journal against the current items. It never modifies
// anything.
func (j *Journal) Verify(ctx context.Context, items []*models.Item) ([]Violation, error) {
	all, err := j.changes.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(items))
	for _, it := range items {
		known[it.ID] = true
	}

	byItem := groupByItem(all)
	var out []Violation
	for _, id := range sortedKeys(byItem) {
		out = append(out, checkItem(id, byItem[id], known[id])...)
	}
	return out, nil
}

func checkItem(id string, entries []*models.Change, exists bool) []Violation {
	var (
		out     []Violation
		adds    int
		deletes int
		updates = make(map[models.Field]int)
	)
	add := func(reason string) { out = append(out, Violation{Item: id, Reason: reason}) }

	for _, c := range entries {
		switch c.Kind {
		case models.ChangeAdd:
			adds++
			if c.Field != "" {
				add("add entry carries a field")
			}
		case models.ChangeDelete:
			deletes++
			if c.Field != "" {
				add("delete entry carries a field")
			}
		case models.ChangeUpdate:
			if _, err := models.ParseField(string(c.Field)); err != nil {
				add(fmt.Sprintf("update of unknown field %q", c.Field))
			}
			updates[c.Field]++
		default:
			add(fmt.Sprintf("unknown change kind %q", c.Kind))
		}
	}

	if adds > 1 {
		add("duplicate add")
	}
	if deletes > 1 {
		add("duplicate delete")
	}
	if adds > 0 && deletes > 0 {
		add("add and delete pair")
	}
	if (adds > 0 || deletes > 0) && len(updates) > 0 {
		add("update next to add or delete")
	}
	for f, n := range updates {
		if n > 1 {
			add(fmt.Sprintf("duplicate update of %s", f))
		}
	}
	if !exists && (adds > 0 || len(updates) > 0) {
		add("entry for missing item")
	}
	if exists && deletes > 0 {
		add("delete for existing item")
	}
	return out
}

// VerifyAndHeal runs Verify and, on any violation, rebuilds the journal from
// the store. The returned error wraps common.ErrJournalCorruption when a heal
// happened; callers log it and carry on.
func (j *Journal) VerifyAndHeal(ctx context.Context, items []*models.Item) error {
	violations, err := j.Verify(ctx, items)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		return nil
	}

	reasons := make([]string, 0, len(violations))
	for _, v := range violations {
		reasons = append(reasons, v.String())
	}
	j.log.Warn(ctx, "journal corruption detected", "violations", len(violations))

	if err := j.Heal(ctx, items); err != nil {
		return fmt.Errorf("failed to heal journal: %w", err)
	}
	return fmt.Errorf("%w: healed %s", common.ErrJournalCorruption, strings.Join(reasons, "; "))
}

// Heal replaces the journal with entries derived from the store: items never
// synced get an add, synced items get an update per field that differs from
// its baseline, and items that only exist in the old journal get a delete.
// Existing timestamps are preserved where possible.
func (j *Journal) Heal(ctx context.Context, items []*models.Item) error {
	all, err := j.changes.List(ctx)
	if err != nil {
		return err
	}
	byItem := groupByItem(all)

	if err := j.changes.Clear(ctx); err != nil {
		return err
	}

	present := make(map[string]bool, len(items))
	for _, it := range items {
		present[it.ID] = true
		old := byItem[it.ID]

		if it.NeverSynced() {
			ts := max(latest(old), it.LastFieldUpdate())
			if err := j.insert(ctx, it.ID, models.ChangeAdd, "", ts); err != nil {
				return err
			}
			continue
		}
		for _, f := range it.DirtyFields() {
			ts := it.Meta.Get(f).Updated
			for _, c := range old {
				if c.Kind == models.ChangeUpdate && c.Field == f && c.Timestamp > ts {
					ts = c.Timestamp
				}
			}
			if err := j.insert(ctx, it.ID, models.ChangeUpdate, f, ts); err != nil {
				return err
			}
		}
	}

	for _, id := range sortedKeys(byItem) {
		if present[id] {
			continue
		}
		if err := j.insert(ctx, id, models.ChangeDelete, "", latest(byItem[id])); err != nil {
			return err
		}
	}
	return nil
}

func groupByItem(all []*models.Change) map[string][]*models.Change {
	m := make(map[string][]*models.Change)
	for _, c := range all {
		m[c.Item] = append(m[c.Item], c)
	}
	return m
}

func sortedKeys(m map[string][]*models.Change) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func latest(entries []*models.Change) int64 {
	var ts int64
	for _, c := range entries {
		if c.Timestamp > ts {
			ts = c.Timestamp
		}
	}
	return ts
}
