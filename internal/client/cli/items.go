package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

// resolve turns a user reference into an item id: "." is the current
// notebook, "root" and "conflicts" are literal, anything else is an id or
// a unique id prefix.
func (a *App) resolve(ctx context.Context, ref string) (string, error) {
	switch ref {
	case ".":
		cur, err := a.store.CurrentNotebook(ctx)
		if err != nil {
			return "", err
		}
		if cur == "" {
			return "", fmt.Errorf("no current notebook, pick one with 'use'")
		}
		return cur, nil
	case common.RootID:
		return common.RootID, nil
	}

	if ok, err := a.store.Exists(ctx, ref); err != nil {
		return "", err
	} else if ok {
		return ref, nil
	}

	all, err := a.store.All(ctx)
	if err != nil {
		return "", err
	}
	var match string
	for _, it := range all {
		if strings.HasPrefix(it.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("%q is ambiguous", ref)
			}
			match = it.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("item %q: %w", ref, common.ErrorNotFound)
	}
	return match, nil
}

func (a *App) cmdNotebooks(ctx context.Context, _ []string) error {
	nbs, err := a.store.Notebooks(ctx)
	if err != nil {
		return err
	}
	cur, err := a.store.CurrentNotebook(ctx)
	if err != nil {
		return err
	}
	if len(nbs) == 0 {
		printlnFn("No notebooks yet: new notebook root <title>")
		return nil
	}
	v, err := a.store.Values(ctx)
	if err != nil {
		return err
	}
	sortItems(nbs, v)
	for _, nb := range nbs {
		mark := " "
		if nb.ID == cur {
			mark = ">"
		}
		printlnFn(mark + " " + itemLine(nb))
	}
	return nil
}

func (a *App) cmdUse(ctx context.Context, args []string) error {
	id, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	return a.store.SetCurrentNotebook(ctx, id)
}

// listTarget is args[0] when given, else the current notebook, else root.
func (a *App) listTarget(ctx context.Context, args []string) (string, error) {
	if len(args) > 0 {
		return a.resolve(ctx, args[0])
	}
	cur, err := a.store.CurrentNotebook(ctx)
	if err != nil {
		return "", err
	}
	if cur == "" {
		return common.RootID, nil
	}
	return cur, nil
}

func (a *App) cmdList(ctx context.Context, args []string) error {
	id, err := a.listTarget(ctx, args)
	if err != nil {
		return err
	}
	children, err := a.store.Children(ctx, id)
	if err != nil {
		return err
	}
	v, err := a.store.Values(ctx)
	if err != nil {
		return err
	}
	sortItems(children, v)
	for _, c := range children {
		printlnFn(itemLine(c))
	}
	return nil
}

func (a *App) cmdTree(ctx context.Context, args []string) error {
	id, err := a.listTarget(ctx, args)
	if err != nil {
		return err
	}
	v, err := a.store.Values(ctx)
	if err != nil {
		return err
	}

	var walk func(id string, depth int) error
	walk = func(id string, depth int) error {
		children, err := a.store.Children(ctx, id)
		if err != nil {
			return err
		}
		sortItems(children, v)
		for _, c := range children {
			printlnFn(strings.Repeat("  ", depth) + itemLine(c))
			if err := walk(c.ID, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(id, 0)
}

func (a *App) cmdNew(ctx context.Context, args []string) error {
	kind, err := models.ParseItemType(args[0])
	if err != nil {
		return err
	}
	parent, err := a.resolve(ctx, args[1])
	if err != nil {
		return err
	}

	it, err := a.store.Create(ctx, kind, parent)
	if err != nil {
		return err
	}
	if len(args) > 2 {
		if err := a.store.SetField(ctx, it.ID, models.FieldTitle, strings.Join(args[2:], " ")); err != nil {
			return err
		}
	}
	printlnFn("Created", kind.String(), it.ID)
	return nil
}

func (a *App) setField(ctx context.Context, ref string, f models.Field, value string) error {
	id, err := a.resolve(ctx, ref)
	if err != nil {
		return err
	}
	return a.store.SetField(ctx, id, f, value)
}

func (a *App) cmdTitle(ctx context.Context, args []string) error {
	return a.setField(ctx, args[0], models.FieldTitle, strings.Join(args[1:], " "))
}

func (a *App) cmdContent(ctx context.Context, args []string) error {
	text := strings.Join(args[1:], " ")
	if len(args) == 1 {
		var err error
		if text, err = GetMultiline(a.reader, "Enter content"); err != nil {
			return err
		}
	}
	return a.setField(ctx, args[0], models.FieldContent, text)
}

func (a *App) cmdTags(ctx context.Context, args []string) error {
	return a.setField(ctx, args[0], models.FieldTags, strings.Join(args[1:], ","))
}

func (a *App) cmdTrash(ctx context.Context, args []string) error {
	value := "true"
	if len(args) > 1 && args[1] == "off" {
		value = "false"
	}
	return a.setField(ctx, args[0], models.FieldDeleted, value)
}

func (a *App) cmdMove(ctx context.Context, args []string) error {
	id, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	parent, err := a.resolve(ctx, args[1])
	if err != nil {
		return err
	}
	return a.store.SetParent(ctx, id, parent)
}

func (a *App) cmdRemove(ctx context.Context, args []string) error {
	up := false
	if args[0] == "-up" {
		up = true
		args = args[1:]
		if len(args) == 0 {
			return fmt.Errorf("usage: rm [-up] <item>")
		}
	}
	id, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	return a.store.Delete(ctx, id, up)
}

func (a *App) cmdShow(ctx context.Context, args []string) error {
	id, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	it, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("%s %s %q", it.Type, it.ID, it.Title))
	printlnFn("  parent:  ", it.Parent)
	printlnFn("  notebook:", it.Notebook)
	if it.Tags != "" {
		printlnFn("  tags:    ", it.Tags)
	}
	if it.Deleted {
		printlnFn("  in trash")
	}
	if it.IsConflict() {
		printlnFn("  conflict copy of", it.Conflict)
	}
	printlnFn("  created: ", formatMillis(it.Created))
	printlnFn("  updated: ", formatMillis(it.Updated))
	for _, f := range models.SyncedFields {
		printlnFn(fmt.Sprintf("  %-8s  changed %s", f, formatMillis(it.Meta.Get(f).Updated)))
	}
	if it.Content != "" {
		printlnFn()
		printlnFn(it.Content)
	}
	return nil
}

func (a *App) cmdPath(ctx context.Context, args []string) error {
	id, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}
	crumbs, err := a.store.Breadcrumb(ctx, id)
	if err != nil {
		return err
	}
	titles := make([]string, 0, len(crumbs))
	for _, c := range crumbs {
		titles = append(titles, displayTitle(c))
	}
	printlnFn(strings.Join(titles, " / "))
	return nil
}

func (a *App) cmdSort(ctx context.Context, args []string) error {
	switch args[0] {
	case sortByTitle, sortByCreated, sortByUpdated:
	default:
		return fmt.Errorf("%w: sort by %q", common.ErrInvalidField, args[0])
	}
	desc := len(args) > 1 && args[1] == "desc"
	return a.store.SetDefaultSort(ctx, args[0], desc)
}

func (a *App) cmdChanges(ctx context.Context, _ []string) error {
	changes, err := a.store.Changes(ctx)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		printlnFn("No pending changes")
		return nil
	}
	for _, c := range changes {
		line := fmt.Sprintf("%s %-6s %s", formatMillis(c.Timestamp), c.Kind, c.Item)
		if c.Field != "" {
			line += " " + string(c.Field)
		}
		printlnFn(line)
	}
	return nil
}
