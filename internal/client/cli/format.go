package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

const (
	sortByTitle   = "title"
	sortByCreated = "created"
	sortByUpdated = "updated"
)

// sortItems orders items by the synchronized default sort.
func sortItems(items []*models.Item, v models.Values) {
	less := func(x, y *models.Item) bool {
		switch v.DefaultSortBy {
		case sortByCreated:
			return x.Created < y.Created
		case sortByUpdated:
			return x.Updated < y.Updated
		default:
			return strings.ToLower(x.Title) < strings.ToLower(y.Title)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if v.DefaultSortDesc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func displayTitle(it *models.Item) string {
	if it.Title == "" {
		return "(untitled)"
	}
	return it.Title
}

// itemLine renders one listing row. Trashed items are marked with '~',
// conflict copies with '!'.
func itemLine(it *models.Item) string {
	var flags string
	if it.Deleted {
		flags += "~"
	}
	if it.IsConflict() {
		flags += "!"
	}
	line := fmt.Sprintf("%-8s %-8s %s%s", shortID(it.ID), it.Type, flags, displayTitle(it))
	if it.Tags != "" {
		line += " [" + it.Tags + "]"
	}
	if it.Preview != "" {
		line += " - " + it.Preview
	}
	return line
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04:05")
}
