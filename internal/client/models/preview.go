package models

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// PreviewLength is the default preview size in runes.
const PreviewLength = 80

// MakePreview derives a plain-text excerpt of content. Rich-text payloads
// stored as JSON contribute the concatenation of their "text" leaves; any
// other content is used as is. Whitespace is collapsed.
func MakePreview(content string, limit int) string {
	if limit <= 0 {
		limit = PreviewLength
	}

	text := content
	var doc any
	if strings.HasPrefix(strings.TrimSpace(content), "{") && json.Unmarshal([]byte(content), &doc) == nil {
		var parts []string
		collectText(doc, &parts)
		text = strings.Join(parts, " ")
	}

	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}

func collectText(node any, parts *[]string) {
	switch v := node.(type) {
	case map[string]any:
		if s, ok := v["text"].(string); ok {
			*parts = append(*parts, s)
		}
		if children, ok := v["children"]; ok {
			collectText(children, parts)
		}
		if root, ok := v["root"]; ok {
			collectText(root, parts)
		}
	case []any:
		for _, c := range v {
			collectText(c, parts)
		}
	}
}
