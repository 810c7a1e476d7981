package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Item is one catalog product. Only id, title and description are interpreted;
// the full upstream record is kept verbatim and returned unchanged.
type Item struct {
	id          string
	title       string
	description string
	raw         json.RawMessage
}

// NewItem creates an item without an upstream record.
func NewItem(id, title, description string) Item {
	return Item{id: id, title: title, description: description}
}

// ID returns the catalog identifier (numeric ids are rendered as text).
func (i Item) ID() string { return i.id }

// Title returns the jew_title field.
func (i Item) Title() string { return i.title }

// Description returns the jew_desc field.
func (i Item) Description() string { return i.description }

// TitleContains reports whether the title contains term, ignoring case.
func (i Item) TitleContains(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || i.title == "" {
		return false
	}
	return strings.Contains(strings.ToLower(i.title), term)
}

type itemDTO struct {
	ID          json.RawMessage `json:"id"`
	Title       *string         `json:"jew_title"`
	Description *string         `json:"jew_desc"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Item) UnmarshalJSON(data []byte) error {
	var dto itemDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return fmt.Errorf("decode catalog item: %w", err)
	}

	id, err := decodeID(dto.ID)
	if err != nil {
		return err
	}

	*i = Item{id: id, raw: append(json.RawMessage(nil), data...)}
	if dto.Title != nil {
		i.title = *dto.Title
	}
	if dto.Description != nil {
		i.description = *dto.Description
	}
	return nil
}

// MarshalJSON returns the upstream record when present.
func (i Item) MarshalJSON() ([]byte, error) {
	if len(i.raw) > 0 {
		return i.raw, nil
	}
	return json.Marshal(struct {
		ID          string `json:"id"`
		Title       string `json:"jew_title"`
		Description string `json:"jew_desc"`
	}{i.id, i.title, i.description})
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decode catalog item id: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("decode catalog item id: %w", err)
	}
	return n.String(), nil
}

// Key identifies the item for deduplication: the id, or the record content when
// the upstream omitted one.
func (i Item) Key() string {
	if i.id != "" {
		return "id:" + i.id
	}
	if len(i.raw) > 0 {
		return "raw:" + string(i.raw)
	}
	return "doc:" + i.title + "\x00" + i.description
}

// Dedupe returns items with repeated keys removed, keeping first occurrences in order.
func Dedupe(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		k := it.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}
