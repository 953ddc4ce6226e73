// Package merge reconciles admin bulk uploads with a persisted dataset,
// skipping incoming items whose text duplicates an existing item.
package merge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/reelscript/internal/model"
)

// Mode selects the merge strategy.
type Mode string

const (
	// SmartMerge skips incoming items that duplicate existing ones.
	SmartMerge Mode = "smart-merge"
	// Append concatenates without any duplicate checking.
	Append Mode = "append"
)

// ParseMode accepts "smart", "smart-merge" or "append".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "smart", "smart-merge":
		return SmartMerge, nil
	case "append":
		return Append, nil
	}
	return "", fmt.Errorf("%w: unknown merge mode %q (use smart-merge or append)", model.ErrValidation, s)
}

// RawItem is one entry of an uploaded JSON array. Which text field is
// canonical depends on the target category.
type RawItem struct {
	ID        string     `json:"id,omitempty"`
	Type      string     `json:"type,omitempty"`
	Text      string     `json:"text,omitempty"`
	Dialogue  string     `json:"dialogue,omitempty"`
	Caption   string     `json:"caption,omitempty"`
	Headline  string     `json:"headline,omitempty"`
	Situation string     `json:"situation,omitempty"`
	Tags      tagList    `json:"tags,omitempty"`
	Actor     string     `json:"actor,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// CanonicalText returns the field that identifies the item for category c.
func (r RawItem) CanonicalText(c model.Category) string {
	switch c.TextField() {
	case "caption":
		return r.Caption
	case "headline":
		return r.Headline
	default:
		return r.Text
	}
}

func (r RawItem) toItem(c model.Category, id string) model.ContentItem {
	return model.ContentItem{
		ID:        id,
		Category:  c,
		Text:      r.CanonicalText(c),
		Situation: r.Situation,
		Tags:      []string(r.Tags),
		Actor:     r.Actor,
		CreatedAt: r.CreatedAt,
	}
}

// tagList accepts either a JSON array or a comma-separated string.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = model.ParseTags(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*t = list
	return nil
}

// ParsePayload decodes an admin upload. The payload must be a JSON array.
func ParsePayload(data []byte) ([]RawItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: please enter JSON data", model.ErrValidation)
	}
	if trimmed[0] != '[' {
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("%w: payload is not valid JSON", model.ErrValidation)
		}
		return nil, fmt.Errorf("%w: data must be an array", model.ErrValidation)
	}
	var items []RawItem
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: parse payload: %v", model.ErrValidation, err)
	}
	return items, nil
}
