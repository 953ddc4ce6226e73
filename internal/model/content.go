// Package model defines the core content and script data types.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrValidation marks user input that was rejected. The message is safe to show.
var ErrValidation = errors.New("invalid input")

// Category is the closed set of content item kinds.
type Category string

const (
	Dialogue Category = "dialogue"
	Meme     Category = "meme"
	Trend    Category = "trend"
)

// categoryInfo holds everything that varies by category. Adding a category
// means adding one row here.
type categoryInfo struct {
	Collection string // dataset name, e.g. "dialogues"
	TextField  string // raw field holding the canonical text
	IDPrefix   string
}

var categories = map[Category]categoryInfo{
	Dialogue: {Collection: "dialogues", TextField: "text", IDPrefix: "dlg"},
	Meme:     {Collection: "memes", TextField: "caption", IDPrefix: "meme"},
	Trend:    {Collection: "trends", TextField: "headline", IDPrefix: "trend"},
}

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{Dialogue, Meme, Trend}
}

// ParseCategory accepts either the singular tag or the collection name.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, info := range categories {
		if s == string(c) || s == info.Collection {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q (use dialogue, meme or trend)", ErrValidation, s)
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// Collection returns the dataset name for the category.
func (c Category) Collection() string { return categories[c].Collection }

// TextField returns the raw field name holding the canonical text.
func (c Category) TextField() string { return categories[c].TextField }

// IDPrefix returns the prefix used for generated ids.
func (c Category) IDPrefix() string { return categories[c].IDPrefix }

// ContentItem is a reference snippet usable as generation material.
// Text is persisted under the category's text field (text, caption or headline).
type ContentItem struct {
	ID        string     `json:"id"`
	Category  Category   `json:"type"`
	Text      string     `json:"-"`
	Situation string     `json:"situation,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Actor     string     `json:"actor,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type contentItemJSON struct {
	ID        string     `json:"id"`
	Type      Category   `json:"type"`
	Text      string     `json:"text,omitempty"`
	Caption   string     `json:"caption,omitempty"`
	Headline  string     `json:"headline,omitempty"`
	Dialogue  string     `json:"dialogue,omitempty"`
	Situation string     `json:"situation,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Actor     string     `json:"actor,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// MarshalJSON writes Text under the category's text field.
func (c ContentItem) MarshalJSON() ([]byte, error) {
	out := contentItemJSON{
		ID:        c.ID,
		Type:      c.Category,
		Situation: c.Situation,
		Tags:      c.Tags,
		Actor:     c.Actor,
		CreatedAt: c.CreatedAt,
	}
	switch c.Category.TextField() {
	case "caption":
		out.Caption = c.Text
	case "headline":
		out.Headline = c.Text
	default:
		out.Text = c.Text
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the category's text field, falling back to the
// "dialogue" field used by contributed items.
func (c *ContentItem) UnmarshalJSON(data []byte) error {
	var in contentItemJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = ContentItem{
		ID:        in.ID,
		Category:  in.Type,
		Situation: in.Situation,
		Tags:      in.Tags,
		Actor:     in.Actor,
		CreatedAt: in.CreatedAt,
	}
	switch in.Type.TextField() {
	case "caption":
		c.Text = in.Caption
	case "headline":
		c.Text = in.Headline
	default:
		c.Text = in.Text
	}
	if c.Text == "" {
		c.Text = firstNonEmpty(in.Dialogue, in.Text, in.Caption, in.Headline)
	}
	return nil
}

// HasTag reports whether any tag contains sub, ignoring case.
func (c ContentItem) HasTag(sub string) bool {
	sub = strings.ToLower(strings.TrimSpace(sub))
	if sub == "" {
		return false
	}
	for _, t := range c.Tags {
		if strings.Contains(strings.ToLower(t), sub) {
			return true
		}
	}
	return false
}

// ParseTags splits a comma-separated list, dropping blanks.
func ParseTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
