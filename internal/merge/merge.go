package merge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/reelscript/internal/model"
	"github.com/rcliao/reelscript/internal/textsim"
)

// Stats summarizes one merge.
type Stats struct {
	InputItems        int `json:"inputItems"`
	NewItemsAdded     int `json:"newItemsAdded"`
	DuplicatesSkipped int `json:"duplicatesSkipped"`
	TotalItems        int `json:"totalItems"`
}

// Result is the merged dataset plus its statistics.
type Result struct {
	Merged []model.ContentItem `json:"merged"`
	Stats  Stats               `json:"stats"`
	Mode   Mode                `json:"mode"`
}

// Engine merges incoming items into existing datasets.
type Engine struct {
	newID       func(model.Category) string
	withinBatch bool
}

// Option customizes the engine.
type Option func(*Engine)

// WithIDGenerator overrides how ids are assigned to new items.
func WithIDGenerator(fn func(model.Category) string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithinBatch also checks each incoming item against items already accepted
// from the same upload. Off by default, where only existing items count.
func WithinBatch(enabled bool) Option {
	return func(e *Engine) {
		e.withinBatch = enabled
	}
}

// NewEngine constructs a merge engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{newID: NewID}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewID returns a category-prefixed ULID.
func NewID(c model.Category) string {
	return c.IDPrefix() + "_" + strings.ToLower(ulid.Make().String())
}

// Merge returns existing followed by the accepted incoming items. existing is
// never modified.
func (e *Engine) Merge(existing []model.ContentItem, incoming []RawItem, category model.Category, mode Mode) (Result, error) {
	if !category.Valid() {
		return Result{}, fmt.Errorf("merge: unknown category %q", category)
	}
	if mode != SmartMerge && mode != Append {
		return Result{}, fmt.Errorf("merge: unknown mode %q", mode)
	}
	for i, raw := range incoming {
		if raw.Type == "" {
			continue
		}
		c, err := model.ParseCategory(raw.Type)
		if err != nil || c != category {
			return Result{}, fmt.Errorf("%w: item %d has type %q, expected %q", model.ErrValidation, i, raw.Type, category)
		}
	}

	merged := make([]model.ContentItem, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	var seen []string
	if mode == SmartMerge {
		seen = make([]string, 0, len(existing))
		for _, item := range existing {
			seen = append(seen, textsim.Normalize(item.Text))
		}
	}
	existingCount := len(seen)

	stats := Stats{InputItems: len(incoming)}
	for _, raw := range incoming {
		norm := textsim.Normalize(raw.CanonicalText(category))
		if mode == SmartMerge {
			limit := existingCount
			if e.withinBatch {
				limit = len(seen)
			}
			if isDuplicate(norm, seen[:limit]) {
				stats.DuplicatesSkipped++
				continue
			}
			seen = append(seen, norm)
		}

		id := raw.ID
		if id == "" {
			id = e.newID(category)
		}
		merged = append(merged, raw.toItem(category, id))
		stats.NewItemsAdded++
	}
	stats.TotalItems = len(merged)

	return Result{Merged: merged, Stats: stats, Mode: mode}, nil
}

// isDuplicate reports whether norm matches any candidate. Empty text never
// matches so items missing their text field are not collapsed together.
func isDuplicate(norm string, candidates []string) bool {
	if norm == "" {
		return false
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if textsim.Similarity(c, norm) >= textsim.DuplicateThreshold {
			return true
		}
	}
	return false
}

// ErrEmptyUpload is returned by callers that require at least one item.
var ErrEmptyUpload = errors.New("upload contains no items")
