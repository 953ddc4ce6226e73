// Package dataset assembles the reference pools the relevance matcher draws
// from: the persisted dataset plus contributions, or a built-in dataset when
// nothing usable is stored.
package dataset

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rcliao/reelscript/internal/model"
	"github.com/rcliao/reelscript/internal/store"
)

//go:embed data/*.json
var embedded embed.FS

// Embedded returns the built-in items for a category.
func Embedded(c model.Category) ([]model.ContentItem, error) {
	raw, err := embedded.ReadFile("data/" + c.Collection() + ".json")
	if err != nil {
		return nil, fmt.Errorf("embedded dataset %q: %w", c, err)
	}
	var items []model.ContentItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode embedded dataset %q: %w", c, err)
	}
	for i := range items {
		items[i].Category = c
	}
	return items, nil
}

// Source is the persisted side of a pool.
type Source interface {
	Dataset(ctx context.Context, c model.Category) ([]model.ContentItem, error)
	Contributions(ctx context.Context, c model.Category) ([]model.ContentItem, error)
}

// Pools holds one pool per category.
type Pools map[model.Category][]model.ContentItem

// All concatenates every pool in category order.
func (p Pools) All() []model.ContentItem {
	var out []model.ContentItem
	for _, c := range model.Categories() {
		out = append(out, p[c]...)
	}
	return out
}

// Loader builds pools from a Source.
type Loader struct {
	src Source
}

// NewLoader creates a loader. A nil source serves the embedded dataset only.
func NewLoader(src Source) *Loader {
	return &Loader{src: src}
}

// Pool returns the persisted dataset and contributions for c. Persistence
// failures are logged and treated as empty; an empty result falls back to the
// embedded dataset.
func (l *Loader) Pool(ctx context.Context, c model.Category) []model.ContentItem {
	var items []model.ContentItem
	if l.src != nil {
		items = append(items, store.WithFallback(ctx, "load dataset "+string(c), func(ctx context.Context) ([]model.ContentItem, error) {
			return l.src.Dataset(ctx, c)
		}, nil)...)
		items = append(items, store.WithFallback(ctx, "load contributions "+string(c), func(ctx context.Context) ([]model.ContentItem, error) {
			return l.src.Contributions(ctx, c)
		}, nil)...)
	}
	if len(items) > 0 {
		return items
	}

	builtin, err := Embedded(c)
	if err != nil {
		slog.Error("embedded dataset unavailable", slog.String("category", string(c)), slog.String("error", err.Error()))
		return nil
	}
	slog.Debug("using embedded dataset", slog.String("category", string(c)), slog.Int("items", len(builtin)))
	return builtin
}

// Pools loads every category.
func (l *Loader) Pools(ctx context.Context) Pools {
	p := make(Pools, len(model.Categories()))
	for _, c := range model.Categories() {
		p[c] = l.Pool(ctx, c)
	}
	return p
}
