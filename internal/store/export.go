package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rcliao/reelscript/internal/model"
)

// ExportDataset returns the persisted dataset for a category as an indented
// JSON array in the same shape the merge command accepts.
func (r *Repository) ExportDataset(ctx context.Context, c model.Category) ([]byte, error) {
	items, err := r.Dataset(ctx, c)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.ContentItem{}
	}
	out, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", c.Collection(), err)
	}
	return out, nil
}

// ExportContributions returns every contributed item grouped by category.
func (r *Repository) ExportContributions(ctx context.Context) (map[model.Category][]model.ContentItem, error) {
	out := make(map[model.Category][]model.ContentItem, len(model.Categories()))
	for _, c := range model.Categories() {
		items, err := r.Contributions(ctx, c)
		if err != nil {
			return nil, err
		}
		out[c] = items
	}
	return out, nil
}
