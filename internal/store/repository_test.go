package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rcliao/reelscript/internal/model"
	"github.com/rcliao/reelscript/internal/usage"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(newTestStore(t))
}

func TestDatasetRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	items, err := r.Dataset(ctx, model.Meme)
	if err != nil || items != nil {
		t.Fatalf("empty dataset = %v, %v", items, err)
	}

	in := []model.ContentItem{
		{ID: "meme_1", Category: model.Meme, Text: "Brahmi face", Situation: "shock", Tags: []string{"reaction"}},
	}
	if err := r.SaveDataset(ctx, model.Meme, in, "smart-merge"); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := r.Dataset(ctx, model.Meme)
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	if len(got) != 1 || got[0].Text != "Brahmi face" || got[0].Category != model.Meme {
		t.Errorf("got %+v", got)
	}

	info, err := r.DatasetInfo(ctx, model.Meme)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Count != 1 || info.LastMergeMode != "smart-merge" || info.UpdatedAt.IsZero() {
		t.Errorf("info = %+v", info)
	}

	raw, err := r.ExportDataset(ctx, model.Meme)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var exported []map[string]any
	if err := json.Unmarshal(raw, &exported); err != nil {
		t.Fatalf("exported JSON: %v", err)
	}
	if len(exported) != 1 || exported[0]["caption"] != "Brahmi face" {
		t.Errorf("exported = %s", raw)
	}

	if err := r.SaveDataset(ctx, model.Category("gif"), nil, ""); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestContributions(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	_, err := r.AddContribution(ctx, model.ContentItem{Category: model.Dialogue, Text: "  "})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	added, err := r.AddContribution(ctx, model.ContentItem{
		Category: model.Dialogue, Text: "Nenu saitam", Situation: "volunteering", Tags: model.ParseTags("help, mass"),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.ID == "" || added.CreatedAt == nil {
		t.Errorf("id/createdAt not set: %+v", added)
	}
	r.AddContribution(ctx, model.ContentItem{Category: model.Trend, Text: "IPL final", Situation: "cricket"})

	dialogues, err := r.Contributions(ctx, model.Dialogue)
	if err != nil {
		t.Fatalf("contributions: %v", err)
	}
	if len(dialogues) != 1 || dialogues[0].Text != "Nenu saitam" || dialogues[0].ID != added.ID {
		t.Errorf("dialogues = %+v", dialogues)
	}
	if len(dialogues[0].Tags) != 2 {
		t.Errorf("tags = %v", dialogues[0].Tags)
	}

	doc, err := r.Docs().Get(ctx, CollectionContentItems, added.ID)
	if err != nil {
		t.Fatalf("get raw: %v", err)
	}
	var body map[string]any
	json.Unmarshal(doc.Body, &body)
	if body["dialogue"] != "Nenu saitam" || body["type"] != "dialogue" {
		t.Errorf("stored body = %s", doc.Body)
	}
}

func TestCachedBatches(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	key := model.BatchKey{Topic: "exam results", Filter: "Comedy"}
	scripts := []model.GeneratedScript{{Hook: "h", Context: "c", Punchline: "p", Caption: "cap"}}

	first, err := r.SaveBatch(ctx, key, scripts, time.Hour)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.ID == "" || !first.ExpiresAt.After(first.CreatedAt) {
		t.Errorf("batch = %+v", first)
	}
	second, _ := r.SaveBatch(ctx, key, scripts, -time.Hour)
	r.SaveBatch(ctx, model.BatchKey{Topic: "exam results", Filter: "Savage"}, scripts, time.Hour)

	got, err := r.CachedBatches(ctx, key)
	if err != nil {
		t.Fatalf("cached: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d batches, want 2", len(got))
	}
	if got[0].ID != second.ID {
		t.Errorf("expected newest first, got %s", got[0].ID)
	}
	if got[1].Scripts[0].Hook != "h" || got[1].Key != key {
		t.Errorf("batch = %+v", got[1])
	}

	n, err := r.PurgeExpiredBatches(ctx)
	if err != nil || n != 1 {
		t.Fatalf("purge = %d, %v", n, err)
	}
	if err := r.DeleteBatch(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := r.CachedBatches(ctx, key); len(got) != 0 {
		t.Errorf("remaining = %+v", got)
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	s, err := r.Settings(ctx)
	if err != nil || !s.UseAI {
		t.Fatalf("default settings = %+v, %v", s, err)
	}
	if _, err := r.SaveSettings(ctx, model.Settings{UseAI: false}); err != nil {
		t.Fatalf("save: %v", err)
	}
	s, _ = r.Settings(ctx)
	if s.UseAI || s.UpdatedAt.IsZero() {
		t.Errorf("settings = %+v", s)
	}
}

func TestRecordGeneration(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	r.RecordGeneration(ctx, "Exam Results", true, true)
	r.RecordGeneration(ctx, "exam results ", false, false)
	r.RecordGeneration(ctx, "", false, true)

	m, err := r.Metrics(ctx)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.ScriptsGenerated != 3 || m.AIModeUsage != 1 || m.RuleModeUsage != 2 || m.DatasetHits != 2 || m.DatasetMisses != 1 {
		t.Errorf("metrics = %+v", m)
	}
	topics, _ := r.TopicCounts(ctx)
	if topics["exam results"] != 2 || len(topics) != 1 {
		t.Errorf("topics = %v", topics)
	}
}

func TestUsagePersistence(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	tr := usage.NewTracker(usage.DefaultRates)
	tr.Add(100, 40)
	if err := r.SaveUsage(ctx, tr.Snapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := r.Usage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if got.TotalRequests != 1 || got.InputTokens != 100 || got.OutputTokens != 40 {
		t.Errorf("usage = %+v", got)
	}
}

func TestRepositoryOnDynamo(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(newDynamoStore(newFakeDynamo(), "reelscript"))
	key := model.BatchKey{Topic: "monsoon", Filter: "Romantic"}
	if _, err := r.SaveBatch(ctx, key, []model.GeneratedScript{{Hook: "h"}}, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := r.CachedBatches(ctx, key)
	if err != nil || len(got) != 1 {
		t.Fatalf("cached = %+v, %v", got, err)
	}
	if got[0].Scripts[0].Hook != "h" {
		t.Errorf("batch = %+v", got[0])
	}
}
