package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/rcliao/reelscript/internal/model"
	"github.com/rcliao/reelscript/internal/usage"
)

// Fixed document ids.
const (
	settingsGeneratorID = "generator"
	metricsID           = "metrics"
	topicsID            = "topics"
	usageID             = "usage"
)

// Repository maps domain types onto documents.
type Repository struct {
	docs DocStore
	now  func() time.Time
}

// NewRepository wraps a DocStore.
func NewRepository(docs DocStore) *Repository {
	return &Repository{docs: docs, now: time.Now}
}

// Docs returns the underlying store.
func (r *Repository) Docs() DocStore {
	return r.docs
}

// Close closes the underlying store.
func (r *Repository) Close() error {
	return r.docs.Close()
}

func (r *Repository) getJSON(ctx context.Context, collection, id string, v any) (bool, error) {
	doc, err := r.docs.Get(ctx, collection, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(doc.Body, v); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return true, nil
}

func (r *Repository) setJSON(ctx context.Context, collection, id string, v any, expiresAt *time.Time) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	return r.docs.Set(ctx, Document{Collection: collection, ID: id, Body: body, ExpiresAt: expiresAt})
}

type datasetDoc struct {
	Data          []model.ContentItem `json:"data"`
	UpdatedAt     time.Time           `json:"updatedAt"`
	TotalItems    int                 `json:"totalItems"`
	LastMergeMode string              `json:"lastMergeMode,omitempty"`
}

// Dataset returns the persisted items for a category, or nil if none were saved.
func (r *Repository) Dataset(ctx context.Context, c model.Category) ([]model.ContentItem, error) {
	var d datasetDoc
	if _, err := r.getJSON(ctx, CollectionDatasets, c.Collection(), &d); err != nil {
		return nil, err
	}
	for i := range d.Data {
		if d.Data[i].Category == "" {
			d.Data[i].Category = c
		}
	}
	return d.Data, nil
}

// DatasetInfo summarizes the persisted dataset for a category.
func (r *Repository) DatasetInfo(ctx context.Context, c model.Category) (model.DatasetInfo, error) {
	var d datasetDoc
	if _, err := r.getJSON(ctx, CollectionDatasets, c.Collection(), &d); err != nil {
		return model.DatasetInfo{Category: c}, err
	}
	return model.DatasetInfo{
		Category:      c,
		Count:         len(d.Data),
		UpdatedAt:     d.UpdatedAt,
		LastMergeMode: d.LastMergeMode,
	}, nil
}

// SaveDataset replaces the dataset for a category.
func (r *Repository) SaveDataset(ctx context.Context, c model.Category, items []model.ContentItem, mode string) error {
	if !c.Valid() {
		return fmt.Errorf("save dataset: unknown category %q", c)
	}
	d := datasetDoc{
		Data:          items,
		UpdatedAt:     r.now().UTC(),
		TotalItems:    len(items),
		LastMergeMode: mode,
	}
	return r.setJSON(ctx, CollectionDatasets, c.Collection(), d, nil)
}

type contributionDoc struct {
	Type      model.Category `json:"type"`
	Dialogue  string         `json:"dialogue"`
	Situation string         `json:"situation"`
	Tags      []string       `json:"tags"`
	Actor     string         `json:"actor,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AddContribution validates and stores a single user-contributed item.
func (r *Repository) AddContribution(ctx context.Context, item model.ContentItem) (model.ContentItem, error) {
	item.Text = strings.TrimSpace(item.Text)
	item.Situation = strings.TrimSpace(item.Situation)
	if !item.Category.Valid() {
		return item, fmt.Errorf("%w: unknown content type %q", model.ErrValidation, item.Category)
	}
	if item.Text == "" || item.Situation == "" {
		return item, fmt.Errorf("%w: please fill in both content and situation fields", model.ErrValidation)
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	now := r.now().UTC()
	item.CreatedAt = &now
	if item.ID == "" {
		item.ID = strings.ToLower(ulid.Make().String())
	}

	d := contributionDoc{
		Type:      item.Category,
		Dialogue:  item.Text,
		Situation: item.Situation,
		Tags:      item.Tags,
		Actor:     item.Actor,
		CreatedAt: now,
	}
	if err := r.setJSON(ctx, CollectionContentItems, item.ID, d, nil); err != nil {
		return item, err
	}
	return item, nil
}

// Contributions returns contributed items of one category.
func (r *Repository) Contributions(ctx context.Context, c model.Category) ([]model.ContentItem, error) {
	docs, err := r.docs.QueryByField(ctx, CollectionContentItems, "type", string(c))
	if err != nil {
		return nil, err
	}
	items := make([]model.ContentItem, 0, len(docs))
	for _, doc := range docs {
		var item model.ContentItem
		if err := json.Unmarshal(doc.Body, &item); err != nil {
			return nil, fmt.Errorf("decode contribution %s: %w", doc.ID, err)
		}
		if item.Text == "" {
			continue
		}
		item.ID = doc.ID
		items = append(items, item)
	}
	return items, nil
}

type batchDoc struct {
	Topic     string                  `json:"topic"`
	Filter    string                  `json:"filter"`
	CacheKey  string                  `json:"cacheKey"`
	Batch     []model.GeneratedScript `json:"batch"`
	CreatedAt time.Time               `json:"createdAt"`
	ExpiresAt time.Time               `json:"expiresAt"`
}

func cacheKey(k model.BatchKey) string {
	return k.Topic + "|" + k.Filter
}

// CachedBatches returns every stored batch for key, expired ones included,
// newest first.
func (r *Repository) CachedBatches(ctx context.Context, key model.BatchKey) ([]model.CachedBatch, error) {
	docs, err := r.docs.QueryByField(ctx, CollectionScripts, "cacheKey", cacheKey(key))
	if err != nil {
		return nil, err
	}
	batches := make([]model.CachedBatch, 0, len(docs))
	for i := len(docs) - 1; i >= 0; i-- {
		var d batchDoc
		if err := json.Unmarshal(docs[i].Body, &d); err != nil {
			return nil, fmt.Errorf("decode batch %s: %w", docs[i].ID, err)
		}
		batches = append(batches, model.CachedBatch{
			ID:        docs[i].ID,
			Key:       model.BatchKey{Topic: d.Topic, Filter: d.Filter},
			Scripts:   d.Batch,
			CreatedAt: d.CreatedAt,
			ExpiresAt: d.ExpiresAt,
		})
	}
	return batches, nil
}

// SaveBatch stores a batch that expires after ttl.
func (r *Repository) SaveBatch(ctx context.Context, key model.BatchKey, scripts []model.GeneratedScript, ttl time.Duration) (model.CachedBatch, error) {
	now := r.now().UTC()
	b := model.CachedBatch{
		ID:        uuid.NewString(),
		Key:       key,
		Scripts:   scripts,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	d := batchDoc{
		Topic:     key.Topic,
		Filter:    key.Filter,
		CacheKey:  cacheKey(key),
		Batch:     scripts,
		CreatedAt: b.CreatedAt,
		ExpiresAt: b.ExpiresAt,
	}
	if err := r.setJSON(ctx, CollectionScripts, b.ID, d, &b.ExpiresAt); err != nil {
		return b, err
	}
	return b, nil
}

// DeleteBatch removes a cached batch.
func (r *Repository) DeleteBatch(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, CollectionScripts, id)
}

// PurgeExpiredBatches deletes every expired cached batch.
func (r *Repository) PurgeExpiredBatches(ctx context.Context) (int, error) {
	return r.docs.PurgeExpired(ctx, CollectionScripts, r.now())
}

// Settings returns the generator settings, or defaults when none are stored.
func (r *Repository) Settings(ctx context.Context) (model.Settings, error) {
	s := model.DefaultSettings()
	if _, err := r.getJSON(ctx, CollectionSettings, settingsGeneratorID, &s); err != nil {
		return model.DefaultSettings(), err
	}
	return s, nil
}

// SaveSettings persists generator settings.
func (r *Repository) SaveSettings(ctx context.Context, s model.Settings) (model.Settings, error) {
	s.UpdatedAt = r.now().UTC()
	return s, r.setJSON(ctx, CollectionSettings, settingsGeneratorID, s, nil)
}

// Metrics returns the generation counters.
func (r *Repository) Metrics(ctx context.Context) (model.Metrics, error) {
	var m model.Metrics
	_, err := r.getJSON(ctx, CollectionAnalytics, metricsID, &m)
	return m, err
}

// TopicCounts returns how often each lower-cased topic was requested.
func (r *Repository) TopicCounts(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}
	_, err := r.getJSON(ctx, CollectionAnalytics, topicsID, &counts)
	return counts, err
}

// RecordGeneration bumps the generation counters. Updates are read-modify-write
// and may lose increments under concurrent writers.
func (r *Repository) RecordGeneration(ctx context.Context, topic string, usedAI, datasetHit bool) error {
	m, err := r.Metrics(ctx)
	if err != nil {
		return err
	}
	m.ScriptsGenerated++
	if usedAI {
		m.AIModeUsage++
	} else {
		m.RuleModeUsage++
	}
	if datasetHit {
		m.DatasetHits++
	} else {
		m.DatasetMisses++
	}
	m.LastUpdated = r.now().UTC()
	if err := r.setJSON(ctx, CollectionAnalytics, metricsID, m, nil); err != nil {
		return err
	}

	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return nil
	}
	counts, err := r.TopicCounts(ctx)
	if err != nil {
		return err
	}
	counts[topic]++
	return r.setJSON(ctx, CollectionAnalytics, topicsID, counts, nil)
}

// Usage returns the persisted usage totals.
func (r *Repository) Usage(ctx context.Context) (usage.Snapshot, error) {
	var s usage.Snapshot
	_, err := r.getJSON(ctx, CollectionAnalytics, usageID, &s)
	return s, err
}

// SaveUsage persists usage totals.
func (r *Repository) SaveUsage(ctx context.Context, s usage.Snapshot) error {
	return r.setJSON(ctx, CollectionAnalytics, usageID, s, nil)
}
