// Package store persists reel generator state as JSON documents grouped into
// collections, with SQLite and DynamoDB backends behind one interface.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"
)

// ErrNotFound is returned by Get when no document exists.
var ErrNotFound = errors.New("document not found")

// Collections used by the repository.
const (
	CollectionDatasets     = "datasets"
	CollectionContentItems = "contentItems"
	CollectionScripts      = "scripts"
	CollectionSettings     = "settings"
	CollectionAnalytics    = "analytics"
)

// Collections lists every collection the repository writes to.
func Collections() []string {
	return []string{
		CollectionDatasets,
		CollectionContentItems,
		CollectionScripts,
		CollectionSettings,
		CollectionAnalytics,
	}
}

// Document is one stored JSON body.
type Document struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Body       json.RawMessage `json:"body"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
}

// Expired reports whether the document has an expiry at or before now.
func (d Document) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && !d.ExpiresAt.After(now)
}

func sortDocuments(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}

// Stats holds per-collection document counts.
type Stats struct {
	Backend     string            `json:"backend"`
	Location    string            `json:"location"`
	SizeBytes   int64             `json:"size_bytes,omitempty"`
	Total       int               `json:"total_documents"`
	Collections []CollectionStats `json:"collections"`
}

// CollectionStats holds counts for one collection.
type CollectionStats struct {
	Collection string `json:"collection"`
	Count      int    `json:"count"`
	Expired    int    `json:"expired"`
}

// DocStore is the primitive persistence contract. Get returns expired
// documents too; callers decide what to do with them.
type DocStore interface {
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Set creates or replaces a document, keeping the original CreatedAt.
	Set(ctx context.Context, doc Document) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// QueryByField returns documents whose top-level string field equals value.
	QueryByField(ctx context.Context, collection, field, value string) ([]Document, error)

	// List returns every document in a collection, oldest first.
	List(ctx context.Context, collection string) ([]Document, error)

	// PurgeExpired deletes documents in collection that expired at or before now.
	PurgeExpired(ctx context.Context, collection string, now time.Time) (int, error)

	// Stats reports document counts per collection.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the backend.
	Close() error
}
