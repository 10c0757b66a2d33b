// Package store persists generated layout documents so the API can serve
// earlier runs by ID. The memory backend serves tests and single-process
// CLI usage; the Mongo backend serves shared deployments.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gridsmith/sldgen/pkg/errors"
	"github.com/gridsmith/sldgen/pkg/layout"
)

// Record is one persisted run.
type Record struct {
	ID         string           `json:"id" bson:"_id"`
	Dataset    string           `json:"dataset" bson:"dataset"`
	Convention string           `json:"convention" bson:"convention"`
	CreatedAt  time.Time        `json:"created_at" bson:"created_at"`
	Document   *layout.Document `json:"document" bson:"document"`
}

// Store persists and retrieves layout documents.
type Store interface {
	// Put persists a document and returns its generated ID.
	Put(ctx context.Context, dataset, convention string, doc *layout.Document) (string, error)

	// Get retrieves a record by ID (ErrCodeNotFound when absent).
	Get(ctx context.Context, id string) (*Record, error)

	// List returns all records newest first, without documents.
	List(ctx context.Context) ([]*Record, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// NewID generates a record ID.
func NewID() string {
	return uuid.NewString()
}

// MemoryStore is the in-process backend.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, dataset, convention string, doc *layout.Document) (string, error) {
	rec := &Record{
		ID:         NewID(),
		Dataset:    dataset,
		Convention: convention,
		CreatedAt:  time.Now().UTC(),
		Document:   doc,
	}
	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()
	return rec.ID, nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "no stored layout %s", id)
	}
	return rec, nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context) ([]*Record, error) {
	s.mu.RLock()
	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		summary := *rec
		summary.Document = nil
		out = append(out, &summary)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

var _ Store = (*MemoryStore)(nil)
