// Package memory is an in-process record backend for development and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/at-ishikawa/wandrr/internal/failure"
	"github.com/at-ishikawa/wandrr/internal/store"
	"github.com/google/uuid"
)

type Backend struct {
	mu          sync.RWMutex
	collections map[string][]store.Record
}

func New() *Backend {
	return &Backend{collections: make(map[string][]store.Record)}
}

func (b *Backend) Add(_ context.Context, collection string, value any) (map[string]any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal > %w", err)
	}
	id := uuid.NewString()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.collections[collection] = append(b.collections[collection], store.Record{ID: id, Value: raw})
	return map[string]any{"success": true, "id": id}, nil
}

func (b *Backend) Update(_ context.Context, collection, id string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json.Marshal > %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	records := b.collections[collection]
	for i := range records {
		if records[i].ID == id {
			records[i].Value = raw
			return nil
		}
	}
	return failure.New(failure.Unclassified, collection+".update", fmt.Errorf("record %s not found", id))
}

func (b *Backend) Find(_ context.Context, collection string, filter map[string]any, limit int) ([]store.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]store.Record, 0)
	for _, r := range b.collections[collection] {
		if !store.Matches(r, filter) {
			continue
		}
		result = append(result, r)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}
