package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewInMemory returns a Store that keeps entries in memory for the life of
// the process.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]Entry),
	}
}

// InMemoryStore is a Store backed by a map. It is safe for concurrent use.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func (ims *InMemoryStore) Get(ctx context.Context, path, digest string) (Entry, error) {
	ims.mu.Lock()
	defer ims.mu.Unlock()

	e, ok := ims.entries[path]
	if !ok || e.Digest != digest {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (ims *InMemoryStore) Put(ctx context.Context, e Entry) (Entry, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return Entry{}, fmt.Errorf("could not generate ID: %w", err)
	}

	e.ID = newUUID
	e.Created = time.Now()

	ims.mu.Lock()
	defer ims.mu.Unlock()
	ims.entries[e.Path] = e

	return e, nil
}

func (ims *InMemoryStore) Clear(ctx context.Context) error {
	ims.mu.Lock()
	defer ims.mu.Unlock()

	ims.entries = make(map[string]Entry)
	return nil
}

func (ims *InMemoryStore) Close() error {
	return nil
}
