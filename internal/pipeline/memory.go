package pipeline

import (
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/kosarica/cml-exchange/internal/items"
)

// MemoryStore is a Handler keeping submitted entities in memory, in order.
// Drain yields a snapshot; Finalize forgets the entities of the last drain.
type MemoryStore struct {
	mu       sync.Mutex
	entities []items.Entity
	drained  int
}

// NewMemoryStore creates a store seeded with entities
func NewMemoryStore(seed ...items.Entity) *MemoryStore {
	return &MemoryStore{entities: slices.Clone(seed)}
}

func (s *MemoryStore) Submit(_ context.Context, entity items.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = append(s.entities, entity)
	return nil
}

func (s *MemoryStore) Drain(_ context.Context) (iter.Seq[items.Entity], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := slices.Clone(s.entities)
	s.drained = len(snapshot)
	return slices.Values(snapshot), nil
}

func (s *MemoryStore) Finalize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = slices.Delete(s.entities, 0, min(s.drained, len(s.entities)))
	s.drained = 0
	return nil
}

// Items returns a copy of the stored entities
func (s *MemoryStore) Items() []items.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entities)
}

// Len returns the number of stored entities
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities)
}

// Of returns the entities of type T held by the store
func Of[T items.Entity](s *MemoryStore) []T {
	var result []T
	for _, entity := range s.Items() {
		if typed, ok := entity.(T); ok {
			result = append(result, typed)
		}
	}
	return result
}

// MemoryHandlers creates one MemoryStore per kind
func MemoryHandlers(kinds ...items.Kind) (map[items.Kind]Handler, map[items.Kind]*MemoryStore) {
	handlers := make(map[items.Kind]Handler, len(kinds))
	stores := make(map[items.Kind]*MemoryStore, len(kinds))
	for _, kind := range kinds {
		store := NewMemoryStore()
		handlers[kind] = store
		stores[kind] = store
	}
	return handlers, stores
}
