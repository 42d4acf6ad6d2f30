package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/cml-exchange/internal/items"
)

func TestMemoryStoreFinalizeForgetsDrained(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(&items.Order{ID: "1"})

	seq, err := store.Drain(ctx)
	require.NoError(t, err)

	// arrives between drain and finalize
	require.NoError(t, store.Submit(ctx, &items.Order{ID: "2"}))
	assert.Len(t, collect(seq), 1, "drain yields a snapshot")

	require.NoError(t, store.Finalize(ctx))
	remaining := Of[*items.Order](store)
	require.Len(t, remaining, 1)
	assert.Equal(t, "2", remaining[0].ID)

	require.NoError(t, store.Finalize(ctx))
	assert.Equal(t, 1, store.Len(), "finalize without a drain keeps everything")
}

func TestMemoryStoreConcurrentSubmit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				_ = store.Submit(ctx, &items.Tax{Name: "VAT"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, store.Len())
}

func TestOf(t *testing.T) {
	store := NewMemoryStore(&items.Sku{ID: "1"}, &items.Product{ID: "p"}, &items.Sku{ID: "2"})

	skus := Of[*items.Sku](store)
	require.Len(t, skus, 2)
	assert.Equal(t, "1", skus[0].ID)
	assert.Equal(t, "2", skus[1].ID)
	assert.Empty(t, Of[*items.Offer](store))
}

func TestMemoryHandlers(t *testing.T) {
	ctx := context.Background()
	handlers, stores := MemoryHandlers(items.KindGroup, items.KindTax)
	require.Len(t, handlers, 2)

	d := quietDispatcher(handlers)
	d.Submit(ctx, &items.Tax{Name: "VAT"})

	assert.Equal(t, 1, stores[items.KindTax].Len())
	assert.Equal(t, 0, stores[items.KindGroup].Len())
}
