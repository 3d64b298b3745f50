package docstore

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemory_PutGet(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	err := store.Put(ctx, "orders", "o-1", testDoc{Name: "first", Count: 1})
	require.NoError(t, err)

	var got testDoc
	ok, err := store.Get(ctx, "orders", "o-1", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testDoc{Name: "first", Count: 1}, got)
}

func TestMemory_GetMissing(t *testing.T) {
	store := NewMemory()

	var got testDoc
	ok, err := store.Get(context.Background(), "orders", "nope", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_NestedCollectionPaths(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "orders", "o-1", testDoc{Name: "operator"}))
	require.NoError(t, store.Put(ctx, "users/u-1/orders", "o-1", testDoc{Name: "customer"}))

	var got testDoc
	ok, err := store.Get(ctx, "users/u-1/orders", "o-1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "customer", got.Name)
}

func TestMemory_UpdateMissing(t *testing.T) {
	store := NewMemory()

	err := store.Update(context.Background(), "orders", "nope", func(raw []byte) ([]byte, error) {
		return raw, nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ConcurrentUpdatesSerialize(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "orders", "o-1", testDoc{Count: 0}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Update(ctx, "orders", "o-1", func(raw []byte) ([]byte, error) {
				var doc testDoc
				if err := json.Unmarshal(raw, &doc); err != nil {
					return nil, err
				}
				doc.Count++
				return json.Marshal(doc)
			})
		}()
	}
	wg.Wait()

	var got testDoc
	ok, err := store.Get(ctx, "orders", "o-1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 50, got.Count)
}

func TestMemory_WatchDeliversInitialSnapshot(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "orders", "o-1", testDoc{Name: "existing"}))

	sub := store.Watch("orders")
	defer sub.Close()

	select {
	case snapshot := <-sub.C:
		assert.Len(t, snapshot, 1)
	case <-time.After(time.Second):
		t.Fatal("expected initial snapshot")
	}
}

func TestMemory_WatchDeliversOnChange(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	sub := store.Watch("orders")
	defer sub.Close()
	<-sub.C // drain initial empty snapshot

	require.NoError(t, store.Put(ctx, "orders", "o-1", testDoc{Name: "new"}))

	select {
	case snapshot := <-sub.C:
		require.Len(t, snapshot, 1)
		var doc testDoc
		require.NoError(t, json.Unmarshal(snapshot[0], &doc))
		assert.Equal(t, "new", doc.Name)
	case <-time.After(time.Second):
		t.Fatal("expected snapshot after Put")
	}
}

func TestMemory_WatchCoalescesForSlowReaders(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	sub := store.Watch("orders")
	defer sub.Close()
	<-sub.C

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Put(ctx, "orders", "o-1", testDoc{Count: i}))
	}

	// Only the latest state is observable.
	snapshot := <-sub.C
	require.Len(t, snapshot, 1)
	var doc testDoc
	require.NoError(t, json.Unmarshal(snapshot[0], &doc))
	assert.Equal(t, 9, doc.Count)
}

func TestMemory_WatchCloseDetaches(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	sub := store.Watch("orders")
	<-sub.C
	sub.Close()
	sub.Close() // idempotent

	require.NoError(t, store.Put(ctx, "orders", "o-1", testDoc{}))

	select {
	case <-sub.C:
		t.Fatal("closed subscription must not receive snapshots")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemory_DeleteIsIdempotent(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "orders", "o-1", testDoc{}))
	require.NoError(t, store.Delete(ctx, "orders", "o-1"))
	require.NoError(t, store.Delete(ctx, "orders", "o-1"))

	docs, err := store.List(ctx, "orders")
	require.NoError(t, err)
	assert.Empty(t, docs)
}
