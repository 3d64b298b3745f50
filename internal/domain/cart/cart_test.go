package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store that tracks persistence calls
type memStore struct {
	lines     []Line
	SaveCalls int
	SaveErr   error
}

func (m *memStore) Load() ([]Line, error) { return m.lines, nil }

func (m *memStore) Save(lines []Line) error {
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.lines = append([]Line(nil), lines...)
	return nil
}

func (m *memStore) Clear() error {
	m.lines = nil
	return nil
}

func newTestCart(t *testing.T) (*Cart, *memStore) {
	t.Helper()
	store := &memStore{}
	c, err := New(store)
	require.NoError(t, err)
	return c, store
}

func line(productID, packageID string, price float64, qty int) Line {
	return Line{
		ProductID:   productID,
		PackageID:   packageID,
		ProductName: "Product " + productID,
		UnitPrice:   price,
		Quantity:    qty,
	}
}

// ============================================
// Add Tests
// ============================================

func TestCart_Add_NewLine(t *testing.T) {
	c, store := newTestCart(t)

	require.NoError(t, c.Add(line("p1", "pkg1", 50, 2)))

	assert.Len(t, c.Lines(), 1)
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, 100.0, c.Total())
	assert.Equal(t, 1, store.SaveCalls)
}

func TestCart_Add_MergesSameProductPackage(t *testing.T) {
	c, _ := newTestCart(t)

	require.NoError(t, c.Add(line("p1", "pkg1", 50, 2)))
	require.NoError(t, c.Add(line("p1", "pkg1", 50, 3)))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestCart_Add_SameProductDifferentPackage(t *testing.T) {
	c, _ := newTestCart(t)

	require.NoError(t, c.Add(line("p1", "pkg1", 50, 1)))
	require.NoError(t, c.Add(line("p1", "pkg2", 90, 1)))

	assert.Len(t, c.Lines(), 2)
	assert.Equal(t, 140.0, c.Total())
}

func TestCart_Add_ClampsNonPositiveQuantity(t *testing.T) {
	c, _ := newTestCart(t)

	require.NoError(t, c.Add(line("p1", "pkg1", 50, 0)))
	require.NoError(t, c.Add(line("p2", "pkg1", 30, -4)))

	assert.Equal(t, 2, c.Count())
}

// ============================================
// Remove / SetQuantity Tests
// ============================================

func TestCart_Remove(t *testing.T) {
	c, store := newTestCart(t)
	require.NoError(t, c.Add(line("p1", "pkg1", 50, 1)))
	require.NoError(t, c.Add(line("p2", "pkg1", 30, 1)))

	require.NoError(t, c.Remove("p1", "pkg1"))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p2", lines[0].ProductID)
	assert.Equal(t, 3, store.SaveCalls)
}

func TestCart_Remove_AbsentLineIsNoop(t *testing.T) {
	c, _ := newTestCart(t)
	require.NoError(t, c.Add(line("p1", "pkg1", 50, 1)))

	require.NoError(t, c.Remove("p9", "pkg9"))

	assert.Len(t, c.Lines(), 1)
}

func TestCart_SetQuantity(t *testing.T) {
	c, _ := newTestCart(t)
	require.NoError(t, c.Add(line("p1", "pkg1", 50, 1)))

	require.NoError(t, c.SetQuantity("p1", "pkg1", 7))

	assert.Equal(t, 7, c.Count())
	assert.Equal(t, 350.0, c.Total())
}

func TestCart_SetQuantity_ClampsToOne(t *testing.T) {
	c, _ := newTestCart(t)
	require.NoError(t, c.Add(line("p1", "pkg1", 50, 5)))

	require.NoError(t, c.SetQuantity("p1", "pkg1", 0))

	assert.Equal(t, 1, c.Count())
}

// ============================================
// Totals / Persistence Tests
// ============================================

func TestCart_TotalsRecomputedAfterEveryMutation(t *testing.T) {
	c, _ := newTestCart(t)

	require.NoError(t, c.Add(line("p1", "pkg1", 25.5, 2)))
	require.NoError(t, c.Add(line("p2", "pkg1", 10, 3)))
	require.NoError(t, c.SetQuantity("p2", "pkg1", 1))
	require.NoError(t, c.Remove("p1", "pkg1"))

	assert.Equal(t, 1, c.Count())
	assert.Equal(t, 10.0, c.Total())
}

func TestCart_EveryMutationPersists(t *testing.T) {
	c, store := newTestCart(t)

	require.NoError(t, c.Add(line("p1", "pkg1", 50, 1)))
	require.NoError(t, c.SetQuantity("p1", "pkg1", 2))
	require.NoError(t, c.Remove("p1", "pkg1"))

	assert.Equal(t, 3, store.SaveCalls)
}

func TestCart_ReloadsFromStore(t *testing.T) {
	store := &memStore{lines: []Line{line("p1", "pkg1", 50, 4)}}

	c, err := New(store)
	require.NoError(t, err)

	assert.Equal(t, 4, c.Count())
	assert.Equal(t, 200.0, c.Total())
}

func TestCart_Clear(t *testing.T) {
	c, store := newTestCart(t)
	require.NoError(t, c.Add(line("p1", "pkg1", 50, 1)))

	require.NoError(t, c.Clear())

	assert.True(t, c.Empty())
	assert.Empty(t, store.lines)
	assert.Equal(t, 0.0, c.Total())
}

// ============================================
// KVStore Tests
// ============================================

type memKV struct {
	data map[string][]byte
}

func (m *memKV) Get(key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(key string, value []byte) error {
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func TestKVStore_RoundTrip(t *testing.T) {
	kv := &memKV{}
	store := NewKVStore(kv)

	require.NoError(t, store.Save([]Line{line("p1", "pkg1", 50, 2)}))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 2, loaded[0].Quantity)
	assert.Contains(t, kv.data, StorageKey)
}

func TestKVStore_LoadMissingKeyIsEmptyCart(t *testing.T) {
	store := NewKVStore(&memKV{})

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestKVStore_ClearRemovesKey(t *testing.T) {
	kv := &memKV{}
	store := NewKVStore(kv)
	require.NoError(t, store.Save([]Line{line("p1", "pkg1", 50, 2)}))

	require.NoError(t, store.Clear())

	assert.NotContains(t, kv.data, StorageKey)
}
