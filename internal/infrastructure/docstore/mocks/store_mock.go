package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/example/asha-storefront/internal/infrastructure/docstore"
)

// MockStore is a mock implementation of docstore.Store for testing
type MockStore struct {
	mu   sync.RWMutex
	data map[string]map[string]json.RawMessage

	// For tracking calls in tests
	PutCalls    []PutCall
	PutErr      error
	PutCallback func(ctx context.Context, collection, id string, doc any) error
	UpdateCalls []UpdateCall
	UpdateErr   error
	GetErr      error
	ListErr     error
}

// PutCall records parameters passed to Put
type PutCall struct {
	Collection string
	ID         string
	Doc        any
}

// UpdateCall records parameters passed to Update
type UpdateCall struct {
	Collection string
	ID         string
}

// NewMockStore creates a new MockStore
func NewMockStore() *MockStore {
	return &MockStore{
		data:     make(map[string]map[string]json.RawMessage),
		PutCalls: make([]PutCall, 0),
	}
}

func (m *MockStore) Put(ctx context.Context, collection, id string, doc any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutCalls = append(m.PutCalls, PutCall{Collection: collection, ID: id, Doc: doc})

	if m.PutCallback != nil {
		if err := m.PutCallback(ctx, collection, id, doc); err != nil {
			return err
		}
	} else if m.PutErr != nil {
		return m.PutErr
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]json.RawMessage)
	}
	m.data[collection][id] = raw
	return nil
}

func (m *MockStore) Get(ctx context.Context, collection, id string, out any) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return false, m.GetErr
	}
	raw, ok := m.data[collection][id]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MockStore) List(ctx context.Context, collection string) ([]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var docs []json.RawMessage
	for _, raw := range m.data[collection] {
		docs = append(docs, raw)
	}
	return docs, nil
}

func (m *MockStore) Update(ctx context.Context, collection, id string, fn func(raw []byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls = append(m.UpdateCalls, UpdateCall{Collection: collection, ID: id})

	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	raw, ok := m.data[collection][id]
	if !ok {
		return docstore.ErrNotFound
	}
	updated, err := fn(append([]byte(nil), raw...))
	if err != nil {
		return err
	}
	m.data[collection][id] = updated
	return nil
}

func (m *MockStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data[collection] != nil {
		delete(m.data[collection], id)
	}
	return nil
}

// Seed inserts a document without recording a Put call
func (m *MockStore) Seed(collection, id string, doc any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, _ := json.Marshal(doc)
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]json.RawMessage)
	}
	m.data[collection][id] = raw
}

// Contains reports whether a document exists
func (m *MockStore) Contains(collection, id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.data[collection][id]
	return ok
}
