package docstore

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-memory document store. It additionally implements
// Watcher for live console views.
type Memory struct {
	mu       sync.RWMutex
	data     map[string]map[string]json.RawMessage // collection -> id -> document
	watchers map[string][]*Subscription
}

func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string]map[string]json.RawMessage),
		watchers: make(map[string][]*Subscription),
	}
}

// Subscription delivers full collection snapshots on every change.
// Snapshots are coalesced: a slow reader sees the latest state, not
// every intermediate one.
type Subscription struct {
	C chan []json.RawMessage

	once  sync.Once
	close func()
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.close)
}

func (m *Memory) Put(ctx context.Context, collection, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]json.RawMessage)
	}
	m.data[collection][id] = raw
	snapshot := m.snapshotLocked(collection)
	subs := append([]*Subscription(nil), m.watchers[collection]...)
	m.mu.Unlock()

	notify(subs, snapshot)
	return nil
}

func (m *Memory) Get(ctx context.Context, collection, id string, out any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.data[collection][id]
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) List(ctx context.Context, collection string) ([]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(collection), nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fn func(raw []byte) ([]byte, error)) error {
	m.mu.Lock()
	raw, ok := m.data[collection][id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}

	updated, err := fn(append([]byte(nil), raw...))
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.data[collection][id] = updated
	snapshot := m.snapshotLocked(collection)
	subs := append([]*Subscription(nil), m.watchers[collection]...)
	m.mu.Unlock()

	notify(subs, snapshot)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	if m.data[collection] != nil {
		delete(m.data[collection], id)
	}
	snapshot := m.snapshotLocked(collection)
	subs := append([]*Subscription(nil), m.watchers[collection]...)
	m.mu.Unlock()

	notify(subs, snapshot)
	return nil
}

// Watch subscribes to a collection. The current snapshot is delivered
// immediately, then again after every change until Close.
func (m *Memory) Watch(collection string) *Subscription {
	sub := &Subscription{C: make(chan []json.RawMessage, 1)}
	sub.close = func() {
		m.mu.Lock()
		subs := m.watchers[collection]
		for i, s := range subs {
			if s == sub {
				m.watchers[collection] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.watchers[collection] = append(m.watchers[collection], sub)
	snapshot := m.snapshotLocked(collection)
	m.mu.Unlock()

	sub.C <- snapshot
	return sub
}

func (m *Memory) snapshotLocked(collection string) []json.RawMessage {
	docs := make([]json.RawMessage, 0, len(m.data[collection]))
	for _, raw := range m.data[collection] {
		docs = append(docs, raw)
	}
	return docs
}

func notify(subs []*Subscription, snapshot []json.RawMessage) {
	for _, sub := range subs {
		// Coalesce: drop the stale snapshot if the reader is behind.
		select {
		case <-sub.C:
		default:
		}
		select {
		case sub.C <- snapshot:
		default:
		}
	}
}
