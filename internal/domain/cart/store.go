package cart

import "encoding/json"

// StorageKey is the fixed key the cart is persisted under.
const StorageKey = "ashaCart"

// Store persists the full cart line set.
type Store interface {
	Load() ([]Line, error)
	Save(lines []Line) error
	Clear() error
}

// KV is the slice of the local durable key-value store the cart needs.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// KVStore persists the cart as one JSON array under StorageKey.
type KVStore struct {
	kv KV
}

func NewKVStore(kv KV) *KVStore {
	return &KVStore{kv: kv}
}

func (s *KVStore) Load() ([]Line, error) {
	data, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *KVStore) Save(lines []Line) error {
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return s.kv.Set(StorageKey, data)
}

func (s *KVStore) Clear() error {
	return s.kv.Delete(StorageKey)
}
