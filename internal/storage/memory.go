package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory keeps serialised collections in process memory. Values are stored
// encoded so callers never share slices with the store.
type Memory struct {
	mu        sync.Mutex
	namespace string
	data      map[string][]byte
}

// NewMemory constructs an empty in-memory backend.
func NewMemory(namespace string) *Memory {
	return &Memory{namespace: namespace, data: make(map[string][]byte)}
}

// Load implements Collection.
func (m *Memory) Load(ctx context.Context, name string, dest any) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	key := Key(m.namespace, name)
	m.mu.Lock()
	raw, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, wrap("memory", "decode", key, err)
	}
	return true, nil
}

// Save implements Collection.
func (m *Memory) Save(ctx context.Context, name string, value any) error {
	if err := checkName(name); err != nil {
		return err
	}
	key := Key(m.namespace, name)
	raw, err := json.Marshal(value)
	if err != nil {
		return wrap("memory", "encode", key, err)
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

// Keys lists the stored keys.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}
