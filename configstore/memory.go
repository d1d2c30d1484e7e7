package configstore

import (
	"context"
	"sync"

	aif "github.com/goliatone/go-aif"
)

type docKey struct {
	kind aif.Kind
	name string
}

// Memory is a map backed Store.
type Memory struct {
	mu   sync.RWMutex
	docs map[docKey][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[docKey][]byte)}
}

// Put stores a copy of data.
func (m *Memory) Put(kind aif.Kind, name string, data []byte) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[docKey{kind: kind, name: name}] = append([]byte(nil), data...)
	return m
}

func (m *Memory) Delete(kind aif.Kind, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, docKey{kind: kind, name: name})
}

func (m *Memory) Get(ctx context.Context, kind aif.Kind, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[docKey{kind: kind, name: name}]
	if !ok {
		return nil, notFound(kind, name, nil)
	}
	return append([]byte(nil), data...), nil
}
