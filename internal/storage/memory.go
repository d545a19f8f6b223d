package storage

import (
	"context"
	"sync"
)

// MemoryBackend keeps resources in process memory
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (b *MemoryBackend) Read(_ context.Context, name string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.data[name]
	if !ok {
		return nil, ErrNotExist
	}
	return append([]byte(nil), data...), nil
}

func (b *MemoryBackend) Write(_ context.Context, name string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data[name] = append([]byte(nil), data...)
	return nil
}

// Delete removes a resource so that Read reports ErrNotExist
func (b *MemoryBackend) Delete(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, name)
}

func (b *MemoryBackend) Close() error { return nil }
