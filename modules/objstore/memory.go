package objstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// MemoryAdapter is an in-memory Adapter backed by a guarded map, mirroring
// the teacher's in-memory storage test double. It lets the orchestrator
// and its collaborators be exercised end to end without a real S3/R2
// endpoint.
type MemoryAdapter struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{objects: make(map[string][]byte)}
}

func (m *MemoryAdapter) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MemoryAdapter) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *MemoryAdapter) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[key] = cp
	return nil
}

func (m *MemoryAdapter) Copy(_ context.Context, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[srcKey]
	if !ok {
		return ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[dstKey] = cp
	return nil
}

func (m *MemoryAdapter) List(_ context.Context, prefix, cursor string, limit int) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if cursor != "" {
		idx, err := strconv.Atoi(cursor)
		if err == nil {
			start = idx
		}
	}
	if start > len(keys) {
		start = len(keys)
	}

	end := start + limit
	if limit <= 0 || end > len(keys) {
		end = len(keys)
	}

	page := Page{Keys: append([]string(nil), keys[start:end]...)}
	if end < len(keys) {
		page.Cursor = strconv.Itoa(end)
	}
	return page, nil
}

// Len reports how many objects are currently stored, for test assertions.
func (m *MemoryAdapter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
