package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// memoryObject holds a single object in the in-memory store.
type memoryObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
	etag        string
}

// MemoryStore is an in-memory implementation of Store, intended for tests.
type MemoryStore struct {
	name    string
	mu      sync.RWMutex
	objects map[string]*memoryObject
	seq     atomic.Int64
}

// NewMemoryStore creates a new in-memory Store with the given name.
func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{
		name:    name,
		objects: make(map[string]*memoryObject),
	}
}

func (m *MemoryStore) Name() string {
	return m.name
}

func (m *MemoryStore) Put(_ context.Context, key string, body io.Reader, opts PutOptions) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}

	etag := fmt.Sprintf(`"%d"`, m.seq.Add(1))

	meta := make(map[string]string)
	for k, v := range opts.Metadata {
		meta[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = &memoryObject{
		data:        data,
		contentType: opts.ContentType,
		metadata:    meta,
		etag:        etag,
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, ObjectInfo{}, ErrNotFound
	}

	// Return a copy so the caller cannot mutate the store.
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)

	info := ObjectInfo{
		Size: int64(len(obj.data)),
		ETag: obj.etag,
	}
	return io.NopCloser(bytes.NewReader(buf)), info, nil
}

func (m *MemoryStore) Head(_ context.Context, key string) (ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return ObjectInfo{}, ErrNotFound
	}

	return ObjectInfo{
		Size: int64(len(obj.data)),
		ETag: obj.etag,
	}, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []ObjectInfo
	for k, obj := range m.objects {
		if strings.HasPrefix(k, prefix) {
			results = append(results, ObjectInfo{
				Key:  k,
				Size: int64(len(obj.data)),
				ETag: obj.etag,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Key < results[j].Key
	})

	return results, nil
}
