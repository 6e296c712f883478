package store

import "sync"

// memoryRegistry holds global MemoryStore instances so repeated factory
// calls for the same named memory store observe the same objects within a
// process (tests exercise publish-then-check through two factory calls).
var (
	memoryRegistryMu sync.Mutex
	memoryRegistry   = make(map[string]*MemoryStore)
)

// GetOrCreateMemoryStore returns an existing MemoryStore with the given
// name, or creates a new one if it does not already exist.
func GetOrCreateMemoryStore(name string) *MemoryStore {
	memoryRegistryMu.Lock()
	defer memoryRegistryMu.Unlock()

	if s, ok := memoryRegistry[name]; ok {
		return s
	}

	s := NewMemoryStore(name)
	memoryRegistry[name] = s
	return s
}

// ResetMemoryStores clears the global MemoryStore registry. Call in test
// cleanup to ensure isolation between test cases.
func ResetMemoryStores() {
	memoryRegistryMu.Lock()
	defer memoryRegistryMu.Unlock()

	memoryRegistry = make(map[string]*MemoryStore)
}
