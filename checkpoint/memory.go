package checkpoint

import (
	"context"
	"sync"

	"github.com/dshills/blueprint-go/state"
)

// MemoryStore is the in-memory Store: a map guarded by per-thread_id
// locks so Save/Update on different threads never block each other.
type MemoryStore struct {
	mu       sync.RWMutex
	snapshots map[string]state.State
	locks    map[string]*sync.Mutex
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: map[string]state.State{},
		locks:     map[string]*sync.Mutex{},
	}
}

func (m *MemoryStore) lockFor(threadID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[threadID] = l
	}
	return l
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, threadID string, s state.State) error {
	l := m.lockFor(threadID)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	m.snapshots[threadID] = s
	m.mu.Unlock()
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context, threadID string) (state.State, error) {
	m.mu.RLock()
	s, ok := m.snapshots[threadID]
	m.mu.RUnlock()
	if !ok {
		return state.State{}, notFound(threadID)
	}
	return s, nil
}

// Update implements Store.
func (m *MemoryStore) Update(ctx context.Context, threadID string, patch Patch) error {
	l := m.lockFor(threadID)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	s, ok := m.snapshots[threadID]
	if !ok {
		m.mu.Unlock()
		return notFound(threadID)
	}
	m.snapshots[threadID] = patch.Apply(s)
	m.mu.Unlock()
	return nil
}
