package fonts

import "sync"

// onceMap is a thread-safe, read-mostly cache. Each key is populated at most
// once; concurrent callers for the same key wait for the first to finish,
// callers for other keys are not blocked by the population.
type onceMap[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*onceEntry[V]
}

type onceEntry[V any] struct {
	once  sync.Once
	value V
	err   error
}

func newOnceMap[K comparable, V any]() *onceMap[K, V] {
	return &onceMap[K, V]{entries: make(map[K]*onceEntry[V])}
}

// getOrCreate returns the cached value for key, calling create the first
// time the key is seen. A failed creation is cached as well.
func (m *onceMap[K, V]) getOrCreate(key K, create func() (V, error)) (V, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		if e, ok = m.entries[key]; !ok {
			e = &onceEntry[V]{}
			m.entries[key] = e
		}
		m.mu.Unlock()
	}

	e.once.Do(func() {
		e.value, e.err = create()
	})
	return e.value, e.err
}

func (m *onceMap[K, V]) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
