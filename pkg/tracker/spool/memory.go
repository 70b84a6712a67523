package spool

import (
	"sync"
)

// MemoryStore is an in-memory spool for testing and for hosts that accept
// losing undelivered batches on process exit.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	order  []int64
	data   map[int64][]byte
	closed bool
}

// NewMemoryStore creates a new in-memory spool store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[int64][]byte),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(data []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrStoreClosed
	}

	m.nextID++
	id := m.nextID

	buf := make([]byte, len(data))
	copy(buf, data)
	m.data[id] = buf
	m.order = append(m.order, id)

	return id, nil
}

// Next implements Store.
func (m *MemoryStore) Next() (int64, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, nil, ErrStoreClosed
	}

	for _, id := range m.order {
		if data, ok := m.data[id]; ok {
			buf := make([]byte, len(data))
			copy(buf, data)
			return id, buf, nil
		}
	}
	return 0, nil, ErrEmpty
}

// Delete implements Store.
func (m *MemoryStore) Delete(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len implements Store.
func (m *MemoryStore) Len() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrStoreClosed
	}
	return len(m.data), nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}
