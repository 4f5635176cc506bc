package state

import "sync"

// MemStore is an in-memory Store for tests and embedding.
type MemStore struct {
	mu    sync.Mutex
	rec   Record
	saves int

	// LoadErr/SaveErr, when set, are returned by the corresponding call.
	LoadErr error
	SaveErr error
}

func NewMemStore(rec Record) *MemStore { return &MemStore{rec: rec} }

func (m *MemStore) Load() (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return Record{}, m.LoadErr
	}
	return m.rec, nil
}

func (m *MemStore) Save(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.rec = rec
	m.saves++
	return nil
}

func (m *MemStore) Close() error { return nil }

// Saves returns how many times Save succeeded.
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Current returns the record as last saved.
func (m *MemStore) Current() Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec
}
