package expense

import (
	"errors"
	"sync"
)

// ErrNotFound indicates an operation referenced an unknown expense id.
var ErrNotFound = errors.New("expense not found")

// Store defines the interface for expense persistence. Get and Delete
// return ErrNotFound for unknown ids. List preserves insertion order.
type Store interface {
	// Save inserts or replaces an expense
	Save(exp *Expense) error

	// Get retrieves an expense by ID
	Get(id string) (*Expense, error)

	// List returns all expenses in insertion order
	List() ([]*Expense, error)

	// Delete removes an expense
	Delete(id string) error

	// Close closes the store
	Close() error
}

// MemoryStore implements Store with an in-process registry. State is
// lost when the process exits. Mutating operations are serialized with
// a mutex since the server handles requests concurrently.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*Expense
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*Expense)}
}

// Save inserts or replaces an expense.
func (m *MemoryStore) Save(exp *Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[exp.ID]; !ok {
		m.order = append(m.order, exp.ID)
	}
	stored := *exp
	m.byID[exp.ID] = &stored
	return nil
}

// Get retrieves an expense by ID.
func (m *MemoryStore) Get(id string) (*Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exp, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *exp
	return &copied, nil
}

// List returns a snapshot of all expenses in insertion order.
func (m *MemoryStore) List() ([]*Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	expenses := make([]*Expense, 0, len(m.order))
	for _, id := range m.order {
		copied := *m.byID[id]
		expenses = append(expenses, &copied)
	}
	return expenses, nil
}

// Delete removes an expense.
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
