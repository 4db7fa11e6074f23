package memory

import (
	"context"
	"sync"

	"auditexport/internal/model"
	"auditexport/internal/repository"
)

// OwnerMemory is an in-memory owner directory.
type OwnerMemory struct {
	mu     sync.RWMutex
	owners map[string]model.Owner
}

// NewOwnerMemory returns a directory seeded with owners.
func NewOwnerMemory(owners ...model.Owner) *OwnerMemory {
	m := &OwnerMemory{owners: make(map[string]model.Owner, len(owners))}
	for _, o := range owners {
		m.owners[o.ID] = o
	}
	return m
}

var _ repository.OwnerRepository = (*OwnerMemory)(nil)

// Put adds or replaces an owner.
func (m *OwnerMemory) Put(o model.Owner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[o.ID] = o
}

// FindByID returns the owner or repository.ErrNotFound.
func (m *OwnerMemory) FindByID(_ context.Context, id string) (*model.Owner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.owners[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}
