package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"auditexport/internal/model"
	"auditexport/internal/repository"
)

// DocumentMemory is an in-memory repository.DocumentRepository.
type DocumentMemory struct {
	mu   sync.RWMutex
	docs map[string]model.Document
}

// NewDocumentMemory returns an empty store.
func NewDocumentMemory() *DocumentMemory {
	return &DocumentMemory{docs: make(map[string]model.Document)}
}

var _ repository.DocumentRepository = (*DocumentMemory)(nil)

func (m *DocumentMemory) Create(_ context.Context, doc *model.Document) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; ok {
		return nil, fmt.Errorf("document %s already exists", doc.ID)
	}
	m.docs[doc.ID] = *doc
	out := *doc
	return &out, nil
}

func (m *DocumentMemory) FindByID(_ context.Context, id string) (*model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (m *DocumentMemory) List(_ context.Context, ownerID string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]model.Document, 0)
	for _, d := range m.docs {
		if d.OwnerID == ownerID {
			matched = append(matched, d)
		}
	}
	sort.Slice(matched, func(a, b int) bool {
		if !matched[a].CreatedAt.Equal(matched[b].CreatedAt) {
			return matched[a].CreatedAt.After(matched[b].CreatedAt)
		}
		return matched[a].ID > matched[b].ID
	})
	return &repository.PageResult[model.Document]{Items: page(matched, pq), Total: len(matched)}, nil
}

func (m *DocumentMemory) ListForExport(_ context.Context, ownerID string, p model.Period, categories []model.DocumentCategory) ([]model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[model.DocumentCategory]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}
	out := make([]model.Document, 0)
	for _, d := range m.docs {
		if d.OwnerID == ownerID && wanted[d.Category] && inPeriod(d.CreatedAt, p) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Category != out[b].Category {
			return out[a].Category < out[b].Category
		}
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

func (m *DocumentMemory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}
