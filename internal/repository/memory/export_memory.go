// Package memory holds map-backed repository implementations used when
// STORE_DRIVER=memory and by service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auditexport/internal/model"
	"auditexport/internal/repository"
)

// ExportMemory is a mutex-guarded in-memory repository.ExportRepository.
type ExportMemory struct {
	mu   sync.RWMutex
	jobs map[string]model.ExportJob
}

// NewExportMemory returns an empty store.
func NewExportMemory() *ExportMemory {
	return &ExportMemory{jobs: make(map[string]model.ExportJob)}
}

var _ repository.ExportRepository = (*ExportMemory)(nil)

// Create stores a copy of job.
func (m *ExportMemory) Create(_ context.Context, job *model.ExportJob) (*model.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return nil, fmt.Errorf("export job %s already exists", job.ID)
	}
	stored := cloneJob(*job)
	m.jobs[job.ID] = stored
	out := cloneJob(stored)
	return &out, nil
}

// FindByID returns a copy of the stored job.
func (m *ExportMemory) FindByID(_ context.Context, id string) (*model.ExportJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneJob(j)
	return &out, nil
}

// ListByOwner returns jobs newest first.
func (m *ExportMemory) ListByOwner(_ context.Context, ownerID string, pq repository.PageQuery) (*repository.PageResult[model.ExportJob], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]model.ExportJob, 0)
	for _, j := range m.jobs {
		if ownerID == "" || j.OwnerID == ownerID {
			matched = append(matched, cloneJob(j))
		}
	}
	sort.Slice(matched, func(a, b int) bool {
		if !matched[a].CreatedAt.Equal(matched[b].CreatedAt) {
			return matched[a].CreatedAt.After(matched[b].CreatedAt)
		}
		return matched[a].ID > matched[b].ID
	})
	return &repository.PageResult[model.ExportJob]{Items: page(matched, pq), Total: len(matched)}, nil
}

// Update applies u when the stored status may transition to u.Status.
func (m *ExportMemory) Update(_ context.Context, id string, u repository.JobUpdate) (*model.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !j.Status.CanTransitionTo(u.Status) {
		return nil, fmt.Errorf("%w: %s to %s", repository.ErrStatusConflict, j.Status, u.Status)
	}
	j.Status = u.Status
	if u.CompletedAt != nil {
		t := *u.CompletedAt
		j.CompletedAt = &t
	}
	if u.FileSize != nil {
		j.FileSize = *u.FileSize
	}
	if u.Metadata != nil {
		md := cloneMetadata(*u.Metadata)
		j.Metadata = &md
	}
	if u.ErrorMessage != nil {
		msg := *u.ErrorMessage
		j.ErrorMessage = &msg
	}
	m.jobs[id] = j
	out := cloneJob(j)
	return &out, nil
}

// FindExpired returns non-deleted jobs whose expiry is at or before now.
func (m *ExportMemory) FindExpired(_ context.Context, now time.Time) ([]model.ExportJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.ExportJob, 0)
	for _, j := range m.jobs {
		if j.Status != model.StatusDeleted && !j.ExpiresAt.After(now) {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].ExpiresAt.Equal(out[b].ExpiresAt) {
			return out[a].ExpiresAt.Before(out[b].ExpiresAt)
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

// FindByStatus returns jobs whose status is one of statuses, oldest first.
func (m *ExportMemory) FindByStatus(_ context.Context, statuses ...model.ExportStatus) ([]model.ExportJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.ExportJob, 0)
	for _, j := range m.jobs {
		for _, st := range statuses {
			if j.Status == st {
				out = append(out, cloneJob(j))
				break
			}
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

func page[T any](items []T, pq repository.PageQuery) []T {
	if pq.Offset >= len(items) {
		return []T{}
	}
	items = items[pq.Offset:]
	if pq.Limit > 0 && pq.Limit < len(items) {
		items = items[:pq.Limit]
	}
	return items
}

func cloneJob(j model.ExportJob) model.ExportJob {
	j.Options.Categories = append([]model.DocumentCategory(nil), j.Options.Categories...)
	if j.Options.PriorExportDate != nil {
		t := *j.Options.PriorExportDate
		j.Options.PriorExportDate = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		j.CompletedAt = &t
	}
	if j.Metadata != nil {
		md := cloneMetadata(*j.Metadata)
		j.Metadata = &md
	}
	if j.ErrorMessage != nil {
		msg := *j.ErrorMessage
		j.ErrorMessage = &msg
	}
	return j
}

func cloneMetadata(md model.ExportMetadata) model.ExportMetadata {
	if md.TableRowCounts != nil {
		counts := make(map[string]int, len(md.TableRowCounts))
		for k, v := range md.TableRowCounts {
			counts[k] = v
		}
		md.TableRowCounts = counts
	}
	return md
}
