package repository

import (
	"context"
	"time"

	"auditexport/internal/model"
)

// JobUpdate describes one status transition of an export job together with the
// fields written alongside it. Nil pointers leave the stored value untouched.
type JobUpdate struct {
	Status       model.ExportStatus
	CompletedAt  *time.Time
	FileSize     *int64
	Metadata     *model.ExportMetadata
	ErrorMessage *string
}

// ExportRepository persists export jobs.
type ExportRepository interface {
	// Create inserts a new job and returns the stored record.
	Create(ctx context.Context, job *model.ExportJob) (*model.ExportJob, error)

	// FindByID returns the job or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.ExportJob, error)

	// ListByOwner returns jobs newest first. An empty ownerID lists every owner.
	ListByOwner(ctx context.Context, ownerID string, pq PageQuery) (*PageResult[model.ExportJob], error)

	// Update applies u only if the stored status may transition to u.Status.
	// It returns ErrNotFound for unknown ids and ErrStatusConflict otherwise.
	Update(ctx context.Context, id string, u JobUpdate) (*model.ExportJob, error)

	// FindExpired returns jobs with expires_at <= now that are not yet deleted.
	FindExpired(ctx context.Context, now time.Time) ([]model.ExportJob, error)

	// FindByStatus returns every job in one of statuses, oldest first.
	FindByStatus(ctx context.Context, statuses ...model.ExportStatus) ([]model.ExportJob, error)
}
