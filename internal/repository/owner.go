package repository

import (
	"context"

	"auditexport/internal/model"
)

// OwnerRepository is the read-only owner directory.
type OwnerRepository interface {
	// FindByID returns the owner or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Owner, error)
}
