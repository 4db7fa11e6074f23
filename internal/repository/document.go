package repository

import (
	"context"

	"auditexport/internal/model"
)

// DocumentRepository defines data access for source document metadata.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns an owner's documents, newest first, with the total count.
	List(ctx context.Context, ownerID string, pq PageQuery) (*PageResult[model.Document], error)

	// ListForExport returns the owner's documents of the given categories created
	// inside the period, ordered by category then creation time.
	ListForExport(ctx context.Context, ownerID string, p model.Period, categories []model.DocumentCategory) ([]model.Document, error)

	// Delete removes a document by ID. Missing rows are not an error.
	Delete(ctx context.Context, id string) error
}
