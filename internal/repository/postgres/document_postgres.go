package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"auditexport/internal/model"
	"auditexport/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, owner_id, category, filename, storage_path, size, content_type, sha256, linked_ref, created_at`

func scanDocument(s rowScanner) (model.Document, error) {
	var (
		d         model.Document
		category  string
		linkedRef sql.NullString
	)
	err := s.Scan(
		&d.ID,
		&d.OwnerID,
		&category,
		&d.Filename,
		&d.StoragePath,
		&d.Size,
		&d.ContentType,
		&d.SHA256,
		&linkedRef,
		&d.CreatedAt,
	)
	d.Category = model.DocumentCategory(category)
	d.LinkedRef = nullString(linkedRef)
	return d, err
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	q := `
		INSERT INTO documents (id, owner_id, category, filename, storage_path, size, content_type, sha256, linked_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + documentColumns
	var linkedRef any
	if doc.LinkedRef != nil {
		linkedRef = *doc.LinkedRef
	}
	out, err := scanDocument(r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.OwnerID,
		string(doc.Category),
		doc.Filename,
		doc.StoragePath,
		doc.Size,
		doc.ContentType,
		doc.SHA256,
		linkedRef,
		doc.CreatedAt,
	))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns an owner's documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, ownerID string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents WHERE owner_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, ownerID).Scan(&total); err != nil {
		return nil, err
	}

	q := `SELECT ` + documentColumns + `
		FROM documents
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	items, err := queryAll(ctx, r.db, q, scanDocument, ownerID, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}

// ListForExport selects the documents packaged into an export. The period end is
// inclusive, so the upper bound is the start of the following day.
func (r *DocumentPostgres) ListForExport(ctx context.Context, ownerID string, p model.Period, categories []model.DocumentCategory) ([]model.Document, error) {
	if len(categories) == 0 {
		return []model.Document{}, nil
	}
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	q := `SELECT ` + documentColumns + `
		FROM documents
		WHERE owner_id = $1
			AND category = ANY(string_to_array($2, ','))
			AND created_at >= $3 AND created_at < $4
		ORDER BY category, created_at, id`
	return queryAll(ctx, r.db, q, scanDocument, ownerID, strings.Join(names, ","), p.Start, p.End.AddDate(0, 0, 1))
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
