package postgres

import (
	"context"
	"database/sql"
	"errors"

	"auditexport/internal/model"
	"auditexport/internal/repository"
)

// OwnerPostgres reads the owners table.
type OwnerPostgres struct {
	db *sql.DB
}

// NewOwnerPostgres creates a new OwnerPostgres repository.
func NewOwnerPostgres(db *sql.DB) *OwnerPostgres {
	return &OwnerPostgres{db: db}
}

var _ repository.OwnerRepository = (*OwnerPostgres)(nil)

// FindByID fetches a single owner by its ID.
func (r *OwnerPostgres) FindByID(ctx context.Context, id string) (*model.Owner, error) {
	const q = `
		SELECT id, name, street, postal_code, city, country, contact, comment
		FROM owners
		WHERE id = $1
	`
	var o model.Owner
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&o.ID,
		&o.Name,
		&o.Street,
		&o.PostalCode,
		&o.City,
		&o.Country,
		&o.Contact,
		&o.Comment,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
