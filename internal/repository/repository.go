// Package repository declares the persistence ports used by the services.
// Implementations live in the postgres and memory subpackages; no business
// logic belongs here.
package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup by id matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict is returned when a guarded status update finds the row
	// in a status that cannot move to the requested one.
	ErrStatusConflict = errors.New("status transition not allowed")
)

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
