package service

import (
	"errors"
	"fmt"
)

// Error classes. Every concrete error below wraps exactly one of them so the
// HTTP layer can map with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
)

var (
	ErrIDRequired       = fmt.Errorf("%w: id is required", ErrValidation)
	ErrReaderNil        = fmt.Errorf("%w: reader is nil", ErrValidation)
	ErrInvalidDateRange = fmt.Errorf("%w: start date must be before end date", ErrValidation)
	ErrOwnerNotFound    = fmt.Errorf("%w: owner not found", ErrValidation)
	ErrInvalidCategory  = fmt.Errorf("%w: unknown document category", ErrValidation)

	ErrExportNotFound   = fmt.Errorf("export %w", ErrNotFound)
	ErrDocumentNotFound = fmt.Errorf("document %w", ErrNotFound)
	ErrArchiveMissing   = fmt.Errorf("archive file %w", ErrNotFound)

	ErrNotReady     = fmt.Errorf("%w: export is not ready for download", ErrInvalidState)
	ErrNotDeletable = fmt.Errorf("%w: export is still being generated", ErrInvalidState)
)
