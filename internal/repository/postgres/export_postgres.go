package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"auditexport/internal/model"
	"auditexport/internal/repository"
)

// ExportPostgres is a PostgreSQL implementation of repository.ExportRepository.
// Options and metadata are stored as JSONB.
type ExportPostgres struct {
	db *sql.DB
}

// NewExportPostgres creates a new ExportPostgres repository.
func NewExportPostgres(db *sql.DB) *ExportPostgres {
	return &ExportPostgres{db: db}
}

var _ repository.ExportRepository = (*ExportPostgres)(nil)

const exportColumns = `id, owner_id, filename, status, period_start, period_end, options,
		created_at, completed_at, expires_at, file_size, metadata, error_message`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExportJob(s rowScanner) (*model.ExportJob, error) {
	var (
		j           model.ExportJob
		status      string
		options     []byte
		completedAt sql.NullTime
		metadata    []byte
		errMsg      sql.NullString
	)
	if err := s.Scan(
		&j.ID,
		&j.OwnerID,
		&j.Filename,
		&status,
		&j.Period.Start,
		&j.Period.End,
		&options,
		&j.CreatedAt,
		&completedAt,
		&j.ExpiresAt,
		&j.FileSize,
		&metadata,
		&errMsg,
	); err != nil {
		return nil, err
	}
	j.Status = model.ExportStatus(status)
	if len(options) > 0 {
		if err := json.Unmarshal(options, &j.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	if len(metadata) > 0 {
		var m model.ExportMetadata
		if err := json.Unmarshal(metadata, &m); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		j.Metadata = &m
	}
	if errMsg.Valid {
		msg := errMsg.String
		j.ErrorMessage = &msg
	}
	return &j, nil
}

// Create inserts a new export job row and returns the stored record.
func (r *ExportPostgres) Create(ctx context.Context, job *model.ExportJob) (*model.ExportJob, error) {
	options, err := json.Marshal(job.Options)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	q := `
		INSERT INTO export_jobs (id, owner_id, filename, status, period_start, period_end, options, created_at, expires_at, file_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + exportColumns
	row := r.db.QueryRowContext(ctx, q,
		job.ID,
		job.OwnerID,
		job.Filename,
		string(job.Status),
		job.Period.Start,
		job.Period.End,
		string(options),
		job.CreatedAt,
		job.ExpiresAt,
		job.FileSize,
	)
	return scanExportJob(row)
}

// FindByID fetches a single export job.
func (r *ExportPostgres) FindByID(ctx context.Context, id string) (*model.ExportJob, error) {
	q := `SELECT ` + exportColumns + ` FROM export_jobs WHERE id = $1`
	j, err := scanExportJob(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return j, err
}

// ListByOwner returns jobs newest first using LIMIT/OFFSET pagination and a total count.
func (r *ExportPostgres) ListByOwner(ctx context.Context, ownerID string, pq repository.PageQuery) (*repository.PageResult[model.ExportJob], error) {
	const qCount = `SELECT COUNT(*) FROM export_jobs WHERE ($1 = '' OR owner_id = $1)`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, ownerID).Scan(&total); err != nil {
		return nil, err
	}

	q := `SELECT ` + exportColumns + `
		FROM export_jobs
		WHERE ($1 = '' OR owner_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, q, ownerID, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.ExportJob, 0)
	for rows.Next() {
		j, err := scanExportJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.ExportJob]{Items: items, Total: total}, nil
}

// Update applies a guarded status transition. The WHERE clause only matches rows
// whose current status is a legal predecessor of the target status.
func (r *ExportPostgres) Update(ctx context.Context, id string, u repository.JobUpdate) (*model.ExportJob, error) {
	var metadata any
	if u.Metadata != nil {
		b, err := json.Marshal(u.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(b)
	}
	var completedAt, fileSize, errMsg any
	if u.CompletedAt != nil {
		completedAt = *u.CompletedAt
	}
	if u.FileSize != nil {
		fileSize = *u.FileSize
	}
	if u.ErrorMessage != nil {
		errMsg = *u.ErrorMessage
	}

	from := make([]string, 0)
	for _, s := range u.Status.Predecessors() {
		from = append(from, string(s))
	}

	q := `
		UPDATE export_jobs
		SET status = $2,
			completed_at = COALESCE($3, completed_at),
			file_size = COALESCE($4, file_size),
			metadata = COALESCE($5::jsonb, metadata),
			error_message = COALESCE($6, error_message)
		WHERE id = $1 AND status = ANY(string_to_array($7, ','))
		RETURNING ` + exportColumns
	j, err := scanExportJob(r.db.QueryRowContext(ctx, q,
		id,
		string(u.Status),
		completedAt,
		fileSize,
		metadata,
		errMsg,
		strings.Join(from, ","),
	))
	if err == nil {
		return j, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// No row matched: distinguish a missing job from a forbidden transition.
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM export_jobs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrNotFound
	}
	return nil, fmt.Errorf("%w: to %s", repository.ErrStatusConflict, u.Status)
}

// FindExpired returns every non-deleted job whose retention window has passed.
func (r *ExportPostgres) FindExpired(ctx context.Context, now time.Time) ([]model.ExportJob, error) {
	q := `SELECT ` + exportColumns + `
		FROM export_jobs
		WHERE expires_at <= $1 AND status <> $2
		ORDER BY expires_at, id`
	rows, err := r.db.QueryContext(ctx, q, now, string(model.StatusDeleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.ExportJob, 0)
	for rows.Next() {
		j, err := scanExportJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *j)
	}
	return items, rows.Err()
}

// FindByStatus returns every job whose status is one of statuses, oldest first.
func (r *ExportPostgres) FindByStatus(ctx context.Context, statuses ...model.ExportStatus) ([]model.ExportJob, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	q := `SELECT ` + exportColumns + `
		FROM export_jobs
		WHERE status = ANY(string_to_array($1, ','))
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, strings.Join(names, ","))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.ExportJob, 0)
	for rows.Next() {
		j, err := scanExportJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *j)
	}
	return items, rows.Err()
}
