package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditexport/internal/model"
	"auditexport/internal/repository"
)

var exportCols = []string{"id", "owner_id", "filename", "status", "period_start", "period_end", "options",
	"created_at", "completed_at", "expires_at", "file_size", "metadata", "error_message"}

var (
	periodStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	createdAt   = time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
)

func newExportMock(t *testing.T) (*ExportPostgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewExportPostgres(db), mock
}

func pendingRow(rows *sqlmock.Rows, id string) *sqlmock.Rows {
	return rows.AddRow(id, "org-1", "gdpdu_org-1.zip", "PENDING", periodStart, periodEnd,
		[]byte(`{"categories":["invoices"],"include_documents":true,"digital_signature":false,"incremental":false,"audit":{}}`),
		createdAt, nil, createdAt.AddDate(0, 0, 30), int64(0), nil, nil)
}

func TestExportPostgres_Create(t *testing.T) {
	repo, mock := newExportMock(t)

	job := &model.ExportJob{
		ID:        "job-1",
		OwnerID:   "org-1",
		Filename:  "gdpdu_org-1.zip",
		Status:    model.StatusPending,
		Period:    model.Period{Start: periodStart, End: periodEnd},
		Options:   model.ExportOptions{Categories: []model.DocumentCategory{model.CategoryInvoices}, IncludeDocuments: true},
		CreatedAt: createdAt,
		ExpiresAt: createdAt.AddDate(0, 0, 30),
	}

	mock.ExpectQuery("INSERT INTO export_jobs").
		WithArgs("job-1", "org-1", "gdpdu_org-1.zip", "PENDING", periodStart, periodEnd, sqlmock.AnyArg(), createdAt, job.ExpiresAt, int64(0)).
		WillReturnRows(pendingRow(sqlmock.NewRows(exportCols), "job-1"))

	got, err := repo.Create(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, job, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportPostgres_FindByID(t *testing.T) {
	repo, mock := newExportMock(t)

	t.Run("decodes metadata and error", func(t *testing.T) {
		completed := createdAt.Add(time.Minute)
		mock.ExpectQuery("SELECT (.+) FROM export_jobs WHERE id = ?").
			WithArgs("job-2").
			WillReturnRows(sqlmock.NewRows(exportCols).AddRow("job-2", "org-1", "f.zip", "READY", periodStart, periodEnd,
				[]byte(`{}`), createdAt, completed, createdAt.AddDate(0, 0, 30), int64(2048),
				[]byte(`{"file_size":2048,"file_count":9,"document_count":1,"table_row_counts":{"accounts":3}}`), nil))

		job, err := repo.FindByID(context.Background(), "job-2")

		require.NoError(t, err)
		assert.Equal(t, model.StatusReady, job.Status)
		require.NotNil(t, job.CompletedAt)
		assert.Equal(t, completed, *job.CompletedAt)
		require.NotNil(t, job.Metadata)
		assert.Equal(t, 9, job.Metadata.FileCount)
		assert.Equal(t, 3, job.Metadata.TableRowCounts["accounts"])
		assert.Nil(t, job.ErrorMessage)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM export_jobs WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		job, err := repo.FindByID(context.Background(), "missing")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, job)
	})
}

func TestExportPostgres_ListByOwner(t *testing.T) {
	repo, mock := newExportMock(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM export_jobs").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	rows := sqlmock.NewRows(exportCols)
	pendingRow(rows, "job-b")
	pendingRow(rows, "job-a")
	mock.ExpectQuery("SELECT (.+) FROM export_jobs WHERE (.+) ORDER BY created_at DESC").
		WithArgs("org-1", 20, 0).
		WillReturnRows(rows)

	res, err := repo.ListByOwner(context.Background(), "org-1", repository.PageQuery{Limit: 20})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "job-b", res.Items[0].ID)
	assert.Equal(t, []model.DocumentCategory{model.CategoryInvoices}, res.Items[0].Options.Categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportPostgres_Update(t *testing.T) {
	t.Run("guards with predecessor statuses", func(t *testing.T) {
		repo, mock := newExportMock(t)
		now := createdAt.Add(time.Minute)
		size := int64(10)

		mock.ExpectQuery("UPDATE export_jobs SET status").
			WithArgs("job-1", "READY", now, size, sqlmock.AnyArg(), nil, "PROCESSING").
			WillReturnRows(sqlmock.NewRows(exportCols).AddRow("job-1", "org-1", "f.zip", "READY", periodStart, periodEnd,
				[]byte(`{}`), createdAt, now, createdAt.AddDate(0, 0, 30), size, []byte(`{"file_size":10}`), nil))

		job, err := repo.Update(context.Background(), "job-1", repository.JobUpdate{
			Status:      model.StatusReady,
			CompletedAt: &now,
			FileSize:    &size,
			Metadata:    &model.ExportMetadata{FileSize: size},
		})

		require.NoError(t, err)
		assert.Equal(t, model.StatusReady, job.Status)
		assert.Equal(t, size, job.FileSize)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict when the row exists", func(t *testing.T) {
		repo, mock := newExportMock(t)

		mock.ExpectQuery("UPDATE export_jobs SET status").
			WithArgs("job-1", "PROCESSING", nil, nil, nil, nil, "PENDING").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("job-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := repo.Update(context.Background(), "job-1", repository.JobUpdate{Status: model.StatusProcessing})

		assert.ErrorIs(t, err, repository.ErrStatusConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found when the row is missing", func(t *testing.T) {
		repo, mock := newExportMock(t)

		mock.ExpectQuery("UPDATE export_jobs SET status").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := repo.Update(context.Background(), "nope", repository.JobUpdate{Status: model.StatusDeleted})

		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestExportPostgres_FindExpired(t *testing.T) {
	repo, mock := newExportMock(t)
	now := createdAt.AddDate(0, 0, 31)

	rows := sqlmock.NewRows(exportCols)
	pendingRow(rows, "job-old")
	mock.ExpectQuery("SELECT (.+) FROM export_jobs WHERE expires_at <= (.+) AND status <> ").
		WithArgs(now, "DELETED").
		WillReturnRows(rows)

	jobs, err := repo.FindExpired(context.Background(), now)

	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-old", jobs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportPostgres_FindByStatus(t *testing.T) {
	repo, mock := newExportMock(t)

	rows := sqlmock.NewRows(exportCols)
	pendingRow(rows, "job-stuck")
	mock.ExpectQuery("SELECT (.+) FROM export_jobs WHERE status = ANY").
		WithArgs("PENDING,PROCESSING").
		WillReturnRows(rows)

	jobs, err := repo.FindByStatus(context.Background(), model.StatusPending, model.StatusProcessing)

	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-stuck", jobs[0].ID)
	assert.Equal(t, model.StatusPending, jobs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
