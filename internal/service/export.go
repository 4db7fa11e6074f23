package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"auditexport/internal/checksum"
	"auditexport/internal/model"
	"auditexport/internal/packager"
	"auditexport/internal/repository"
	"auditexport/internal/schema"
	"auditexport/internal/storage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	defaultPrefix    = "gdpdu"
	defaultRetention = 30 * 24 * time.Hour

	startAttempts = 3
	startBackoff  = 50 * time.Millisecond

	interruptedMessage = "export interrupted: service stopped before the archive was finished"
)

// JobStatus is a job as reported to callers. DownloadURL is derived and never stored.
type JobStatus struct {
	model.ExportJob
	DownloadURL string `json:"download_url,omitempty"`
}

// ExportListResult is the service-level DTO for an owner's jobs.
type ExportListResult struct {
	Items []JobStatus `json:"data"`
	Total int         `json:"total"`
}

// Download is an open archive stream. The caller must close Body.
type Download struct {
	Body     io.ReadCloser
	Size     int64
	Filename string
	Job      *model.ExportJob
}

// CleanupResult summarizes one retention sweep.
type CleanupResult struct {
	Scanned int `json:"scanned"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// ExportService defines the export job use cases.
type ExportService interface {
	// Create validates cfg, persists a PENDING job and starts generation in the background.
	Create(ctx context.Context, cfg model.ExportConfig) (*model.ExportJob, error)

	// Get returns the job with a download link once its archive is available.
	Get(ctx context.Context, id string) (*JobStatus, error)

	// Download opens the archive and marks a READY job DOWNLOADED.
	Download(ctx context.Context, id string) (*Download, error)

	// List returns an owner's jobs newest first.
	List(ctx context.Context, ownerID string, limit int) (*ExportListResult, error)

	// Delete removes the archive and marks the job DELETED.
	Delete(ctx context.Context, id string) error

	// CleanupExpired deletes every job past its retention window.
	CleanupExpired(ctx context.Context) (*CleanupResult, error)

	// RecoverInterrupted marks jobs left PENDING or PROCESSING by an earlier
	// process FAILED. Call it once at startup, before Create is reachable.
	RecoverInterrupted(ctx context.Context) (int, error)

	// Shutdown waits for running generations; when ctx ends first they are cancelled.
	Shutdown(ctx context.Context) error
}

// ExportDeps are the collaborators of the export service.
type ExportDeps struct {
	Jobs      repository.ExportRepository
	Owners    repository.OwnerRepository
	Ledger    repository.LedgerSource
	Documents repository.DocumentRepository
	Store     storage.Storage
}

// ExportSettings are the tunables of archive generation.
type ExportSettings struct {
	// Dir holds finished archives.
	Dir string
	// WorkDir is the parent of per-job staging directories.
	WorkDir         string
	Retention       time.Duration
	FilePrefix      string
	Format          schema.FormatOptions
	HashWorkers     int
	SupplierComment string
}

// ExportOption customizes the export service.
type ExportOption func(*exportService)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExportOption {
	return func(s *exportService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ExportOption {
	return func(s *exportService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the zone used for archive file names.
func WithLocation(loc *time.Location) ExportOption {
	return func(s *exportService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithMetrics records job outcomes on m.
func WithMetrics(m *ExportMetrics) ExportOption {
	return func(s *exportService) { s.metrics = m }
}

type exportService struct {
	deps     ExportDeps
	settings ExportSettings
	logger   *slog.Logger
	metrics  *ExportMetrics
	tracer   trace.Tracer
	packager *packager.Packager
	hasher   *checksum.Engine
	now      func() time.Time
	loc      *time.Location

	// workers is cancelled when Shutdown runs out of time.
	workers context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewExportService constructs an ExportService. It fails when the format
// options are inconsistent or the archive directory cannot be created.
func NewExportService(deps ExportDeps, settings ExportSettings, opts ...ExportOption) (ExportService, error) {
	if err := settings.Format.Validate(); err != nil {
		return nil, err
	}
	if settings.Dir == "" {
		return nil, errors.New("export directory is required")
	}
	if settings.WorkDir == "" {
		settings.WorkDir = os.TempDir()
	}
	if settings.Retention <= 0 {
		settings.Retention = defaultRetention
	}
	if settings.FilePrefix == "" {
		settings.FilePrefix = defaultPrefix
	}
	if err := os.MkdirAll(settings.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	if err := os.MkdirAll(settings.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}

	s := &exportService{
		deps:     deps,
		settings: settings,
		logger:   slog.Default(),
		tracer:   otel.Tracer("auditexport/internal/service"),
		now:      time.Now,
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "export")
	s.packager = packager.New(s.logger)
	s.hasher = checksum.New(checksum.WithWorkers(settings.HashWorkers), checksum.WithClock(s.now))
	s.workers, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

func (s *exportService) Create(ctx context.Context, cfg model.ExportConfig) (*model.ExportJob, error) {
	if !cfg.Period.Valid() {
		return nil, ErrInvalidDateRange
	}
	for _, c := range cfg.Categories {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, c)
		}
	}
	if _, err := s.deps.Owners.FindByID(ctx, cfg.OwnerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("lookup owner: %w", err)
	}
	if cfg.IncludeDocuments && len(cfg.Categories) == 0 {
		cfg.Categories = append([]model.DocumentCategory(nil), model.AllCategories...)
	}

	now := s.now().UTC()
	id := uuid.NewString()
	job := &model.ExportJob{
		ID:        id,
		OwnerID:   cfg.OwnerID,
		Filename:  s.archiveName(cfg.OwnerID, id, now),
		Status:    model.StatusPending,
		Period:    cfg.Period,
		Options:   cfg.ExportOptions,
		CreatedAt: now,
		ExpiresAt: now.Add(s.settings.Retention),
	}
	stored, err := s.deps.Jobs.Create(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("persist export job: %w", err)
	}
	s.metrics.status(model.StatusPending)
	s.logger.Info("export job created", "event", "export_created", "job_id", id, "owner_id", cfg.OwnerID,
		"period_start", cfg.Period.Start.Format(time.DateOnly), "period_end", cfg.Period.End.Format(time.DateOnly))

	s.launchWorker(stored.ID, stored.Filename, stored.Config())
	return stored, nil
}

// archiveName renders <prefix>_<owner>-<id8>_<YYYYMMDD>_<HHMMSS>.zip.
func (s *exportService) archiveName(ownerID, id string, at time.Time) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s_%s-%s_%s.zip",
		s.settings.FilePrefix, packager.SanitizeFilename(ownerID), short, at.In(s.loc).Format("20060102_150405"))
}

func (s *exportService) launchWorker(id, filename string, cfg model.ExportConfig) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.fail(id, fmt.Errorf("export worker panic: %v", r))
			}
		}()
		s.generate(s.workers, id, filename, cfg)
	}()
}

func (s *exportService) Get(ctx context.Context, id string) (*JobStatus, error) {
	job, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toStatus(*job), nil
}

func toStatus(job model.ExportJob) *JobStatus {
	st := &JobStatus{ExportJob: job}
	if job.Status.Downloadable() {
		st.DownloadURL = "/exports/" + job.ID + "/download"
	}
	return st
}

func (s *exportService) find(ctx context.Context, id string) (*model.ExportJob, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	job, err := s.deps.Jobs.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrExportNotFound
	}
	return job, err
}

func (s *exportService) archivePath(job *model.ExportJob) string {
	return filepath.Join(s.settings.Dir, job.Filename)
}

func (s *exportService) Download(ctx context.Context, id string) (*Download, error) {
	job, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.Status.Downloadable() {
		return nil, fmt.Errorf("%w (status %s)", ErrNotReady, job.Status)
	}

	f, err := os.Open(s.archivePath(job))
	if err != nil {
		s.logger.Error("archive missing", "event", "export_archive_missing", "job_id", id, "error", err.Error())
		return nil, fmt.Errorf("%w: %s", ErrArchiveMissing, job.Filename)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	if job.Status != model.StatusDownloaded {
		updated, err := s.deps.Jobs.Update(ctx, id, repository.JobUpdate{Status: model.StatusDownloaded})
		switch {
		case err == nil:
			job = updated
			s.metrics.status(model.StatusDownloaded)
		case errors.Is(err, repository.ErrStatusConflict):
			// A concurrent download already moved it.
		default:
			_ = f.Close()
			return nil, fmt.Errorf("mark downloaded: %w", err)
		}
	}
	s.logger.Info("export downloaded", "event", "export_downloaded", "job_id", id, "size", info.Size())
	return &Download{Body: f, Size: info.Size(), Filename: job.Filename, Job: job}, nil
}

func (s *exportService) List(ctx context.Context, ownerID string, limit int) (*ExportListResult, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	res, err := s.deps.Jobs.ListByOwner(ctx, ownerID, repository.PageQuery{Limit: limit})
	if err != nil {
		return nil, err
	}
	items := make([]JobStatus, 0, len(res.Items))
	for _, j := range res.Items {
		items = append(items, *toStatus(j))
	}
	return &ExportListResult{Items: items, Total: res.Total}, nil
}

func (s *exportService) Delete(ctx context.Context, id string) error {
	job, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	switch job.Status {
	case model.StatusDeleted:
		return nil
	case model.StatusPending, model.StatusProcessing:
		return ErrNotDeletable
	}

	if job.Filename != "" {
		if err := os.Remove(s.archivePath(job)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("archive already gone", "event", "export_archive_missing", "job_id", id, "filename", job.Filename)
			} else {
				s.logger.Warn("archive removal failed", "event", "export_archive_remove_failed", "job_id", id, "error", err.Error())
			}
		}
	}

	if _, err := s.deps.Jobs.Update(ctx, id, repository.JobUpdate{Status: model.StatusDeleted}); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Deleted concurrently.
			return nil
		}
		return fmt.Errorf("mark deleted: %w", err)
	}
	s.metrics.status(model.StatusDeleted)
	s.logger.Info("export deleted", "event", "export_deleted", "job_id", id)
	return nil
}

func (s *exportService) CleanupExpired(ctx context.Context) (*CleanupResult, error) {
	now := s.now().UTC()
	jobs, err := s.deps.Jobs.FindExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("find expired exports: %w", err)
	}

	res := &CleanupResult{Scanned: len(jobs)}
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := s.Delete(ctx, job.ID); err != nil {
			res.Failed++
			s.logger.Warn("expired export not deleted", "event", "export_cleanup_failed", "job_id", job.ID, "error", err.Error())
			continue
		}
		res.Deleted++
	}
	s.logger.Info("retention sweep finished", "event", "export_cleanup",
		"scanned", res.Scanned, "deleted", res.Deleted, "failed", res.Failed)
	return res, nil
}

func (s *exportService) RecoverInterrupted(ctx context.Context) (int, error) {
	jobs, err := s.deps.Jobs.FindByStatus(ctx, model.StatusPending, model.StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("find unfinished exports: %w", err)
	}

	recovered := 0
	for _, job := range jobs {
		completed := s.now().UTC()
		msg := interruptedMessage
		_, err := s.deps.Jobs.Update(ctx, job.ID, repository.JobUpdate{
			Status:       model.StatusFailed,
			CompletedAt:  &completed,
			ErrorMessage: &msg,
		})
		if errors.Is(err, repository.ErrStatusConflict) {
			continue
		}
		if err != nil {
			return recovered, fmt.Errorf("fail interrupted export %s: %w", job.ID, err)
		}
		recovered++
		s.metrics.status(model.StatusFailed)
		s.logger.Warn("interrupted export marked failed", "event", "export_interrupted",
			"job_id", job.ID, "previous_status", string(job.Status))
	}
	return recovered, nil
}

func (s *exportService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
