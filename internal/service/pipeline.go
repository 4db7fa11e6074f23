package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"auditexport/internal/checksum"
	"auditexport/internal/index"
	"auditexport/internal/model"
	"auditexport/internal/repository"
	"auditexport/internal/schema"
	"auditexport/internal/table"
)

// generate runs one export from PENDING to READY or FAILED. cfg is a private
// copy; nothing else mutates it.
func (s *exportService) generate(ctx context.Context, id, filename string, cfg model.ExportConfig) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "export.generate", traceAttrs(id, cfg)...)
	defer span.End()

	if err := s.start(ctx, id); err != nil {
		s.logger.Error("cannot start export", "event", "export_start_failed", "job_id", id, "error", err.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		// A conflict means another writer already owns the job.
		if !errors.Is(err, repository.ErrStatusConflict) && !errors.Is(err, repository.ErrNotFound) {
			s.fail(id, fmt.Errorf("start export: %w", err))
		}
		return
	}
	s.metrics.status(model.StatusProcessing)
	s.logger.Info("export generation started", "event", "export_processing", "job_id", id)

	workDir, err := os.MkdirTemp(s.settings.WorkDir, "export-"+id+"-")
	if err != nil {
		s.fail(id, fmt.Errorf("create work directory: %w", err))
		return
	}

	meta, err := s.build(ctx, workDir, filename, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.generated(time.Since(start), 0)
		s.logger.Warn("work directory kept for inspection", "event", "export_workdir_kept", "job_id", id, "path", workDir)
		s.fail(id, err)
		return
	}

	completed := s.now().UTC()
	if _, err := s.deps.Jobs.Update(ctx, id, repository.JobUpdate{
		Status:      model.StatusReady,
		CompletedAt: &completed,
		FileSize:    &meta.FileSize,
		Metadata:    meta,
	}); err != nil {
		s.fail(id, fmt.Errorf("mark ready: %w", err))
		return
	}
	s.metrics.status(model.StatusReady)
	s.metrics.generated(time.Since(start), meta.FileSize)
	span.SetAttributes(attribute.Int64("export.archive_bytes", meta.FileSize))

	if n := s.packager.CleanupDirectory(workDir); n > 0 {
		s.logger.Warn("work directory cleanup incomplete", "event", "export_workdir_cleanup", "job_id", id, "failures", n)
	}
	s.logger.Info("export ready", "event", "export_ready", "job_id", id,
		"file_size", meta.FileSize, "file_count", meta.FileCount, "document_count", meta.DocumentCount,
		"duration_ms", time.Since(start).Milliseconds())
}

// start moves the job to PROCESSING, retrying store errors other than a
// conflict or a missing row.
func (s *exportService) start(ctx context.Context, id string) error {
	var err error
	for attempt := 1; attempt <= startAttempts; attempt++ {
		if _, err = s.deps.Jobs.Update(ctx, id, repository.JobUpdate{Status: model.StatusProcessing}); err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrStatusConflict) || errors.Is(err, repository.ErrNotFound) || attempt == startAttempts {
			return err
		}
		s.logger.Warn("retrying export start", "event", "export_start_retry", "job_id", id,
			"attempt", attempt, "error", err.Error())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * startBackoff):
		}
	}
	return err
}

// fail records err verbatim on the job. It uses a fresh context so a cancelled
// generation still gets its terminal state.
func (s *exportService) fail(id string, err error) {
	msg := err.Error()
	completed := s.now().UTC()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, uerr := s.deps.Jobs.Update(ctx, id, repository.JobUpdate{
		Status:       model.StatusFailed,
		CompletedAt:  &completed,
		ErrorMessage: &msg,
	}); uerr != nil {
		s.logger.Error("cannot record export failure", "event", "export_fail_update_failed", "job_id", id,
			"error", uerr.Error(), "cause", msg)
		return
	}
	s.metrics.status(model.StatusFailed)
	s.logger.Error("export failed", "event", "export_failed", "job_id", id, "error", msg)
}

// stage runs fn inside a child span named export.<name>.
func (s *exportService) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "export."+name)
	defer span.End()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s *exportService) build(ctx context.Context, dir, filename string, cfg model.ExportConfig) (*model.ExportMetadata, error) {
	set := schema.Assemble(cfg, s.settings.Format)
	meta := &model.ExportMetadata{TableRowCounts: make(map[string]int, len(set.Tables))}

	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"skeleton", func(context.Context) error {
			return s.packager.CreateSkeleton(dir, cfg.Categories...)
		}},
		{"index", func(ctx context.Context) error {
			owner, err := s.deps.Owners.FindByID(ctx, cfg.OwnerID)
			if err != nil {
				return fmt.Errorf("lookup owner: %w", err)
			}
			return s.writeIndex(dir, *owner, cfg, set)
		}},
		{"tables", func(ctx context.Context) error {
			return s.writeTables(ctx, dir, cfg, set, meta)
		}},
		{"documents", func(ctx context.Context) error {
			n, err := s.packageDocuments(ctx, dir, cfg)
			meta.DocumentCount = n
			return err
		}},
		{"manifest", func(ctx context.Context) error {
			m, err := s.hasher.HashTree(ctx, dir)
			if err != nil {
				return fmt.Errorf("hash archive tree: %w", err)
			}
			if _, err := checksum.WriteManifest(dir, m); err != nil {
				return fmt.Errorf("write manifest: %w", err)
			}
			meta.ManifestEntries = len(m.Entries)
			return nil
		}},
		{"validate", func(context.Context) error {
			if problems := s.packager.ValidateStructure(dir); len(problems) > 0 {
				return fmt.Errorf("archive structure invalid: %s", strings.Join(problems, "; "))
			}
			n, err := s.packager.FileCount(dir)
			meta.FileCount = n
			return err
		}},
		{"compress", func(context.Context) error {
			out := filepath.Join(s.settings.Dir, filename)
			size, err := s.packager.Compress(dir, out)
			if err != nil {
				return fmt.Errorf("compress archive: %w", err)
			}
			digest, err := checksum.HashFile(out)
			if err != nil {
				return fmt.Errorf("hash archive: %w", err)
			}
			meta.FileSize = size
			meta.ArchiveSHA256 = digest
			return nil
		}},
	}

	for _, st := range stages {
		if err := s.stage(ctx, st.name, st.fn); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

func (s *exportService) writeIndex(dir string, owner model.Owner, cfg model.ExportConfig, set schema.Set) error {
	supplier := index.SupplierFromOwner(owner, s.settings.SupplierComment).WithAudit(cfg.Audit, cfg.DigitalSignature)
	doc, err := index.Build(index.Input{
		Supplier: supplier,
		Schema:   set,
	})
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, index.FileName), []byte(doc), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, index.DTDFileName), []byte(index.DTD()), 0o644)
}

func (s *exportService) writeTables(ctx context.Context, dir string, cfg model.ExportConfig, set schema.Set, meta *model.ExportMetadata) error {
	dialect := set.Format.Dialect()
	for _, tbl := range set.Tables {
		records, err := s.loadRecords(ctx, tbl, cfg.OwnerID)
		if err != nil {
			return fmt.Errorf("load %s: %w", tbl.Name, err)
		}
		rows, err := tbl.Project(records, set.Format)
		if err != nil {
			return err
		}
		if err := table.WriteFile(filepath.Join(dir, filepath.FromSlash(tbl.File)), rows, dialect); err != nil {
			return err
		}
		meta.TableRowCounts[tbl.Name] = len(rows)
	}
	return nil
}

// loadRecords reads the rows of tbl. Movement tables are restricted to the
// table's validity range so the index and the data agree.
func (s *exportService) loadRecords(ctx context.Context, tbl schema.Table, ownerID string) ([]schema.Record, error) {
	ledger := s.deps.Ledger
	switch tbl.Name {
	case schema.TableAccounts:
		items, err := ledger.Accounts(ctx, ownerID)
		return records(items, err)
	case schema.TableTransactions:
		items, err := ledger.Transactions(ctx, ownerID, tbl.Validity)
		return records(items, err)
	case schema.TableInvoices:
		items, err := ledger.Invoices(ctx, ownerID, tbl.Validity)
		return records(items, err)
	case schema.TableCustomers:
		items, err := ledger.Customers(ctx, ownerID)
		return records(items, err)
	case schema.TableSuppliers:
		items, err := ledger.Suppliers(ctx, ownerID)
		return records(items, err)
	default:
		return nil, fmt.Errorf("no record source for table %q", tbl.Name)
	}
}

func records[T schema.Record](items []T, err error) ([]schema.Record, error) {
	if err != nil {
		return nil, err
	}
	out := make([]schema.Record, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out, nil
}

// packageDocuments copies the selected source documents into the tree and
// returns how many were packaged. A missing object or a digest that differs
// from the recorded one fails the export.
func (s *exportService) packageDocuments(ctx context.Context, dir string, cfg model.ExportConfig) (int, error) {
	if !cfg.IncludeDocuments || len(cfg.Categories) == 0 {
		return 0, nil
	}
	docs, err := s.deps.Documents.ListForExport(ctx, cfg.OwnerID, cfg.Period, cfg.Categories)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}
	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		rel, err := s.copyDocument(ctx, dir, d)
		if err != nil {
			return i, err
		}
		if d.SHA256 != "" {
			digest, err := checksum.HashFile(filepath.Join(dir, filepath.FromSlash(rel)))
			if err != nil {
				return i, err
			}
			if !strings.EqualFold(digest, d.SHA256) {
				return i, fmt.Errorf("document %s: content does not match recorded checksum", d.ID)
			}
		}
	}
	return len(docs), nil
}

func (s *exportService) copyDocument(ctx context.Context, dir string, d model.Document) (string, error) {
	rc, _, err := s.deps.Store.Get(ctx, d.StoragePath)
	if err != nil {
		return "", fmt.Errorf("fetch document %s: %w", d.ID, err)
	}
	defer rc.Close()
	rel, err := s.packager.CopyDocument(rc, dir, d.Category, d.Filename)
	if err != nil {
		return "", fmt.Errorf("package document %s: %w", d.ID, err)
	}
	return rel, nil
}

func traceAttrs(id string, cfg model.ExportConfig) []trace.SpanStartOption {
	return []trace.SpanStartOption{trace.WithAttributes(
		attribute.String("export.job_id", id),
		attribute.String("export.owner_id", cfg.OwnerID),
		attribute.Bool("export.include_documents", cfg.IncludeDocuments),
		attribute.Bool("export.incremental", cfg.Incremental),
	)}
}
