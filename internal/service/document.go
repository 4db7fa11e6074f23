package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"auditexport/internal/model"
	"auditexport/internal/repository"
	"auditexport/internal/storage"
)

const defaultDocumentLimit = 10

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// UploadInput describes one source document handed in for archiving.
type UploadInput struct {
	OwnerID     string
	Category    model.DocumentCategory
	Filename    string
	ContentType string
	// Size is the exact byte count, or -1 when unknown.
	Size      int64
	LinkedRef *string
	Reader    io.Reader
}

// DocumentService defines the use cases for source documents.
type DocumentService interface {
	// Upload stores the content, then its metadata. The object is removed again
	// when the metadata cannot be saved.
	Upload(ctx context.Context, in UploadInput) (*model.Document, error)

	// List returns an owner's documents using limit/offset and a total count.
	List(ctx context.Context, ownerID string, limit, offset int) (*DocumentListResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Delete removes a document from both storage and repository.
	Delete(ctx context.Context, id string) error
}

type documentService struct {
	store  storage.Storage
	repo   repository.DocumentRepository
	owners repository.OwnerRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, owners repository.OwnerRepository, logger *slog.Logger) DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		store:  store,
		repo:   repo,
		owners: owners,
		logger: logger.With("component", "documents"),
		now:    time.Now,
	}
}

// documentKey renders documents/<owner>/<category>/<uuid><ext>.
func documentKey(ownerID string, category model.DocumentCategory, id, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("documents", ownerID, string(category), id+ext)
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*model.Document, error) {
	if in.Reader == nil {
		return nil, ErrReaderNil
	}
	if in.OwnerID == "" {
		return nil, ErrIDRequired
	}
	if !in.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, in.Category)
	}
	if _, err := s.owners.FindByID(ctx, in.OwnerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("lookup owner: %w", err)
	}

	id := uuid.NewString()
	key := documentKey(in.OwnerID, in.Category, id, in.Filename)
	h := sha256.New()

	objInfo, err := s.store.Put(ctx, key, io.TeeReader(in.Reader, h), storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: in.ContentType,
		Metadata: map[string]string{
			"original-filename": in.Filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	contentType := objInfo.ContentType
	if contentType == "" {
		contentType = in.ContentType
	}
	doc := &model.Document{
		ID:          id,
		OwnerID:     in.OwnerID,
		Category:    in.Category,
		Filename:    filepath.Base(strings.ReplaceAll(in.Filename, `\`, "/")),
		StoragePath: objInfo.Key,
		Size:        objInfo.Size,
		ContentType: contentType,
		SHA256:      hex.EncodeToString(h.Sum(nil)),
		LinkedRef:   in.LinkedRef,
		CreatedAt:   s.now().UTC(),
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Error("orphaned object after failed save", "event", "document_rollback_failed",
				"storage_path", key, "error", delErr.Error())
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	s.logger.Info("document stored", "event", "document_uploaded", "document_id", id,
		"owner_id", in.OwnerID, "category", string(in.Category), "size", stored.Size)
	return stored, nil
}

func (s *documentService) List(ctx context.Context, ownerID string, limit, offset int) (*DocumentListResult, error) {
	if ownerID == "" {
		return nil, ErrIDRequired
	}
	if limit <= 0 {
		limit = defaultDocumentLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, ownerID, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// Delete removes the object first; the row stays when that fails so the
// storage reference is not lost.
func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("document deleted", "event", "document_deleted", "document_id", id)
	return nil
}
