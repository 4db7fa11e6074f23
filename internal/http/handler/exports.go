package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"auditexport/internal/model"
	"auditexport/internal/service"
)

// createExportRequest is the body of POST /exports. Dates are YYYY-MM-DD and
// both ends of the period are inclusive.
type createExportRequest struct {
	OwnerID            string          `json:"owner_id"`
	StartDate          string          `json:"start_date"`
	EndDate            string          `json:"end_date"`
	IncludeDocuments   bool            `json:"include_documents"`
	DocumentCategories []string        `json:"document_categories"`
	DigitalSignature   bool            `json:"digital_signature"`
	Incremental        bool            `json:"incremental"`
	PriorExportDate    string          `json:"prior_export_date"`
	Audit              model.AuditInfo `json:"audit"`
}

func parseDate(field, v string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(v), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date in YYYY-MM-DD format", field)
	}
	return t, nil
}

func (r createExportRequest) config() (model.ExportConfig, error) {
	if strings.TrimSpace(r.OwnerID) == "" {
		return model.ExportConfig{}, fmt.Errorf("owner_id is required")
	}
	start, err := parseDate("start_date", r.StartDate)
	if err != nil {
		return model.ExportConfig{}, err
	}
	end, err := parseDate("end_date", r.EndDate)
	if err != nil {
		return model.ExportConfig{}, err
	}

	cfg := model.ExportConfig{
		OwnerID: strings.TrimSpace(r.OwnerID),
		Period:  model.Period{Start: start, End: end},
		ExportOptions: model.ExportOptions{
			IncludeDocuments: r.IncludeDocuments,
			DigitalSignature: r.DigitalSignature,
			Incremental:      r.Incremental,
			Audit:            r.Audit,
		},
	}
	for _, c := range r.DocumentCategories {
		cfg.Categories = append(cfg.Categories, model.DocumentCategory(strings.ToLower(strings.TrimSpace(c))))
	}
	if r.PriorExportDate != "" {
		prior, err := parseDate("prior_export_date", r.PriorExportDate)
		if err != nil {
			return model.ExportConfig{}, err
		}
		cfg.PriorExportDate = &prior
	}
	return cfg, nil
}

func validExportID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// CreateExport accepts an export request and starts generation in the background.
//
// @Summary Request an audit export
// @Tags exports
// @Accept json
// @Produce json
// @Param request body createExportRequest true "Export request"
// @Success 202 {object} model.ExportJob
// @Failure 400 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Router /exports [post]
func CreateExport(svc service.ExportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createExportRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		}
		cfg, err := req.config()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", err.Error())
		}
		job, err := svc.Create(c.UserContext(), cfg)
		if err != nil {
			return serviceError(c, err)
		}
		c.Location("/exports/" + job.ID)
		return c.Status(fiber.StatusAccepted).JSON(job)
	}
}

// ListExports returns an owner's export jobs, newest first.
//
// @Summary List export jobs of an owner
// @Tags exports
// @Produce json
// @Param owner_id query string true "Owner ID"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} service.ExportListResult
// @Failure 400 {object} errorPayload
// @Router /exports [get]
func ListExports(svc service.ExportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ownerID := strings.TrimSpace(c.Query("owner_id"))
		if ownerID == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OWNER", "owner_id is required")
		}
		limit, err := strconv.Atoi(c.Query("limit", "0"))
		if err != nil || limit < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		res, err := svc.List(c.UserContext(), ownerID, limit)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetExport reports the status of one export job.
//
// @Summary Get export job status
// @Tags exports
// @Produce json
// @Param id path string true "Export ID"
// @Success 200 {object} service.JobStatus
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /exports/{id} [get]
func GetExport(svc service.ExportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validExportID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		st, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(st)
	}
}

// DownloadExport streams the finished archive.
//
// @Summary Download an export archive
// @Tags exports
// @Produce application/zip
// @Param id path string true "Export ID"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /exports/{id}/download [get]
func DownloadExport(svc service.ExportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validExportID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		dl, err := svc.Download(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/zip")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, dl.Filename))
		// fasthttp closes the body once it has been written.
		return c.SendStream(dl.Body, int(dl.Size))
	}
}

// DeleteExport removes the archive and marks the job DELETED.
//
// @Summary Delete an export
// @Tags exports
// @Param id path string true "Export ID"
// @Success 204
// @Failure 404 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /exports/{id} [delete]
func DeleteExport(svc service.ExportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validExportID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// CleanupExports runs the retention sweep immediately.
//
// @Summary Delete every expired export
// @Tags exports
// @Produce json
// @Success 200 {object} service.CleanupResult
// @Router /exports/cleanup [post]
func CleanupExports(svc service.ExportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.CleanupExpired(c.UserContext())
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}
