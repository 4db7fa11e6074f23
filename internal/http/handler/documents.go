package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"auditexport/internal/model"
	"auditexport/internal/service"
)

// ListDocuments returns an owner's source documents with limit & offset.
//
// @Summary List source documents
// @Tags documents
// @Produce json
// @Param owner_id query string true "Owner ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} service.DocumentListResult
// @Failure 400 {object} errorPayload
// @Router /documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ownerID := strings.TrimSpace(c.Query("owner_id"))
		if ownerID == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OWNER", "owner_id is required")
		}
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), ownerID, limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// UploadDocument stores a source document (multipart/form-data, field name: file).
//
// @Summary Upload a source document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document"
// @Param owner_id formData string true "Owner ID"
// @Param category formData string true "invoices, receipts or contracts"
// @Param linked_ref formData string false "Business reference, e.g. an invoice number"
// @Success 201 {object} model.Document
// @Failure 400 {object} errorPayload
// @Router /documents [post]
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}
		in := service.UploadInput{
			OwnerID:     strings.TrimSpace(c.FormValue("owner_id")),
			Category:    model.DocumentCategory(strings.ToLower(strings.TrimSpace(c.FormValue("category")))),
			Filename:    fh.Filename,
			ContentType: ct,
			Size:        fh.Size,
			Reader:      f,
		}
		if ref := strings.TrimSpace(c.FormValue("linked_ref")); ref != "" {
			in.LinkedRef = &ref
		}

		doc, err := svc.Upload(c.UserContext(), in)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument returns a document's metadata.
//
// @Summary Get a source document
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} model.Document
// @Failure 404 {object} errorPayload
// @Router /documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument removes a document from storage and the database.
//
// @Summary Delete a source document
// @Tags documents
// @Param id path string true "Document ID"
// @Success 204
// @Failure 404 {object} errorPayload
// @Router /documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
