package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"auditexport/internal/http/middleware"
	"auditexport/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: middleware.RequestIDFromLocals(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	})
}

// serviceError maps the service error classes onto status codes. Messages of
// validation, not-found and state errors are safe to return; anything else is
// reported as an internal error.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidDateRange):
		return writeError(c, fiber.StatusBadRequest, "INVALID_DATE_RANGE", err.Error())
	case errors.Is(err, service.ErrOwnerNotFound):
		return writeError(c, fiber.StatusUnprocessableEntity, "OWNER_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrInvalidCategory):
		return writeError(c, fiber.StatusBadRequest, "INVALID_CATEGORY", err.Error())
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", err.Error())
	case errors.Is(err, service.ErrReaderNil):
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	case errors.Is(err, service.ErrValidation):
		return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", err.Error())
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrNotReady):
		return writeError(c, fiber.StatusConflict, "EXPORT_NOT_READY", err.Error())
	case errors.Is(err, service.ErrNotDeletable):
		return writeError(c, fiber.StatusConflict, "EXPORT_NOT_DELETABLE", err.Error())
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
