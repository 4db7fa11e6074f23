package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the standard header name used to propagate request IDs.
	RequestIDHeader = "X-Request-ID"
	// RequestIDLocalKey is the key used to store the request ID in Fiber's context locals.
	RequestIDLocalKey = "request_id"

	maxRequestIDLen = 128
)

type requestIDKey struct{}

// RequestID ensures every request has an ID. An incoming X-Request-ID is kept
// when it is short printable ASCII; otherwise a UUID is generated. The ID is
// stored in the locals, echoed in the response header, and attached to the
// user context so services can log it.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// The header value is only valid during this request; the ID outlives it
		// in the user context.
		id := utils.CopyString(c.Get(RequestIDHeader))
		if !acceptableRequestID(id) {
			id = uuid.NewString()
		}

		c.Locals(RequestIDLocalKey, id)
		c.Set(RequestIDHeader, id)
		c.SetUserContext(context.WithValue(c.UserContext(), requestIDKey{}, id))

		return c.Next()
	}
}

func acceptableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// RequestIDFromLocals returns the ID stored by RequestID, or "".
func RequestIDFromLocals(c *fiber.Ctx) string {
	if s, ok := c.Locals(RequestIDLocalKey).(string); ok {
		return s
	}
	return ""
}

// RequestIDFromContext returns the ID attached by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(requestIDKey{}).(string); ok {
		return s
	}
	return ""
}
