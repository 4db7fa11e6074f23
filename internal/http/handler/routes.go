package handler

import (
	"github.com/gofiber/fiber/v2"

	"auditexport/internal/service"
)

// Deps are the collaborators the routes are bound to. DB may be nil.
type Deps struct {
	DB        Pinger
	Exports   service.ExportService
	Documents service.DocumentService
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers only translate between HTTP and the services.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	exports := app.Group("/exports")
	exports.Post("/", CreateExport(d.Exports))
	exports.Get("/", ListExports(d.Exports))
	// Registered before /:id so "cleanup" is never parsed as an id.
	exports.Post("/cleanup", CleanupExports(d.Exports))
	exports.Get("/:id", GetExport(d.Exports))
	exports.Get("/:id/download", DownloadExport(d.Exports))
	exports.Delete("/:id", DeleteExport(d.Exports))

	documents := app.Group("/documents")
	documents.Get("/", ListDocuments(d.Documents))
	documents.Post("/", UploadDocument(d.Documents))
	documents.Get("/:id", GetDocument(d.Documents))
	documents.Delete("/:id", DeleteDocument(d.Documents))
}
