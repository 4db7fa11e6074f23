package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auditexport/docs"
	"auditexport/internal/config"
	"auditexport/internal/database"
	"auditexport/internal/database/migration"
	handlers "auditexport/internal/http/handler"
	"auditexport/internal/http/middleware"
	"auditexport/internal/logging"
	"auditexport/internal/model"
	"auditexport/internal/otel"
	"auditexport/internal/repository/memory"
	"auditexport/internal/repository/postgres"
	"auditexport/internal/schema"
	"auditexport/internal/service"
	"auditexport/internal/storage"
)

const shutdownTimeout = 30 * time.Second

// @title Audit Export API
// @version 1.0
// @description Builds tax-audit data archives (index.xml, DTD, CSV tables, source documents).
// @BasePath /
func main() {
	cfg := config.Load()

	loc, locErr := time.LoadLocation(cfg.Timezone)
	if locErr != nil {
		loc = time.UTC
	}
	logger := logging.New(os.Stdout, loc, logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)
	if locErr != nil {
		logger.Warn("invalid APP_TIMEZONE, using UTC", "component", "main", "timezone", cfg.Timezone)
	}

	if err := run(cfg, loc, logger); err != nil {
		logger.Error("fatal", "error", err.Error())
		os.Exit(1)
	}
}

// backend groups what the selected store driver provides.
type backend struct {
	db    *sql.DB
	deps  service.ExportDeps
	close func()
}

func openBackend(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*backend, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
			_ = db.Close()
			return nil, err
		}
		store, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &backend{
			db: db,
			deps: service.ExportDeps{
				Jobs:      postgres.NewExportPostgres(db),
				Owners:    postgres.NewOwnerPostgres(db),
				Ledger:    postgres.NewLedgerPostgres(db),
				Documents: postgres.NewDocumentPostgres(db),
				Store:     store,
			},
			close: func() { _ = db.Close() },
		}, nil

	case config.StoreDriverMemory:
		logger.Warn("memory_store_enabled", "component", "main", "seed_owner_id", cfg.SeedOwnerID)
		return &backend{
			deps: service.ExportDeps{
				Jobs:      memory.NewExportMemory(),
				Owners:    memory.NewOwnerMemory(model.Owner{ID: cfg.SeedOwnerID, Name: cfg.SeedOwnerName}),
				Ledger:    memory.NewLedgerMemory(),
				Documents: memory.NewDocumentMemory(),
				Store:     storage.NewMemory(),
			},
			close: func() {},
		}, nil

	default:
		return nil, errors.New("unsupported STORE_DRIVER: " + cfg.StoreDriver)
	}
}

func exportSettings(c config.ExportConfig) service.ExportSettings {
	return service.ExportSettings{
		Dir:        c.Dir,
		WorkDir:    c.WorkDir,
		Retention:  time.Duration(c.RetentionDays) * 24 * time.Hour,
		FilePrefix: c.FilePrefix,
		Format: schema.FormatOptions{
			DecimalSymbol:       c.DecimalSymbol,
			DigitGroupingSymbol: c.DigitGroupingSymbol,
			ColumnDelimiter:     c.ColumnDelimiter,
			TextEncapsulator:    c.TextEncapsulator,
			RecordDelimiter:     c.RecordDelimiter,
			DateFormat:          c.DateFormat,
		},
		HashWorkers:     c.HashWorkers,
		SupplierComment: c.DataSupplierComment,
	}
}

func run(cfg *config.AppConfig, loc *time.Location, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing_shutdown_failed", "error", err.Error())
		}
	}()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if be.db != nil {
		reg.MustRegister(collectors.NewDBStatsCollector(be.db, cfg.Database.Name))
	}

	exportMetrics, err := service.NewExportMetrics(reg)
	if err != nil {
		return err
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	exportSvc, err := service.NewExportService(be.deps, exportSettings(cfg.Export),
		service.WithLogger(logger),
		service.WithLocation(loc),
		service.WithMetrics(exportMetrics),
	)
	if err != nil {
		return err
	}
	recovered, err := exportSvc.RecoverInterrupted(ctx)
	if err != nil {
		return err
	}
	if recovered > 0 {
		logger.Warn("interrupted_exports_failed", "component", "main", "count", recovered)
	}
	docSvc := service.NewDocumentService(be.deps.Store, be.deps.Documents, be.deps.Owners, logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Multipart uploads of scanned documents.
		BodyLimit: 32 * 1024 * 1024,
	})

	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.Logger(logger))
	app.Use(httpMetrics.Handler())

	deps := handlers.Deps{Exports: exportSvc, Documents: docSvc}
	if be.db != nil {
		deps.DB = be.db
	}
	handlers.RegisterRoutes(app, deps)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go runCleanup(ctx, exportSvc, time.Duration(cfg.Export.CleanupIntervalMin)*time.Minute, logger)

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("server_started", "component", "main", "port", cfg.Port, "store_driver", cfg.StoreDriver)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown_started", "component", "main")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_failed", "component", "main", "error", err.Error())
	}
	if err := exportSvc.Shutdown(shutdownCtx); err != nil {
		logger.Warn("export_workers_abandoned", "component", "main", "error", err.Error())
	}
	logger.Info("shutdown_complete", "component", "main")
	return nil
}

// runCleanup sweeps expired archives until ctx is cancelled. A non-positive
// interval disables the sweep.
func runCleanup(ctx context.Context, svc service.ExportService, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := svc.CleanupExpired(ctx)
			if err != nil {
				logger.Error("cleanup_failed", "component", "cleanup", "error", err.Error())
				continue
			}
			if res.Deleted > 0 {
				logger.Info("cleanup_completed", "component", "cleanup", "deleted", res.Deleted)
			}
		}
	}
}
