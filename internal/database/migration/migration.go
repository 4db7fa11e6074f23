// Package migration creates the relational schema on first start.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is created last; its presence means every step has run.
const sentinelTable = "public.export_jobs"

var steps = []migrationStep{
	{
		Name: "create_table_owners",
		SQL: `CREATE TABLE IF NOT EXISTS owners (
  id          TEXT PRIMARY KEY,
  name        TEXT NOT NULL,
  street      TEXT NOT NULL DEFAULT '',
  postal_code TEXT NOT NULL DEFAULT '',
  city        TEXT NOT NULL DEFAULT '',
  country     TEXT NOT NULL DEFAULT '',
  contact     TEXT NOT NULL DEFAULT '',
  comment     TEXT NOT NULL DEFAULT ''
);`,
	},
	{
		Name: "create_table_accounts",
		SQL: `CREATE TABLE IF NOT EXISTS accounts (
  id       TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL REFERENCES owners (id),
  number   TEXT NOT NULL,
  name     TEXT NOT NULL,
  type     TEXT NOT NULL,
  balance  NUMERIC(18, 2) NOT NULL DEFAULT 0,
  UNIQUE (owner_id, number)
);`,
	},
	{
		Name: "create_table_customers",
		SQL: `CREATE TABLE IF NOT EXISTS customers (
  id          TEXT PRIMARY KEY,
  owner_id    TEXT NOT NULL REFERENCES owners (id),
  number      TEXT NOT NULL,
  name        TEXT NOT NULL,
  tax_id      TEXT NOT NULL DEFAULT '',
  street      TEXT NOT NULL DEFAULT '',
  postal_code TEXT NOT NULL DEFAULT '',
  city        TEXT NOT NULL DEFAULT '',
  country     TEXT NOT NULL DEFAULT ''
);`,
	},
	{
		Name: "create_table_suppliers",
		SQL: `CREATE TABLE IF NOT EXISTS suppliers (
  id          TEXT PRIMARY KEY,
  owner_id    TEXT NOT NULL REFERENCES owners (id),
  number      TEXT NOT NULL,
  name        TEXT NOT NULL,
  tax_id      TEXT NOT NULL DEFAULT '',
  street      TEXT NOT NULL DEFAULT '',
  postal_code TEXT NOT NULL DEFAULT '',
  city        TEXT NOT NULL DEFAULT '',
  country     TEXT NOT NULL DEFAULT ''
);`,
	},
	{
		Name: "create_table_invoices",
		SQL: `CREATE TABLE IF NOT EXISTS invoices (
  id           TEXT PRIMARY KEY,
  owner_id     TEXT NOT NULL REFERENCES owners (id),
  number       TEXT NOT NULL,
  issue_date   DATE NOT NULL,
  due_date     DATE,
  customer_id  TEXT REFERENCES customers (id),
  supplier_id  TEXT REFERENCES suppliers (id),
  net_amount   NUMERIC(18, 2) NOT NULL,
  tax_amount   NUMERIC(18, 2) NOT NULL,
  gross_amount NUMERIC(18, 2) NOT NULL,
  currency     CHAR(3) NOT NULL,
  status       TEXT NOT NULL
);`,
	},
	{
		Name: "create_table_transactions",
		SQL: `CREATE TABLE IF NOT EXISTS transactions (
  id           TEXT PRIMARY KEY,
  owner_id     TEXT NOT NULL REFERENCES owners (id),
  account_id   TEXT NOT NULL REFERENCES accounts (id),
  booking_date DATE NOT NULL,
  value_date   DATE,
  amount       NUMERIC(18, 2) NOT NULL,
  currency     CHAR(3) NOT NULL,
  description  TEXT NOT NULL DEFAULT '',
  reference    TEXT NOT NULL DEFAULT '',
  invoice_id   TEXT REFERENCES invoices (id)
);`,
	},
	{
		Name: "create_index_transactions_owner_booking_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_transactions_owner_booking_date ON transactions (owner_id, booking_date);`,
	},
	{
		Name: "create_index_invoices_owner_issue_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_invoices_owner_issue_date ON invoices (owner_id, issue_date);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id           TEXT        PRIMARY KEY,
  owner_id     TEXT        NOT NULL REFERENCES owners (id),
  category     TEXT        NOT NULL CHECK (category IN ('invoices', 'receipts', 'contracts')),
  filename     TEXT        NOT NULL,
  storage_path TEXT        NOT NULL UNIQUE,
  size         BIGINT      NOT NULL CHECK (size >= 0),
  content_type TEXT        NOT NULL,
  sha256       TEXT        NOT NULL DEFAULT '',
  linked_ref   TEXT,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_owner_category_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner_category_created_at ON documents (owner_id, category, created_at);`,
	},
	{
		Name: "create_table_export_jobs",
		SQL: `CREATE TABLE IF NOT EXISTS export_jobs (
  id            TEXT        PRIMARY KEY,
  owner_id      TEXT        NOT NULL REFERENCES owners (id),
  filename      TEXT        NOT NULL,
  status        TEXT        NOT NULL,
  period_start  DATE        NOT NULL,
  period_end    DATE        NOT NULL CHECK (period_end > period_start),
  options       JSONB       NOT NULL DEFAULT '{}'::jsonb,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  completed_at  TIMESTAMPTZ,
  expires_at    TIMESTAMPTZ NOT NULL,
  file_size     BIGINT      NOT NULL DEFAULT 0,
  metadata      JSONB,
  error_message TEXT
);`,
	},
	{
		Name: "create_index_export_jobs_owner_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_export_jobs_owner_created_at ON export_jobs (owner_id, created_at DESC);`,
	},
	{
		Name: "create_index_export_jobs_expires_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_export_jobs_expires_at ON export_jobs (expires_at) WHERE status <> 'DELETED';`,
	},
	{
		Name: "create_index_export_jobs_unfinished",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_export_jobs_unfinished ON export_jobs (created_at) WHERE status IN ('PENDING', 'PROCESSING');`,
	},
}

// EnsureMigrated runs every step unless the sentinel table already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger, dbHost string) error {
	start := time.Now()
	log := logger.With("component", "database", "db_host", dbHost)

	log.Info("checking schema", "event", "db_migration_check", "status", "starting")

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", sentinelTable).Scan(&exists); err != nil {
		log.Error("migration check failed", "event", "db_migration_failed", "status", "error",
			"error_message", err.Error(), "duration_ms", time.Since(start).Milliseconds())
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}
	if exists {
		log.Info("schema already exists, skipping migration", "event", "db_migration_skip", "status", "success",
			"duration_ms", time.Since(start).Milliseconds())
		return nil
	}

	log.Info("running migration", "event", "db_migration_start", "status", "in_progress", "steps", len(steps))
	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("migration step failed", "event", "db_migration_failed", "status", "error",
				"migration_step", step.Name, "error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds())
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Debug("migration step applied", "event", "db_migration_step", "status", "success",
			"migration_step", step.Name, "step_duration_ms", time.Since(stepStart).Milliseconds())
	}

	log.Info("migration complete", "event", "db_migration_success", "status", "success",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
