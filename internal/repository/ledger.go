package repository

import (
	"context"

	"auditexport/internal/model"
)

// LedgerSource reads the financial records of one owner. Master data (accounts,
// customers, suppliers) is returned in full; movements are restricted to the period.
type LedgerSource interface {
	Accounts(ctx context.Context, ownerID string) ([]model.Account, error)
	Transactions(ctx context.Context, ownerID string, p model.Period) ([]model.Transaction, error)
	Invoices(ctx context.Context, ownerID string, p model.Period) ([]model.Invoice, error)
	Customers(ctx context.Context, ownerID string) ([]model.Customer, error)
	Suppliers(ctx context.Context, ownerID string) ([]model.Supplier, error)
}
