package postgres

import (
	"context"
	"database/sql"
	"time"

	"auditexport/internal/model"
	"auditexport/internal/repository"
)

// LedgerPostgres reads the bookkeeping tables of one owner.
type LedgerPostgres struct {
	db *sql.DB
}

// NewLedgerPostgres creates a new LedgerPostgres source.
func NewLedgerPostgres(db *sql.DB) *LedgerPostgres {
	return &LedgerPostgres{db: db}
}

var _ repository.LedgerSource = (*LedgerPostgres)(nil)

// queryAll runs q and scans every row with scan.
func queryAll[T any](ctx context.Context, db *sql.DB, q string, scan func(rowScanner) (T, error), args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// Accounts returns the owner's chart of accounts ordered by account number.
func (r *LedgerPostgres) Accounts(ctx context.Context, ownerID string) ([]model.Account, error) {
	const q = `
		SELECT id, number, name, type, balance
		FROM accounts
		WHERE owner_id = $1
		ORDER BY number, id
	`
	return queryAll(ctx, r.db, q, func(s rowScanner) (model.Account, error) {
		var a model.Account
		err := s.Scan(&a.ID, &a.Number, &a.Name, &a.Type, &a.Balance)
		return a, err
	}, ownerID)
}

// Transactions returns bookings whose booking date lies inside p.
func (r *LedgerPostgres) Transactions(ctx context.Context, ownerID string, p model.Period) ([]model.Transaction, error) {
	const q = `
		SELECT id, account_id, booking_date, value_date, amount, currency, description, reference, invoice_id
		FROM transactions
		WHERE owner_id = $1 AND booking_date BETWEEN $2 AND $3
		ORDER BY booking_date, id
	`
	return queryAll(ctx, r.db, q, func(s rowScanner) (model.Transaction, error) {
		var (
			t         model.Transaction
			valueDate sql.NullTime
			invoiceID sql.NullString
		)
		err := s.Scan(&t.ID, &t.AccountID, &t.BookingDate, &valueDate, &t.Amount, &t.Currency, &t.Description, &t.Reference, &invoiceID)
		t.ValueDate = nullTime(valueDate)
		t.InvoiceID = nullString(invoiceID)
		return t, err
	}, ownerID, p.Start, p.End)
}

// Invoices returns invoices whose issue date lies inside p.
func (r *LedgerPostgres) Invoices(ctx context.Context, ownerID string, p model.Period) ([]model.Invoice, error) {
	const q = `
		SELECT id, number, issue_date, due_date, customer_id, supplier_id, net_amount, tax_amount, gross_amount, currency, status
		FROM invoices
		WHERE owner_id = $1 AND issue_date BETWEEN $2 AND $3
		ORDER BY issue_date, number, id
	`
	return queryAll(ctx, r.db, q, func(s rowScanner) (model.Invoice, error) {
		var (
			inv        model.Invoice
			dueDate    sql.NullTime
			customerID sql.NullString
			supplierID sql.NullString
		)
		err := s.Scan(&inv.ID, &inv.Number, &inv.IssueDate, &dueDate, &customerID, &supplierID,
			&inv.NetAmount, &inv.TaxAmount, &inv.GrossAmount, &inv.Currency, &inv.Status)
		inv.DueDate = nullTime(dueDate)
		inv.CustomerID = nullString(customerID)
		inv.SupplierID = nullString(supplierID)
		return inv, err
	}, ownerID, p.Start, p.End)
}

const partyColumns = `id, number, name, tax_id, street, postal_code, city, country`

func scanParty(s rowScanner) (model.Party, error) {
	var p model.Party
	err := s.Scan(&p.ID, &p.Number, &p.Name, &p.TaxID, &p.Street, &p.PostalCode, &p.City, &p.Country)
	return p, err
}

// Customers returns the owner's customers ordered by number.
func (r *LedgerPostgres) Customers(ctx context.Context, ownerID string) ([]model.Customer, error) {
	q := `SELECT ` + partyColumns + ` FROM customers WHERE owner_id = $1 ORDER BY number, id`
	return queryAll(ctx, r.db, q, func(s rowScanner) (model.Customer, error) {
		p, err := scanParty(s)
		return model.Customer{Party: p}, err
	}, ownerID)
}

// Suppliers returns the owner's suppliers ordered by number.
func (r *LedgerPostgres) Suppliers(ctx context.Context, ownerID string) ([]model.Supplier, error) {
	q := `SELECT ` + partyColumns + ` FROM suppliers WHERE owner_id = $1 ORDER BY number, id`
	return queryAll(ctx, r.db, q, func(s rowScanner) (model.Supplier, error) {
		p, err := scanParty(s)
		return model.Supplier{Party: p}, err
	}, ownerID)
}
