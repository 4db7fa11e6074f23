package memory

import (
	"context"
	"sync"
	"time"

	"auditexport/internal/model"
	"auditexport/internal/repository"
)

// Ledger is the full record set of one owner.
type Ledger struct {
	Accounts     []model.Account
	Transactions []model.Transaction
	Invoices     []model.Invoice
	Customers    []model.Customer
	Suppliers    []model.Supplier
}

// LedgerMemory serves ledgers keyed by owner id. Unknown owners have empty books.
type LedgerMemory struct {
	mu      sync.RWMutex
	ledgers map[string]Ledger
}

// NewLedgerMemory returns an empty source.
func NewLedgerMemory() *LedgerMemory {
	return &LedgerMemory{ledgers: make(map[string]Ledger)}
}

var _ repository.LedgerSource = (*LedgerMemory)(nil)

// Put replaces the ledger of ownerID.
func (m *LedgerMemory) Put(ownerID string, l Ledger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgers[ownerID] = l
}

func (m *LedgerMemory) get(ownerID string) Ledger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ledgers[ownerID]
}

// inPeriod reports whether t falls on a day inside p (both ends inclusive).
func inPeriod(t time.Time, p model.Period) bool {
	return !t.Before(p.Start) && t.Before(p.End.AddDate(0, 0, 1))
}

func (m *LedgerMemory) Accounts(_ context.Context, ownerID string) ([]model.Account, error) {
	return append([]model.Account{}, m.get(ownerID).Accounts...), nil
}

func (m *LedgerMemory) Transactions(_ context.Context, ownerID string, p model.Period) ([]model.Transaction, error) {
	out := make([]model.Transaction, 0)
	for _, t := range m.get(ownerID).Transactions {
		if inPeriod(t.BookingDate, p) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *LedgerMemory) Invoices(_ context.Context, ownerID string, p model.Period) ([]model.Invoice, error) {
	out := make([]model.Invoice, 0)
	for _, inv := range m.get(ownerID).Invoices {
		if inPeriod(inv.IssueDate, p) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *LedgerMemory) Customers(_ context.Context, ownerID string) ([]model.Customer, error) {
	return append([]model.Customer{}, m.get(ownerID).Customers...), nil
}

func (m *LedgerMemory) Suppliers(_ context.Context, ownerID string) ([]model.Supplier, error) {
	return append([]model.Supplier{}, m.get(ownerID).Suppliers...), nil
}
