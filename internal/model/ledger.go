package model

import "time"

// Owner is the organization whose books are exported.
type Owner struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
	Contact    string `json:"contact"`
	Comment    string `json:"comment"`
}

// Account is a general ledger account.
type Account struct {
	ID      string
	Number  string
	Name    string
	Type    string
	Balance float64
}

func (a Account) Fields() map[string]any {
	return map[string]any{
		"account_id":     a.ID,
		"account_number": a.Number,
		"name":           a.Name,
		"account_type":   a.Type,
		"balance":        a.Balance,
	}
}

// Transaction is a single booking on an account.
type Transaction struct {
	ID          string
	AccountID   string
	BookingDate time.Time
	ValueDate   *time.Time
	Amount      float64
	Currency    string
	Description string
	Reference   string
	InvoiceID   *string
}

func (t Transaction) Fields() map[string]any {
	return map[string]any{
		"transaction_id": t.ID,
		"account_id":     t.AccountID,
		"booking_date":   t.BookingDate,
		"value_date":     derefTime(t.ValueDate),
		"amount":         t.Amount,
		"currency":       t.Currency,
		"description":    t.Description,
		"reference":      t.Reference,
		"invoice_id":     derefString(t.InvoiceID),
	}
}

// Invoice is an issued (customer) or received (supplier) invoice.
type Invoice struct {
	ID          string
	Number      string
	IssueDate   time.Time
	DueDate     *time.Time
	CustomerID  *string
	SupplierID  *string
	NetAmount   float64
	TaxAmount   float64
	GrossAmount float64
	Currency    string
	Status      string
}

func (i Invoice) Fields() map[string]any {
	return map[string]any{
		"invoice_id":     i.ID,
		"invoice_number": i.Number,
		"issue_date":     i.IssueDate,
		"due_date":       derefTime(i.DueDate),
		"customer_id":    derefString(i.CustomerID),
		"supplier_id":    derefString(i.SupplierID),
		"net_amount":     i.NetAmount,
		"tax_amount":     i.TaxAmount,
		"gross_amount":   i.GrossAmount,
		"currency":       i.Currency,
		"status":         i.Status,
	}
}

// Party is the shared shape of customers and suppliers.
type Party struct {
	ID         string
	Number     string
	Name       string
	TaxID      string
	Street     string
	PostalCode string
	City       string
	Country    string
}

// Customer is a debtor of the owner.
type Customer struct{ Party }

func (c Customer) Fields() map[string]any {
	f := c.Party.fields()
	f["customer_id"] = c.ID
	f["customer_number"] = c.Number
	return f
}

// Supplier is a creditor of the owner.
type Supplier struct{ Party }

func (s Supplier) Fields() map[string]any {
	f := s.Party.fields()
	f["supplier_id"] = s.ID
	f["supplier_number"] = s.Number
	return f
}

func (p Party) fields() map[string]any {
	return map[string]any{
		"name":        p.Name,
		"tax_id":      p.TaxID,
		"street":      p.Street,
		"postal_code": p.PostalCode,
		"city":        p.City,
		"country":     p.Country,
	}
}

func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
