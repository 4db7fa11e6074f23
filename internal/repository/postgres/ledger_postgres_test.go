package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditexport/internal/model"
)

func newLedgerMock(t *testing.T) (*LedgerPostgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewLedgerPostgres(db), mock
}

var ledgerPeriod = model.Period{
	Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
}

func TestLedgerPostgres_Accounts(t *testing.T) {
	repo, mock := newLedgerMock(t)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE owner_id = ?").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "number", "name", "type", "balance"}).
			AddRow("a1", "1200", "Bank", "asset", 1500.25).
			AddRow("a2", "8400", "Revenue", "income", -900.0))

	accounts, err := repo.Accounts(context.Background(), "org-1")

	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, model.Account{ID: "a1", Number: "1200", Name: "Bank", Type: "asset", Balance: 1500.25}, accounts[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerPostgres_Transactions(t *testing.T) {
	repo, mock := newLedgerMock(t)
	booked := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM transactions WHERE owner_id = (.+) AND booking_date BETWEEN").
		WithArgs("org-1", ledgerPeriod.Start, ledgerPeriod.End).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "booking_date", "value_date", "amount", "currency", "description", "reference", "invoice_id"}).
			AddRow("t1", "a1", booked, nil, 99.5, "EUR", "Office", "R-1", "inv-1").
			AddRow("t2", "a1", booked, booked, -10.0, "EUR", "Fee", "", nil))

	txs, err := repo.Transactions(context.Background(), "org-1", ledgerPeriod)

	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Nil(t, txs[0].ValueDate)
	require.NotNil(t, txs[0].InvoiceID)
	assert.Equal(t, "inv-1", *txs[0].InvoiceID)
	require.NotNil(t, txs[1].ValueDate)
	assert.Nil(t, txs[1].InvoiceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerPostgres_Invoices(t *testing.T) {
	repo, mock := newLedgerMock(t)
	issued := time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM invoices WHERE owner_id = (.+) AND issue_date BETWEEN").
		WithArgs("org-1", ledgerPeriod.Start, ledgerPeriod.End).
		WillReturnRows(sqlmock.NewRows([]string{"id", "number", "issue_date", "due_date", "customer_id", "supplier_id", "net_amount", "tax_amount", "gross_amount", "currency", "status"}).
			AddRow("i1", "RE-1", issued, nil, "c1", nil, 100.0, 19.0, 119.0, "EUR", "paid"))

	invs, err := repo.Invoices(context.Background(), "org-1", ledgerPeriod)

	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, 119.0, invs[0].GrossAmount)
	require.NotNil(t, invs[0].CustomerID)
	assert.Nil(t, invs[0].SupplierID)
	assert.Nil(t, invs[0].DueDate)
}

func TestLedgerPostgres_Parties(t *testing.T) {
	repo, mock := newLedgerMock(t)
	cols := []string{"id", "number", "name", "tax_id", "street", "postal_code", "city", "country"}

	mock.ExpectQuery("SELECT (.+) FROM customers WHERE owner_id = ?").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("c1", "K-1", "Kunde AG", "DE1", "Weg 2", "80331", "München", "DE"))
	mock.ExpectQuery("SELECT (.+) FROM suppliers WHERE owner_id = ?").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows(cols))

	customers, err := repo.Customers(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "Kunde AG", customers[0].Name)

	suppliers, err := repo.Suppliers(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Empty(t, suppliers)
	assert.NotNil(t, suppliers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerPostgres_QueryError(t *testing.T) {
	repo, mock := newLedgerMock(t)

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Accounts(context.Background(), "org-1")
	assert.EqualError(t, err, "connection reset")
}
