package schema

import "auditexport/internal/model"

// Table names, also used as keys of the row counts in job metadata.
const (
	TableAccounts     = "accounts"
	TableTransactions = "transactions"
	TableInvoices     = "invoices"
	TableCustomers    = "customers"
	TableSuppliers    = "suppliers"
)

// DataDir is the archive folder holding the table files.
const DataDir = "data"

// Assemble returns the fixed table set of a financial audit export.
// The declarations are static; they never look at row data.
func Assemble(cfg model.ExportConfig, f FormatOptions) Set {
	master, movements := cfg.Period, cfg.LedgerPeriod()
	tables := []Table{
		accountsTable(),
		transactionsTable(),
		invoicesTable(),
		customersTable(),
		suppliersTable(),
	}
	for i := range tables {
		tables[i].Validity = master
		if IsMovementTable(tables[i].Name) {
			tables[i].Validity = movements
		}
	}
	return Set{Tables: tables, Format: f, Period: cfg.Period}
}

// IsMovementTable reports whether rows of the table are dated bookings that
// are restricted to the export range, as opposed to master data.
func IsMovementTable(name string) bool {
	return name == TableTransactions || name == TableInvoices
}

func accountsTable() Table {
	return Table{
		Name:        TableAccounts,
		File:        DataDir + "/accounts.csv",
		Description: "Chart of accounts",
		PrimaryKey:  []string{"account_id"},
		Columns: []Column{
			{Name: "account_id", Description: "Account identifier", Type: AlphaNumeric},
			{Name: "account_number", Description: "Account number", Type: AlphaNumeric},
			{Name: "name", Description: "Account name", Type: AlphaNumeric},
			{Name: "account_type", Description: "Account type (asset, liability, equity, revenue, expense)", Type: AlphaNumeric},
			{Name: "balance", Description: "Closing balance", Type: Numeric, Accuracy: 2},
		},
	}
}

func transactionsTable() Table {
	return Table{
		Name:        TableTransactions,
		File:        DataDir + "/transactions.csv",
		Description: "Journal of bookings",
		PrimaryKey:  []string{"transaction_id"},
		Columns: []Column{
			{Name: "transaction_id", Description: "Transaction identifier", Type: AlphaNumeric},
			{Name: "account_id", Description: "Booked account", Type: AlphaNumeric,
				Map: &ColumnMap{Table: TableAccounts, Column: "account_id"}},
			{Name: "booking_date", Description: "Booking date", Type: Date},
			{Name: "value_date", Description: "Value date", Type: Date},
			{Name: "amount", Description: "Amount, negative for credits", Type: Numeric, Accuracy: 2},
			{Name: "currency", Description: "ISO 4217 currency code", Type: AlphaNumeric},
			{Name: "description", Description: "Booking text", Type: AlphaNumeric},
			{Name: "reference", Description: "Voucher reference", Type: AlphaNumeric},
			{Name: "invoice_id", Description: "Related invoice", Type: AlphaNumeric,
				Map: &ColumnMap{Table: TableInvoices, Column: "invoice_id"}},
		},
		ForeignKeys: []ForeignKey{
			{Columns: []string{"account_id"}, References: TableAccounts},
			{Columns: []string{"invoice_id"}, References: TableInvoices},
		},
	}
}

func invoicesTable() Table {
	return Table{
		Name:        TableInvoices,
		File:        DataDir + "/invoices.csv",
		Description: "Issued and received invoices",
		PrimaryKey:  []string{"invoice_id"},
		Columns: []Column{
			{Name: "invoice_id", Description: "Invoice identifier", Type: AlphaNumeric},
			{Name: "invoice_number", Description: "Invoice number", Type: AlphaNumeric},
			{Name: "issue_date", Description: "Issue date", Type: Date},
			{Name: "due_date", Description: "Due date", Type: Date},
			{Name: "customer_id", Description: "Customer of an issued invoice", Type: AlphaNumeric,
				Map: &ColumnMap{Table: TableCustomers, Column: "customer_id"}},
			{Name: "supplier_id", Description: "Supplier of a received invoice", Type: AlphaNumeric,
				Map: &ColumnMap{Table: TableSuppliers, Column: "supplier_id"}},
			{Name: "net_amount", Description: "Net amount", Type: Numeric, Accuracy: 2},
			{Name: "tax_amount", Description: "Tax amount", Type: Numeric, Accuracy: 2},
			{Name: "gross_amount", Description: "Gross amount", Type: Numeric, Accuracy: 2},
			{Name: "currency", Description: "ISO 4217 currency code", Type: AlphaNumeric},
			{Name: "status", Description: "Payment status", Type: AlphaNumeric},
		},
		ForeignKeys: []ForeignKey{
			{Columns: []string{"customer_id"}, References: TableCustomers},
			{Columns: []string{"supplier_id"}, References: TableSuppliers},
		},
	}
}

func partyColumns(idName, numberName, role string) []Column {
	return []Column{
		{Name: idName, Description: role + " identifier", Type: AlphaNumeric},
		{Name: numberName, Description: role + " number", Type: AlphaNumeric},
		{Name: "name", Description: "Name", Type: AlphaNumeric},
		{Name: "tax_id", Description: "VAT identification number", Type: AlphaNumeric},
		{Name: "street", Description: "Street", Type: AlphaNumeric},
		{Name: "postal_code", Description: "Postal code", Type: AlphaNumeric},
		{Name: "city", Description: "City", Type: AlphaNumeric},
		{Name: "country", Description: "ISO 3166 country code", Type: AlphaNumeric},
	}
}

func customersTable() Table {
	return Table{
		Name:        TableCustomers,
		File:        DataDir + "/customers.csv",
		Description: "Customer master data",
		PrimaryKey:  []string{"customer_id"},
		Columns:     partyColumns("customer_id", "customer_number", "Customer"),
	}
}

func suppliersTable() Table {
	return Table{
		Name:        TableSuppliers,
		File:        DataDir + "/suppliers.csv",
		Description: "Supplier master data",
		PrimaryKey:  []string{"supplier_id"},
		Columns:     partyColumns("supplier_id", "supplier_number", "Supplier"),
	}
}
