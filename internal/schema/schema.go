// Package schema declares the tables of an audit export and projects ledger
// records onto them.
//
// A Table is the single source of truth for its columns: the index document is
// rendered from it and every data row is built from it, so the declared and the
// written columns cannot drift apart.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"auditexport/internal/model"
	"auditexport/internal/table"
)

var ErrSchemaDrift = errors.New("record does not match table schema")

// DataType is the column data type as understood by the index document.
type DataType int

const (
	AlphaNumeric DataType = iota
	Numeric
	Date
)

func (d DataType) String() string {
	switch d {
	case Numeric:
		return "Numeric"
	case Date:
		return "Date"
	default:
		return "AlphaNumeric"
	}
}

// ColumnMap documents that a column refers to a column of another table.
type ColumnMap struct {
	Table  string
	Column string
}

// Column is one declared column.
type Column struct {
	Name        string
	Description string
	Type        DataType
	// Accuracy is the number of decimals of a Numeric column.
	Accuracy int
	Map      *ColumnMap
}

// ForeignKey declares that Columns reference the primary key of the table
// References, in key order. The index format names only the referencing side.
type ForeignKey struct {
	Columns    []string
	References string
}

// Table is a declared export table.
type Table struct {
	Name        string
	File        string
	Description string
	// Validity is the date range the rows of this table cover. Movement tables
	// of an incremental export start after the prior export; master data always
	// spans the whole period.
	Validity    model.Period
	PrimaryKey  []string
	Columns     []Column
	ForeignKeys []ForeignKey
}

// Record is anything that can be projected onto a table.
type Record interface {
	Fields() map[string]any
}

// ColumnNames returns the column names in declared order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// IsPrimaryKey reports whether name is part of the primary key.
func (t Table) IsPrimaryKey(name string) bool {
	for _, pk := range t.PrimaryKey {
		if pk == name {
			return true
		}
	}
	return false
}

// Project builds rows in declared column order, applying locale formatting to
// numeric and date columns. A record with a missing or undeclared field fails
// with ErrSchemaDrift.
func (t Table) Project(records []Record, f FormatOptions) ([]table.Row, error) {
	rows := make([]table.Row, 0, len(records))
	for n, rec := range records {
		fields := rec.Fields()
		if len(fields) != len(t.Columns) {
			return nil, fmt.Errorf("%w: %s record %d has %v, declared %v", ErrSchemaDrift, t.Name, n+1, sortedKeys(fields), t.ColumnNames())
		}
		row := make(table.Row, len(t.Columns))
		for i, col := range t.Columns {
			v, ok := fields[col.Name]
			if !ok {
				return nil, fmt.Errorf("%w: %s record %d lacks column %q", ErrSchemaDrift, t.Name, n+1, col.Name)
			}
			formatted, err := col.format(v, f)
			if err != nil {
				return nil, fmt.Errorf("%s.%s record %d: %w", t.Name, col.Name, n+1, err)
			}
			row[i] = table.Field{Name: col.Name, Value: formatted}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c Column) format(v any, f FormatOptions) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Type {
	case Numeric:
		switch n := v.(type) {
		case float64:
			return f.FormatNumber(n, c.Accuracy), nil
		case float32:
			return f.FormatNumber(float64(n), c.Accuracy), nil
		case int:
			return f.FormatNumber(float64(n), c.Accuracy), nil
		case int64:
			return f.FormatNumber(float64(n), c.Accuracy), nil
		default:
			return nil, fmt.Errorf("numeric column got %T", v)
		}
	case Date:
		d, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("date column got %T", v)
		}
		return f.FormatDate(d), nil
	default:
		return v, nil
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set is the complete schema of one export. Period is the requested range;
// each table carries its own Validity.
type Set struct {
	Tables []Table
	Format FormatOptions
	Period model.Period
}

// Table returns the table called name.
func (s Set) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
