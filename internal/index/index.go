// Package index renders the GDPdU index document and its DTD.
// Nothing here touches the file system.
package index

import (
	"errors"
	"fmt"
	"strings"

	"auditexport/internal/model"
	"auditexport/internal/schema"
)

const (
	// FileName is the index document name at the archive root.
	FileName = "index.xml"
	// DTDFileName is referenced from the DOCTYPE declaration of the index document.
	DTDFileName = "gdpdu-01-08-2002.dtd"
	// Version is the DataSet version written to every index.
	Version = "1.0"

	defaultMediaName = "Medium 1"
	dateLayout       = "02.01.2006"
)

var ErrNoTables = errors.New("index requires at least one table")

// Supplier describes the data supplier (the exporting owner).
type Supplier struct {
	Name     string
	Location string
	Comment  string
}

// SupplierFromOwner formats an owner's address into the one-line location.
func SupplierFromOwner(o model.Owner, comment string) Supplier {
	var parts []string
	if o.Street != "" {
		parts = append(parts, o.Street)
	}
	city := strings.TrimSpace(o.PostalCode + " " + o.City)
	if city != "" {
		parts = append(parts, city)
	}
	if o.Country != "" {
		parts = append(parts, o.Country)
	}
	location := strings.Join(parts, ", ")
	if o.Contact != "" {
		if location != "" {
			location += "; "
		}
		location += o.Contact
	}
	if comment == "" {
		comment = o.Comment
	}
	return Supplier{Name: o.Name, Location: location, Comment: comment}
}

// WithAudit appends the auditor's request details to the supplier comment.
// Empty fields are skipped; a requested digital signature is noted last.
func (s Supplier) WithAudit(a model.AuditInfo, digitalSignature bool) Supplier {
	parts := make([]string, 0, 5)
	if c := strings.TrimSpace(s.Comment); c != "" {
		parts = append(parts, c)
	}
	if a.AuditorName != "" {
		parts = append(parts, "Auditor: "+a.AuditorName)
	}
	if a.ReferenceNumber != "" {
		parts = append(parts, "Reference: "+a.ReferenceNumber)
	}
	if a.Notes != "" {
		parts = append(parts, "Notes: "+a.Notes)
	}
	if digitalSignature {
		parts = append(parts, "Digital signature requested")
	}
	s.Comment = strings.Join(parts, "; ")
	return s
}

// Input is everything the index document is built from.
type Input struct {
	Supplier  Supplier
	MediaName string
	Schema    schema.Set
}

// Build renders the index document.
func Build(in Input) (string, error) {
	if len(in.Schema.Tables) == 0 {
		return "", ErrNoTables
	}
	media := in.MediaName
	if media == "" {
		media = defaultMediaName
	}

	w := &xmlWriter{}
	w.raw(`<?xml version="1.0" encoding="UTF-8"?>`)
	w.raw(fmt.Sprintf(`<!DOCTYPE DataSet SYSTEM "%s">`, DTDFileName))
	w.open("DataSet")
	w.elem("Version", Version)

	w.open("DataSupplier")
	w.elem("Name", in.Supplier.Name)
	w.elem("Location", in.Supplier.Location)
	w.elem("Comment", in.Supplier.Comment)
	w.close("DataSupplier")

	w.open("Media")
	w.elem("Name", media)
	for _, t := range in.Schema.Tables {
		writeTable(w, t, in.Schema)
	}
	w.close("Media")
	w.close("DataSet")
	return w.String(), nil
}

func writeTable(w *xmlWriter, t schema.Table, set schema.Set) {
	f := set.Format
	w.open("Table")
	w.elem("URL", t.File)
	w.elem("Name", t.Name)
	w.elem("Description", t.Description)

	w.open("Validity")
	w.open("Range")
	validity := t.Validity
	if validity.Start.IsZero() && validity.End.IsZero() {
		validity = set.Period
	}
	w.elem("From", validity.Start.Format(dateLayout))
	w.elem("To", validity.End.Format(dateLayout))
	w.close("Range")
	w.close("Validity")

	w.elem("DecimalSymbol", f.DecimalSymbol)
	w.elem("DigitGroupingSymbol", f.DigitGroupingSymbol)

	w.open("VariableLength")
	w.elem("ColumnDelimiter", f.ColumnDelimiter)
	w.elem("RecordDelimiter", f.RecordDelimiter)
	w.elem("TextEncapsulator", f.TextEncapsulator)

	for _, pk := range t.PrimaryKey {
		for _, c := range t.Columns {
			if c.Name == pk {
				writeColumn(w, "VariablePrimaryKey", c, f)
			}
		}
	}
	for _, c := range t.Columns {
		if !t.IsPrimaryKey(c.Name) {
			writeColumn(w, "VariableColumn", c, f)
		}
	}
	for _, fk := range t.ForeignKeys {
		w.open("ForeignKey")
		for _, name := range fk.Columns {
			w.elem("Name", name)
		}
		w.elem("References", fk.References)
		w.close("ForeignKey")
	}
	w.close("VariableLength")
	w.close("Table")
}

func writeColumn(w *xmlWriter, tag string, c schema.Column, f schema.FormatOptions) {
	w.open(tag)
	w.elem("Name", c.Name)
	if c.Description != "" {
		w.elem("Description", c.Description)
	}
	switch c.Type {
	case schema.Numeric:
		if c.Accuracy > 0 {
			w.open("Numeric")
			w.elem("Accuracy", fmt.Sprint(c.Accuracy))
			w.close("Numeric")
		} else {
			w.empty("Numeric")
		}
	case schema.Date:
		w.open("Date")
		w.elem("Format", f.DateFormat)
		w.close("Date")
	default:
		w.empty("AlphaNumeric")
	}
	if c.Map != nil {
		w.open("Map")
		w.elem("From", c.Name)
		w.elem("To", c.Map.Table+"."+c.Map.Column)
		w.close("Map")
	}
	w.close(tag)
}

type xmlWriter struct {
	b     strings.Builder
	depth int
}

func (w *xmlWriter) indent() {
	w.b.WriteString(strings.Repeat("  ", w.depth))
}

func (w *xmlWriter) raw(s string) {
	w.indent()
	w.b.WriteString(s)
	w.b.WriteString("\n")
}

func (w *xmlWriter) open(tag string) {
	w.raw("<" + tag + ">")
	w.depth++
}

func (w *xmlWriter) close(tag string) {
	w.depth--
	w.raw("</" + tag + ">")
}

func (w *xmlWriter) empty(tag string) {
	w.raw("<" + tag + "/>")
}

func (w *xmlWriter) elem(tag, value string) {
	w.raw("<" + tag + ">" + Escape(value) + "</" + tag + ">")
}

func (w *xmlWriter) String() string {
	return w.b.String()
}

// Escape replaces the five reserved markup characters with entities. Control
// characters (tab, CR, LF) are written as numeric references so delimiters
// such as CRLF survive attribute-value normalization.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		case '\t', '\r', '\n':
			fmt.Fprintf(&b, "&#%d;", r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
