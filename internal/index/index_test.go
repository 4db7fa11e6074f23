package index

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditexport/internal/model"
	"auditexport/internal/schema"
)

func testSet() schema.Set {
	cfg := model.ExportConfig{
		OwnerID: "org-1",
		Period: model.Period{
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		},
	}
	return schema.Assemble(cfg, schema.DefaultFormat())
}

type parsedIndex struct {
	XMLName      xml.Name `xml:"DataSet"`
	Version      string   `xml:"Version"`
	DataSupplier struct {
		Name     string `xml:"Name"`
		Location string `xml:"Location"`
		Comment  string `xml:"Comment"`
	} `xml:"DataSupplier"`
	Media struct {
		Name   string `xml:"Name"`
		Tables []struct {
			URL      string `xml:"URL"`
			Name     string `xml:"Name"`
			Validity struct {
				From string `xml:"Range>From"`
				To   string `xml:"Range>To"`
			} `xml:"Validity"`
			DecimalSymbol string `xml:"DecimalSymbol"`
			Variable      struct {
				ColumnDelimiter  string `xml:"ColumnDelimiter"`
				RecordDelimiter  string `xml:"RecordDelimiter"`
				TextEncapsulator string `xml:"TextEncapsulator"`
				PrimaryKeys      []struct {
					Name string `xml:"Name"`
				} `xml:"VariablePrimaryKey"`
				Columns []struct {
					Name     string    `xml:"Name"`
					Accuracy string    `xml:"Numeric>Accuracy"`
					Format   string    `xml:"Date>Format"`
					Alpha    *struct{} `xml:"AlphaNumeric"`
					MapTo    string    `xml:"Map>To"`
				} `xml:"VariableColumn"`
				ForeignKeys []struct {
					Names      []string `xml:"Name"`
					References string   `xml:"References"`
				} `xml:"ForeignKey"`
			} `xml:"VariableLength"`
		} `xml:"Table"`
	} `xml:"Media"`
}

func TestBuild_Structure(t *testing.T) {
	set := testSet()
	doc, err := Build(Input{
		Supplier: Supplier{Name: "Müller & Söhne <GmbH>", Location: `Hauptstr. 1, 10115 Berlin`, Comment: `"Q4" it's final`},
		Schema:   set,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"))
	assert.Contains(t, doc, `<!DOCTYPE DataSet SYSTEM "gdpdu-01-08-2002.dtd">`)
	assert.Contains(t, doc, "<Name>Müller &amp; Söhne &lt;GmbH&gt;</Name>")
	assert.Contains(t, doc, "<Comment>&quot;Q4&quot; it&apos;s final</Comment>")
	assert.Contains(t, doc, "<RecordDelimiter>&#13;&#10;</RecordDelimiter>")

	var parsed parsedIndex
	require.NoError(t, xml.Unmarshal([]byte(doc), &parsed))

	assert.Equal(t, Version, parsed.Version)
	assert.Equal(t, "Müller & Söhne <GmbH>", parsed.DataSupplier.Name)
	require.Len(t, parsed.Media.Tables, len(set.Tables))

	for i, tbl := range set.Tables {
		got := parsed.Media.Tables[i]
		assert.Equal(t, tbl.File, got.URL)
		assert.Equal(t, tbl.Name, got.Name)
		assert.Equal(t, "01.01.2024", got.Validity.From)
		assert.Equal(t, "31.12.2024", got.Validity.To)
		assert.Equal(t, ",", got.DecimalSymbol)
		assert.Equal(t, ";", got.Variable.ColumnDelimiter)
		assert.Equal(t, `"`, got.Variable.TextEncapsulator)
		assert.Len(t, got.Variable.PrimaryKeys, len(tbl.PrimaryKey))
		assert.Len(t, got.Variable.Columns, len(tbl.Columns)-len(tbl.PrimaryKey))
		assert.Len(t, got.Variable.ForeignKeys, len(tbl.ForeignKeys))
	}
}

func TestBuild_ColumnTypes(t *testing.T) {
	doc, err := Build(Input{Supplier: Supplier{Name: "x"}, Schema: testSet()})
	require.NoError(t, err)

	var parsed parsedIndex
	require.NoError(t, xml.Unmarshal([]byte(doc), &parsed))

	tx := parsed.Media.Tables[1]
	require.Equal(t, "transactions", tx.Name)
	assert.Equal(t, "transaction_id", tx.Variable.PrimaryKeys[0].Name)

	byName := map[string]int{}
	for i, c := range tx.Variable.Columns {
		byName[c.Name] = i
	}
	assert.Equal(t, "2", tx.Variable.Columns[byName["amount"]].Accuracy)
	assert.Equal(t, "DD.MM.YYYY", tx.Variable.Columns[byName["booking_date"]].Format)
	assert.NotNil(t, tx.Variable.Columns[byName["currency"]].Alpha)
	assert.Equal(t, "accounts.account_id", tx.Variable.Columns[byName["account_id"]].MapTo)
	assert.Equal(t, "accounts", tx.Variable.ForeignKeys[0].References)
	assert.Equal(t, []string{"account_id"}, tx.Variable.ForeignKeys[0].Names)
}

func TestBuild_FollowsFormatOptions(t *testing.T) {
	set := testSet()
	set.Format.ColumnDelimiter = "|"
	set.Format.DecimalSymbol = "."
	set.Format.DigitGroupingSymbol = ","

	doc, err := Build(Input{Supplier: Supplier{Name: "x"}, Schema: set})
	require.NoError(t, err)

	assert.Equal(t, len(set.Tables), strings.Count(doc, "<ColumnDelimiter>|</ColumnDelimiter>"))
	assert.Equal(t, len(set.Tables), strings.Count(doc, "<DecimalSymbol>.</DecimalSymbol>"))
}

func TestBuild_IncrementalValidity(t *testing.T) {
	prior := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	cfg := model.ExportConfig{
		OwnerID: "org-1",
		Period: model.Period{
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		ExportOptions: model.ExportOptions{Incremental: true, PriorExportDate: &prior},
	}
	doc, err := Build(Input{Supplier: Supplier{Name: "x"}, Schema: schema.Assemble(cfg, schema.DefaultFormat())})
	require.NoError(t, err)

	var parsed parsedIndex
	require.NoError(t, xml.Unmarshal([]byte(doc), &parsed))

	from := map[string]string{}
	for _, tbl := range parsed.Media.Tables {
		from[tbl.Name] = tbl.Validity.From
		assert.Equal(t, "31.12.2024", tbl.Validity.To, tbl.Name)
	}
	assert.Equal(t, map[string]string{
		"accounts":     "01.01.2024",
		"transactions": "01.07.2024",
		"invoices":     "01.07.2024",
		"customers":    "01.01.2024",
		"suppliers":    "01.01.2024",
	}, from)
}

func TestBuild_NoTables(t *testing.T) {
	_, err := Build(Input{})
	assert.ErrorIs(t, err, ErrNoTables)
}

func TestBuild_Deterministic(t *testing.T) {
	in := Input{Supplier: Supplier{Name: "x"}, Schema: testSet()}
	a, err := Build(in)
	require.NoError(t, err)
	b, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "&amp;&lt;&gt;&quot;&apos;", Escape(`&<>"'`))
	assert.Equal(t, "plain ä", Escape("plain ä"))
	assert.Equal(t, "a&#9;b", Escape("a\tb"))
}

func TestSupplierFromOwner(t *testing.T) {
	o := model.Owner{Name: "Org", Street: "Main 1", PostalCode: "10115", City: "Berlin", Country: "DE", Contact: "tax@org.example", Comment: "default"}

	s := SupplierFromOwner(o, "")
	assert.Equal(t, "Org", s.Name)
	assert.Equal(t, "Main 1, 10115 Berlin, DE; tax@org.example", s.Location)
	assert.Equal(t, "default", s.Comment)

	assert.Equal(t, "override", SupplierFromOwner(o, "override").Comment)
}

func TestSupplier_WithAudit(t *testing.T) {
	base := Supplier{Name: "Org", Comment: "Annual export"}
	audit := model.AuditInfo{AuditorName: "B. Prüfer", ReferenceNumber: "BP-2024-17", Notes: "FY 2024"}

	got := base.WithAudit(audit, true)
	assert.Equal(t, "Annual export; Auditor: B. Prüfer; Reference: BP-2024-17; Notes: FY 2024; Digital signature requested", got.Comment)
	assert.Equal(t, "Annual export", base.Comment, "receiver is not modified")

	assert.Equal(t, "Reference: R-1", Supplier{}.WithAudit(model.AuditInfo{ReferenceNumber: "R-1"}, false).Comment)
	assert.Equal(t, "Annual export", base.WithAudit(model.AuditInfo{}, false).Comment)
}

func TestDTD_Fixed(t *testing.T) {
	assert.Equal(t, DTD(), DTD())
	assert.Contains(t, DTD(), "<!ELEMENT DataSet")
	assert.Contains(t, DTD(), "<!ELEMENT VariableLength")
}
