package index

// DTD returns the format-definition document referenced by every index.xml.
// Its content is fixed and independent of the exported data.
func DTD() string {
	return dtd
}

const dtd = `<?xml version="1.0" encoding="UTF-8"?>
<!-- Grammar of the index document describing a GDPdU data medium. Version 1.0 -->

<!ENTITY % Datatype "(AlphaNumeric | Date | Numeric)">
<!ENTITY % Formatting "(DecimalSymbol?, DigitGroupingSymbol?)">

<!ELEMENT DataSet (Version, DataSupplier?, Command*, Media+)>

<!ELEMENT Version (#PCDATA)>

<!ELEMENT DataSupplier (Name, Location, Comment)>
<!ELEMENT Location (#PCDATA)>
<!ELEMENT Comment (#PCDATA)>

<!ELEMENT Command (#PCDATA)>

<!ELEMENT Media (Name, Command*, Table+, Command*)>

<!ELEMENT Table (URL, Name?, Description?, Validity?, (UTF8 | ANSI | Macintosh | OEM)?,
                 %Formatting;, SkipNumBytes?, Range?, Epoch?,
                 (VariableLength | FixedLength))>
<!ELEMENT URL (#PCDATA)>
<!ELEMENT Name (#PCDATA)>
<!ELEMENT Description (#PCDATA)>

<!ELEMENT Validity (Range, Format?)>
<!ELEMENT Range (From, (To | Length)?)>
<!ELEMENT From (#PCDATA)>
<!ELEMENT To (#PCDATA)>
<!ELEMENT Length (#PCDATA)>
<!ELEMENT Epoch (#PCDATA)>
<!ELEMENT SkipNumBytes (#PCDATA)>

<!ELEMENT UTF8 EMPTY>
<!ELEMENT ANSI EMPTY>
<!ELEMENT Macintosh EMPTY>
<!ELEMENT OEM EMPTY>

<!ELEMENT DecimalSymbol (#PCDATA)>
<!ELEMENT DigitGroupingSymbol (#PCDATA)>

<!ELEMENT VariableLength (ColumnDelimiter?, RecordDelimiter?, TextEncapsulator?,
                          VariablePrimaryKey+, VariableColumn*, ForeignKey*)>
<!ELEMENT ColumnDelimiter (#PCDATA)>
<!ELEMENT RecordDelimiter (#PCDATA)>
<!ELEMENT TextEncapsulator (#PCDATA)>

<!ELEMENT VariablePrimaryKey (Name, Description?, %Datatype;, Map*)>
<!ELEMENT VariableColumn (Name, Description?, %Datatype;, Map*)>

<!ELEMENT FixedLength (Length?, FixedPrimaryKey+, FixedColumn*, ForeignKey*)>
<!ELEMENT FixedPrimaryKey (Name, Description?, %Datatype;, Map*, FixedRange)>
<!ELEMENT FixedColumn (Name, Description?, %Datatype;, Map*, FixedRange)>
<!ELEMENT FixedRange (From, (To | Length))>

<!ELEMENT ForeignKey (Name+, References, Alias?)>
<!ELEMENT References (#PCDATA)>
<!ELEMENT Alias (#PCDATA)>

<!ELEMENT AlphaNumeric (#PCDATA)>
<!ELEMENT Date (Format?)>
<!ELEMENT Format (#PCDATA)>
<!ELEMENT Numeric (ImpliedAccuracy | Accuracy)?>
<!ELEMENT ImpliedAccuracy (#PCDATA)>
<!ELEMENT Accuracy (#PCDATA)>

<!ELEMENT Map (Description?, From, To)>
`
