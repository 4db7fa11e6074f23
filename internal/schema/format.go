package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"auditexport/internal/table"
)

var ErrInvalidFormat = errors.New("invalid format options")

// FormatOptions are the table formatting settings declared in the index document.
// The same value drives the serializer dialect, so the declared and the written
// delimiter can never disagree.
type FormatOptions struct {
	DecimalSymbol       string
	DigitGroupingSymbol string
	ColumnDelimiter     string
	TextEncapsulator    string
	RecordDelimiter     string
	// DateFormat is the layout name written to the index (e.g. DD.MM.YYYY).
	DateFormat string
}

// DefaultFormat returns the German GDPdU defaults.
func DefaultFormat() FormatOptions {
	return FormatOptions{
		DecimalSymbol:       ",",
		DigitGroupingSymbol: ".",
		ColumnDelimiter:     ";",
		TextEncapsulator:    `"`,
		RecordDelimiter:     "\r\n",
		DateFormat:          "DD.MM.YYYY",
	}
}

// Validate rejects options the serializer or an auditor's reader could not handle.
func (f FormatOptions) Validate() error {
	for name, v := range map[string]string{
		"decimal symbol":    f.DecimalSymbol,
		"column delimiter":  f.ColumnDelimiter,
		"text encapsulator": f.TextEncapsulator,
	} {
		if utf8.RuneCountInString(v) != 1 {
			return fmt.Errorf("%w: %s must be a single character, got %q", ErrInvalidFormat, name, v)
		}
	}
	if utf8.RuneCountInString(f.DigitGroupingSymbol) > 1 {
		return fmt.Errorf("%w: digit grouping symbol must be at most one character", ErrInvalidFormat)
	}
	if f.RecordDelimiter == "" {
		return fmt.Errorf("%w: record delimiter is required", ErrInvalidFormat)
	}
	if f.ColumnDelimiter == f.TextEncapsulator {
		return fmt.Errorf("%w: column delimiter and text encapsulator must differ", ErrInvalidFormat)
	}
	if f.DecimalSymbol == f.ColumnDelimiter || f.DecimalSymbol == f.DigitGroupingSymbol {
		return fmt.Errorf("%w: decimal symbol collides with delimiter or grouping symbol", ErrInvalidFormat)
	}
	if _, ok := dateLayouts[f.DateFormat]; !ok {
		return fmt.Errorf("%w: unsupported date format %q", ErrInvalidFormat, f.DateFormat)
	}
	return nil
}

// Dialect derives the serializer settings.
func (f FormatOptions) Dialect() table.Dialect {
	return table.Dialect{
		Delimiter:    f.ColumnDelimiter,
		Encapsulator: f.TextEncapsulator,
		Terminator:   f.RecordDelimiter,
	}
}

var dateLayouts = map[string]string{
	"DD.MM.YYYY": "02.01.2006",
	"YYYY-MM-DD": "2006-01-02",
	"DD/MM/YYYY": "02/01/2006",
}

// FormatDate renders t using the configured date format.
func (f FormatOptions) FormatDate(t time.Time) string {
	layout, ok := dateLayouts[f.DateFormat]
	if !ok {
		layout = dateLayouts["DD.MM.YYYY"]
	}
	return t.Format(layout)
}

// FormatNumber renders v with exactly accuracy decimals using the decimal symbol.
// No digit grouping is applied; the grouping symbol is only declared.
func (f FormatOptions) FormatNumber(v float64, accuracy int) string {
	s := strconv.FormatFloat(v, 'f', accuracy, 64)
	if f.DecimalSymbol != "." {
		s = strings.Replace(s, ".", f.DecimalSymbol, 1)
	}
	return s
}
