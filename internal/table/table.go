// Package table writes and reads delimited text tables.
//
// The writer is locale-agnostic: numbers are rendered in their plain Go form and
// any locale formatting (decimal comma, date layout) is the caller's job.
package table

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrRowShape       = errors.New("row does not match header")
	ErrInvalidDialect = errors.New("invalid dialect")
	ErrUnterminated   = errors.New("unterminated encapsulated field")
)

// Field is one named value of a row.
type Field struct {
	Name  string
	Value any
}

// Row is an ordered list of fields. All rows of a table share the same names in the same order.
type Row []Field

// Names returns the field names in order.
func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Get returns the value stored under name.
func (r Row) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Dialect describes the delimited text format.
type Dialect struct {
	Delimiter    string
	Encapsulator string
	Terminator   string
}

// DefaultDialect is semicolon separated, double-quote encapsulated, CRLF terminated.
func DefaultDialect() Dialect {
	return Dialect{Delimiter: ";", Encapsulator: `"`, Terminator: "\r\n"}
}

func (d Dialect) validate() error {
	if d.Delimiter == "" || d.Encapsulator == "" || d.Terminator == "" {
		return fmt.Errorf("%w: delimiter, encapsulator and terminator are required", ErrInvalidDialect)
	}
	if d.Delimiter == d.Encapsulator {
		return fmt.Errorf("%w: delimiter and encapsulator must differ", ErrInvalidDialect)
	}
	return nil
}

// Write writes a header line built from the first row's names followed by one line per row.
// An empty row set writes nothing at all.
func Write(w io.Writer, rows []Row, d Dialect) error {
	if err := d.validate(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	bw := bufio.NewWriter(w)
	header := rows[0].Names()
	if err := writeLine(bw, header, d); err != nil {
		return err
	}

	values := make([]string, len(header))
	for n, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("%w: row %d has %d fields, header has %d", ErrRowShape, n+1, len(row), len(header))
		}
		for i, f := range row {
			if f.Name != header[i] {
				return fmt.Errorf("%w: row %d field %d is %q, want %q", ErrRowShape, n+1, i+1, f.Name, header[i])
			}
			values[i] = FormatValue(f.Value)
		}
		if err := writeLine(bw, values, d); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes rows to path, creating or truncating it.
func WriteFile(path string, rows []Row, d Dialect) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, rows, d); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeLine(bw *bufio.Writer, values []string, d Dialect) error {
	for i, v := range values {
		if i > 0 {
			if _, err := bw.WriteString(d.Delimiter); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString(Quote(v, d)); err != nil {
			return err
		}
	}
	_, err := bw.WriteString(d.Terminator)
	return err
}

// Quote encapsulates v when it contains the delimiter, the encapsulator or a line break,
// doubling every encapsulator inside it.
func Quote(v string, d Dialect) string {
	if !strings.Contains(v, d.Delimiter) &&
		!strings.Contains(v, d.Encapsulator) &&
		!strings.ContainsAny(v, "\r\n") &&
		!strings.Contains(v, d.Terminator) {
		return v
	}
	escaped := strings.ReplaceAll(v, d.Encapsulator, d.Encapsulator+d.Encapsulator)
	return d.Encapsulator + escaped + d.Encapsulator
}

// FormatValue renders a value in its plain string form. nil becomes the empty string.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339)
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
