package table

import (
	"fmt"
	"io"
	"strings"
)

// Read parses delimited text produced by Write. The first line is the header; every
// value is returned as a string. Empty input yields no rows.
func Read(r io.Reader, d Dialect) ([]Row, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	records, err := split(string(data), d)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]Row, 0, len(records)-1)
	for n, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", ErrRowShape, n+2, len(rec), len(header))
		}
		row := make(Row, len(rec))
		for i, v := range rec {
			row[i] = Field{Name: header[i], Value: v}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func split(s string, d Dialect) ([][]string, error) {
	var (
		records [][]string
		fields  []string
		cur     strings.Builder
		// atStart is true until the current field consumes input; inRecord
		// is true once the current record has any field, even an empty one.
		atStart  = true
		inRecord bool
	)
	enc := d.Encapsulator
	for len(s) > 0 {
		switch {
		case atStart && strings.HasPrefix(s, enc):
			atStart, inRecord = false, true
			s = s[len(enc):]
			closed := false
			for len(s) > 0 && !closed {
				if !strings.HasPrefix(s, enc) {
					cur.WriteByte(s[0])
					s = s[1:]
					continue
				}
				s = s[len(enc):]
				if strings.HasPrefix(s, enc) {
					cur.WriteString(enc)
					s = s[len(enc):]
					continue
				}
				closed = true
			}
			if !closed {
				return nil, ErrUnterminated
			}
		case strings.HasPrefix(s, d.Delimiter):
			fields = append(fields, cur.String())
			cur.Reset()
			atStart, inRecord = true, true
			s = s[len(d.Delimiter):]
		case strings.HasPrefix(s, d.Terminator):
			fields = append(fields, cur.String())
			cur.Reset()
			records = append(records, fields)
			fields = nil
			atStart, inRecord = true, false
			s = s[len(d.Terminator):]
		default:
			atStart, inRecord = false, true
			cur.WriteByte(s[0])
			s = s[1:]
		}
	}
	if inRecord {
		records = append(records, append(fields, cur.String()))
	}
	return records, nil
}
