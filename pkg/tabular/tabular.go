// Package tabular defines the row model shared by rowpick's packages and parses
// delimited text into rows under a declared column schema.
package tabular

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oakwood-commons/rowpick/pkg/columns"
	"github.com/oakwood-commons/rowpick/pkg/linestream"
)

var (
	// ErrSchemaMismatch is matched by every *SchemaMismatchError.
	ErrSchemaMismatch = errors.New("number of values must equal number of headers")
	// ErrNoColumns is returned when parsing without a schema.
	ErrNoColumns = errors.New("at least one column is required")
)

// Row is one record keyed by column name.
type Row map[string]any

// Predicate decides whether a row is kept.
type Predicate func(Row) bool

// SchemaMismatchError reports a data line whose field count differs from the schema.
type SchemaMismatchError struct {
	// Line is the 1-based logical line, counting the header as line 1.
	Line    int
	Values  int
	Columns int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("line %d: %s (got %d values, want %d)", e.Line, ErrSchemaMismatch, e.Values, e.Columns)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// Parse reads text as a delimited table. The first line is a header and is
// discarded: cols is authoritative. Text input follows the trimmed line
// semantics of linestream, so parsing ends at the first blank line.
func Parse(text string, delimiter rune, cols []string, filter Predicate) ([]Row, error) {
	return ParseStream(linestream.FromString(text), delimiter, cols, filter)
}

// ParseBytes is Parse over a raw buffer. Blank lines are skipped rather than
// ending the table.
func ParseBytes(data []byte, delimiter rune, cols []string, filter Predicate) ([]Row, error) {
	return ParseStream(linestream.FromBytes(data), delimiter, cols, filter)
}

// ParseStream parses the remaining lines of s. Rows are produced in input order
// and filter, when set, is applied as each row is built.
func ParseStream(s linestream.Stream, delimiter rune, cols []string, filter Predicate) ([]Row, error) {
	if len(cols) == 0 {
		return nil, ErrNoColumns
	}
	rows := []Row{}
	if _, ok := s.NextLine(); !ok {
		return rows, nil
	}

	sep := string(delimiter)
	lineNo := 1
	for {
		line, ok := s.NextLine()
		if !ok {
			break
		}
		lineNo++
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, sep)
		if len(fields) != len(cols) {
			return nil, &SchemaMismatchError{Line: lineNo, Values: len(fields), Columns: len(cols)}
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = strings.TrimSpace(fields[i])
		}
		if filter != nil && !filter(row) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Serialize writes rows back as delimited text with cols as the header line.
func Serialize(rows []Row, delimiter rune, cols []string) string {
	sep := string(delimiter)
	var sb strings.Builder
	sb.WriteString(strings.Join(cols, sep))
	for _, row := range rows {
		sb.WriteByte('\n')
		for i, col := range cols {
			if i > 0 {
				sb.WriteString(sep)
			}
			sb.WriteString(columns.CellText(row[col]))
		}
	}
	sb.WriteByte('\n')
	return sb.String()
}

// DelimitedParser parses raw text with a fixed schema and delimiter. It plugs
// into any consumer that accepts a custom Parse(raw) hook.
type DelimitedParser struct {
	Columns   []string
	Delimiter rune
	Filter    Predicate
}

// Parse implements the custom parser hook.
func (p DelimitedParser) Parse(raw string) ([]Row, error) {
	delim := p.Delimiter
	if delim == 0 {
		delim = '\t'
	}
	return Parse(raw, delim, p.Columns, p.Filter)
}
