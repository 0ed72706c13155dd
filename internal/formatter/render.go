package formatter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/domonda/go-retable"
	"github.com/domonda/go-retable/csvtable"
	runewidth "github.com/mattn/go-runewidth"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/rowpick/pkg/columns"
	"github.com/oakwood-commons/rowpick/pkg/tabular"
)

// Format is an output format for rows.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
	FormatTSV   Format = "tsv"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the accepted output formats.
func Formats() []Format {
	return []Format{FormatTable, FormatJSON, FormatYAML, FormatCSV, FormatTSV}
}

// ParseFormat accepts a format name, case-insensitively. "yml" is YAML.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "yml" {
		name = string(FormatYAML)
	}
	for _, f := range Formats() {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of table, json, yaml, csv, tsv)", ErrUnknownFormat, s)
}

// Options control rendering.
type Options struct {
	Format  Format
	Columns []string
	Defs    columns.Defs
	NoColor bool
	// Width caps table output. Zero uses the terminal width.
	Width int
	// RowNumbers prefixes table rows with their 1-based position.
	RowNumbers bool
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	rowNumberStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// Render writes rows to w in opts.Format.
func Render(w io.Writer, rows []tabular.Row, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		return renderJSON(w, rows)
	case FormatYAML:
		return renderYAML(w, rows)
	case FormatCSV:
		return renderDelimited(w, rows, opts.Columns, ',')
	case FormatTSV:
		return renderDelimited(w, rows, opts.Columns, '\t')
	case FormatTable, "":
		_, err := io.WriteString(w, RenderTable(rows, opts))
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

func renderJSON(w io.Writer, rows []tabular.Row) error {
	if rows == nil {
		rows = []tabular.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func renderYAML(w io.Writer, rows []tabular.Row) error {
	if rows == nil {
		rows = []tabular.Row{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rows); err != nil {
		return err
	}
	return enc.Close()
}

func renderDelimited(w io.Writer, rows []tabular.Row, cols []string, delimiter rune) error {
	view := &retable.StringsView{Cols: cols, Rows: make([][]string, len(rows))}
	quoted := slices.ContainsFunc(cols, func(c string) bool { return strings.Contains(c, `"`) })
	for r, row := range rows {
		record := make([]string, len(cols))
		for i, c := range cols {
			record[i] = columns.CellText(row[c])
			quoted = quoted || strings.Contains(record[i], `"`)
		}
		view.Rows[r] = record
	}
	// csvtable doubles embedded quotes without wrapping the field,
	// so any quote in the output switches to quoting every field.
	writer := csvtable.NewWriter[*retable.StringsView]().
		WithHeaderRow(true).
		WithDelimiter(delimiter).
		WithNewLine("\n").
		WithQuoteAllFields(quoted)
	return writer.WriteView(context.Background(), w, view)
}

// RenderTable lays rows out in aligned columns headed by display titles.
// Columns wider than the available width are shrunk widest first.
func RenderTable(rows []tabular.Row, opts Options) string {
	if len(opts.Columns) == 0 {
		return ""
	}
	titles := opts.Defs.Titles(opts.Columns)
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(opts.Columns))
		for j, c := range opts.Columns {
			cells[i][j] = SingleLine(columns.CellText(row[c]))
		}
	}

	const sepWidth = 2
	numWidth := 0
	if opts.RowNumbers {
		numWidth = max(len(strconv.Itoa(len(rows))), 1)
	}
	total := opts.Width
	if total <= 0 {
		total = TerminalWidth()
	}
	available := total - sepWidth*(len(titles)-1)
	if opts.RowNumbers {
		available -= numWidth + sepWidth
	}
	widths := ColumnWidths(titles, cells, available)

	sep := strings.Repeat(" ", sepWidth)
	style := func(s lipgloss.Style, text string) string {
		if opts.NoColor {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	parts := make([]string, 0, len(titles)+1)
	if opts.RowNumbers {
		parts = append(parts, style(headerStyle, runewidth.FillRight("#", numWidth)))
	}
	for i, title := range titles {
		parts = append(parts, style(headerStyle, fit(title, widths[i])))
	}
	b.WriteString(strings.TrimRight(strings.Join(parts, sep), " ") + "\n")

	lineWidth := sepWidth * (len(widths) - 1)
	for _, w := range widths {
		lineWidth += w
	}
	if opts.RowNumbers {
		lineWidth += numWidth + sepWidth
	}
	b.WriteString(style(separatorStyle, strings.Repeat("─", lineWidth)) + "\n")

	for i, row := range cells {
		parts = parts[:0]
		if opts.RowNumbers {
			parts = append(parts, style(rowNumberStyle, runewidth.FillRight(strconv.Itoa(i+1), numWidth)))
		}
		for j, cell := range row {
			parts = append(parts, fit(cell, widths[j]))
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, sep), " ") + "\n")
	}
	return b.String()
}

// minColumnWidth is the narrowest a column is shrunk to.
const minColumnWidth = 3

// ColumnWidths sizes each column to its widest cell or title, then shrinks the
// widest columns one cell at a time until the total fits available.
func ColumnWidths(titles []string, cells [][]string, available int) []int {
	widths := make([]int, len(titles))
	sum := 0
	for i, t := range titles {
		widths[i] = runewidth.StringWidth(t)
		for _, row := range cells {
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
		sum += widths[i]
	}
	for sum > available && len(widths) > 0 {
		widest := 0
		for i := range widths {
			if widths[i] > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minColumnWidth {
			break
		}
		widths[widest]--
		sum--
	}
	return widths
}

func fit(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

// SingleLine flattens line breaks and tabs into spaces.
func SingleLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ").Replace(s)
}

// TerminalWidth returns the width of stdout, then $COLUMNS, then 120.
func TerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return 120
}
