package table

import (
	"image/color"

	bubtable "charm.land/bubbles/v2/table"
	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/rowpick/internal/formatter"
)

// Re-export common table types so callers can construct columns/rows without
// importing bubbles directly.
type Column = bubtable.Column
type Row = bubtable.Row

// Mark glyphs drawn in the leading column.
const (
	MarkSelected   = "✓"
	MarkUnselected = " "
)

const (
	markWidth   = 1
	cellPadding = 2
)

// Model is a generic table component over rows of type V with a leading
// selection mark column.
type Model[V any] struct {
	table   bubtable.Model
	styles  bubtable.Styles
	rows    []V
	cells   [][]string
	titles  []string
	toCells func(V) []string
	marked  func(pos int) bool

	width   int
	noColor bool

	headerFG   color.Color
	selectedFG color.Color
	selectedBG color.Color
}

// NewModel creates a table headed by titles. toCells renders one row's cells
// in title order.
func NewModel[V any](titles []string, toCells func(V) []string) *Model[V] {
	t := bubtable.New(
		bubtable.WithFocused(true),
		bubtable.WithHeight(10),
	)

	s := bubtable.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Bold(true).
		Align(lipgloss.Left).
		PaddingLeft(0).
		PaddingRight(cellPadding)
	s.Selected = s.Selected.
		PaddingLeft(0).
		PaddingRight(0)
	s.Cell = lipgloss.NewStyle().
		Align(lipgloss.Left).
		PaddingLeft(0).
		PaddingRight(cellPadding)
	t.SetStyles(s)

	m := &Model[V]{
		table:   t,
		styles:  s,
		titles:  titles,
		toCells: toCells,
		marked:  func(int) bool { return false },
		width:   80,
	}
	m.layout()
	return m
}

// SetRows replaces the displayed rows. The cursor is kept in range.
func (m *Model[V]) SetRows(rows []V) {
	m.rows = rows
	m.cells = make([][]string, len(rows))
	for i, row := range rows {
		cells := m.toCells(row)
		for j := range cells {
			cells[j] = formatter.SingleLine(cells[j])
		}
		m.cells[i] = cells
	}
	m.layout()
}

// SetMarker sets the function that decides which positions carry the
// selection mark.
func (m *Model[V]) SetMarker(fn func(pos int) bool) {
	if fn == nil {
		fn = func(int) bool { return false }
	}
	m.marked = fn
	m.Refresh()
}

// Refresh redraws the mark column.
func (m *Model[V]) Refresh() {
	rows := make([]Row, len(m.cells))
	for i, cells := range m.cells {
		mark := MarkUnselected
		if m.marked(i) {
			mark = MarkSelected
		}
		rows[i] = append(Row{mark}, cells...)
	}
	m.table.SetRows(rows)
}

// layout recomputes column widths for the current width and rows.
func (m *Model[V]) layout() {
	available := m.width - markWidth - cellPadding*(len(m.titles)+1)
	widths := formatter.ColumnWidths(m.titles, m.cells, available)
	cols := make([]Column, 0, len(m.titles)+1)
	cols = append(cols, Column{Title: "", Width: markWidth})
	for i, title := range m.titles {
		cols = append(cols, Column{Title: title, Width: widths[i]})
	}
	// Rows are cleared while columns change: bubbles renders rows against
	// the current column set.
	cursor := m.table.Cursor()
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.Refresh()
	m.table.SetCursor(cursor)
}

// Rows returns the displayed rows.
func (m *Model[V]) Rows() []V {
	return m.rows
}

// Len returns the number of displayed rows.
func (m *Model[V]) Len() int {
	return len(m.rows)
}

// Cursor returns the current cursor position.
func (m *Model[V]) Cursor() int {
	return m.table.Cursor()
}

// SetCursor sets the cursor position.
func (m *Model[V]) SetCursor(pos int) {
	m.table.SetCursor(pos)
}

// MoveUp moves the cursor up n rows.
func (m *Model[V]) MoveUp(n int) { m.table.MoveUp(n) }

// MoveDown moves the cursor down n rows.
func (m *Model[V]) MoveDown(n int) { m.table.MoveDown(n) }

// GotoTop moves the cursor to the first row.
func (m *Model[V]) GotoTop() { m.table.GotoTop() }

// GotoBottom moves the cursor to the last row.
func (m *Model[V]) GotoBottom() { m.table.GotoBottom() }

// SetSize sets the table dimensions. Height includes the header.
func (m *Model[V]) SetSize(width, height int) {
	m.width = width
	m.table.SetWidth(width)
	m.table.SetHeight(height)
	m.layout()
}

// Focus sets the table focus state.
func (m *Model[V]) Focus() { m.table.Focus() }

// Blur removes focus from the table.
func (m *Model[V]) Blur() { m.table.Blur() }

// SetNoColor enables/disables color output.
func (m *Model[V]) SetNoColor(noColor bool) {
	m.noColor = noColor
	m.applyColorScheme()
}

// SetColors sets custom theme colors.
func (m *Model[V]) SetColors(headerFG, selectedFG, selectedBG color.Color) {
	m.headerFG = headerFG
	m.selectedFG = selectedFG
	m.selectedBG = selectedBG
	m.applyColorScheme()
}

func (m *Model[V]) applyColorScheme() {
	s := m.styles

	if m.noColor {
		s.Header = s.Header.UnsetForeground().UnsetBackground()
		s.Selected = s.Selected.UnsetForeground().UnsetBackground().Reverse(true)
		s.Cell = s.Cell.UnsetForeground().UnsetBackground()
	} else {
		if m.headerFG != nil {
			s.Header = s.Header.Foreground(m.headerFG)
		}
		if m.selectedFG != nil {
			s.Selected = s.Selected.Foreground(m.selectedFG)
		}
		if m.selectedBG != nil {
			s.Selected = s.Selected.Background(m.selectedBG)
		}
	}

	m.table.SetStyles(s)
	m.styles = s
}

// View renders the table to a string.
func (m *Model[V]) View() string {
	return m.table.View()
}
