// Package picker is the embedding layer of a "pick rows from a dataset"
// dialog. It loads a DataSource once per show, wires the search index and
// selection model over the same row set, and maps visible positions to
// full row-set indices so a selection survives filter changes.
//
// A Picker is not safe for concurrent use. Filter-change callbacks run on the
// search index's timer goroutine.
package picker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oakwood-commons/rowpick/pkg/columns"
	"github.com/oakwood-commons/rowpick/pkg/datasource"
	"github.com/oakwood-commons/rowpick/pkg/logger"
	"github.com/oakwood-commons/rowpick/pkg/search"
	"github.com/oakwood-commons/rowpick/pkg/selection"
	"github.com/oakwood-commons/rowpick/pkg/tabular"
)

// MetadataKey is the key under which a row handler's result receives the
// original row's schema columns.
const MetadataKey = "metadata"

// ErrPositionOutOfRange is returned for clicks outside the visible rows.
var ErrPositionOutOfRange = errors.New("position outside visible rows")

// RowHandler transforms a selected row before it is handed out.
type RowHandler func(tabular.Row) tabular.Row

type options struct {
	title       string
	description string
	mode        selection.Mode
	debounce    time.Duration
	scheduler   search.Scheduler
	rowHandler  RowHandler
	okHandler   func([]tabular.Row)
	onSelect    func([]int)
	onFilter    func([]int)
}

// Option configures a Picker.
type Option func(*options)

// WithTitle sets the dialog title.
func WithTitle(title string) Option { return func(o *options) { o.title = title } }

// WithDescription sets the text shown above the table.
func WithDescription(d string) Option { return func(o *options) { o.description = d } }

// WithMode sets the selection mode. The default is selection.Multi.
func WithMode(m selection.Mode) Option { return func(o *options) { o.mode = m } }

// WithDebounce sets the search quiet period.
func WithDebounce(d time.Duration) Option { return func(o *options) { o.debounce = d } }

// WithScheduler replaces the search index's timer implementation.
func WithScheduler(s search.Scheduler) Option { return func(o *options) { o.scheduler = s } }

// WithRowHandler transforms rows returned by SelectedRows.
func WithRowHandler(h RowHandler) Option { return func(o *options) { o.rowHandler = h } }

// WithOKHandler receives the selected rows when OK is called.
func WithOKHandler(fn func([]tabular.Row)) Option { return func(o *options) { o.okHandler = fn } }

// WithOnSelectionChange observes selection changes, as full row-set indices.
func WithOnSelectionChange(fn func([]int)) Option { return func(o *options) { o.onSelect = fn } }

// WithOnFilterChange observes settled search results.
func WithOnFilterChange(fn func([]int)) Option { return func(o *options) { o.onFilter = fn } }

// Picker presents one DataSource for row picking.
type Picker struct {
	opts   options
	source *datasource.DataSource
	built  bool
	loaded bool
	rows   []tabular.Row
	index  *search.Index
	sel    *selection.Model
}

// New returns a Picker over src. src may be nil and set later.
func New(src *datasource.DataSource, opts ...Option) *Picker {
	o := options{
		mode:     selection.Multi,
		debounce: search.DefaultDebounce,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Picker{opts: o, source: src}
}

// Title returns the dialog title.
func (p *Picker) Title() string { return p.opts.title }

// SetTitle replaces the dialog title.
func (p *Picker) SetTitle(title string) { p.opts.title = title }

// Description returns the text shown above the table.
func (p *Picker) Description() string { return p.opts.description }

// SetDescription replaces the description.
func (p *Picker) SetDescription(d string) { p.opts.description = d }

// Mode returns the selection mode.
func (p *Picker) Mode() selection.Mode { return p.opts.mode }

// SetSource replaces the DataSource. The table is torn down and rebuilt on
// the next Build.
func (p *Picker) SetSource(src *datasource.DataSource) {
	p.teardown()
	p.source = src
}

// Build loads the table. It does nothing when the table is already built or
// no source is set. A failed load still counts as built; call SetSource to
// retry.
func (p *Picker) Build(ctx context.Context) error {
	if p.built || p.source == nil {
		return nil
	}
	p.built = true

	rows, ok, err := p.source.TableData(ctx)
	if err != nil {
		return fmt.Errorf("building table: %w", err)
	}

	searchOpts := []search.Option{search.WithDebounce(p.opts.debounce)}
	if p.opts.scheduler != nil {
		searchOpts = append(searchOpts, search.WithScheduler(p.opts.scheduler))
	}
	if p.opts.onFilter != nil {
		searchOpts = append(searchOpts, search.WithOnFilterChange(p.opts.onFilter))
	}
	var selOpts []selection.Option
	if p.opts.onSelect != nil {
		selOpts = append(selOpts, selection.WithOnSelectionChange(p.opts.onSelect))
	}

	p.rows = rows
	p.loaded = ok
	p.index = search.New(p.source.TableColumns(), searchOpts...)
	p.index.SetData(rows)
	p.sel = selection.New(p.opts.mode, selOpts...)

	logger.FromContext(ctx).V(1).Info("picker built", logger.RowsKey, len(rows), "available", ok)
	return nil
}

// Built reports whether Build has run since the last SetSource.
func (p *Picker) Built() bool { return p.built }

// Loaded reports whether the last Build produced data. An unavailable source
// leaves Loaded false with an empty table.
func (p *Picker) Loaded() bool { return p.loaded }

// Columns returns the schema of the current source.
func (p *Picker) Columns() []string {
	if p.source == nil {
		return nil
	}
	return p.source.TableColumns()
}

// ColumnDefs returns the display metadata of the current source.
func (p *Picker) ColumnDefs() columns.Defs {
	if p.source == nil {
		return nil
	}
	return p.source.ColumnDefs()
}

// DisplayTitle returns the header text of column.
func (p *Picker) DisplayTitle(column string) string {
	return p.ColumnDefs().DisplayTitle(column)
}

// Rows returns the full row set.
func (p *Picker) Rows() []tabular.Row { return p.rows }

// Search records a query edit. It is evaluated after the debounce period.
func (p *Picker) Search(q string) {
	if p.index != nil {
		p.index.SetQuery(q)
	}
}

// FlushSearch evaluates a waiting query edit immediately.
func (p *Picker) FlushSearch() {
	if p.index != nil {
		p.index.Flush()
	}
}

// Query returns the latest query edit.
func (p *Picker) Query() string {
	if p.index == nil {
		return ""
	}
	return p.index.Query()
}

// Visible maps each visible position to its full row-set index.
func (p *Picker) Visible() []int {
	if p.index == nil {
		return nil
	}
	if filtered := p.index.FilteredIndices(); filtered != nil {
		return filtered
	}
	all := make([]int, len(p.rows))
	for i := range all {
		all[i] = i
	}
	return all
}

// VisibleRows returns the rows that pass the current search.
func (p *Picker) VisibleRows() []tabular.Row {
	if p.index == nil {
		return nil
	}
	return p.index.FilteredData()
}

// RowIndex returns the full row-set index shown at visible position pos.
func (p *Picker) RowIndex(pos int) (int, error) {
	visible := p.Visible()
	if pos < 0 || pos >= len(visible) {
		return 0, fmt.Errorf("%w: %d of %d", ErrPositionOutOfRange, pos, len(visible))
	}
	return visible[pos], nil
}

// Click applies a click on the row shown at visible position pos. Ranges are
// taken over full row-set indices, so they include rows hidden by the search.
func (p *Picker) Click(pos int, mods selection.Modifiers) error {
	idx, err := p.RowIndex(pos)
	if err != nil {
		return err
	}
	p.sel.Click(idx, mods)
	return nil
}

// Toggle applies a modifier-less activation on visible position pos.
func (p *Picker) Toggle(pos int) error {
	idx, err := p.RowIndex(pos)
	if err != nil {
		return err
	}
	p.sel.Toggle(idx)
	return nil
}

// IsSelectedAt reports whether the row at visible position pos is selected.
func (p *Picker) IsSelectedAt(pos int) bool {
	idx, err := p.RowIndex(pos)
	return err == nil && p.sel.IsSelected(idx)
}

// SelectedIndices returns the selection as full row-set indices.
func (p *Picker) SelectedIndices() []int {
	if p.sel == nil {
		return nil
	}
	return p.sel.SelectedIndices()
}

// ClearSelection empties the selection.
func (p *Picker) ClearSelection() {
	if p.sel != nil {
		p.sel.Clear()
	}
}

// SelectedRows returns the selected rows, or nil when nothing is selected.
// With a row handler each row is transformed and the result receives a
// MetadataKey map holding the original row's schema columns.
func (p *Picker) SelectedRows() []tabular.Row {
	if p.sel == nil {
		return nil
	}
	rows := selection.SelectedData(p.sel, p.rows)
	if len(rows) == 0 {
		return nil
	}
	if p.opts.rowHandler == nil {
		return rows
	}
	cols := p.Columns()
	out := make([]tabular.Row, len(rows))
	for i, row := range rows {
		transformed := p.opts.rowHandler(row)
		if transformed == nil {
			transformed = tabular.Row{}
		}
		meta := map[string]any{}
		for _, c := range cols {
			if v, ok := row[c]; ok {
				meta[c] = v
			}
		}
		transformed[MetadataKey] = meta
		out[i] = transformed
	}
	return out
}

// OK hands the selected rows to the OK handler, if any rows are selected,
// and returns them.
func (p *Picker) OK() []tabular.Row {
	selected := p.SelectedRows()
	if selected != nil && p.opts.okHandler != nil {
		p.opts.okHandler(selected)
	}
	return selected
}

// Hide resets the search and the selection for the next show. The table
// stays built.
func (p *Picker) Hide() {
	if p.index != nil {
		p.index.Clear()
	}
	if p.sel != nil {
		p.sel.Clear()
	}
}

// Remove releases the table.
func (p *Picker) Remove() {
	p.teardown()
	p.source = nil
}

func (p *Picker) teardown() {
	if p.index != nil {
		p.index.Destroy()
		p.index = nil
	}
	if p.sel != nil {
		p.sel.Destroy()
		p.sel = nil
	}
	p.rows = nil
	p.built = false
	p.loaded = false
}
