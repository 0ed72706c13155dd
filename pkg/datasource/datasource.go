// Package datasource resolves a table's rows from whichever source it was
// configured with: inline rows, a custom parser, JSON and other structured
// documents, or delimited text.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/oakwood-commons/rowpick/pkg/columns"
	"github.com/oakwood-commons/rowpick/pkg/loader"
	"github.com/oakwood-commons/rowpick/pkg/logger"
	"github.com/oakwood-commons/rowpick/pkg/tabular"
)

var (
	// ErrNoColumns is returned by New when the schema is empty.
	ErrNoColumns = errors.New("datasource needs at least one column")
	// ErrNoSource is returned by TableData when neither rows nor a locator is configured.
	ErrNoSource = errors.New("datasource has no data, url or file")
	// ErrNoLoader is returned by TableData when a locator needs loading but no loader is set.
	ErrNoLoader = errors.New("datasource has no loader")
)

// TextLoader fetches the raw text behind a locator.
type TextLoader interface {
	LoadText(ctx context.Context, loc loader.Locator) (string, error)
}

// JSONLoader fetches and decodes a JSON document. Decode failures must wrap
// loader.ErrDecode so they are told apart from transport failures.
type JSONLoader interface {
	LoadJSON(ctx context.Context, loc loader.Locator) (any, error)
}

// RowParser turns raw text into rows.
type RowParser interface {
	Parse(raw string) ([]tabular.Row, error)
}

// Comparator orders two rows like strings.Compare.
type Comparator func(a, b tabular.Row) int

// Config describes a table source.
type Config struct {
	Columns    []string
	ColumnDefs columns.Defs
	// Data, when non-nil, is returned as-is.
	Data []tabular.Row
	// Source is inline string data; it is treated as a locator.
	Source string
	URL    string
	// File is a name-bearing handle such as a go-fs File.
	File   loader.Locator
	JSON   bool
	Parser RowParser
	Filter tabular.Predicate
	Sort   Comparator
	Loader TextLoader
}

// DataSource serves the rows and schema of one configured table.
type DataSource struct {
	cfg Config
}

// New validates cfg and returns a DataSource.
func New(cfg Config) (*DataSource, error) {
	if len(cfg.Columns) == 0 {
		return nil, ErrNoColumns
	}
	return &DataSource{cfg: cfg}, nil
}

// TableColumns returns the declared schema.
func (ds *DataSource) TableColumns() []string {
	return ds.cfg.Columns
}

// ColumnDefs returns the configured display metadata.
func (ds *DataSource) ColumnDefs() columns.Defs {
	return ds.cfg.ColumnDefs
}

// Locator returns the locator TableData loads from, if any.
func (ds *DataSource) Locator() (loader.Locator, bool) {
	switch {
	case ds.cfg.Source != "":
		return loader.Path(ds.cfg.Source), true
	case ds.cfg.URL != "":
		return loader.Path(ds.cfg.URL), true
	case ds.cfg.File != nil:
		return ds.cfg.File, true
	default:
		return nil, false
	}
}

// TableData resolves the rows.
//
// Inline rows are returned untouched. Otherwise the locator is loaded and
// decoded by the custom parser, as JSON (flag or .json), as YAML, TOML or
// NDJSON by extension, or as delimited text: comma for .csv, tab for anything
// else. Filter then Sort are applied to loaded rows.
//
// When the loader fails the failure is logged and ok is false: no data is
// available, which is different from an empty table. Malformed content and
// schema mismatches are returned as err.
func (ds *DataSource) TableData(ctx context.Context) (rows []tabular.Row, ok bool, err error) {
	if ds.cfg.Data != nil {
		return ds.cfg.Data, true, nil
	}
	loc, found := ds.Locator()
	if !found {
		return nil, false, ErrNoSource
	}
	if ds.cfg.Loader == nil {
		return nil, false, ErrNoLoader
	}

	lgr := logger.FromContext(ctx).WithValues(logger.LocatorKey, loc.Name())
	ext := ExtensionOf(loc)

	rows, err = ds.load(ctx, loc, ext)
	if err != nil {
		if !isLoadFailure(err) || errors.Is(err, loader.ErrDecode) {
			return nil, false, err
		}
		lgr.Error(err, "failed to load table data")
		return nil, false, nil
	}

	if ds.cfg.Filter != nil {
		rows = slices.DeleteFunc(rows, func(r tabular.Row) bool { return !ds.cfg.Filter(r) })
	}
	if ds.cfg.Sort != nil {
		slices.SortStableFunc(rows, ds.cfg.Sort)
	}
	lgr.V(1).Info("table data loaded", logger.RowsKey, len(rows))
	return rows, true, nil
}

// loadError marks errors returned by the loader itself.
type loadError struct{ err error }

func (e *loadError) Error() string { return e.err.Error() }
func (e *loadError) Unwrap() error { return e.err }

func isLoadFailure(err error) bool {
	var le *loadError
	return errors.As(err, &le)
}

func (ds *DataSource) loadText(ctx context.Context, loc loader.Locator) (string, error) {
	text, err := ds.cfg.Loader.LoadText(ctx, loc)
	if err != nil {
		return "", &loadError{err: err}
	}
	return text, nil
}

func (ds *DataSource) load(ctx context.Context, loc loader.Locator, ext string) ([]tabular.Row, error) {
	if ds.cfg.Parser != nil {
		text, err := ds.loadText(ctx, loc)
		if err != nil {
			return nil, err
		}
		rows, err := ds.cfg.Parser.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("custom parser: %w", err)
		}
		return rows, nil
	}

	if ds.cfg.JSON || ext == "json" {
		return ds.loadJSON(ctx, loc)
	}

	if format, ok := loader.StructuredFormat(ext); ok {
		text, err := ds.loadText(ctx, loc)
		if err != nil {
			return nil, err
		}
		records, err := loader.DecodeRows(text, format)
		if err != nil {
			return nil, err
		}
		return toRows(records), nil
	}

	text, err := ds.loadText(ctx, loc)
	if err != nil {
		return nil, err
	}
	return tabular.Parse(text, Delimiter(ext), ds.cfg.Columns, nil)
}

func (ds *DataSource) loadJSON(ctx context.Context, loc loader.Locator) ([]tabular.Row, error) {
	var (
		doc any
		err error
	)
	if jl, ok := ds.cfg.Loader.(JSONLoader); ok {
		doc, err = jl.LoadJSON(ctx, loc)
		if err != nil && !errors.Is(err, loader.ErrDecode) {
			return nil, &loadError{err: err}
		}
	} else {
		var text string
		if text, err = ds.loadText(ctx, loc); err != nil {
			return nil, err
		}
		doc, err = loader.DecodeJSON(text)
	}
	if err != nil {
		return nil, err
	}
	records, err := loader.Records(doc)
	if err != nil {
		return nil, err
	}
	return toRows(records), nil
}

func toRows(records []map[string]any) []tabular.Row {
	rows := make([]tabular.Row, len(records))
	for i, r := range records {
		rows[i] = tabular.Row(r)
	}
	return rows
}

// Delimiter returns the field separator for a delimited source with extension ext.
func Delimiter(ext string) rune {
	if ext == "csv" {
		return ','
	}
	return '\t'
}

// GetExtension returns the lowercased text after the last '.' of locator,
// ignoring everything from the first '?'. A locator without '.' is returned
// whole.
func GetExtension(locator string) string {
	if i := strings.IndexByte(locator, '?'); i >= 0 {
		locator = locator[:i]
	}
	if i := strings.LastIndexByte(locator, '.'); i >= 0 {
		return strings.ToLower(locator[i+1:])
	}
	return locator
}

// ExtensionOf applies GetExtension to the locator's name.
func ExtensionOf(loc loader.Locator) string {
	return GetExtension(loc.Name())
}
