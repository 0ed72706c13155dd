package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	fs "github.com/ungerik/go-fs"

	"github.com/oakwood-commons/rowpick/pkg/datasource"
	"github.com/oakwood-commons/rowpick/pkg/linestream"
	"github.com/oakwood-commons/rowpick/pkg/loader"
)

// stdinArg is the source argument that names standard input.
const stdinArg = "-"

// memSource is an in-memory locator. Its name carries the extension that
// selects the decoding path.
type memSource struct {
	name string
	data []byte
}

func (m memSource) Name() string { return m.name }

func (m memSource) ReadAllContext(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.data, nil
}

// inputFormats lists the values accepted by --format.
var inputFormats = []loader.Format{
	loader.FormatCSV,
	loader.FormatTSV,
	loader.FormatJSON,
	loader.FormatNDJSON,
	loader.FormatYAML,
	loader.FormatTOML,
}

func parseInputFormat(s string) (loader.Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return "", nil
	case "tab":
		return loader.FormatTSV, nil
	case "yml":
		return loader.FormatYAML, nil
	case "jsonl":
		return loader.FormatNDJSON, nil
	}
	if slices.Contains(inputFormats, loader.Format(s)) {
		return loader.Format(s), nil
	}
	return "", fmt.Errorf("unknown input format %q (expected one of %v)", s, inputFormats)
}

// readStdin reads all of in and names it after the given or sniffed format.
func readStdin(in io.Reader, format loader.Format) (memSource, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return memSource{}, fmt.Errorf("reading stdin: %w", err)
	}
	if format == "" {
		format = loader.Sniff(string(data))
	}
	return memSource{name: "stdin." + string(format), data: data}, nil
}

// applySource points cfg at the source argument: stdin, an http(s) URL or a
// local file.
func applySource(cfg *datasource.Config, arg string, in io.Reader, format loader.Format) error {
	switch {
	case arg == "" || arg == stdinArg:
		src, err := readStdin(in, format)
		if err != nil {
			return err
		}
		cfg.File = src
	case loader.IsURL(arg):
		cfg.URL = arg
	default:
		f := fs.File(arg)
		if !f.Exists() {
			return fmt.Errorf("%w: %s", loader.ErrNotFound, arg)
		}
		cfg.File = f
	}
	return nil
}

// inferColumns loads the source once to derive a schema: the header line of
// delimited text, or the sorted keys of structured records in first-seen
// order. The loaded text replaces the source so it is not fetched twice.
func inferColumns(ctx context.Context, cfg *datasource.Config, ld *loader.FileLoader) ([]string, error) {
	ds, err := datasource.New(datasource.Config{Columns: []string{"_"}, URL: cfg.URL, File: cfg.File})
	if err != nil {
		return nil, err
	}
	loc, ok := ds.Locator()
	if !ok {
		return nil, datasource.ErrNoSource
	}
	text, err := ld.LoadText(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", loc.Name(), err)
	}
	cfg.URL = ""
	cfg.File = memSource{name: loc.Name(), data: []byte(text)}

	ext := datasource.ExtensionOf(loc)
	if cfg.JSON {
		ext = string(loader.FormatJSON)
	}
	format, structured := loader.StructuredFormat(ext)
	if !structured {
		header, _ := linestream.FromString(text).NextLine()
		var cols []string
		for _, field := range strings.Split(header, string(datasource.Delimiter(ext))) {
			if field = strings.TrimSpace(field); field != "" {
				cols = append(cols, field)
			}
		}
		if len(cols) == 0 {
			return nil, fmt.Errorf("%s has no header line; pass --columns", loc.Name())
		}
		return cols, nil
	}

	var records []map[string]any
	if format == loader.FormatJSON {
		doc, err := loader.DecodeJSON(text)
		if err != nil {
			return nil, err
		}
		records, err = loader.Records(doc)
		if err != nil {
			return nil, err
		}
	} else {
		records, err = loader.DecodeRows(text, format)
		if err != nil {
			return nil, err
		}
	}
	return recordKeys(records), nil
}

func recordKeys(records []map[string]any) []string {
	seen := map[string]struct{}{}
	var cols []string
	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			if _, ok := seen[k]; !ok {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		cols = append(cols, keys...)
	}
	return cols
}
