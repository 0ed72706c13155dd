package cmd

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/oakwood-commons/rowpick/pkg/columns"
	"github.com/oakwood-commons/rowpick/pkg/datasource"
	"github.com/oakwood-commons/rowpick/pkg/picker"
	"github.com/oakwood-commons/rowpick/pkg/selection"
	"github.com/oakwood-commons/rowpick/pkg/tabular"
)

// ErrBadClick is returned for malformed --select steps.
var ErrBadClick = errors.New("invalid click")

// click is one step of a --select script.
type click struct {
	pos    int
	mods   selection.Modifiers
	toggle bool
}

// parseClicks reads a script of comma or space separated steps. A step is a
// visible position, optionally prefixed by shift:, ctrl:, meta: or toggle:.
func parseClicks(script string) ([]click, error) {
	fields := strings.FieldsFunc(script, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	clicks := make([]click, 0, len(fields))
	for _, field := range fields {
		var c click
		num := field
		if prefix, rest, ok := strings.Cut(field, ":"); ok {
			num = rest
			switch strings.ToLower(prefix) {
			case "shift":
				c.mods.Shift = true
			case "ctrl", "meta", "cmd":
				c.mods.CtrlOrMeta = true
			case "toggle":
				c.toggle = true
			default:
				return nil, fmt.Errorf("%w %q: unknown modifier %q", ErrBadClick, field, prefix)
			}
		}
		pos, err := strconv.Atoi(num)
		if err != nil || pos < 0 {
			return nil, fmt.Errorf("%w %q: position must be a non-negative integer", ErrBadClick, field)
		}
		c.pos = pos
		clicks = append(clicks, c)
	}
	return clicks, nil
}

// playClicks applies clicks to p in order.
func playClicks(p *picker.Picker, clicks []click) error {
	for _, c := range clicks {
		var err error
		if c.toggle {
			err = p.Toggle(c.pos)
		} else {
			err = p.Click(c.pos, c.mods)
		}
		if err != nil {
			return fmt.Errorf("--select: %w", err)
		}
	}
	return nil
}

type sortKey struct {
	column string
	desc   bool
}

// parseSortKeys reads COL[:asc|desc] specs. Every column must be in cols.
func parseSortKeys(specs []string, cols []string) ([]sortKey, error) {
	known := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		known[c] = struct{}{}
	}
	keys := make([]sortKey, 0, len(specs))
	for _, spec := range specs {
		col, dir, _ := strings.Cut(strings.TrimSpace(spec), ":")
		k := sortKey{column: col}
		switch strings.ToLower(dir) {
		case "", "asc":
		case "desc":
			k.desc = true
		default:
			return nil, fmt.Errorf("invalid --sort %q: direction must be asc or desc", spec)
		}
		if _, ok := known[col]; !ok {
			return nil, fmt.Errorf("invalid --sort %q: unknown column %q", spec, col)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// comparator orders rows by keys in turn. Two numeric values compare
// numerically, anything else compares as case-folded text.
func comparator(keys []sortKey) datasource.Comparator {
	if len(keys) == 0 {
		return nil
	}
	return func(a, b tabular.Row) int {
		for _, k := range keys {
			c := compareCells(a[k.column], b[k.column])
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	}
}

func compareCells(a, b any) int {
	if af, ok := number(a); ok {
		if bf, ok := number(b); ok {
			return cmp.Compare(af, bf)
		}
	}
	return strings.Compare(strings.ToLower(columns.CellText(a)), strings.ToLower(columns.CellText(b)))
}

// number reports the value of decoded numeric cells. Text is never parsed.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// parseTitles reads COL=Title pairs into defs.
func parseTitles(pairs []string, defs columns.Defs) (columns.Defs, error) {
	out := make(columns.Defs, len(defs)+len(pairs))
	for k, v := range defs {
		out[k] = v
	}
	for _, pair := range pairs {
		col, title, ok := strings.Cut(pair, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid --title %q: expected COL=Title", pair)
		}
		def := out[col]
		def.Title = title
		out[col] = def
	}
	return out, nil
}
