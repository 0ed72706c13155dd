// Package columns holds per-column display metadata and the text form of cell values.
package columns

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Def is the display metadata of one column.
type Def struct {
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

// Defs maps a column name to its display metadata.
type Defs map[string]Def

// DisplayTitle returns the configured title of column, or column itself when
// no title is configured.
func (d Defs) DisplayTitle(column string) string {
	if def, ok := d[column]; ok && def.Title != "" {
		return def.Title
	}
	return column
}

// Titles maps every column to its display title, preserving order.
func (d Defs) Titles(cols []string) []string {
	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = d.DisplayTitle(c)
	}
	return titles
}

// CellText renders a cell value as shown to users and matched by search.
// Absent values render as the empty string.
func CellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
