package columns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplayTitle(t *testing.T) {
	defs := Defs{
		"name":  {Title: "Full name"},
		"empty": {},
	}

	assert.Equal(t, "Full name", defs.DisplayTitle("name"))
	assert.Equal(t, "empty", defs.DisplayTitle("empty"))
	assert.Equal(t, "age", defs.DisplayTitle("age"))

	var none Defs
	assert.Equal(t, "age", none.DisplayTitle("age"))
}

func TestTitles(t *testing.T) {
	defs := Defs{"b": {Title: "Bee"}}
	assert.Equal(t, []string{"a", "Bee", "c"}, defs.Titles([]string{"a", "b", "c"}))
}

func TestCellText(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil, want: ""},
		{name: "string", in: "Alice", want: "Alice"},
		{name: "whole float", in: float64(30), want: "30"},
		{name: "fraction", in: 1.5, want: "1.5"},
		{name: "int", in: 7, want: "7"},
		{name: "bool", in: true, want: "true"},
		{name: "duration stringer", in: 2 * time.Second, want: "2s"},
		{name: "list", in: []any{"a", float64(1)}, want: `["a",1]`},
		{name: "object", in: map[string]any{"k": "v"}, want: `{"k":"v"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CellText(tt.in))
		})
	}
}
