// Package selection tracks which rows of a table are selected in response to
// click-like gestures, with single and multi selection modes.
package selection

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Mode is the selection behaviour.
type Mode int

const (
	// Single keeps at most one selected index.
	Single Mode = iota
	// Multi supports range and toggle gestures.
	Multi
)

// ErrUnknownMode is returned by ParseMode.
var ErrUnknownMode = errors.New("unknown selection mode")

func (m Mode) String() string {
	if m == Multi {
		return "multi"
	}
	return "single"
}

// ParseMode accepts "single" or "multi", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single":
		return Single, nil
	case "multi", "multiple":
		return Multi, nil
	default:
		return Single, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Modifiers are the keys held during a click. Ctrl and Meta are equivalent.
type Modifiers struct {
	Shift      bool
	CtrlOrMeta bool
}

// Option configures a Model.
type Option func(*Model)

// WithOnSelectionChange registers fn to receive the sorted selection after
// every change.
func WithOnSelectionChange(fn func([]int)) Option {
	return func(m *Model) {
		m.onChange = fn
	}
}

// Model holds selected row indices and the anchor of range gestures. It is
// not safe for concurrent use.
type Model struct {
	mode      Mode
	selected  map[int]struct{}
	anchor    int
	hasAnchor bool
	onChange  func([]int)
}

// New returns an empty Model.
func New(mode Mode, opts ...Option) *Model {
	m := &Model{
		mode:     mode,
		selected: map[int]struct{}{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mode returns the selection mode.
func (m *Model) Mode() Mode { return m.mode }

// Click applies a click on row index.
//
// In Single mode the clicked row becomes the only selection, and clicking the
// selected row again clears it. In Multi mode Shift selects the inclusive range
// from the anchor, Ctrl/Meta toggles the row, and a plain click selects only
// the row. Ctrl/Meta and plain clicks move the anchor; Shift does not.
func (m *Model) Click(index int, mods Modifiers) {
	if m.mode == Single {
		m.clickSingle(index)
		return
	}

	switch {
	case mods.Shift && m.hasAnchor:
		clear(m.selected)
		lo, hi := min(m.anchor, index), max(m.anchor, index)
		for i := lo; i <= hi; i++ {
			m.selected[i] = struct{}{}
		}
	case mods.CtrlOrMeta:
		if _, ok := m.selected[index]; ok {
			delete(m.selected, index)
		} else {
			m.selected[index] = struct{}{}
		}
		m.setAnchor(index)
	default:
		clear(m.selected)
		m.selected[index] = struct{}{}
		m.setAnchor(index)
	}
	m.notify()
}

// Toggle applies an activation that carries no modifier keys, such as a key
// press or a programmatic pick. In Multi mode it flips the row's membership
// and moves the anchor; in Single mode it behaves like Click.
func (m *Model) Toggle(index int) {
	if m.mode == Single {
		m.clickSingle(index)
		return
	}
	m.Click(index, Modifiers{CtrlOrMeta: true})
}

func (m *Model) clickSingle(index int) {
	_, was := m.selected[index]
	clear(m.selected)
	if !was {
		m.selected[index] = struct{}{}
	}
	m.setAnchor(index)
	m.notify()
}

func (m *Model) setAnchor(index int) {
	m.anchor = index
	m.hasAnchor = true
}

// Anchor returns the anchor of range gestures, if set.
func (m *Model) Anchor() (int, bool) {
	return m.anchor, m.hasAnchor
}

// SelectedIndices returns the selection in ascending order.
func (m *Model) SelectedIndices() []int {
	out := make([]int, 0, len(m.selected))
	for i := range m.selected {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// IsSelected reports whether index is selected.
func (m *Model) IsSelected(index int) bool {
	_, ok := m.selected[index]
	return ok
}

// Len returns the number of selected indices.
func (m *Model) Len() int { return len(m.selected) }

// Clear empties the selection, forgets the anchor and notifies.
func (m *Model) Clear() {
	m.reset()
	m.notify()
}

// Destroy empties the selection without notifying.
func (m *Model) Destroy() {
	m.reset()
	m.onChange = nil
}

func (m *Model) reset() {
	clear(m.selected)
	m.anchor = 0
	m.hasAnchor = false
}

func (m *Model) notify() {
	if m.onChange != nil {
		m.onChange(m.SelectedIndices())
	}
}

// SelectedData returns the rows at the selected indices, in index order.
// Indices outside rows are skipped.
func SelectedData[T any](m *Model, rows []T) []T {
	out := make([]T, 0, m.Len())
	for _, i := range m.SelectedIndices() {
		if i >= 0 && i < len(rows) {
			out = append(out, rows[i])
		}
	}
	return out
}
