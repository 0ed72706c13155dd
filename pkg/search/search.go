// Package search filters a row set by a free-text query. Query edits are
// debounced so only the last edit in a burst is evaluated.
package search

import (
	"strings"
	"sync"
	"time"

	"github.com/oakwood-commons/rowpick/pkg/columns"
	"github.com/oakwood-commons/rowpick/pkg/tabular"
)

// DefaultDebounce is the quiet period before a query edit is evaluated.
const DefaultDebounce = 200 * time.Millisecond

// Task is a scheduled callback that can be cancelled.
type Task interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}

// Option configures an Index.
type Option func(*Index)

// WithDebounce sets the quiet period. Zero or negative evaluates on the
// scheduler immediately.
func WithDebounce(d time.Duration) Option {
	return func(ix *Index) {
		ix.debounce = max(d, 0)
	}
}

// WithOnFilterChange registers fn to receive every settled filter result.
// A nil slice means no filter is active.
func WithOnFilterChange(fn func([]int)) Option {
	return func(ix *Index) {
		ix.onChange = fn
	}
}

// WithScheduler replaces the timer implementation.
func WithScheduler(s Scheduler) Option {
	return func(ix *Index) {
		ix.scheduler = s
	}
}

// Index holds one precomputed lowercase search string per row.
type Index struct {
	mu        sync.Mutex
	columns   []string
	rows      []tabular.Row
	haystack  []string
	query     string
	filtered  []int
	debounce  time.Duration
	scheduler Scheduler
	pending   Task
	// generation invalidates callbacks of tasks that were replaced.
	generation uint64
	onChange   func([]int)
}

// New returns an empty Index searching the given columns.
func New(cols []string, opts ...Option) *Index {
	ix := &Index{
		columns:   cols,
		debounce:  DefaultDebounce,
		scheduler: timerScheduler{},
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// SetData replaces the row set. A pending or active query is re-evaluated
// right away against the new rows; otherwise the filter resets silently.
func (ix *Index) SetData(rows []tabular.Row) {
	ix.mu.Lock()
	ix.rows = rows
	ix.haystack = make([]string, len(rows))
	for i, row := range rows {
		ix.haystack[i] = ix.rowText(row)
	}
	hadPending := ix.cancelLocked()
	if !hadPending && strings.TrimSpace(ix.query) == "" {
		ix.filtered = nil
		ix.mu.Unlock()
		return
	}
	result, notify := ix.evaluateLocked()
	ix.mu.Unlock()
	notify(result)
}

func (ix *Index) rowText(row tabular.Row) string {
	parts := make([]string, 0, len(ix.columns))
	for _, col := range ix.columns {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		parts = append(parts, columns.CellText(v))
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// SetQuery records a query edit and schedules its evaluation, replacing any
// evaluation still waiting.
func (ix *Index) SetQuery(q string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.query = q
	ix.cancelLocked()
	gen := ix.generation
	ix.pending = ix.scheduler.AfterFunc(ix.debounce, func() {
		ix.fire(gen)
	})
}

func (ix *Index) fire(gen uint64) {
	ix.mu.Lock()
	if gen != ix.generation || ix.pending == nil {
		ix.mu.Unlock()
		return
	}
	ix.pending = nil
	result, notify := ix.evaluateLocked()
	ix.mu.Unlock()
	notify(result)
}

// Flush evaluates a waiting query edit now. It reports whether one was waiting.
func (ix *Index) Flush() bool {
	ix.mu.Lock()
	if !ix.cancelLocked() {
		ix.mu.Unlock()
		return false
	}
	result, notify := ix.evaluateLocked()
	ix.mu.Unlock()
	notify(result)
	return true
}

// Pending reports whether a query edit is waiting to be evaluated.
func (ix *Index) Pending() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.pending != nil
}

// cancelLocked drops the waiting task and reports whether there was one.
func (ix *Index) cancelLocked() bool {
	ix.generation++
	if ix.pending == nil {
		return false
	}
	ix.pending.Stop()
	ix.pending = nil
	return true
}

// evaluateLocked applies the current query and returns the result together
// with the notification to run once the lock is released.
func (ix *Index) evaluateLocked() ([]int, func([]int)) {
	q := strings.ToLower(strings.TrimSpace(ix.query))
	if q == "" {
		ix.filtered = nil
	} else {
		matches := []int{}
		for i, text := range ix.haystack {
			if strings.Contains(text, q) {
				matches = append(matches, i)
			}
		}
		ix.filtered = matches
	}
	result := cloneIndices(ix.filtered)
	onChange := ix.onChange
	return result, func(r []int) {
		if onChange != nil {
			onChange(r)
		}
	}
}

// Query returns the latest query edit.
func (ix *Index) Query() string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.query
}

// FilteredIndices returns the ascending indices of matching rows, or nil when
// no filter is active. An empty non-nil slice means nothing matched.
func (ix *Index) FilteredIndices() []int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return cloneIndices(ix.filtered)
}

// FilteredData returns the matching rows, or all rows when no filter is active.
func (ix *Index) FilteredData() []tabular.Row {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.filtered == nil {
		return ix.rows
	}
	out := make([]tabular.Row, len(ix.filtered))
	for i, idx := range ix.filtered {
		out[i] = ix.rows[idx]
	}
	return out
}

// Clear empties the query and removes the filter without notifying.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.cancelLocked()
	ix.query = ""
	ix.filtered = nil
}

// Destroy cancels any waiting evaluation and releases the rows.
func (ix *Index) Destroy() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.cancelLocked()
	ix.rows = nil
	ix.haystack = nil
	ix.filtered = nil
	ix.onChange = nil
}

func cloneIndices(in []int) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	return out
}
