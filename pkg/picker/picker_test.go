package picker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oakwood-commons/rowpick/pkg/columns"
	"github.com/oakwood-commons/rowpick/pkg/datasource"
	"github.com/oakwood-commons/rowpick/pkg/loader"
	"github.com/oakwood-commons/rowpick/pkg/search"
	"github.com/oakwood-commons/rowpick/pkg/selection"
	"github.com/oakwood-commons/rowpick/pkg/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type heldTask struct{ stopped bool }

func (t *heldTask) Stop() bool {
	t.stopped = true
	return true
}

// heldScheduler never fires on its own; tests settle searches with FlushSearch.
type heldScheduler struct{}

func (heldScheduler) AfterFunc(time.Duration, func()) search.Task { return &heldTask{} }

type countingLoader struct {
	text  string
	err   error
	calls int
}

func (l *countingLoader) LoadText(context.Context, loader.Locator) (string, error) {
	l.calls++
	return l.text, l.err
}

var cities = []tabular.Row{
	{"name": "Alice", "city": "Boston", "id": "a1"},
	{"name": "Bob", "city": "Denver", "id": "b2"},
	{"name": "Carol", "city": "Boston", "id": "c3"},
	{"name": "Dave", "city": "Austin", "id": "d4"},
}

func newSource(t *testing.T) *datasource.DataSource {
	t.Helper()
	ds, err := datasource.New(datasource.Config{
		Columns:    []string{"name", "city"},
		ColumnDefs: columns.Defs{"name": {Title: "Name"}},
		Data:       cities,
	})
	require.NoError(t, err)
	return ds
}

func built(t *testing.T, opts ...Option) *Picker {
	t.Helper()
	p := New(newSource(t), append([]Option{WithScheduler(heldScheduler{})}, opts...)...)
	require.NoError(t, p.Build(context.Background()))
	return p
}

func TestBuildOnce(t *testing.T) {
	l := &countingLoader{text: "name\tcity\nAlice\tBoston\n"}
	ds, err := datasource.New(datasource.Config{Columns: []string{"name", "city"}, URL: "x.tab", Loader: l})
	require.NoError(t, err)

	p := New(ds, WithScheduler(heldScheduler{}))
	require.NoError(t, p.Build(context.Background()))
	require.NoError(t, p.Build(context.Background()))
	assert.Equal(t, 1, l.calls)
	assert.True(t, p.Built())
	assert.True(t, p.Loaded())
	assert.Equal(t, []tabular.Row{{"name": "Alice", "city": "Boston"}}, p.Rows())

	p.SetSource(ds)
	assert.False(t, p.Built())
	require.NoError(t, p.Build(context.Background()))
	assert.Equal(t, 2, l.calls)
}

func TestBuildWithoutSource(t *testing.T) {
	p := New(nil)
	require.NoError(t, p.Build(context.Background()))
	assert.False(t, p.Built())
	assert.Nil(t, p.Visible())
	assert.Nil(t, p.SelectedRows())
	assert.ErrorIs(t, p.Click(0, selection.Modifiers{}), ErrPositionOutOfRange)
}

func TestBuildUnavailableSource(t *testing.T) {
	l := &countingLoader{err: errors.New("offline")}
	ds, err := datasource.New(datasource.Config{Columns: []string{"a"}, URL: "x.tab", Loader: l})
	require.NoError(t, err)

	p := New(ds, WithScheduler(heldScheduler{}))
	require.NoError(t, p.Build(context.Background()))
	assert.True(t, p.Built())
	assert.False(t, p.Loaded())
	assert.Empty(t, p.VisibleRows())
}

func TestBuildPropagatesDecodeErrors(t *testing.T) {
	ds, err := datasource.New(datasource.Config{Columns: []string{"a", "b"}, URL: "x.tab", Loader: &countingLoader{text: "a\tb\n1"}})
	require.NoError(t, err)

	p := New(ds)
	err = p.Build(context.Background())
	assert.ErrorIs(t, err, tabular.ErrSchemaMismatch)
	assert.True(t, p.Built())
}

func TestColumnsAndTitles(t *testing.T) {
	p := built(t, WithTitle("Pick cities"), WithDescription("choose"))
	assert.Equal(t, []string{"name", "city"}, p.Columns())
	assert.Equal(t, "Name", p.DisplayTitle("name"))
	assert.Equal(t, "city", p.DisplayTitle("city"))
	assert.Equal(t, "Pick cities", p.Title())
	assert.Equal(t, "choose", p.Description())

	p.SetTitle("Other")
	p.SetDescription("")
	assert.Equal(t, "Other", p.Title())
	assert.Empty(t, p.Description())
}

func TestVisiblePositionsMapToFullIndices(t *testing.T) {
	p := built(t)
	assert.Equal(t, []int{0, 1, 2, 3}, p.Visible())

	p.Search("boston")
	p.FlushSearch()
	assert.Equal(t, []int{0, 2}, p.Visible())
	assert.Equal(t, []tabular.Row{cities[0], cities[2]}, p.VisibleRows())

	require.NoError(t, p.Click(1, selection.Modifiers{}))
	assert.Equal(t, []int{2}, p.SelectedIndices())
	assert.True(t, p.IsSelectedAt(1))

	p.Search("")
	p.FlushSearch()
	assert.Equal(t, []int{2}, p.SelectedIndices(), "selection survives filter change")
	assert.True(t, p.IsSelectedAt(2))
	assert.False(t, p.IsSelectedAt(1))

	assert.ErrorIs(t, p.Click(4, selection.Modifiers{}), ErrPositionOutOfRange)
	assert.ErrorIs(t, p.Toggle(-1), ErrPositionOutOfRange)
}

func TestRangeUsesFullIndices(t *testing.T) {
	p := built(t)
	p.Search("boston")
	p.FlushSearch()

	require.NoError(t, p.Click(0, selection.Modifiers{}))
	require.NoError(t, p.Click(1, selection.Modifiers{Shift: true}))
	assert.Equal(t, []int{0, 1, 2}, p.SelectedIndices())
}

func TestSelectedRows(t *testing.T) {
	p := built(t)
	assert.Nil(t, p.SelectedRows(), "nothing selected")

	require.NoError(t, p.Toggle(3))
	require.NoError(t, p.Toggle(1))
	assert.Equal(t, []tabular.Row{cities[1], cities[3]}, p.SelectedRows())
}

func TestSelectedRowsWithRowHandler(t *testing.T) {
	p := built(t, WithRowHandler(func(r tabular.Row) tabular.Row {
		return tabular.Row{"label": r["name"].(string) + "@" + r["city"].(string)}
	}))
	require.NoError(t, p.Toggle(0))

	got := p.SelectedRows()
	require.Len(t, got, 1)
	assert.Equal(t, "Alice@Boston", got[0]["label"])
	assert.Equal(t, map[string]any{"name": "Alice", "city": "Boston"}, got[0][MetadataKey], "only schema columns")
}

func TestOK(t *testing.T) {
	var handed [][]tabular.Row
	p := built(t, WithOKHandler(func(rows []tabular.Row) { handed = append(handed, rows) }))

	assert.Nil(t, p.OK())
	assert.Empty(t, handed, "no call without a selection")

	require.NoError(t, p.Click(2, selection.Modifiers{}))
	got := p.OK()
	assert.Equal(t, []tabular.Row{cities[2]}, got)
	require.Len(t, handed, 1)
	assert.Equal(t, got, handed[0])
}

func TestHideClearsSearchAndSelection(t *testing.T) {
	var selections [][]int
	p := built(t, WithOnSelectionChange(func(v []int) { selections = append(selections, v) }))
	p.Search("denver")
	p.FlushSearch()
	require.NoError(t, p.Click(0, selection.Modifiers{}))

	p.Hide()
	assert.Equal(t, "", p.Query())
	assert.Equal(t, []int{0, 1, 2, 3}, p.Visible())
	assert.Empty(t, p.SelectedIndices())
	assert.Equal(t, [][]int{{1}, {}}, selections)
	assert.True(t, p.Built())
}

func TestFilterCallback(t *testing.T) {
	var results [][]int
	p := built(t, WithOnFilterChange(func(v []int) { results = append(results, v) }))
	p.Search("zzz")
	p.FlushSearch()
	assert.Equal(t, [][]int{{}}, results)
	assert.Empty(t, p.VisibleRows())
}

func TestSingleMode(t *testing.T) {
	p := built(t, WithMode(selection.Single))
	assert.Equal(t, selection.Single, p.Mode())
	require.NoError(t, p.Click(1, selection.Modifiers{}))
	require.NoError(t, p.Click(1, selection.Modifiers{}))
	assert.Empty(t, p.SelectedIndices())
}

func TestRemove(t *testing.T) {
	p := built(t)
	require.NoError(t, p.Toggle(0))
	p.Remove()
	assert.False(t, p.Built())
	assert.Nil(t, p.Rows())
	assert.Nil(t, p.Columns())
	assert.Nil(t, p.SelectedRows())
	require.NoError(t, p.Build(context.Background()), "no source left to build")
	assert.False(t, p.Built())
}
