package ui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/rowpick/internal/ui/table"
	"github.com/oakwood-commons/rowpick/pkg/columns"
	"github.com/oakwood-commons/rowpick/pkg/logger"
	"github.com/oakwood-commons/rowpick/pkg/picker"
	"github.com/oakwood-commons/rowpick/pkg/selection"
	"github.com/oakwood-commons/rowpick/pkg/tabular"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	minTableRows  = 3
)

type filterChangedMsg struct{}

// FilterEvents carries debounced search results from the index's timer
// goroutine into the program loop. Pass Notify to picker.WithOnFilterChange.
type FilterEvents struct {
	ch chan struct{}
}

// NewFilterEvents returns an empty event channel.
func NewFilterEvents() *FilterEvents {
	return &FilterEvents{ch: make(chan struct{}, 1)}
}

// Notify signals a filter change. Signals coalesce while one is pending.
func (e *FilterEvents) Notify([]int) {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

func (e *FilterEvents) wait(ctx context.Context) tea.Cmd {
	if e == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-e.ch:
			return filterChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// PickerModel is the bubbletea model of the interactive picker.
type PickerModel struct {
	ctx    context.Context
	picker *picker.Picker
	events *FilterEvents
	keys   KeyBindings
	styles styles

	table     *table.Model[int]
	search    textinput.Model
	searching bool

	noColor bool
	width   int
	height  int
	errMsg  string

	confirmed bool
	result    []tabular.Row
}

// NewPickerModel wraps a built picker. events may be nil when the picker has
// no filter-change subscriber; search edits are then evaluated immediately.
func NewPickerModel(ctx context.Context, p *picker.Picker, events *FilterEvents, opts Options) *PickerModel {
	theme := DefaultTheme()
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	keys := opts.Keys
	if keys == nil {
		keys = DefaultKeyBindings()
	}

	cols := p.Columns()
	defs := p.ColumnDefs()
	tbl := table.NewModel(defs.Titles(cols), func(idx int) []string {
		rows := p.Rows()
		cells := make([]string, len(cols))
		if idx < 0 || idx >= len(rows) {
			return cells
		}
		for i, c := range cols {
			cells[i] = columns.CellText(rows[idx][c])
		}
		return cells
	})
	tbl.SetNoColor(opts.NoColor)
	if !opts.NoColor {
		tbl.SetColors(theme.HeaderFG, theme.SelectedFG, theme.SelectedBG)
	}

	si := textinput.New()
	si.Placeholder = "type to search"
	si.CharLimit = 500
	si.SetWidth(defaultWidth)
	si.Prompt = "/ "

	m := &PickerModel{
		ctx:     ctx,
		picker:  p,
		events:  events,
		keys:    keys,
		styles:  theme.styles(opts.NoColor),
		table:   tbl,
		search:  si,
		noColor: opts.NoColor,
		width:   defaultWidth,
		height:  defaultHeight,
	}
	m.refreshRows()
	m.resize()
	return m
}

// Init starts listening for filter changes.
func (m *PickerModel) Init() tea.Cmd {
	return m.events.wait(m.ctx)
}

// Confirmed reports whether the user accepted the selection.
func (m *PickerModel) Confirmed() bool { return m.confirmed }

// Result returns the rows handed to the OK handler on confirm.
func (m *PickerModel) Result() []tabular.Row { return m.result }

// Cursor returns the visible position under the cursor.
func (m *PickerModel) Cursor() int { return m.table.Cursor() }

// Searching reports whether the search input has focus.
func (m *PickerModel) Searching() bool { return m.searching }

// Update handles messages and updates the picker state.
func (m *PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case filterChangedMsg:
		m.refreshRows()
		return m, m.events.wait(m.ctx)
	case tea.KeyPressMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.handleAction(m.keys.Lookup(msg.String()))
	}
	return m, nil
}

func (m *PickerModel) updateSearch(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.picker.FlushSearch()
		m.leaveSearch()
		return m, nil
	case "esc":
		m.search.SetValue("")
		m.picker.Search("")
		m.picker.FlushSearch()
		m.leaveSearch()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if value := m.search.Value(); value != before {
		m.picker.Search(value)
		if m.events == nil {
			m.picker.FlushSearch()
			m.refreshRows()
		}
	}
	return m, cmd
}

func (m *PickerModel) leaveSearch() {
	m.searching = false
	m.search.Blur()
	m.table.Focus()
	m.refreshRows()
}

func (m *PickerModel) handleAction(action Action) (tea.Model, tea.Cmd) {
	m.errMsg = ""
	switch action {
	case ActionUp:
		m.table.MoveUp(1)
	case ActionDown:
		m.table.MoveDown(1)
	case ActionPageUp:
		m.table.MoveUp(m.pageSize())
	case ActionPageDown:
		m.table.MoveDown(m.pageSize())
	case ActionTop:
		m.table.GotoTop()
	case ActionBottom:
		m.table.GotoBottom()
	case ActionToggle:
		m.apply(m.picker.Toggle(m.Cursor()))
	case ActionClick:
		m.apply(m.picker.Click(m.Cursor(), selection.Modifiers{}))
	case ActionExtendUp:
		m.table.MoveUp(1)
		m.apply(m.picker.Click(m.Cursor(), selection.Modifiers{Shift: true}))
	case ActionExtendDown:
		m.table.MoveDown(1)
		m.apply(m.picker.Click(m.Cursor(), selection.Modifiers{Shift: true}))
	case ActionClear:
		m.picker.ClearSelection()
		m.refreshMarks()
	case ActionSearch:
		m.searching = true
		m.table.Blur()
		m.search.SetValue(m.picker.Query())
		m.search.CursorEnd()
		return m, m.search.Focus()
	case ActionClearSearch:
		if m.picker.Query() == "" {
			return m, tea.Quit
		}
		m.search.SetValue("")
		m.picker.Search("")
		m.picker.FlushSearch()
		m.refreshRows()
	case ActionConfirm:
		return m.confirm()
	case ActionCancel:
		return m, tea.Quit
	}
	return m, nil
}

// confirm accepts the selection. With nothing selected the row under the
// cursor is taken.
func (m *PickerModel) confirm() (tea.Model, tea.Cmd) {
	if len(m.picker.SelectedIndices()) == 0 {
		if err := m.picker.Toggle(m.Cursor()); err != nil {
			m.errMsg = "nothing to select"
			return m, nil
		}
	}
	m.confirmed = true
	m.result = m.picker.OK()
	logger.FromContext(m.ctx).V(1).Info("selection confirmed", logger.RowsKey, len(m.result))
	return m, tea.Quit
}

func (m *PickerModel) apply(err error) {
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.refreshMarks()
}

func (m *PickerModel) refreshRows() {
	m.table.SetRows(m.picker.Visible())
	m.refreshMarks()
}

func (m *PickerModel) refreshMarks() {
	selected := map[int]struct{}{}
	for _, idx := range m.picker.SelectedIndices() {
		selected[idx] = struct{}{}
	}
	m.table.SetMarker(func(pos int) bool {
		_, ok := selected[m.table.Rows()[pos]]
		return ok
	})
}

func (m *PickerModel) chromeHeight() int {
	h := 3 // search, status, help
	if m.picker.Title() != "" {
		h++
	}
	if m.picker.Description() != "" {
		h++
	}
	return h
}

func (m *PickerModel) pageSize() int {
	return max(m.height-m.chromeHeight()-2, 1)
}

func (m *PickerModel) resize() {
	m.search.SetWidth(max(m.width-4, 10))
	m.table.SetSize(m.width, max(m.height-m.chromeHeight(), minTableRows))
}

// View renders the picker.
func (m *PickerModel) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m *PickerModel) render() string {
	var parts []string
	if title := m.picker.Title(); title != "" {
		parts = append(parts, m.styles.title.Render(title))
	}
	if desc := m.picker.Description(); desc != "" {
		parts = append(parts, m.styles.description.Render(desc))
	}
	if m.searching {
		parts = append(parts, m.search.View())
	} else {
		parts = append(parts, m.styles.input.Render("/ "+m.picker.Query()))
	}
	parts = append(parts, m.table.View())
	parts = append(parts, m.statusLine())
	parts = append(parts, m.helpLine())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *PickerModel) statusLine() string {
	if m.errMsg != "" {
		return m.styles.err.Render(m.errMsg)
	}
	status := fmt.Sprintf("%d of %d rows  %d selected  %s",
		m.table.Len(), len(m.picker.Rows()), len(m.picker.SelectedIndices()), m.picker.Mode())
	if !m.picker.Loaded() {
		status = "no data available"
	}
	return m.styles.status.Render(status)
}

func (m *PickerModel) helpLine() string {
	entries := []struct {
		action Action
		label  string
	}{
		{ActionToggle, "toggle"},
		{ActionExtendDown, "extend"},
		{ActionSearch, "search"},
		{ActionClear, "clear"},
		{ActionConfirm, "ok"},
		{ActionCancel, "cancel"},
	}
	items := make([]string, 0, len(entries))
	for _, e := range entries {
		keys := m.keys.KeysFor(e.action)
		if len(keys) == 0 {
			continue
		}
		items = append(items, m.styles.helpKey.Render(keys[0])+" "+m.styles.helpValue.Render(e.label))
	}
	return strings.Join(items, "  ")
}
