package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	plain = Modifiers{}
	shift = Modifiers{Shift: true}
	ctrl  = Modifiers{CtrlOrMeta: true}
)

type click struct {
	index int
	mods  Modifiers
}

func TestMultiClicks(t *testing.T) {
	tests := []struct {
		name       string
		clicks     []click
		want       []int
		wantAnchor int
	}{
		{name: "plain selects one", clicks: []click{{2, plain}}, want: []int{2}, wantAnchor: 2},
		{name: "plain replaces", clicks: []click{{3, plain}, {1, plain}, {5, plain}}, want: []int{5}, wantAnchor: 5},
		{name: "plain on selected keeps it", clicks: []click{{2, plain}, {2, plain}}, want: []int{2}, wantAnchor: 2},
		{name: "range forward", clicks: []click{{2, plain}, {7, shift}}, want: []int{2, 3, 4, 5, 6, 7}, wantAnchor: 2},
		{name: "range backward", clicks: []click{{5, plain}, {2, shift}}, want: []int{2, 3, 4, 5}, wantAnchor: 5},
		{name: "range replaces prior", clicks: []click{{9, ctrl}, {2, ctrl}, {4, shift}}, want: []int{2, 3, 4}, wantAnchor: 2},
		{name: "range keeps anchor", clicks: []click{{2, plain}, {7, shift}, {4, shift}}, want: []int{2, 3, 4}, wantAnchor: 2},
		{name: "shift without anchor is plain", clicks: []click{{4, shift}}, want: []int{4}, wantAnchor: 4},
		{name: "ctrl toggles on", clicks: []click{{3, ctrl}, {1, ctrl}, {5, ctrl}}, want: []int{1, 3, 5}, wantAnchor: 5},
		{name: "ctrl toggles off", clicks: []click{{3, ctrl}, {1, ctrl}, {3, ctrl}}, want: []int{1}, wantAnchor: 3},
		{name: "ctrl adds to a range", clicks: []click{{1, plain}, {3, shift}, {8, ctrl}}, want: []int{1, 2, 3, 8}, wantAnchor: 8},
		{name: "shift has precedence over ctrl", clicks: []click{{1, plain}, {3, Modifiers{Shift: true, CtrlOrMeta: true}}}, want: []int{1, 2, 3}, wantAnchor: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(Multi)
			for _, c := range tt.clicks {
				m.Click(c.index, c.mods)
			}
			assert.Equal(t, tt.want, m.SelectedIndices())
			anchor, ok := m.Anchor()
			require.True(t, ok)
			assert.Equal(t, tt.wantAnchor, anchor)
		})
	}
}

func TestMultiToggle(t *testing.T) {
	m := New(Multi)
	m.Toggle(3)
	m.Toggle(1)
	m.Toggle(5)
	assert.Equal(t, []int{1, 3, 5}, m.SelectedIndices(), "sorted, not insertion order")

	m.Toggle(3)
	assert.Equal(t, []int{1, 5}, m.SelectedIndices())

	m = New(Multi)
	m.Toggle(9)
	m.Toggle(2)
	m.Toggle(5)
	assert.Equal(t, []int{2, 5, 9}, m.SelectedIndices())

	m = New(Multi)
	m.Click(3, plain)
	m.Click(1, plain)
	m.Click(5, plain)
	assert.Equal(t, []int{5}, m.SelectedIndices(), "plain clicks replace")
}

func TestSingleMode(t *testing.T) {
	t.Run("select then deselect", func(t *testing.T) {
		m := New(Single)
		m.Click(4, plain)
		assert.Equal(t, []int{4}, m.SelectedIndices())
		m.Click(4, plain)
		assert.Equal(t, []int{}, m.SelectedIndices())
	})

	t.Run("different row replaces", func(t *testing.T) {
		m := New(Single)
		m.Click(1, plain)
		m.Click(3, plain)
		assert.Equal(t, []int{3}, m.SelectedIndices())
	})

	t.Run("modifiers are ignored", func(t *testing.T) {
		m := New(Single)
		m.Click(1, plain)
		m.Click(5, shift)
		assert.Equal(t, []int{5}, m.SelectedIndices())
		m.Click(7, ctrl)
		assert.Equal(t, []int{7}, m.SelectedIndices())
	})

	t.Run("toggle behaves like click", func(t *testing.T) {
		m := New(Single)
		m.Toggle(2)
		m.Toggle(6)
		assert.Equal(t, []int{6}, m.SelectedIndices())
		m.Toggle(6)
		assert.Equal(t, 0, m.Len())
	})
}

func TestSelectedData(t *testing.T) {
	data := []string{"a", "b", "c", "d"}
	m := New(Multi)
	m.Toggle(2)
	m.Toggle(0)
	assert.Equal(t, []string{"a", "c"}, SelectedData(m, data))

	m = New(Multi)
	m.Toggle(0)
	m.Toggle(99)
	assert.Equal(t, []string{"a"}, SelectedData(m, data[:2]))
	assert.Equal(t, []string{}, SelectedData(New(Multi), data))
}

func TestIsSelected(t *testing.T) {
	m := New(Multi)
	assert.False(t, m.IsSelected(3))
	m.Click(3, plain)
	assert.True(t, m.IsSelected(3))
	m.Click(3, ctrl)
	assert.False(t, m.IsSelected(3))
}

func TestNotifications(t *testing.T) {
	var calls [][]int
	m := New(Multi, WithOnSelectionChange(func(v []int) { calls = append(calls, v) }))

	m.Toggle(2)
	m.Toggle(0)
	require.Len(t, calls, 2)
	assert.Equal(t, []int{2}, calls[0])
	assert.Equal(t, []int{0, 2}, calls[1])

	m.Clear()
	require.Len(t, calls, 3)
	assert.Equal(t, []int{}, calls[2])
	_, ok := m.Anchor()
	assert.False(t, ok)

	m.Click(4, plain)
	m.Destroy()
	assert.Len(t, calls, 4, "destroy does not notify")
	assert.Equal(t, 0, m.Len())
	_, ok = m.Anchor()
	assert.False(t, ok)
}

func TestClearResetsAnchor(t *testing.T) {
	m := New(Multi)
	m.Click(2, plain)
	m.Clear()
	m.Click(6, shift)
	assert.Equal(t, []int{6}, m.SelectedIndices(), "no anchor left for a range")
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "single", want: Single},
		{in: "MULTI", want: Multi},
		{in: " multiple ", want: Multi},
		{in: "many", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, New(got).Mode())
		})
	}
	assert.Equal(t, "multi", Multi.String())
	assert.Equal(t, "single", Single.String())
}
