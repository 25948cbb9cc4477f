package listview

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// halfViewportDivisor centres the selection in the viewport.
const halfViewportDivisor = 2

// RenderFunc renders one row. selected marks the cursor row.
type RenderFunc[T any] func(item T, selected bool) string

// VirtualListModel renders only the rows that fit in the viewport around
// the cursor. Items are replaced wholesale on every page load.
type VirtualListModel[T any] struct {
	items      []T
	renderFunc RenderFunc[T]

	selected    int
	visibleFrom int
	visibleTo   int
	height      int
	width       int
}

// NewVirtualListModel returns a list over items with the given viewport.
func NewVirtualListModel[T any](items []T, height, width int, renderFunc RenderFunc[T]) *VirtualListModel[T] {
	m := &VirtualListModel[T]{
		items:      items,
		renderFunc: renderFunc,
		height:     height,
		width:      width,
	}
	m.updateVisibleRange()
	return m
}

// Init implements tea.Model.
func (m *VirtualListModel[T]) Init() tea.Cmd {
	return nil
}

// Update moves the cursor on navigation keys and tracks the window size.
func (m *VirtualListModel[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.SetSize(msg.Height, msg.Width)
	}
	return m, nil
}

//nolint:exhaustive // only navigation keys move the cursor
func (m *VirtualListModel[T]) handleKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyUp:
		m.SetSelected(m.selected - 1)
	case tea.KeyDown:
		m.SetSelected(m.selected + 1)
	case tea.KeyPgUp:
		m.SetSelected(m.selected - m.height)
	case tea.KeyPgDown:
		m.SetSelected(m.selected + m.height)
	case tea.KeyHome:
		m.SetSelected(0)
	case tea.KeyEnd:
		m.SetSelected(len(m.items) - 1)
	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "j":
			m.SetSelected(m.selected + 1)
		case "k":
			m.SetSelected(m.selected - 1)
		}
	}
}

// SetItems replaces the rows. The cursor keeps its index, clamped to the
// new length.
func (m *VirtualListModel[T]) SetItems(items []T) {
	m.items = items
	m.SetSelected(m.selected)
}

// SetSize changes the viewport.
func (m *VirtualListModel[T]) SetSize(height, width int) {
	m.height = height
	m.width = width
	m.updateVisibleRange()
}

// SetSelected moves the cursor, clamped to the item range.
func (m *VirtualListModel[T]) SetSelected(index int) {
	m.selected = max(0, min(index, len(m.items)-1))
	m.updateVisibleRange()
}

func (m *VirtualListModel[T]) updateVisibleRange() {
	n := len(m.items)
	if n == 0 {
		m.visibleFrom, m.visibleTo = 0, 0
		return
	}
	from := max(0, m.selected-m.height/halfViewportDivisor)
	to := min(n, from+m.height)
	m.visibleFrom = max(0, to-m.height)
	m.visibleTo = to
}

// View renders the visible rows.
func (m *VirtualListModel[T]) View() string {
	if len(m.items) == 0 {
		return ""
	}
	lines := make([]string, 0, m.visibleTo-m.visibleFrom)
	for i := m.visibleFrom; i < m.visibleTo; i++ {
		lines = append(lines, m.renderFunc(m.items[i], i == m.selected))
	}
	return strings.Join(lines, "\n")
}

// ItemCount returns the number of rows.
func (m *VirtualListModel[T]) ItemCount() int { return len(m.items) }

// Selected returns the cursor index.
func (m *VirtualListModel[T]) Selected() int { return m.selected }

// VisibleFrom returns the first rendered index.
func (m *VirtualListModel[T]) VisibleFrom() int { return m.visibleFrom }

// VisibleTo returns the index after the last rendered row.
func (m *VirtualListModel[T]) VisibleTo() int { return m.visibleTo }

// Height returns the viewport height.
func (m *VirtualListModel[T]) Height() int { return m.height }

// Width returns the viewport width.
func (m *VirtualListModel[T]) Width() int { return m.width }

// GetSelectedItem returns the row under the cursor, or nil when empty.
func (m *VirtualListModel[T]) GetSelectedItem() *T {
	if m.selected < 0 || m.selected >= len(m.items) {
		return nil
	}
	return &m.items[m.selected]
}
