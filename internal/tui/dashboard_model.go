package tui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stockdesk/stockdesk/internal/dashboard"
)

const (
	dashboardMetricWidth = 24
	dashboardValueWidth  = 10
	dashboardGroupWidth  = 12
)

// SummaryFunc produces a dashboard snapshot.
type SummaryFunc func(ctx context.Context) (dashboard.Summary, error)

type summaryLoadedMsg struct {
	summary dashboard.Summary
	err     error
}

// DashboardModel shows the headline counts. Metrics that failed are listed
// under the table with their message; the rest still render.
type DashboardModel struct {
	ctx     context.Context
	load    SummaryFunc
	loading *LoadingState
	table   table.Model

	busy     bool
	summary  dashboard.Summary
	err      error
	quitting bool
}

// NewDashboardModel returns a dashboard backed by load.
func NewDashboardModel(ctx context.Context, load SummaryFunc) *DashboardModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Group", Width: dashboardGroupWidth},
			{Title: "Metric", Width: dashboardMetricWidth},
			{Title: "Count", Width: dashboardValueWidth},
		}),
		table.WithFocused(true),
		table.WithHeight(defaultHeight-chromeHeight),
	)
	return &DashboardModel{ctx: ctx, load: load, loading: NewLoadingState(), table: t}
}

// Init starts the first load.
func (m *DashboardModel) Init() tea.Cmd {
	return m.refresh()
}

func (m *DashboardModel) refresh() tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	ctx, load := m.ctx, m.load
	return tea.Batch(m.loading.Start(), func() tea.Msg {
		s, err := load(ctx)
		return summaryLoadedMsg{summary: s, err: err}
	})
}

// Summary returns the last snapshot.
func (m *DashboardModel) Summary() dashboard.Summary { return m.summary }

// Busy reports whether a load is in flight.
func (m *DashboardModel) Busy() bool { return m.busy }

// Update handles messages (Bubble Tea interface).
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case summaryLoadedMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil {
			m.summary = msg.summary
			m.table.SetRows(summaryRows(msg.summary))
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.table.SetHeight(max(minHeight, msg.Height-chromeHeight))
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case keyQuit, keyCtrlC:
			m.quitting = true
			return m, tea.Quit
		case keyRetry:
			return m, m.refresh()
		}
	}

	if _, ok := msg.(spinner.TickMsg); ok {
		if !m.busy {
			m.loading.Stop()
			return m, nil
		}
		return m, m.loading.Update(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func summaryRows(s dashboard.Summary) []table.Row {
	rows := make([]table.Row, 0, len(s.Metrics))
	for _, g := range []string{dashboard.GroupTotals, dashboard.GroupTransfers, dashboard.GroupStock} {
		for _, metric := range s.Group(g) {
			value := strconv.Itoa(metric.Value)
			if !metric.OK() {
				value = "n/a"
			}
			rows = append(rows, table.Row{g, metric.Label, value})
		}
	}
	return rows
}

// View renders the dashboard (Bubble Tea interface).
func (m *DashboardModel) View() string {
	if m.quitting {
		return ""
	}
	title := TitleStyle.Render("Dashboard")
	if m.busy {
		title += "  " + RenderLoading(m.loading)
	}
	sections := []string{title}

	switch {
	case m.err != nil:
		sections = append(sections, ErrorStyle.Render("Error: "+m.err.Error()))
	case m.summary.GeneratedAt.IsZero():
		sections = append(sections, MutedStyle.Render("No data yet."))
	default:
		sections = append(sections, m.table.View())
		for _, metric := range m.summary.Failed() {
			sections = append(sections, WarningStyle.Render(fmt.Sprintf("%s unavailable: %s", metric.Label, metric.Message)))
		}
		sections = append(sections, MutedStyle.Render(fmt.Sprintf("Updated %s (%s)",
			m.summary.GeneratedAt.Format("15:04:05"), m.summary.Elapsed.Round(time.Millisecond))))
	}

	sections = append(sections, MutedStyle.Render("[r] Refresh  [q] Quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
