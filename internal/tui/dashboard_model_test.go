package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/dashboard"
)

func sampleSummary() dashboard.Summary {
	return dashboard.Summary{
		GeneratedAt: time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC),
		Elapsed:     42 * time.Millisecond,
		Metrics: []dashboard.Metric{
			{Query: dashboard.Query{Key: "total.products", Label: "Products", Group: dashboard.GroupTotals}, Value: 12},
			{Query: dashboard.Query{Key: "transfers.PENDING", Label: "PENDING", Group: dashboard.GroupTransfers}, Value: 3},
			{
				Query:   dashboard.Query{Key: "stock.LOW_STOCK", Label: "Low stock", Group: dashboard.GroupStock},
				Err:     errors.New("boom"),
				Message: "Server unavailable",
			},
		},
	}
}

func TestDashboardModel_Load(t *testing.T) {
	calls := 0
	m := NewDashboardModel(context.Background(), func(context.Context) (dashboard.Summary, error) {
		calls++
		return sampleSummary(), nil
	})

	cmd := m.Init()
	assert.True(t, m.Busy())
	assert.Nil(t, m.refresh(), "a second load is not started while busy")
	process(t, m, cmd)

	require.False(t, m.Busy())
	assert.Equal(t, 1, calls)
	view := m.View()
	assert.Contains(t, view, "Products")
	assert.Contains(t, view, "12")
	assert.Contains(t, view, "n/a")
	assert.Contains(t, view, "Low stock unavailable: Server unavailable")

	press(t, m, keyRunes("r"))
	assert.Equal(t, 2, calls)
}

func TestDashboardModel_Error(t *testing.T) {
	m := NewDashboardModel(context.Background(), func(context.Context) (dashboard.Summary, error) {
		return dashboard.Summary{}, context.DeadlineExceeded
	})
	process(t, m, m.Init())

	assert.Contains(t, m.View(), "Error: context deadline exceeded")
	assert.Contains(t, m.View(), "[r] Refresh")
}

func TestDashboardModel_Quit(t *testing.T) {
	m := NewDashboardModel(context.Background(), func(context.Context) (dashboard.Summary, error) {
		return sampleSummary(), nil
	})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestSummaryRows_GroupOrder(t *testing.T) {
	rows := summaryRows(sampleSummary())
	require.Len(t, rows, 3)
	assert.Equal(t, dashboard.GroupTotals, rows[0][0])
	assert.Equal(t, dashboard.GroupStock, rows[2][0])
	assert.Equal(t, "n/a", rows[2][2])
}
