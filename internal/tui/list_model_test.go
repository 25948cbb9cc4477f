package tui

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/api"
	"github.com/stockdesk/stockdesk/internal/entity"
	"github.com/stockdesk/stockdesk/internal/listing"
)

type recordedActions struct {
	mu       sync.Mutex
	deleted  []string
	created  []map[string]any
	updated  map[string]map[string]any
	failWith error
	block    chan struct{}
}

func (r *recordedActions) actions(server *productServer) Actions {
	return Actions{
		Delete: func(_ context.Context, id string) error {
			if r.block != nil {
				<-r.block
			}
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.failWith != nil {
				return r.failWith
			}
			r.deleted = append(r.deleted, id)
			server.remove(id)
			return nil
		},
		Create: func(_ context.Context, payload map[string]any) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.failWith != nil {
				return r.failWith
			}
			r.created = append(r.created, payload)
			return nil
		},
		Update: func(_ context.Context, id string, payload map[string]any) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.failWith != nil {
				return r.failWith
			}
			if r.updated == nil {
				r.updated = map[string]map[string]any{}
			}
			r.updated[id] = payload
			return nil
		},
	}
}

func newProductList(t *testing.T, server *productServer, actions Actions, gated bool) *ListModel[entity.Product] {
	t.Helper()
	desc := entity.ProductDescriptor()
	policy := fastPolicy().WithClassifier(api.IsRetryable)
	ctrl := listing.NewController(server.fetch, listing.FilterCriteria{}, listing.NewPageRequest(desc.DefaultSort),
		listing.Options{Name: desc.Name, Policy: policy, ApplyGate: gated, Message: api.UserMessage})
	t.Cleanup(ctrl.Close)

	m := NewListModel(context.Background(), desc, ctrl, actions, zerolog.Nop())
	process(t, m, m.Init())
	require.Equal(t, listing.StatusLoaded, ctrl.Status().Kind)
	return m
}

func TestListModel_InitialLoad(t *testing.T) {
	server := newProductServer(25)
	m := newProductList(t, server, Actions{}, false)

	view := m.View()
	assert.Contains(t, view, "Products")
	assert.Contains(t, view, "Page 1 of 3")
	assert.Contains(t, view, "25 records")
	assert.Contains(t, view, "Product 1")
	assert.Equal(t, 10, m.virtualList.ItemCount())
}

func TestListModel_PageNavigation(t *testing.T) {
	server := newProductServer(25)
	m := newProductList(t, server, Actions{}, false)

	press(t, m, keyRunes("n"))
	assert.Equal(t, 1, server.lastPage().PageIndex)
	assert.Contains(t, m.View(), "Page 2 of 3")

	press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 2, server.lastPage().PageIndex)
	assert.False(t, m.ctrl.CanNext())

	calls := server.calls()
	_, cmd := m.Update(keyRunes("n"))
	assert.Nil(t, cmd, "next is disabled on the last page")
	assert.Equal(t, calls, server.calls())

	press(t, m, keyRunes("p"))
	assert.Equal(t, 1, server.lastPage().PageIndex)
	press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 0, server.lastPage().PageIndex)

	_, cmd = m.Update(keyRunes("p"))
	assert.Nil(t, cmd, "previous is disabled on the first page")
}

func TestListModel_EmptyResultShowsOnePage(t *testing.T) {
	m := newProductList(t, newProductServer(0), Actions{}, false)

	view := m.View()
	assert.Contains(t, view, "Page 1 of 1")
	assert.Contains(t, view, "No records found.")
}

func TestListModel_PageSizeResetsPage(t *testing.T) {
	server := newProductServer(60)
	m := newProductList(t, server, Actions{}, false)

	press(t, m, keyRunes("n"))
	require.Equal(t, 1, server.lastPage().PageIndex)

	press(t, m, keyRunes("+"))
	last := server.lastPage()
	assert.Equal(t, 25, last.PageSize)
	assert.Equal(t, 0, last.PageIndex)

	press(t, m, keyRunes("-"))
	assert.Equal(t, 10, server.lastPage().PageSize)

	_, cmd := m.Update(keyRunes("-"))
	assert.Nil(t, cmd, "smallest size is already selected")
}

func TestListModel_SortKeepsPage(t *testing.T) {
	server := newProductServer(25)
	m := newProductList(t, server, Actions{}, false)

	press(t, m, keyRunes("n"))
	press(t, m, keyRunes("s"))
	last := server.lastPage()
	assert.Equal(t, "name", last.SortField)
	assert.Equal(t, 1, last.PageIndex)

	press(t, m, keyRunes("S"))
	last = server.lastPage()
	assert.Equal(t, listing.SortAsc, last.SortDirection)
	assert.Equal(t, 1, last.PageIndex)
}

func TestListModel_SearchAndStatusFilter(t *testing.T) {
	server := newProductServer(25)
	m := newProductList(t, server, Actions{}, false)
	press(t, m, keyRunes("n"))

	m.Update(keyRunes("/"))
	require.True(t, m.searching)
	typeText(m, "drill")
	assert.Contains(t, m.View(), "Search:")
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.searching)
	assert.Equal(t, "drill", m.ctrl.Filter().Get(listing.FilterSearch))
	assert.Equal(t, 0, server.lastPage().PageIndex, "filter change resets the page")

	press(t, m, keyRunes("f"))
	assert.Equal(t, "ACTIVE", m.ctrl.Filter().Get(listing.FilterStatus))
	press(t, m, keyRunes("f"))
	assert.Equal(t, "DISCONTINUED", m.ctrl.Filter().Get(listing.FilterStatus))
	press(t, m, keyRunes("f"))
	assert.Empty(t, m.ctrl.Filter().Get(listing.FilterStatus))

	press(t, m, keyRunes("x"))
	assert.Empty(t, m.ctrl.Filter())
}

func TestListModel_SearchEscapeKeepsFilter(t *testing.T) {
	server := newProductServer(5)
	m := newProductList(t, server, Actions{}, false)
	calls := server.calls()

	m.Update(keyRunes("/"))
	typeText(m, "abc")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Nil(t, cmd)
	assert.False(t, m.searching)
	assert.Empty(t, m.ctrl.Filter())
	assert.Equal(t, calls, server.calls())
}

func TestListModel_GatedFiltersWaitForApply(t *testing.T) {
	server := newProductServer(25)
	m := newProductList(t, server, Actions{}, true)
	calls := server.calls()

	_, cmd := m.Update(keyRunes("f"))
	assert.Nil(t, cmd)
	assert.Equal(t, calls, server.calls())
	assert.True(t, m.ctrl.Dirty())
	view := m.View()
	assert.Contains(t, view, "Pending: status=ACTIVE")
	assert.Contains(t, view, "[a] Apply")

	press(t, m, keyRunes("a"))
	assert.Equal(t, calls+1, server.calls())
	assert.Equal(t, "ACTIVE", m.ctrl.Filter().Get(listing.FilterStatus))
	assert.False(t, m.ctrl.Dirty())
}

func TestListModel_FailureShowsRetry(t *testing.T) {
	server := newProductServer(5)
	m := newProductList(t, server, Actions{}, false)

	server.setErr(&api.APIError{Status: 400, Message: "Invalid filter"})
	press(t, m, keyRunes("r"))

	status := m.ctrl.Status()
	require.Equal(t, listing.StatusFailed, status.Kind)
	assert.Equal(t, 1, status.Attempts, "client errors are not retried")
	view := m.View()
	assert.Contains(t, view, "Error: Invalid filter")
	assert.Contains(t, view, "[r] Retry")

	server.setErr(nil)
	press(t, m, keyRunes("r"))
	assert.Equal(t, listing.StatusLoaded, m.ctrl.Status().Kind)
}

func TestListModel_RowActionsNeedLoadedPage(t *testing.T) {
	server := newProductServer(15)
	rec := &recordedActions{}
	m := newProductList(t, server, rec.actions(server), false)

	server.setErr(&api.APIError{Status: 400, Message: "Invalid filter"})
	press(t, m, keyRunes("r"))
	require.Equal(t, listing.StatusFailed, m.ctrl.Status().Kind)
	require.NotNil(t, m.virtualList.GetSelectedItem(), "rows of the last page are still held")

	for _, key := range []tea.KeyMsg{keyRunes("d"), keyRunes("e"), {Type: tea.KeyEnter}} {
		m.Update(key)
		assert.False(t, m.Modal().IsOpen(), "%s on a failed page", key.String())
	}

	server.setErr(nil)
	press(t, m, keyRunes("r"))
	m.Update(keyRunes("n"))
	require.True(t, m.ctrl.Status().IsLoading())
	m.Update(keyRunes("d"))
	assert.False(t, m.Modal().IsOpen(), "rows are not actionable while a page loads")
	assert.Empty(t, rec.deleted)
}

// countTicks runs cmd and counts the spinner ticks it produces.
func countTicks(cmd tea.Cmd) int {
	if cmd == nil {
		return 0
	}
	switch msg := cmd().(type) {
	case spinner.TickMsg:
		return 1
	case tea.BatchMsg:
		n := 0
		for _, c := range msg {
			n += countTicks(c)
		}
		return n
	}
	return 0
}

func TestListModel_OneSpinnerLoop(t *testing.T) {
	server := newProductServer(40)
	m := newProductList(t, server, Actions{}, false)

	m.Update(spinner.TickMsg{})
	require.False(t, m.loading.Running(), "a tick after the load stops the spinner")

	_, first := m.Update(keyRunes("n"))
	_, second := m.Update(keyRunes("n"))
	assert.True(t, m.loading.Running())
	_, next := m.Update(spinner.TickMsg{})
	assert.NotNil(t, next, "the running loop keeps ticking while loading")

	assert.Equal(t, 1, countTicks(first))
	assert.Zero(t, countTicks(second), "paging while loading starts no second tick loop")
}

func TestListModel_DeleteConfirm(t *testing.T) {
	server := newProductServer(3)
	rec := &recordedActions{}
	m := newProductList(t, server, rec.actions(server), false)

	m.Update(keyRunes("d"))
	require.True(t, m.Modal().Is(ModalDelete))
	assert.Equal(t, "p1", m.Modal().Target())
	assert.Contains(t, m.View(), `Delete product "Product 1"?`)

	m.Update(keyRunes("n"))
	assert.False(t, m.Modal().IsOpen(), "n cancels the confirmation")
	assert.Empty(t, rec.deleted)

	m.Update(keyRunes("d"))
	press(t, m, keyRunes("y"))

	assert.Equal(t, []string{"p1"}, rec.deleted)
	assert.Equal(t, "Deleted p1.", m.Notice())
	assert.Equal(t, 2, m.virtualList.ItemCount(), "list refreshed after delete")
	assert.Zero(t, m.Guard().Len())
}

func TestListModel_DeleteMarksRowBusy(t *testing.T) {
	server := newProductServer(3)
	rec := &recordedActions{block: make(chan struct{})}
	m := newProductList(t, server, rec.actions(server), false)

	m.Update(keyRunes("d"))
	_, cmd := m.Update(keyRunes("y"))
	require.NotNil(t, cmd)
	assert.True(t, m.Guard().Busy("p1"))
	assert.Contains(t, m.View(), "deleting…")

	_, again := m.Update(keyRunes("d"))
	assert.Nil(t, again)
	assert.False(t, m.Modal().IsOpen(), "busy rows cannot be confirmed again")
	assert.Contains(t, m.Notice(), "already being deleted")

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	close(rec.block)
	process(t, m, func() tea.Msg { return <-done })

	assert.False(t, m.Guard().Busy("p1"))
	assert.Equal(t, []string{"p1"}, rec.deleted)
}

func TestListModel_DeleteFailure(t *testing.T) {
	server := newProductServer(3)
	rec := &recordedActions{failWith: &api.APIError{Status: 409, Message: "Product is referenced by inventory"}}
	m := newProductList(t, server, rec.actions(server), false)
	calls := server.calls()

	m.Update(keyRunes("d"))
	press(t, m, keyRunes("y"))

	assert.Equal(t, "Product is referenced by inventory", m.Notice())
	assert.Zero(t, m.Guard().Len())
	assert.Equal(t, calls, server.calls(), "no refresh after a failed delete")
}

func TestListModel_ReadOnlyIgnoresRowActions(t *testing.T) {
	m := newProductList(t, newProductServer(3), Actions{}, false)

	for _, k := range []string{"d", "e", "c", "i"} {
		m.Update(keyRunes(k))
		assert.False(t, m.Modal().IsOpen(), "key %q", k)
	}
	assert.NotContains(t, m.View(), "[d] Delete")
}

func TestListModel_CreateAndEdit(t *testing.T) {
	server := newProductServer(3)
	rec := &recordedActions{}
	m := newProductList(t, server, rec.actions(server), false)

	t.Run("create", func(t *testing.T) {
		m.Update(keyRunes("c"))
		require.True(t, m.Modal().Is(ModalCreate))
		m.form.SetValue("sku", "SKU-9")
		m.form.SetValue("name", "Hammer")
		m.form.SetValue("price", "12.50")
		press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

		assert.False(t, m.Modal().IsOpen())
		require.Len(t, rec.created, 1)
		assert.Equal(t, "Hammer", rec.created[0]["name"])
		assert.Equal(t, "Created.", m.Notice())
	})

	t.Run("edit sends changed fields only", func(t *testing.T) {
		m.Update(keyRunes("e"))
		require.True(t, m.Modal().Is(ModalEdit))
		assert.Equal(t, "p1", m.Modal().Target())
		m.form.SetValue("name", "Renamed")
		press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

		require.Contains(t, rec.updated, "p1")
		assert.Equal(t, map[string]any{"name": "Renamed"}, rec.updated["p1"])
		assert.Equal(t, "Saved p1.", m.Notice())
	})

	t.Run("server error keeps the form open", func(t *testing.T) {
		rec.failWith = &api.APIError{Status: 400, Message: "SKU already exists"}
		m.Update(keyRunes("c"))
		m.form.SetValue("sku", "SKU-1")
		m.form.SetValue("name", "Dup")
		m.form.SetValue("price", "1")
		press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

		assert.True(t, m.Modal().Is(ModalCreate))
		assert.Equal(t, "SKU already exists", m.form.Err())
		assert.False(t, m.form.Saving())

		press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
		assert.False(t, m.Modal().IsOpen())
	})
}

func TestListModel_DetailModal(t *testing.T) {
	m := newProductList(t, newProductServer(3), Actions{}, false)

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.Modal().Is(ModalDetail))
	assert.Equal(t, "p2", m.Modal().Target())
	assert.Contains(t, m.View(), "SKU-2")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.Modal().IsOpen())
}

func TestListModel_ImportModal(t *testing.T) {
	server := newProductServer(3)
	backend := &fakeImportBackend{headers: []string{"SKU", "Name", "Price"}}
	acts := Actions{Import: backend}
	m := newProductList(t, server, acts, false)
	m.WithFileOpener(func(string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("SKU,Name,Price\n")), nil
	})
	calls := server.calls()

	m.Update(keyRunes("i"))
	require.True(t, m.Modal().Is(ModalImport))

	typeText(m, "products.csv")
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.imp.Flow().CanProcess())

	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.Modal().IsOpen())
	assert.Equal(t, "Import complete.", m.Notice())
	assert.Greater(t, server.calls(), calls, "list refreshed after import")
}

func TestListModel_QuitClosesController(t *testing.T) {
	m := newProductList(t, newProductServer(3), Actions{}, false)

	_, cmd := m.Update(keyRunes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.ctrl.Closed())
	assert.Empty(t, m.View())
}

func TestListModel_StaleFetchIgnored(t *testing.T) {
	server := newProductServer(25)
	m := newProductList(t, server, Actions{}, false)

	_, first := m.Update(keyRunes("n"))
	press(t, m, keyRunes("n"))
	require.Equal(t, 2, m.ctrl.Page().PageIndex)
	shown := m.virtualList.GetSelectedItem()
	require.NotNil(t, shown)

	process(t, m, first)
	after := m.virtualList.GetSelectedItem()
	require.NotNil(t, after)
	assert.Equal(t, shown.ID, after.ID, "superseded page never replaces the current one")
	assert.Equal(t, 2, m.ctrl.Page().PageIndex)
}

func TestStepPageSize(t *testing.T) {
	tests := []struct {
		current, dir, want int
	}{
		{10, 1, 25},
		{25, 1, 50},
		{100, 1, 100},
		{10, -1, 10},
		{50, -1, 25},
		{30, 1, 50},
		{30, -1, 25},
		{5, -1, 5},
		{5, 1, 10},
		{500, 1, 500},
		{500, -1, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stepPageSize(tt.current, tt.dir), "step(%d, %d)", tt.current, tt.dir)
	}
}
