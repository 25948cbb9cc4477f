package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/stockdesk/stockdesk/internal/api"
	"github.com/stockdesk/stockdesk/internal/entity"
	"github.com/stockdesk/stockdesk/internal/importer"
	"github.com/stockdesk/stockdesk/internal/listing"
	listview "github.com/stockdesk/stockdesk/internal/tui/list"
)

// PageSizes are the sizes + and - step through.
var PageSizes = []int{10, 25, 50, 100} //nolint:gochecknoglobals // read-only

// fetchDoneMsg reports the end of a controller fetch.
type fetchDoneMsg[T any] struct {
	status  listing.FetchStatus[T]
	applied bool
}

type deleteDoneMsg struct {
	id  string
	err error
}

type saveDoneMsg struct {
	target string
	err    error
}

// ListModel is the list screen of one entity. It owns a list controller,
// renders its status and translates keys into controller mutations. Every
// mutation that changes state returns a fetch command; the controller
// guarantees that only the latest fetch is reflected.
type ListModel[T any] struct {
	ctx     context.Context
	desc    entity.Descriptor[T]
	ctrl    *listing.Controller[T]
	actions Actions
	guard   *listing.RowGuard
	logger  zerolog.Logger

	virtualList *listview.VirtualListModel[T]
	loading     *LoadingState
	search      textinput.Model
	searching   bool

	modal  Modal
	form   *FormModel
	imp    *ImportModel
	opener FileOpener

	notice   string
	noticeOK bool
	width    int
	height   int
	quitting bool
}

// NewListModel returns a list screen for desc over ctrl.
func NewListModel[T any](
	ctx context.Context,
	desc entity.Descriptor[T],
	ctrl *listing.Controller[T],
	actions Actions,
	logger zerolog.Logger,
) *ListModel[T] {
	ti := textinput.New()
	ti.Placeholder = "Search " + strings.ToLower(desc.Title) + "..."
	ti.CharLimit = filterInputCharLimit
	ti.Width = filterInputWidth
	ti.SetValue(ctrl.Filter().Get(listing.FilterSearch))

	m := &ListModel[T]{
		ctx:     ctx,
		desc:    desc,
		ctrl:    ctrl,
		actions: actions,
		guard:   listing.NewRowGuard(),
		logger:  logger.With().Str("component", "tui").Str("screen", desc.Name).Logger(),
		loading: NewLoadingState(),
		search:  ti,
		width:   defaultWidth,
		height:  defaultHeight,
	}
	m.virtualList = listview.NewVirtualListModel[T](nil, m.listHeight(), m.width, m.renderRow)
	return m
}

// WithFileOpener replaces the opener used by the import modal.
func (m *ListModel[T]) WithFileOpener(open FileOpener) *ListModel[T] {
	m.opener = open
	return m
}

// Init triggers the first fetch.
func (m *ListModel[T]) Init() tea.Cmd {
	return m.fetch(m.ctrl.Refresh())
}

// Controller returns the underlying controller.
func (m *ListModel[T]) Controller() *listing.Controller[T] { return m.ctrl }

// Modal returns the modal slot.
func (m *ListModel[T]) Modal() Modal { return m.modal }

// Guard returns the rows with a delete in flight.
func (m *ListModel[T]) Guard() *listing.RowGuard { return m.guard }

// Notice returns the last action message.
func (m *ListModel[T]) Notice() string { return m.notice }

// fetch turns a controller mutation into a command. It returns nil when the
// mutation changed nothing.
func (m *ListModel[T]) fetch(req listing.Request, ok bool) tea.Cmd {
	if !ok {
		return nil
	}
	ctrl, ctx := m.ctrl, m.ctx
	return tea.Batch(m.loading.Start(), func() tea.Msg {
		status, applied := ctrl.Execute(ctx, req)
		return fetchDoneMsg[T]{status: status, applied: applied}
	})
}

// Update handles messages (Bubble Tea interface).
func (m *ListModel[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.virtualList.SetSize(m.listHeight(), m.width)
		return m, nil
	case fetchDoneMsg[T]:
		if msg.applied && msg.status.Kind == listing.StatusLoaded {
			m.virtualList.SetItems(msg.status.Result.Items)
		}
		return m, nil
	case deleteDoneMsg:
		return m, m.handleDeleteDone(msg)
	case saveDoneMsg:
		return m, m.handleSaveDone(msg)
	case FormSubmitMsg:
		return m, m.save(msg)
	case FormCancelMsg:
		m.closeModal()
		return m, nil
	case ImportDoneMsg:
		m.closeModal()
		if msg.Imported {
			m.setNotice("Import complete.", true)
			return m, m.fetch(m.ctrl.Refresh())
		}
		return m, nil
	}

	if _, ok := msg.(spinner.TickMsg); ok {
		if !m.ctrl.Status().IsLoading() {
			m.loading.Stop()
			return m, nil
		}
		return m, m.loading.Update(msg)
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == keyCtrlC {
		return m.quit()
	}

	switch {
	case m.modal.IsOpen():
		return m, m.updateModal(msg)
	case m.searching:
		return m, m.updateSearch(msg)
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		if cmd, handled := m.handleListKey(key); handled {
			return m, cmd
		}
	}

	_, cmd := m.virtualList.Update(msg)
	return m, cmd
}

func (m *ListModel[T]) quit() (tea.Model, tea.Cmd) {
	m.ctrl.Close()
	m.quitting = true
	return m, tea.Quit
}

//nolint:gocyclo,cyclop // one branch per key binding
func (m *ListModel[T]) handleListKey(key tea.KeyMsg) (tea.Cmd, bool) {
	page := m.ctrl.Page()

	switch key.String() {
	case keyQuit:
		_, cmd := m.quit()
		return cmd, true
	case keyRetry:
		return m.fetch(m.ctrl.Refresh()), true
	case keyNext, keyRight:
		return m.fetch(m.ctrl.NextPage()), true
	case keyPrev, keyLeft:
		return m.fetch(m.ctrl.PreviousPage()), true
	case keyPlus:
		return m.fetch(m.ctrl.SetPageSize(stepPageSize(page.PageSize, 1))), true
	case keyMinus:
		return m.fetch(m.ctrl.SetPageSize(stepPageSize(page.PageSize, -1))), true
	case keySort:
		return m.fetch(m.ctrl.SetSort(m.desc.NextSortField(page.SortField), page.SortDirection)), true
	case keySortDir:
		return m.fetch(m.ctrl.SetSort(page.SortField, page.SortDirection.Toggle())), true
	case keySlash:
		m.searching = true
		m.search.SetValue(m.ctrl.DraftFilter().Get(listing.FilterSearch))
		m.search.Focus()
		return textinput.Blink, true
	case keyFilter:
		return m.fetch(m.cycleStatus()), true
	case keyApply:
		return m.fetch(m.ctrl.ApplyFilters()), true
	case keyClear:
		return m.fetch(m.ctrl.SetFilter(listing.FilterCriteria{})), true
	case keyEnter:
		if id, ok := m.selectedID(); ok {
			m.modal = Open(ModalDetail, id)
		}
		return nil, true
	case keyDelete:
		if m.actions.Delete == nil {
			return nil, true
		}
		if id, ok := m.selectedID(); ok {
			if m.guard.Busy(id) {
				m.setNotice("Row "+id+" is already being deleted.", false)
				return nil, true
			}
			m.modal = Open(ModalDelete, id)
		}
		return nil, true
	case keyEdit:
		if m.actions.Update == nil {
			return nil, true
		}
		if item, ok := m.selectedRow(); ok {
			id := m.desc.ID(item)
			m.form = NewFormModel("Edit "+m.desc.Label(item), id, m.desc.Form, formValues(m.desc.Form, item))
			m.modal = Open(ModalEdit, id)
		}
		return nil, true
	case keyCreate:
		if m.actions.Create == nil {
			return nil, true
		}
		m.form = NewFormModel("New "+strings.TrimSuffix(strings.ToLower(m.desc.Title), "s"), "", m.desc.Form, nil)
		m.modal = Open(ModalCreate, "")
		return nil, true
	case keyImport:
		if m.actions.Import == nil || len(m.desc.Import.Fields) == 0 {
			return nil, true
		}
		flow := importer.NewFlow(m.desc.Name, m.desc.Import, m.actions.Import, m.logger)
		m.imp = NewImportModel(m.ctx, flow, m.opener)
		m.modal = Open(ModalImport, "")
		return nil, true
	}
	return nil, false
}

// cycleStatus moves the status filter to the next enumerated value, then
// back to no constraint.
func (m *ListModel[T]) cycleStatus() (listing.Request, bool) {
	values := m.desc.StatusValues()
	if len(values) == 0 {
		return listing.Request{}, false
	}
	current := m.ctrl.DraftFilter().Get(listing.FilterStatus)
	next := ""
	if i := slices.Index(values, current); i < len(values)-1 {
		next = values[i+1]
	}
	return m.ctrl.SetFilterValue(listing.FilterStatus, next)
}

func stepPageSize(current, dir int) int {
	i, found := slices.BinarySearch(PageSizes, current)
	switch {
	case dir > 0 && found:
		i++
	case dir < 0:
		i--
	}
	next := PageSizes[max(0, min(i, len(PageSizes)-1))]
	if (dir < 0 && next > current) || (dir > 0 && next < current) {
		return current
	}
	return next
}

func (m *ListModel[T]) updateSearch(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case keyEnter:
			m.searching = false
			m.search.Blur()
			return m.fetch(m.ctrl.SetFilterValue(listing.FilterSearch, m.search.Value()))
		case keyEsc:
			m.searching = false
			m.search.Blur()
			return nil
		}
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return cmd
}

func (m *ListModel[T]) updateModal(msg tea.Msg) tea.Cmd {
	switch m.modal.Kind() {
	case ModalDetail:
		if key, ok := msg.(tea.KeyMsg); ok && (key.String() == keyEsc || key.String() == keyEnter || key.String() == keyQuit) {
			m.closeModal()
		}
		return nil
	case ModalDelete:
		key, ok := msg.(tea.KeyMsg)
		if !ok {
			return nil
		}
		switch key.String() {
		case keyYes:
			return m.delete(m.modal.Target())
		case keyNo, keyEsc:
			m.closeModal()
		}
		return nil
	case ModalCreate, ModalEdit:
		return m.form.Update(msg)
	case ModalImport:
		return m.imp.Update(msg)
	}
	return nil
}

func (m *ListModel[T]) closeModal() {
	m.modal = Closed()
	m.form = nil
	m.imp = nil
}

// delete starts the delete of id. The row stays marked while in flight and
// a second delete of the same row is refused; other rows may be deleted
// concurrently.
func (m *ListModel[T]) delete(id string) tea.Cmd {
	m.closeModal()
	if !m.guard.Begin(id) {
		m.setNotice("Row "+id+" is already being deleted.", false)
		return nil
	}
	ctx, del := m.ctx, m.actions.Delete
	return func() tea.Msg {
		return deleteDoneMsg{id: id, err: del(ctx, id)}
	}
}

func (m *ListModel[T]) handleDeleteDone(msg deleteDoneMsg) tea.Cmd {
	m.guard.End(msg.id)
	if msg.err != nil {
		m.logger.Error().Err(msg.err).Str("operation", "delete").Str("id", msg.id).Msg("delete failed")
		m.setNotice(api.UserMessage(msg.err), false)
		return nil
	}
	m.setNotice("Deleted "+msg.id+".", true)
	return m.fetch(m.ctrl.Refresh())
}

func (m *ListModel[T]) save(msg FormSubmitMsg) tea.Cmd {
	ctx, target := m.ctx, msg.Target
	if target == "" {
		create := m.actions.Create
		return func() tea.Msg {
			return saveDoneMsg{err: create(ctx, msg.Payload)}
		}
	}
	update := m.actions.Update
	return func() tea.Msg {
		return saveDoneMsg{target: target, err: update(ctx, target, msg.Payload)}
	}
}

func (m *ListModel[T]) handleSaveDone(msg saveDoneMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Error().Err(msg.err).Str("operation", "save").Str("id", msg.target).Msg("save failed")
		if m.form != nil {
			m.form.Failed(api.UserMessage(msg.err))
		}
		return nil
	}
	m.closeModal()
	if msg.target == "" {
		m.setNotice("Created.", true)
	} else {
		m.setNotice("Saved "+msg.target+".", true)
	}
	return m.fetch(m.ctrl.Refresh())
}

func (m *ListModel[T]) setNotice(s string, ok bool) {
	m.notice = s
	m.noticeOK = ok
}

// selectedRow returns the row under the cursor. Rows are only actionable
// while the list shows a loaded page.
func (m *ListModel[T]) selectedRow() (T, bool) {
	var zero T
	if m.ctrl.Status().Kind != listing.StatusLoaded {
		return zero, false
	}
	item := m.virtualList.GetSelectedItem()
	if item == nil {
		return zero, false
	}
	return *item, true
}

func (m *ListModel[T]) selectedID() (string, bool) {
	item, ok := m.selectedRow()
	if !ok {
		return "", false
	}
	return m.desc.ID(item), true
}

func (m *ListModel[T]) selectedItem(id string) (T, bool) {
	if st := m.ctrl.Status(); st.Kind == listing.StatusLoaded {
		for _, it := range st.Result.Items {
			if m.desc.ID(it) == id {
				return it, true
			}
		}
	}
	var zero T
	return zero, false
}

func (m *ListModel[T]) listHeight() int {
	return max(minHeight, m.height-chromeHeight)
}

// View renders the screen (Bubble Tea interface).
func (m *ListModel[T]) View() string {
	if m.quitting {
		return ""
	}
	sections := []string{m.renderTitle(), m.renderFilters(), m.renderBody(), m.renderPager()}
	if m.searching {
		sections = append(sections, "Search: "+m.search.View())
	}
	if m.notice != "" {
		style := ErrorStyle
		if m.noticeOK {
			style = InfoStyle
		}
		sections = append(sections, style.Render(m.notice))
	}
	sections = append(sections, MutedStyle.Render(m.helpText()))

	screen := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if m.modal.IsOpen() {
		return lipgloss.JoinVertical(lipgloss.Left, screen, "", m.renderModal())
	}
	return screen
}

func (m *ListModel[T]) renderTitle() string {
	title := TitleStyle.Render(m.desc.Title)
	if m.ctrl.Status().IsLoading() {
		title += "  " + RenderLoading(m.loading)
	}
	return title
}

func (m *ListModel[T]) renderFilters() string {
	active := m.ctrl.Filter()
	parts := []string{}
	for _, k := range active.Keys() {
		parts = append(parts, k+"="+active[k])
	}
	line := "Filters: none"
	if len(parts) > 0 {
		line = "Filters: " + strings.Join(parts, "  ")
	}
	page := m.ctrl.Page()
	line += fmt.Sprintf("   Sort: %s %s", page.SortField, page.SortDirection)
	if m.ctrl.Dirty() {
		line += "   " + WarningStyle.Render("Pending: "+m.ctrl.DraftFilter().String()+" [a] Apply")
	}
	return MutedStyle.Render(line)
}

func (m *ListModel[T]) renderBody() string {
	status := m.ctrl.Status()
	switch status.Kind {
	case listing.StatusFailed:
		return ErrorStyle.Render("Error: "+status.Message) + "\n" + MutedStyle.Render("[r] Retry")
	case listing.StatusIdle:
		return ""
	case listing.StatusLoading:
		if m.virtualList.ItemCount() == 0 {
			return RenderLoading(m.loading)
		}
	case listing.StatusLoaded:
		if len(status.Result.Items) == 0 {
			return MutedStyle.Render("No records found.")
		}
	}
	return HeaderStyle.Render(m.renderCells(m.desc.Headers())) + "\n" + m.virtualList.View()
}

func (m *ListModel[T]) renderPager() string {
	page := m.ctrl.Page()
	line := fmt.Sprintf("Page %d of %d", page.DisplayPage(), max(1, m.ctrl.TotalPages()))
	if st := m.ctrl.Status(); st.Kind == listing.StatusLoaded {
		line += fmt.Sprintf(" · %d records", st.Result.TotalElements)
	}
	line += fmt.Sprintf(" · %d per page", page.PageSize)
	prev, next := "[p] Prev", "[n] Next"
	if !m.ctrl.CanPrevious() {
		prev = MutedStyle.Render(prev)
	}
	if !m.ctrl.CanNext() {
		next = MutedStyle.Render(next)
	}
	return line + "   " + prev + " " + next
}

func (m *ListModel[T]) renderRow(item T, selected bool) string {
	line := m.renderCells(m.desc.Row(item))
	if m.guard.Busy(m.desc.ID(item)) {
		return BusyStyle.Render(line + "  deleting…")
	}
	if selected {
		return SelectedStyle.Render(line)
	}
	return line
}

func (m *ListModel[T]) renderCells(cells []string) string {
	var b strings.Builder
	for i, col := range m.desc.Columns {
		if i > 0 {
			b.WriteString(strings.Repeat(" ", columnGap))
		}
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		b.WriteString(fit(cell, col.Width))
	}
	return b.String()
}

// fit pads or truncates s to width display cells.
func fit(s string, width int) string {
	w := lipgloss.Width(s)
	if w <= width {
		return s + strings.Repeat(" ", width-w)
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

func (m *ListModel[T]) renderModal() string {
	switch m.modal.Kind() {
	case ModalDetail:
		return m.renderDetail(m.modal.Target())
	case ModalDelete:
		label := m.modal.Target()
		if item, ok := m.selectedItem(label); ok {
			label = m.desc.Label(item)
		}
		body := fmt.Sprintf("Delete %s %q?\n\n%s", strings.TrimSuffix(strings.ToLower(m.desc.Title), "s"), label,
			MutedStyle.Render("[y] Delete  [n] Cancel"))
		return ModalStyle.Render(body)
	case ModalCreate, ModalEdit:
		return m.form.View()
	case ModalImport:
		return m.imp.View()
	}
	return ""
}

func (m *ListModel[T]) renderDetail(id string) string {
	item, ok := m.selectedItem(id)
	if !ok {
		return ModalStyle.Render("Record " + id + " is no longer on this page.")
	}
	cells := m.desc.Row(item)
	lines := []string{TitleStyle.Render(m.desc.Label(item)), ""}
	for i, col := range m.desc.Columns {
		if i < len(cells) {
			lines = append(lines, fmt.Sprintf("%-14s %s", col.Title, cells[i]))
		}
	}
	lines = append(lines, "", MutedStyle.Render("[Esc] Close"))
	return ModalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *ListModel[T]) helpText() string {
	help := "[↑↓] Move  [p/n] Page  [+/-] Size  [s/S] Sort  [/] Search  [f] Status  [x] Clear  [r] Refresh"
	if m.ctrl.Gated() {
		help += "  [a] Apply"
	}
	help += "  [Enter] View"
	if m.actions.Create != nil {
		help += "  [c] New"
	}
	if m.actions.Update != nil {
		help += "  [e] Edit"
	}
	if m.actions.Delete != nil {
		help += "  [d] Delete"
	}
	if m.actions.Import != nil {
		help += "  [i] Import"
	}
	return help + "  [q] Quit"
}
