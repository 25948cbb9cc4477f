package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stockdesk/stockdesk/internal/importer"
)

// ImportDoneMsg closes the import modal. Imported is true when the server
// processed the file, which triggers a list refresh.
type ImportDoneMsg struct {
	Imported bool
}

type importUploadedMsg struct{ err error }

type importProcessedMsg struct{ err error }

// FileOpener opens the file to upload.
type FileOpener func(path string) (io.ReadCloser, error)

func openFile(path string) (io.ReadCloser, error) {
	return os.Open(path) //nolint:gosec // the user picks the file
}

// ImportModel drives an importer.Flow: pick a file, upload it, map each
// logical field to a detected header and process.
type ImportModel struct {
	ctx  context.Context
	flow *importer.Flow
	open FileOpener

	path   textinput.Model
	cursor int
	errMsg string
}

// NewImportModel returns the import modal for flow.
func NewImportModel(ctx context.Context, flow *importer.Flow, open FileOpener) *ImportModel {
	if open == nil {
		open = openFile
	}
	ti := textinput.New()
	ti.Placeholder = "path/to/file.csv (" + strings.Join(flow.Spec().Accepted(), ", ") + ")"
	ti.CharLimit = 256
	ti.Width = filterInputWidth
	ti.Focus()
	return &ImportModel{ctx: ctx, flow: flow, open: open, path: ti}
}

// Flow returns the underlying flow.
func (m *ImportModel) Flow() *importer.Flow { return m.flow }

// Update handles keys for the current step and the async step results.
func (m *ImportModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case importUploadedMsg:
		m.errMsg = ""
		if msg.err == nil {
			m.cursor = 0
			m.flow.AutoMap()
		}
		return nil
	case importProcessedMsg:
		return nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return nil
}

//nolint:exhaustive // each step handles its own subset of states
func (m *ImportModel) handleKey(key tea.KeyMsg) tea.Cmd {
	state := m.flow.State()

	if key.String() == keyEsc {
		switch state {
		case importer.StateProcessing:
			return nil
		case importer.StateSucceeded:
			return done(true)
		default:
			_ = m.flow.Cancel()
			return done(false)
		}
	}

	switch state {
	case importer.StateIdle, importer.StateFileSelected, importer.StateFailed:
		if key.String() == keyEnter {
			return m.upload()
		}
		var cmd tea.Cmd
		m.path, cmd = m.path.Update(key)
		return cmd
	case importer.StateHeadersReceived, importer.StateMappingChosen:
		return m.handleMappingKey(key)
	case importer.StateSucceeded:
		if key.String() == keyEnter {
			return done(true)
		}
	}
	return nil
}

func (m *ImportModel) upload() tea.Cmd {
	path := strings.TrimSpace(m.path.Value())
	if err := m.flow.SelectFile(path); err != nil {
		m.errMsg = err.Error()
		return nil
	}
	rc, err := m.open(path)
	if err != nil {
		m.errMsg = fmt.Sprintf("cannot open %s: %v", path, err)
		_ = m.flow.Cancel()
		return nil
	}
	m.errMsg = ""
	flow, ctx := m.flow, m.ctx
	return func() tea.Msg {
		defer rc.Close()
		return importUploadedMsg{err: flow.Upload(ctx, rc)}
	}
}

func (m *ImportModel) handleMappingKey(key tea.KeyMsg) tea.Cmd {
	fields := m.flow.Spec().Fields
	switch key.String() {
	case keyUp, "k":
		m.cursor = max(0, m.cursor-1)
	case keyDown, "j":
		m.cursor = min(len(fields)-1, m.cursor+1)
	case keyRight, keyTab:
		m.cycleHeader(1)
	case keyLeft, keyShiftTab:
		m.cycleHeader(-1)
	case "m":
		m.flow.AutoMap()
	case keyEnter:
		return m.process()
	}
	return nil
}

// cycleHeader moves the highlighted field's assignment through the headers
// and back to unassigned.
func (m *ImportModel) cycleHeader(step int) {
	fields := m.flow.Spec().Fields
	if m.cursor >= len(fields) {
		return
	}
	field := fields[m.cursor].Name
	headers := m.flow.Headers()
	current := slices.Index(headers, m.flow.Mapping()[field])

	// -1 is the unassigned slot.
	next := (current+1+step+len(headers)+1)%(len(headers)+1) - 1
	if next < 0 {
		_ = m.flow.Unassign(field)
		return
	}
	if err := m.flow.Assign(field, headers[next]); err != nil {
		m.errMsg = err.Error()
	}
}

func (m *ImportModel) process() tea.Cmd {
	if !m.flow.CanProcess() {
		m.errMsg = "Map every required field first: " + strings.Join(m.flow.Missing(), ", ")
		return nil
	}
	m.errMsg = ""
	flow, ctx := m.flow, m.ctx
	return func() tea.Msg {
		_, err := flow.Process(ctx)
		if errors.Is(err, importer.ErrInvalidTransition) {
			return nil
		}
		return importProcessedMsg{err: err}
	}
}

func done(imported bool) tea.Cmd {
	return func() tea.Msg { return ImportDoneMsg{Imported: imported} }
}

// View renders the current step.
func (m *ImportModel) View() string {
	lines := []string{TitleStyle.Render("Import"), ""}

	switch state := m.flow.State(); state {
	case importer.StateIdle, importer.StateFileSelected:
		lines = append(lines, "File: "+m.path.View())
		lines = append(lines, "", MutedStyle.Render("[Enter] Upload  [Esc] Cancel"))
	case importer.StateUploading:
		lines = append(lines, "Uploading "+m.flow.Filename()+"...")
	case importer.StateHeadersReceived, importer.StateMappingChosen:
		lines = append(lines, m.mappingView()...)
		hint := "[↑↓] Field  [←→] Header  [m] Auto-map  [Enter] Process  [Esc] Cancel"
		lines = append(lines, "", MutedStyle.Render(hint))
	case importer.StateProcessing:
		lines = append(lines, "Processing "+m.flow.Filename()+"...")
	case importer.StateSucceeded:
		lines = append(lines, InfoStyle.Render("Import complete."))
		lines = append(lines, "", MutedStyle.Render("[Enter] Close"))
	case importer.StateFailed:
		lines = append(lines, ErrorStyle.Render(m.flow.Message()))
		lines = append(lines, "", "File: "+m.path.View())
		lines = append(lines, "", MutedStyle.Render("[Enter] Retry upload  [Esc] Close"))
	}

	if m.errMsg != "" {
		lines = append(lines, "", ErrorStyle.Render(m.errMsg))
	}
	return ModalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *ImportModel) mappingView() []string {
	mapping := m.flow.Mapping()
	lines := []string{
		"File:    " + m.flow.Filename(),
		"Headers: " + strings.Join(m.flow.Headers(), ", "),
		"",
	}
	for i, f := range m.flow.Spec().Fields {
		label := f.Label
		if f.Required {
			label += " *"
		}
		header := mapping[f.Name]
		if header == "" {
			header = MutedStyle.Render("(unassigned)")
		}
		line := fmt.Sprintf("%-16s → %s", label, header)
		if i == m.cursor {
			line = SelectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if missing := m.flow.Missing(); len(missing) > 0 {
		lines = append(lines, "", WarningStyle.Render("Missing: "+strings.Join(missing, ", ")))
	}
	return lines
}
