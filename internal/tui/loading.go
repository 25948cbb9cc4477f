package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// LoadingState is the spinner shown while a fetch is in flight. At most one
// tick loop runs at a time.
type LoadingState struct {
	spinner spinner.Model
	running bool
}

// NewLoadingState returns a dot spinner.
func NewLoadingState() *LoadingState {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = InfoStyle
	return &LoadingState{spinner: s}
}

// Start returns the first tick, or nil when the spinner is already running.
func (l *LoadingState) Start() tea.Cmd {
	if l.running {
		return nil
	}
	l.running = true
	return l.spinner.Tick
}

// Stop ends the tick loop; the tick in flight is dropped.
func (l *LoadingState) Stop() { l.running = false }

// Running reports whether a tick loop is active.
func (l *LoadingState) Running() bool { return l.running }

// Update advances the spinner on its tick messages and schedules the next
// tick. Ticks arriving after Stop are dropped.
func (l *LoadingState) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(spinner.TickMsg); !ok || !l.running {
		return nil
	}
	var cmd tea.Cmd
	l.spinner, cmd = l.spinner.Update(msg)
	return cmd
}

// RenderLoading renders the spinner with a caption.
func RenderLoading(l *LoadingState) string {
	if l == nil {
		return "Loading..."
	}
	return l.spinner.View() + " Loading..."
}
