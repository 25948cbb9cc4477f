// Package tui implements the interactive stockdesk screens on Bubble Tea:
// the paginated list screen shared by every entity, its modals (detail,
// create/edit form, delete confirmation, import) and the dashboard.
package tui

import "github.com/charmbracelet/lipgloss"

// Layout defaults.
const (
	defaultWidth  = 120
	defaultHeight = 30
	minHeight     = 5
	chromeHeight  = 8
	borderPadding = 2
	columnGap     = 2

	filterInputCharLimit = 80
	filterInputWidth     = 40
)

// Key bindings.
const (
	keyQuit     = "q"
	keyCtrlC    = "ctrl+c"
	keyEnter    = "enter"
	keyEsc      = "esc"
	keySlash    = "/"
	keyTab      = "tab"
	keyShiftTab = "shift+tab"
	keyCtrlS    = "ctrl+s"
	keyRetry    = "r"
	keyNext     = "n"
	keyPrev     = "p"
	keyRight    = "right"
	keyLeft     = "left"
	keyPlus     = "+"
	keyMinus    = "-"
	keySort     = "s"
	keySortDir  = "S"
	keyFilter   = "f"
	keyApply    = "a"
	keyClear    = "x"
	keyDelete   = "d"
	keyEdit     = "e"
	keyCreate   = "c"
	keyImport   = "i"
	keyYes      = "y"
	keyNo       = "n"
	keyUp       = "up"
	keyDown     = "down"
)

// Shared styles.
//
//nolint:gochecknoglobals // lipgloss styles are immutable values
var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

	HeaderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(true)

	SelectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("230"))
	BusyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true)
	MutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	InfoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	ErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	WarningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, borderPadding)
)
