package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stockdesk/stockdesk/internal/entity"
)

// FormSubmitMsg carries a validated create or edit payload.
type FormSubmitMsg struct {
	Target  string
	Payload map[string]any
}

// FormCancelMsg is sent when the form is dismissed.
type FormCancelMsg struct{}

// FormModel edits one record. It validates locally with the screen's form
// fields before anything is sent, so invalid input never reaches the
// network.
type FormModel struct {
	title   string
	target  string
	fields  []entity.FormField
	inputs  []textinput.Model
	focus   int
	partial bool

	errs     map[string]string
	errMsg   string
	saving   bool
	original map[string]string
}

// NewFormModel returns a form for fields. target is the id being edited, or
// "" for a create. values pre-fills the inputs.
func NewFormModel(title, target string, fields []entity.FormField, values map[string]string) *FormModel {
	f := &FormModel{
		title:    title,
		target:   target,
		fields:   fields,
		partial:  target != "",
		errs:     map[string]string{},
		original: values,
	}
	for i, field := range fields {
		ti := textinput.New()
		ti.Placeholder = placeholder(field)
		ti.CharLimit = filterInputCharLimit
		ti.Width = filterInputWidth
		ti.SetValue(values[field.Name])
		if i == 0 {
			ti.Focus()
		}
		f.inputs = append(f.inputs, ti)
	}
	return f
}

func placeholder(f entity.FormField) string {
	switch f.Kind {
	case entity.KindDate:
		return entity.DateLayout
	case entity.KindEnum:
		return strings.Join(f.Options, "|")
	case entity.KindDecimal:
		return "0.00"
	case entity.KindInt:
		return "0"
	case entity.KindEmail:
		return "name@example.com"
	default:
		return f.Label
	}
}

// Update handles navigation, submit and cancel, and forwards typing to the
// focused input.
func (f *FormModel) Update(msg tea.Msg) tea.Cmd {
	if f.saving {
		return nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case keyEsc:
			return func() tea.Msg { return FormCancelMsg{} }
		case keyTab, keyDown:
			f.setFocus(f.focus + 1)
			return nil
		case keyShiftTab, keyUp:
			f.setFocus(f.focus - 1)
			return nil
		case keyCtrlS:
			return f.submit()
		case keyEnter:
			if f.focus == len(f.inputs)-1 {
				return f.submit()
			}
			f.setFocus(f.focus + 1)
			return nil
		}
	}
	if len(f.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *FormModel) setFocus(i int) {
	if len(f.inputs) == 0 {
		return
	}
	i = (i + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Blur()
	f.focus = i
	f.inputs[f.focus].Focus()
}

// Values returns the current input values. On an edit, unchanged values
// are left out so only edited fields are sent.
func (f *FormModel) Values() map[string]string {
	out := make(map[string]string, len(f.inputs))
	for i, field := range f.fields {
		v := strings.TrimSpace(f.inputs[i].Value())
		if f.partial && v == strings.TrimSpace(f.original[field.Name]) {
			continue
		}
		out[field.Name] = v
	}
	return out
}

func (f *FormModel) submit() tea.Cmd {
	f.errs = map[string]string{}
	f.errMsg = ""

	values := f.Values()
	if f.partial && len(values) == 0 {
		f.errMsg = "Nothing changed."
		return nil
	}
	payload, err := entity.BuildPayload(f.fields, values, f.partial)
	if err != nil {
		f.setErrors(err)
		return nil
	}
	f.saving = true
	target := f.target
	return func() tea.Msg { return FormSubmitMsg{Target: target, Payload: payload} }
}

func (f *FormModel) setErrors(err error) {
	var joined interface{ Unwrap() []error }
	errs := []error{err}
	if errors.As(err, &joined) {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		var fe *entity.FieldError
		if errors.As(e, &fe) {
			f.errs[fe.Field] = fe.Error()
			continue
		}
		f.errMsg = e.Error()
	}
}

// Failed records a server-side failure and re-enables the form.
func (f *FormModel) Failed(message string) {
	f.saving = false
	f.errMsg = message
}

// FieldError returns the validation message of a field.
func (f *FormModel) FieldError(name string) string { return f.errs[name] }

// Err returns the form-level message.
func (f *FormModel) Err() string { return f.errMsg }

// Saving reports whether a submit is in flight.
func (f *FormModel) Saving() bool { return f.saving }

// SetValue sets an input by field name.
func (f *FormModel) SetValue(name, value string) {
	for i, field := range f.fields {
		if field.Name == name {
			f.inputs[i].SetValue(value)
		}
	}
}

// View renders the form.
func (f *FormModel) View() string {
	lines := []string{TitleStyle.Render(f.title), ""}
	for i, field := range f.fields {
		label := field.Label
		if field.Required && !f.partial {
			label += " *"
		}
		lines = append(lines, fmt.Sprintf("%-14s %s", label, f.inputs[i].View()))
		if msg := f.errs[field.Name]; msg != "" {
			lines = append(lines, ErrorStyle.Render("  "+msg))
		}
	}
	if f.errMsg != "" {
		lines = append(lines, "", ErrorStyle.Render(f.errMsg))
	}
	if f.saving {
		lines = append(lines, "", MutedStyle.Render("Saving..."))
	}
	lines = append(lines, "", MutedStyle.Render("[Tab] Next  [Enter] Next/Save  [Ctrl+S] Save  [Esc] Cancel"))
	return ModalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
