package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/entity"
)

func submitMsg(t *testing.T, cmd tea.Cmd) FormSubmitMsg {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(FormSubmitMsg)
	require.True(t, ok, "expected FormSubmitMsg")
	return msg
}

func TestFormModel_CreateValidatesLocally(t *testing.T) {
	f := NewFormModel("New product", "", entity.ProductDescriptor().Form, nil)

	f.SetValue("price", "-3")
	cmd := f.Update(tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Nil(t, cmd, "invalid input never produces a submit")
	assert.False(t, f.Saving())
	assert.NotEmpty(t, f.FieldError("sku"))
	assert.NotEmpty(t, f.FieldError("name"))
	assert.Contains(t, f.FieldError("price"), "12.50")
	assert.Contains(t, f.View(), "expected an amount")
}

func TestFormModel_CreateSubmit(t *testing.T) {
	f := NewFormModel("New product", "", entity.ProductDescriptor().Form, nil)
	f.SetValue("sku", "SKU-1")
	f.SetValue("name", "Drill")
	f.SetValue("price", "19.99")
	f.SetValue("status", "active")

	msg := submitMsg(t, f.Update(tea.KeyMsg{Type: tea.KeyCtrlS}))

	assert.Empty(t, msg.Target)
	assert.Equal(t, "Drill", msg.Payload["name"])
	assert.Equal(t, "ACTIVE", msg.Payload["status"])
	assert.True(t, decimal.RequireFromString("19.99").Equal(msg.Payload["price"].(decimal.Decimal)))
	assert.NotContains(t, msg.Payload, "category")
	assert.True(t, f.Saving())

	assert.Nil(t, f.Update(keyRunes("x")), "input is frozen while saving")
}

func TestFormModel_EnterAdvancesThenSubmits(t *testing.T) {
	fields := []entity.FormField{
		{Name: "name", Label: "Name", Required: true},
		{Name: "email", Label: "Email", Kind: entity.KindEmail},
	}
	f := NewFormModel("New user", "", fields, map[string]string{"name": "Ana"})

	assert.Nil(t, f.Update(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.Equal(t, 1, f.focus)

	f.SetValue("email", "not-an-email")
	assert.Nil(t, f.Update(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.NotEmpty(t, f.FieldError("email"))

	f.SetValue("email", "ana@example.com")
	msg := submitMsg(t, f.Update(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.Equal(t, "ana@example.com", msg.Payload["email"])
}

func TestFormModel_FocusWraps(t *testing.T) {
	f := NewFormModel("x", "", entity.ProductDescriptor().Form, nil)

	f.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, len(f.fields)-1, f.focus)
	f.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, f.focus)
}

func TestFormModel_EditSendsChangedFields(t *testing.T) {
	p := product(1)
	p.CreatedAt = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	desc := entity.ProductDescriptor()
	f := NewFormModel("Edit", p.ID, desc.Form, formValues(desc.Form, p))

	assert.Nil(t, f.Update(tea.KeyMsg{Type: tea.KeyCtrlS}))
	assert.Equal(t, "Nothing changed.", f.Err())

	f.SetValue("price", "2.50")
	msg := submitMsg(t, f.Update(tea.KeyMsg{Type: tea.KeyCtrlS}))
	assert.Equal(t, "p1", msg.Target)
	require.Len(t, msg.Payload, 1)
	assert.Contains(t, msg.Payload, "price")
}

func TestFormModel_FailedReenables(t *testing.T) {
	f := NewFormModel("New product", "", entity.ProductDescriptor().Form, map[string]string{
		"sku": "A", "name": "B", "price": "1",
	})
	submitMsg(t, f.Update(tea.KeyMsg{Type: tea.KeyCtrlS}))

	f.Failed("SKU already exists")
	assert.False(t, f.Saving())
	assert.Equal(t, "SKU already exists", f.Err())
	assert.Contains(t, f.View(), "SKU already exists")
}

func TestFormModel_EscapeCancels(t *testing.T) {
	f := NewFormModel("x", "", entity.ProductDescriptor().Form, nil)
	cmd := f.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, FormCancelMsg{}, cmd())
}

func TestFormValues_TrimsDates(t *testing.T) {
	tr := entity.Transfer{ID: "t1", ScheduledAt: "2026-05-01T08:30:00Z"}
	desc := entity.TransferDescriptor()

	values := formValues(desc.Form, tr)
	assert.Equal(t, "2026-05-01", values["scheduledAt"])
	assert.Equal(t, "t1", values["id"])
}

func TestRecordValues(t *testing.T) {
	values := recordValues(product(7))
	assert.Equal(t, "SKU-7", values["sku"])
	assert.Equal(t, "7", values["price"])
	assert.NotContains(t, values, "createdAt")
}
