package entity

import (
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FieldKind controls how a form value is validated and encoded.
type FieldKind int

// Field kinds.
const (
	KindText FieldKind = iota
	KindInt
	KindDecimal
	KindDate
	KindEnum
	KindEmail
)

// FormField is one editable record field.
type FormField struct {
	Name     string
	Label    string
	Required bool
	Kind     FieldKind
	Options  []string
}

// Form errors.
var (
	ErrFieldRequired = errors.New("is required")
	ErrFieldInvalid  = errors.New("is invalid")
	ErrFieldUnknown  = errors.New("is not a field of this record")
)

// FieldError is a validation failure of one field.
type FieldError struct {
	Field string
	Label string
	Err   error
	Hint  string
}

func (e *FieldError) Error() string {
	msg := e.Label + " " + e.Err.Error()
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *FieldError) Unwrap() error { return e.Err }

// Parse validates and converts one value.
func (f FormField) Parse(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	fail := func(hint string) error {
		return &FieldError{Field: f.Name, Label: f.Label, Err: ErrFieldInvalid, Hint: hint}
	}

	switch f.Kind {
	case KindInt:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fail("expected a whole number")
		}
		return n, nil
	case KindDecimal:
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			return nil, fail("expected an amount such as 12.50")
		}
		return d, nil
	case KindDate:
		if _, err := time.Parse(DateLayout, raw); err != nil {
			return nil, fail("expected YYYY-MM-DD")
		}
		return raw, nil
	case KindEnum:
		v := strings.ToUpper(raw)
		if !slices.Contains(f.Options, v) {
			return nil, fail("one of " + strings.Join(f.Options, ", "))
		}
		return v, nil
	case KindEmail:
		if _, err := mail.ParseAddress(raw); err != nil {
			return nil, fail("expected an email address")
		}
		return raw, nil
	default:
		return raw, nil
	}
}

// BuildPayload validates values against fields and returns the JSON body
// for a create or update. With partial set, required fields may be absent
// (an update of some fields); present values are still validated.
func BuildPayload(fields []FormField, values map[string]string, partial bool) (map[string]any, error) {
	var errs []error
	out := make(map[string]any, len(values))

	for name := range values {
		if !slices.ContainsFunc(fields, func(f FormField) bool { return f.Name == name }) {
			errs = append(errs, &FieldError{Field: name, Label: name, Err: ErrFieldUnknown})
		}
	}

	for _, f := range fields {
		raw, ok := values[f.Name]
		if !ok || strings.TrimSpace(raw) == "" {
			if f.Required && !partial {
				errs = append(errs, &FieldError{Field: f.Name, Label: f.Label, Err: ErrFieldRequired})
			}
			continue
		}
		v, err := f.Parse(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[f.Name] = v
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// ParseAssignments parses "key=value" pairs.
func ParseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q: use field=value", p)
		}
		out[k] = v
	}
	return out, nil
}
