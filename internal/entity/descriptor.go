package entity

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/stockdesk/stockdesk/internal/importer"
	"github.com/stockdesk/stockdesk/internal/listing"
)

// Entity names, which are also their API path segments.
const (
	Users     = "users"
	Vehicles  = "vehicles"
	Transfers = "transfers"
	Inventory = "inventory"
	Products  = "products"
)

// DateLayout is the format of date filters and date form fields.
const DateLayout = "2006-01-02"

// Lookup errors.
var (
	ErrUnknownEntity    = errors.New("unknown entity")
	ErrUnknownFilterKey = errors.New("unknown filter")
	ErrInvalidFilterVal = errors.New("invalid filter value")
)

// Column is a table column.
type Column struct {
	Title string
	Width int
}

// FilterKey is a filter a screen supports. Values lists the allowed values
// of an enumerated filter; nil means free text.
type FilterKey struct {
	Name   string
	Label  string
	Values []string
	Date   bool
}

// Meta is the type-independent part of a screen description.
type Meta struct {
	Name         string
	Title        string
	DefaultSort  string
	SortFields   []string
	SearchFields []string
	Filters      []FilterKey
	Columns      []Column
	Form         []FormField
	Import       importer.Spec

	// ApplyGate holds filter edits until the user applies them.
	ApplyGate bool
}

// Descriptor binds Meta to a record type.
type Descriptor[T any] struct {
	Meta

	ID    func(T) string
	Label func(T) string
	Row   func(T) []string
}

// Rows renders records in column order.
func (d Descriptor[T]) Rows(items []T) [][]string {
	out := make([][]string, 0, len(items))
	for _, it := range items {
		out = append(out, d.Row(it))
	}
	return out
}

// Filter returns the named filter key.
func (m Meta) Filter(name string) (FilterKey, bool) {
	for _, f := range m.Filters {
		if f.Name == name {
			return f, true
		}
	}
	return FilterKey{}, false
}

// ValidateFilter checks key and value against the screen's filters. An
// empty value always passes; it clears the filter.
func (m Meta) ValidateFilter(key, value string) error {
	f, ok := m.Filter(key)
	if !ok {
		names := make([]string, 0, len(m.Filters))
		for _, k := range m.Filters {
			names = append(names, k.Name)
		}
		return fmt.Errorf("%w %q for %s (available: %v)", ErrUnknownFilterKey, key, m.Name, names)
	}
	if value == "" {
		return nil
	}
	if len(f.Values) > 0 && !slices.Contains(f.Values, value) {
		return fmt.Errorf("%w: %s must be one of %v", ErrInvalidFilterVal, key, f.Values)
	}
	if f.Date {
		if _, err := time.Parse(DateLayout, value); err != nil {
			return fmt.Errorf("%w: %s must be a date (YYYY-MM-DD)", ErrInvalidFilterVal, key)
		}
	}
	return nil
}

// ValidateFilters validates every key of c.
func (m Meta) ValidateFilters(c listing.FilterCriteria) error {
	var errs []error
	for _, k := range c.Keys() {
		if err := m.ValidateFilter(k, c[k]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ValidateSort checks that field is sortable.
func (m Meta) ValidateSort(field string) error {
	if !slices.Contains(m.SortFields, field) {
		return fmt.Errorf("%w: %q is not sortable for %s (available: %v)", listing.ErrInvalidSortFormat, field, m.Name, m.SortFields)
	}
	return nil
}

// NextSortField cycles through the sortable fields.
func (m Meta) NextSortField(current string) string {
	if len(m.SortFields) == 0 {
		return current
	}
	i := slices.Index(m.SortFields, current)
	return m.SortFields[(i+1)%len(m.SortFields)]
}

// StatusValues returns the enumerated values of the status filter.
func (m Meta) StatusValues() []string {
	f, _ := m.Filter(listing.FilterStatus)
	return f.Values
}

// Headers returns the column titles.
func (m Meta) Headers() []string {
	out := make([]string, 0, len(m.Columns))
	for _, c := range m.Columns {
		out = append(out, c.Title)
	}
	return out
}

var registry = map[string]Meta{
	Users:     UserDescriptor().Meta,
	Vehicles:  VehicleDescriptor().Meta,
	Transfers: TransferDescriptor().Meta,
	Inventory: InventoryDescriptor().Meta,
	Products:  ProductDescriptor().Meta,
}

// Names returns the entity names in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the Meta of name.
func Lookup(name string) (Meta, error) {
	m, ok := registry[name]
	if !ok {
		return Meta{}, fmt.Errorf("%w %q (available: %v)", ErrUnknownEntity, name, Names())
	}
	return m, nil
}

func itoa(n int) string { return strconv.Itoa(n) }

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
