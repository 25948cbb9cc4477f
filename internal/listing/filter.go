package listing

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Well-known filter keys shared by most screens.
const (
	FilterStatus    = "status"
	FilterWarehouse = "warehouseId"
	FilterSearch    = "search"
	FilterStartDate = "startDate"
	FilterEndDate   = "endDate"
)

// FilterCriteria maps a filter name to its value. A missing key means no
// constraint; empty values are dropped on write so the two never differ.
type FilterCriteria map[string]string

// Equal compares by content.
func (f FilterCriteria) Equal(other FilterCriteria) bool {
	return maps.Equal(f.normalized(), other.normalized())
}

// Clone returns an independent copy.
func (f FilterCriteria) Clone() FilterCriteria {
	out := make(FilterCriteria, len(f))
	for k, v := range f {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// With returns a copy with key set to value, or removed when value is "".
func (f FilterCriteria) With(key, value string) FilterCriteria {
	out := f.Clone()
	value = strings.TrimSpace(value)
	if value == "" {
		delete(out, key)
	} else {
		out[key] = value
	}
	return out
}

// Without returns a copy without key.
func (f FilterCriteria) Without(key string) FilterCriteria {
	out := f.Clone()
	delete(out, key)
	return out
}

// Get returns the value for key, or "".
func (f FilterCriteria) Get(key string) string {
	return f[key]
}

// Keys returns the keys in sorted order.
func (f FilterCriteria) Keys() []string {
	return slices.Sorted(maps.Keys(f.normalized()))
}

// Where returns every filter except the free-text search, which the list
// endpoint receives separately.
func (f FilterCriteria) Where() map[string]string {
	out := make(map[string]string, len(f))
	for k, v := range f.normalized() {
		if k != FilterSearch {
			out[k] = v
		}
	}
	return out
}

// String renders the criteria as sorted "k=v" pairs.
func (f FilterCriteria) String() string {
	keys := f.Keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+f[k])
	}
	return strings.Join(parts, ",")
}

func (f FilterCriteria) normalized() map[string]string {
	out := make(map[string]string, len(f))
	for k, v := range f {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// filterPartsMax is the number of parts in a "key=value" expression.
const filterPartsMax = 2

// ParseFilters parses "key=value" expressions into criteria. Later keys win.
func ParseFilters(exprs []string) (FilterCriteria, error) {
	out := FilterCriteria{}
	for _, expr := range exprs {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		parts := strings.SplitN(expr, "=", filterPartsMax)
		if len(parts) != filterPartsMax || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, expr)
		}
		out = out.With(strings.TrimSpace(parts[0]), parts[1])
	}
	return out, nil
}
