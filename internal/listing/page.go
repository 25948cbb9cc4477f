package listing

import (
	"errors"
	"fmt"
	"strings"
)

// SortDirection is ASC or DESC, as the list endpoint expects it.
type SortDirection string

// Sort directions.
const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// Pagination defaults and limits.
const (
	DefaultPageSize = 10
	MinPageSize     = 1
	MaxPageSize     = 1000
	DefaultSortDir  = SortDesc
)

// Common validation errors.
var (
	ErrInvalidPageIndex  = errors.New("page index must be non-negative")
	ErrInvalidPageSize   = errors.New("page size must be between 1 and 1000")
	ErrInvalidSortOrder  = errors.New("sort direction must be 'asc' or 'desc'")
	ErrInvalidSortFormat = errors.New("invalid sort format: use 'field' or 'field:dir' (e.g., 'createdAt:desc')")
	ErrEmptySortField    = errors.New("sort field cannot be empty")
	ErrInvalidFilter     = errors.New("invalid filter expression: use key=value")
)

// ParseSortDirection accepts asc/desc in any case.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(SortAsc):
		return SortAsc, nil
	case string(SortDesc):
		return SortDesc, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidSortOrder, s)
	}
}

// Toggle returns the opposite direction.
func (d SortDirection) Toggle() SortDirection {
	if d == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// PageRequest is the pagination state of a screen. PageIndex is zero-based.
type PageRequest struct {
	PageIndex     int
	PageSize      int
	SortField     string
	SortDirection SortDirection
}

// NewPageRequest returns page 0 of the default size sorted by field.
func NewPageRequest(sortField string) PageRequest {
	return PageRequest{
		PageIndex:     0,
		PageSize:      DefaultPageSize,
		SortField:     sortField,
		SortDirection: DefaultSortDir,
	}
}

// Validate checks the bounds.
func (p PageRequest) Validate() error {
	if p.PageIndex < 0 {
		return ErrInvalidPageIndex
	}
	if p.PageSize < MinPageSize || p.PageSize > MaxPageSize {
		return fmt.Errorf("%w: got %d", ErrInvalidPageSize, p.PageSize)
	}
	if p.SortDirection != SortAsc && p.SortDirection != SortDesc {
		return fmt.Errorf("%w: got %q", ErrInvalidSortOrder, p.SortDirection)
	}
	return nil
}

// DisplayPage is the one-based page number shown to users.
func (p PageRequest) DisplayPage() int {
	return p.PageIndex + 1
}

// sortPartsMax is the maximum number of parts in a sort string (field:dir).
const sortPartsMax = 2

// ParseSort parses "field" or "field:dir". An empty string yields
// defaultField with the default direction.
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func ParseSort(sortStr, defaultField string) (field string, dir SortDirection, err error) {
	if strings.TrimSpace(sortStr) == "" {
		return defaultField, DefaultSortDir, nil
	}

	parts := strings.Split(sortStr, ":")
	switch len(parts) {
	case 1:
		field = strings.TrimSpace(parts[0])
		dir = DefaultSortDir
	case sortPartsMax:
		field = strings.TrimSpace(parts[0])
		dir, err = ParseSortDirection(parts[1])
		if err != nil {
			return "", "", err
		}
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSortFormat, sortStr)
	}

	if field == "" {
		return "", "", ErrEmptySortField
	}
	return field, dir, nil
}
