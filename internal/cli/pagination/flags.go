package pagination

import (
	"errors"
	"fmt"

	"github.com/stockdesk/stockdesk/internal/entity"
	"github.com/stockdesk/stockdesk/internal/listing"
)

// Flag defaults.
const (
	DefaultPage = 1
	MinPage     = 1
)

// Common validation errors.
var (
	ErrInvalidPage     = errors.New("page must be >= 1")
	ErrInvalidPageSize = errors.New("page-size must be between 1 and 1000")
)

// PaginationParams holds the list command's paging flags.
//
//nolint:revive // PaginationParams is the canonical name for this exported type.
type PaginationParams struct {
	// Page is the 1-based page number.
	Page int

	// PageSize is the number of records per page. Zero uses the configured
	// default.
	PageSize int

	// Sort is "field" or "field:dir". Empty uses the screen's default sort.
	Sort string
}

// NewPaginationParams returns the first page with the given default size.
func NewPaginationParams(defaultPageSize int) *PaginationParams {
	return &PaginationParams{
		Page:     DefaultPage,
		PageSize: defaultPageSize,
	}
}

// Validate checks the bounds (value receiver).
func (p PaginationParams) Validate() error {
	if p.Page < MinPage {
		return fmt.Errorf("%w: got %d", ErrInvalidPage, p.Page)
	}
	if p.PageSize != 0 && (p.PageSize < listing.MinPageSize || p.PageSize > listing.MaxPageSize) {
		return fmt.Errorf("%w: got %d", ErrInvalidPageSize, p.PageSize)
	}
	return nil
}

// PageRequest validates the flags against meta's sortable fields and
// returns the wire request.
func (p PaginationParams) PageRequest(meta entity.Meta) (listing.PageRequest, error) {
	if err := p.Validate(); err != nil {
		return listing.PageRequest{}, err
	}

	req := listing.NewPageRequest(meta.DefaultSort)
	req.PageIndex = p.Page - 1
	if p.PageSize > 0 {
		req.PageSize = p.PageSize
	}

	if p.Sort != "" {
		field, dir, err := listing.ParseSort(p.Sort, meta.DefaultSort)
		if err != nil {
			return listing.PageRequest{}, err
		}
		if err = meta.ValidateSort(field); err != nil {
			return listing.PageRequest{}, err
		}
		req.SortField = field
		req.SortDirection = dir
	}
	return req, req.Validate()
}
