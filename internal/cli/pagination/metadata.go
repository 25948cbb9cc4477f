package pagination

import (
	"github.com/stockdesk/stockdesk/internal/listing"
)

// PaginationMeta describes a returned page in JSON and YAML output.
//
//nolint:revive // PaginationMeta is the canonical name for this exported type.
type PaginationMeta struct {
	CurrentPage int    `json:"current_page" yaml:"current_page"`
	PageSize    int    `json:"page_size"    yaml:"page_size"`
	TotalPages  int    `json:"total_pages"  yaml:"total_pages"`
	TotalItems  int    `json:"total_items"  yaml:"total_items"`
	HasPrevious bool   `json:"has_previous" yaml:"has_previous"`
	HasNext     bool   `json:"has_next"     yaml:"has_next"`
	SortField   string `json:"sort_field"   yaml:"sort_field"`
	SortOrder   string `json:"sort_order"   yaml:"sort_order"`
}

// NewPaginationMeta builds the metadata of result fetched with req. The
// page count is never reported below 1.
func NewPaginationMeta[T any](req listing.PageRequest, result listing.ListResult[T]) PaginationMeta {
	totalPages := result.DisplayTotalPages()
	current := result.PageIndex + 1
	return PaginationMeta{
		CurrentPage: current,
		PageSize:    req.PageSize,
		TotalPages:  totalPages,
		TotalItems:  result.TotalElements,
		HasPrevious: current > 1,
		HasNext:     current < totalPages,
		SortField:   req.SortField,
		SortOrder:   string(req.SortDirection),
	}
}
