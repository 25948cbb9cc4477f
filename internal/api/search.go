package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/stockdesk/stockdesk/internal/listing"
)

// SearchQuery is the input of Search.
type SearchQuery struct {
	Filter listing.FilterCriteria
	Page   listing.PageRequest

	// SearchFields are the record fields the free-text search applies to.
	SearchFields []string
}

type generalSearch struct {
	Value  string   `json:"value"`
	Fields []string `json:"fields"`
}

type searchBody struct {
	Where         map[string]string `json:"where"`
	GeneralSearch *generalSearch    `json:"generalSearch,omitempty"`
}

// pageEnvelope is the paginated response of the list endpoint.
type pageEnvelope[T any] struct {
	Content          *[]T `json:"content"`
	TotalPages       int  `json:"totalPages"`
	TotalElements    int  `json:"totalElements"`
	Size             int  `json:"size"`
	Number           int  `json:"number"`
	NumberOfElements int  `json:"numberOfElements"`
	First            bool `json:"first"`
	Last             bool `json:"last"`
}

// Search fetches one page of entity records. A bare JSON array in place of
// the page envelope is accepted as a single complete page.
func Search[T any](ctx context.Context, c *Client, entity string, q SearchQuery) (listing.ListResult[T], error) {
	if err := q.Page.Validate(); err != nil {
		return listing.ListResult[T]{}, fmt.Errorf("search %s: %w", entity, err)
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(q.Page.PageIndex))
	query.Set("size", strconv.Itoa(q.Page.PageSize))
	query.Set("sort", string(q.Page.SortDirection))
	if q.Page.SortField != "" {
		query.Set("sortField", q.Page.SortField)
	}

	body := searchBody{Where: q.Filter.Where()}
	if term := q.Filter.Get(listing.FilterSearch); term != "" {
		fields := q.SearchFields
		if fields == nil {
			fields = []string{}
		}
		body.GeneralSearch = &generalSearch{Value: term, Fields: fields}
	}

	path := entityPath(entity, "search")
	raw, err := c.doJSON(ctx, http.MethodPost, path, query, body)
	if err != nil {
		return listing.ListResult[T]{}, err
	}
	return parsePage[T](path, raw)
}

func parsePage[T any](path string, raw []byte) (listing.ListResult[T], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := decode(path, trimmed, &items); err != nil {
			return listing.ListResult[T]{}, err
		}
		return listing.SinglePage(items), nil
	}

	var env pageEnvelope[T]
	if err := decode(path, trimmed, &env); err != nil {
		return listing.ListResult[T]{}, err
	}
	if env.Content == nil {
		return listing.ListResult[T]{}, &DecodeError{
			Path: path,
			Body: excerpt(raw),
			Err:  fmt.Errorf("%w: content", errMissingField),
		}
	}

	items := *env.Content
	return listing.ListResult[T]{
		Items:         items,
		TotalPages:    env.TotalPages,
		TotalElements: env.TotalElements,
		PageIndex:     env.Number,
		IsFirstPage:   env.First,
		IsLastPage:    env.Last,
	}, nil
}

// Fetcher adapts Search to a listing.Fetcher for one entity.
func Fetcher[T any](c *Client, entity string, searchFields []string) listing.Fetcher[T] {
	return func(ctx context.Context, filter listing.FilterCriteria, page listing.PageRequest) (listing.ListResult[T], error) {
		return Search[T](ctx, c, entity, SearchQuery{
			Filter:       filter,
			Page:         page,
			SearchFields: searchFields,
		})
	}
}
