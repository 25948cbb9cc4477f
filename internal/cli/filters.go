package cli

import (
	"context"

	"github.com/stockdesk/stockdesk/internal/entity"
	"github.com/stockdesk/stockdesk/internal/listing"
	"github.com/stockdesk/stockdesk/internal/logging"
)

// buildFilter parses "key=value" expressions and an optional search term
// into criteria and validates every key against the entity's filters.
//
// All expressions are checked before anything is returned, so a single bad
// filter fails the whole command. Empty expressions are ignored and an empty
// value clears its key.
func buildFilter(ctx context.Context, meta entity.Meta, exprs []string, search string) (listing.FilterCriteria, error) {
	log := logging.FromContext(ctx)

	filter, err := listing.ParseFilters(exprs)
	if err != nil {
		log.Warn().Ctx(ctx).
			Str("component", "cli").
			Str("operation", "build_filter").
			Strs("filters", exprs).
			Err(err).
			Msg("invalid filter expression")
		return nil, err
	}
	if search != "" {
		filter = filter.With(listing.FilterSearch, search)
	}

	if err = meta.ValidateFilters(filter); err != nil {
		log.Warn().Ctx(ctx).
			Str("component", "cli").
			Str("operation", "build_filter").
			Str("entity", meta.Name).
			Err(err).
			Msg("filter rejected")
		return nil, err
	}

	log.Debug().Ctx(ctx).
		Str("component", "cli").
		Str("entity", meta.Name).
		Str("filter", filter.String()).
		Msg("filter built")
	return filter, nil
}
