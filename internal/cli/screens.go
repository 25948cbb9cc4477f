package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stockdesk/stockdesk/internal/api"
	"github.com/stockdesk/stockdesk/internal/cli/pagination"
	"github.com/stockdesk/stockdesk/internal/config"
	"github.com/stockdesk/stockdesk/internal/entity"
	"github.com/stockdesk/stockdesk/internal/listing"
	"github.com/stockdesk/stockdesk/internal/tui"
)

// listPage is one fetched page ready for rendering.
type listPage struct {
	Headers    []string
	Rows       [][]string
	Records    any
	Pagination pagination.PaginationMeta
}

// screen erases the record type of an entity so commands can dispatch on
// the entity name.
type screen interface {
	Meta() entity.Meta
	list(
		ctx context.Context,
		c *api.Client,
		cfg *config.Config,
		filter listing.FilterCriteria,
		page listing.PageRequest,
		log zerolog.Logger,
	) (listPage, error)
	get(ctx context.Context, c *api.Client, id string) (headers, row []string, record any, err error)
	browse(ctx context.Context, c *api.Client, cfg *config.Config, filter listing.FilterCriteria, gated bool, log zerolog.Logger) tea.Model
}

type typedScreen[T any] struct {
	desc entity.Descriptor[T]
}

func (s typedScreen[T]) Meta() entity.Meta { return s.desc.Meta }

// list fetches one page through a list controller, so the command gets the
// same retry policy as the interactive screens.
func (s typedScreen[T]) list(
	ctx context.Context,
	c *api.Client,
	cfg *config.Config,
	filter listing.FilterCriteria,
	page listing.PageRequest,
	log zerolog.Logger,
) (listPage, error) {
	ctrl := listing.NewController(api.Fetcher[T](c, s.desc.Name, s.desc.SearchFields), filter, page, listing.Options{
		Name:    s.desc.Name,
		Policy:  cfg.RetryPolicy(),
		Message: api.UserMessage,
		Logger:  &log,
	})
	defer ctrl.Close()

	req, ok := ctrl.Refresh()
	if !ok {
		return listPage{}, listing.ErrClosed
	}
	status, _ := ctrl.Execute(ctx, req)
	switch status.Kind {
	case listing.StatusLoaded:
	case listing.StatusFailed:
		return listPage{}, status.Err
	default:
		return listPage{}, listing.ErrClosed
	}

	res := status.Result
	return listPage{
		Headers:    s.desc.Headers(),
		Rows:       s.desc.Rows(res.Items),
		Records:    res.Items,
		Pagination: pagination.NewPaginationMeta(req.Page, res),
	}, nil
}

func (s typedScreen[T]) get(ctx context.Context, c *api.Client, id string) ([]string, []string, any, error) {
	rec, err := api.Get[T](ctx, c, s.desc.Name, id)
	if err != nil {
		return nil, nil, nil, err
	}
	return s.desc.Headers(), s.desc.Row(rec), rec, nil
}

func (s typedScreen[T]) browse(
	ctx context.Context,
	c *api.Client,
	cfg *config.Config,
	filter listing.FilterCriteria,
	gated bool,
	log zerolog.Logger,
) tea.Model {
	page := listing.NewPageRequest(s.desc.DefaultSort)
	page.PageSize = cfg.Output.PageSize

	ctrl := listing.NewController(api.Fetcher[T](c, s.desc.Name, s.desc.SearchFields), filter, page, listing.Options{
		Name:      s.desc.Name,
		Policy:    cfg.RetryPolicy(),
		ApplyGate: gated || s.desc.ApplyGate,
		Message:   api.UserMessage,
		Logger:    &log,
	})
	return tui.NewListModel(ctx, s.desc, ctrl, tui.APIActions(c, s.desc.Name), log)
}

//nolint:gochecknoglobals // read-only dispatch table
var screens = map[string]screen{
	entity.Users:     typedScreen[entity.User]{desc: entity.UserDescriptor()},
	entity.Vehicles:  typedScreen[entity.Vehicle]{desc: entity.VehicleDescriptor()},
	entity.Transfers: typedScreen[entity.Transfer]{desc: entity.TransferDescriptor()},
	entity.Inventory: typedScreen[entity.InventoryItem]{desc: entity.InventoryDescriptor()},
	entity.Products:  typedScreen[entity.Product]{desc: entity.ProductDescriptor()},
}

// screenFor returns the screen of name.
func screenFor(name string) (screen, error) {
	if _, err := entity.Lookup(name); err != nil {
		return nil, err
	}
	s, ok := screens[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", entity.ErrUnknownEntity, name)
	}
	return s, nil
}

// entityArgs completes the first positional argument with entity names.
func entityArgs(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return entity.Names(), cobra.ShellCompDirectiveNoFileComp
}
