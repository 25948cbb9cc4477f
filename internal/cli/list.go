package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stockdesk/stockdesk/internal/cli/pagination"
	"github.com/stockdesk/stockdesk/internal/entity"
)

type listParams struct {
	filters []string
	search  string
	paging  *pagination.PaginationParams
}

// NewListCmd creates the list command, which prints one page of an entity.
func NewListCmd() *cobra.Command {
	params := listParams{paging: pagination.NewPaginationParams(0)}

	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "List one page of records",
		Long: fmt.Sprintf(`List one page of records of an entity (%s).

Filters are key=value pairs; the accepted keys depend on the entity.
Pages are numbered from 1. Sorting takes field[:asc|desc].`, strings.Join(entity.Names(), ", ")),
		Example: `  # Second page of active products, cheapest first
  stockdesk list products --filter status=ACTIVE --sort price:asc --page 2

  # Search users and print JSON
  stockdesk list users --search ana --output json

  # Transfers scheduled in March
  stockdesk list transfers --filter startDate=2026-03-01 --filter endDate=2026-03-31`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: entityArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeList(cmd, args[0], params)
		},
	}

	cmd.Flags().StringArrayVar(&params.filters, "filter", nil, "filter as key=value (repeatable)")
	cmd.Flags().StringVar(&params.search, "search", "", "free-text search")
	cmd.Flags().IntVar(&params.paging.Page, "page", pagination.DefaultPage, "page number, starting at 1")
	cmd.Flags().IntVar(&params.paging.PageSize, "page-size", 0, "records per page (defaults from configuration)")
	cmd.Flags().StringVar(&params.paging.Sort, "sort", "", "sort as field[:asc|desc]")
	addOutputFlag(cmd)

	return cmd
}

func executeList(cmd *cobra.Command, name string, params listParams) error {
	ctx := cmd.Context()
	scr, err := screenFor(name)
	if err != nil {
		return err
	}
	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	format, err := outputFormat(cmd, cfg)
	if err != nil {
		return err
	}

	paging := *params.paging
	if paging.PageSize == 0 {
		paging.PageSize = cfg.Output.PageSize
	}
	if err = paging.Validate(); err != nil {
		return err
	}
	page, err := paging.PageRequest(scr.Meta())
	if err != nil {
		return err
	}
	filter, err := buildFilter(ctx, scr.Meta(), params.filters, params.search)
	if err != nil {
		return err
	}

	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	result, err := scr.list(ctx, client, cfg, filter, page, logger)
	if err != nil {
		return fmt.Errorf("listing %s: %w", name, err)
	}

	logger.Debug().Ctx(ctx).
		Str("entity", name).
		Str("filter", filter.String()).
		Int("page", result.Pagination.CurrentPage).
		Int("total_items", result.Pagination.TotalItems).
		Msg("list complete")

	return renderList(cmd.OutOrStdout(), format, result)
}

// NewGetCmd creates the get command, which prints one record.
func NewGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "get <entity> <id>",
		Short:             "Show one record",
		Args:              cobra.ExactArgs(2), //nolint:mnd // entity and id
		ValidArgsFunction: entityArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scr, err := screenFor(args[0])
			if err != nil {
				return err
			}
			cfg, err := currentConfig()
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd, cfg)
			if err != nil {
				return err
			}
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			headers, row, record, err := scr.get(cmd.Context(), client, args[1])
			if err != nil {
				return fmt.Errorf("getting %s %s: %w", args[0], args[1], err)
			}
			return renderRecord(cmd.OutOrStdout(), format, headers, row, record)
		},
	}
	addOutputFlag(cmd)
	return cmd
}
