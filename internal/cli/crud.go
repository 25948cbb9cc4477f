package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stockdesk/stockdesk/internal/api"
	"github.com/stockdesk/stockdesk/internal/batch"
	"github.com/stockdesk/stockdesk/internal/entity"
	"github.com/stockdesk/stockdesk/internal/listing"
)

// ErrDeleteFailed is returned when at least one row of a delete failed.
var ErrDeleteFailed = errors.New("delete failed")

// NewCreateCmd creates the create command.
func NewCreateCmd() *cobra.Command {
	var assignments []string

	cmd := &cobra.Command{
		Use:   "create <entity>",
		Short: "Create a record",
		Long: `Create a record from field=value assignments. Every field is validated
locally before anything is sent; all problems are reported at once.`,
		Example: `  stockdesk create products --set sku=DR-100 --set name="Cordless drill" --set price=89.90
  stockdesk create transfers --set code=TR-7 --set originWarehouseId=W1 \
    --set destinationWarehouseId=W2 --set scheduledAt=2026-11-02`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: entityArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeSave(cmd, args[0], "", assignments)
		},
	}
	cmd.Flags().StringArrayVar(&assignments, "set", nil, "field value as field=value (repeatable)")
	_ = cmd.MarkFlagRequired("set")
	addOutputFlag(cmd)
	return cmd
}

// NewUpdateCmd creates the update command. Only the assigned fields are
// sent.
func NewUpdateCmd() *cobra.Command {
	var assignments []string

	cmd := &cobra.Command{
		Use:               "update <entity> <id>",
		Short:             "Update fields of a record",
		Example:           `  stockdesk update products 42 --set price=79.90 --set status=DISCONTINUED`,
		Args:              cobra.ExactArgs(2), //nolint:mnd // entity and id
		ValidArgsFunction: entityArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeSave(cmd, args[0], args[1], assignments)
		},
	}
	cmd.Flags().StringArrayVar(&assignments, "set", nil, "field value as field=value (repeatable)")
	_ = cmd.MarkFlagRequired("set")
	addOutputFlag(cmd)
	return cmd
}

// executeSave creates a record when id is empty and updates it otherwise.
func executeSave(cmd *cobra.Command, name, id string, assignments []string) error {
	ctx := cmd.Context()
	meta, err := entity.Lookup(name)
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

	values, err := entity.ParseAssignments(assignments)
	if err != nil {
		return err
	}
	payload, err := entity.BuildPayload(meta.Form, values, id != "")
	if err != nil {
		return fmt.Errorf("invalid %s:\n%w", name, err)
	}

	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	var saved map[string]any
	if id == "" {
		saved, err = api.Create[map[string]any](ctx, client, name, payload)
	} else {
		saved, err = api.Update[map[string]any](ctx, client, name, id, payload)
	}
	if err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}

	if savedID, ok := saved["id"]; ok {
		id = fmt.Sprint(savedID)
	}
	logger.Info().Ctx(ctx).Str("entity", name).Str("id", id).Msg("record saved")

	switch format {
	case "json":
		return renderJSON(cmd.OutOrStdout(), saved)
	case "yaml":
		return renderYAML(cmd.OutOrStdout(), saved)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved %s %s.\n", name, id)
	return err
}

type deleteParams struct {
	concurrency int
	rate        float64
	yes         bool
}

// deleteOutcome is the json and yaml shape of one deleted row.
type deleteOutcome struct {
	ID      string `json:"id"              yaml:"id"`
	Status  string `json:"status"          yaml:"status"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// NewDeleteCmd creates the delete command. Rows are deleted concurrently;
// a row listed twice is only deleted once.
func NewDeleteCmd() *cobra.Command {
	var params deleteParams

	cmd := &cobra.Command{
		Use:   "delete <entity> <id>...",
		Short: "Delete one or more records",
		Example: `  stockdesk delete users 12
  stockdesk delete products 4 5 6 --concurrency 2 --rate 5 --yes`,
		Args:              cobra.MinimumNArgs(2), //nolint:mnd // entity and at least one id
		ValidArgsFunction: entityArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeDelete(cmd, args[0], args[1:], params)
		},
	}
	cmd.Flags().IntVar(&params.concurrency, "concurrency", batch.DefaultConcurrency, "rows deleted at once (1-32)")
	cmd.Flags().Float64Var(&params.rate, "rate", 0, "maximum deletes started per second (0 for unlimited)")
	cmd.Flags().BoolVarP(&params.yes, "yes", "y", false, "do not ask for confirmation")
	addOutputFlag(cmd)
	return cmd
}

func executeDelete(cmd *cobra.Command, name string, ids []string, params deleteParams) error {
	ctx := cmd.Context()
	if _, err := entity.Lookup(name); err != nil {
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

	if !params.yes {
		if !isTerminal(os.Stdin) {
			return fmt.Errorf("%w to confirm; pass --yes to delete without asking", ErrNotInteractive)
		}
		if res := ConfirmDelete(cmd.ErrOrStderr(), cmd.InOrStdin(), name, ids); !res.Accepted {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
			return nil
		}
	}

	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	proc, err := batch.NewProcessor(func(id string) string { return id },
		batch.WithConcurrency(params.concurrency),
		batch.WithRate(params.rate),
		batch.WithGuard(listing.NewRowGuard()),
		batch.WithLogger(logger),
		batch.WithProgressCallback(func(s batch.ProgressSnapshot) {
			logger.Debug().Ctx(ctx).
				Int("done", s.DoneItems).
				Int("total", s.TotalItems).
				Float64("percent", s.PercentComplete).
				Msg("delete progress")
		}),
	)
	if err != nil {
		return err
	}

	results, err := proc.Process(ctx, ids, func(ctx context.Context, id string) error {
		return client.Delete(ctx, name, id)
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}

	outcomes := make([]deleteOutcome, 0, len(results))
	for _, r := range results {
		o := deleteOutcome{ID: r.Key, Status: "deleted"}
		switch {
		case r.Skipped:
			o.Status, o.Message = "skipped", "listed more than once"
		case r.Err != nil:
			o.Status, o.Message = "failed", api.UserMessage(r.Err)
		}
		outcomes = append(outcomes, o)
	}
	succeeded, failed, skipped := batch.Summarize(results)

	w := cmd.OutOrStdout()
	switch format {
	case "json":
		err = renderJSON(w, outcomes)
	case "yaml":
		err = renderYAML(w, outcomes)
	default:
		rows := make([][]string, 0, len(outcomes))
		for _, o := range outcomes {
			rows = append(rows, []string{o.ID, o.Status, o.Message})
		}
		if err = renderTable(w, []string{"ID", "STATUS", "MESSAGE"}, rows); err == nil {
			_, err = fmt.Fprintf(w, "\n%d deleted, %d failed, %d skipped\n", succeeded, failed, skipped)
		}
	}
	if err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d %s", ErrDeleteFailed, failed, len(ids), name)
	}
	return nil
}
