package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stockdesk/stockdesk/internal/entity"
	"github.com/stockdesk/stockdesk/internal/importer"
)

// startImport selects and uploads path, leaving flow in HeadersReceived or
// MappingChosen.
func startImport(cmd *cobra.Command, name, path string) (*importer.Flow, error) {
	meta, err := entity.Lookup(name)
	if err != nil {
		return nil, err
	}
	client, err := newClient(cmd)
	if err != nil {
		return nil, err
	}

	flow := importer.NewFlow(name, meta.Import, client, logger)
	if err = flow.SelectFile(filepath.Base(path)); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	if err = flow.Upload(cmd.Context(), f); err != nil {
		return nil, fmt.Errorf("uploading %s: %s", filepath.Base(path), flow.Message())
	}
	return flow, nil
}

// NewImportCmd creates the import command. Columns are mapped by name
// automatically; --map overrides or completes the automatic mapping.
func NewImportCmd() *cobra.Command {
	var (
		maps   []string
		noAuto bool
	)

	cmd := &cobra.Command{
		Use:   "import <entity> <file>",
		Short: "Import records from a CSV or Excel file",
		Long: `Upload a CSV or Excel file, map its columns to record fields and import it.

The server detects the column headers. Headers matching a field name or
label are mapped automatically unless --no-auto-map is set; --map field=header
assigns the rest. The import only runs once every required field is mapped.`,
		Example: `  stockdesk import products catalog.csv
  stockdesk import vehicles fleet.xlsx --map plate="License plate" --map capacityKg=Capacity`,
		Args:              cobra.ExactArgs(2), //nolint:mnd // entity and file
		ValidArgsFunction: entityArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assignments, err := entity.ParseAssignments(maps)
			if err != nil {
				return err
			}
			flow, err := startImport(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			if !noAuto {
				flow.AutoMap()
			}
			for _, field := range sortedKeys(assignments) {
				if err = flow.Assign(field, assignments[field]); err != nil {
					return fmt.Errorf("%w (detected headers: %s)", err, strings.Join(flow.Headers(), ", "))
				}
			}
			if !flow.CanProcess() {
				return fmt.Errorf("%w: %s (detected headers: %s)", importer.ErrMappingIncomplete,
					strings.Join(flow.Missing(), ", "), strings.Join(flow.Headers(), ", "))
			}

			logger.Debug().Ctx(cmd.Context()).Interface("mapping", flow.Mapping()).Msg("processing import")
			result, err := flow.Process(cmd.Context())
			if err != nil {
				return fmt.Errorf("import failed: %s", flow.Message())
			}
			return renderImportResult(cmd, args[0], result)
		},
	}
	cmd.Flags().StringArrayVar(&maps, "map", nil, "column mapping as field=header (repeatable)")
	cmd.Flags().BoolVar(&noAuto, "no-auto-map", false, "only use the --map assignments")
	return cmd
}

func renderImportResult(cmd *cobra.Command, name string, result json.RawMessage) error {
	w := cmd.OutOrStdout()
	var summary map[string]any
	if len(result) == 0 || json.Unmarshal(result, &summary) != nil || len(summary) == 0 {
		_, err := fmt.Fprintf(w, "Import of %s complete.\n", name)
		return err
	}
	_, _ = fmt.Fprintf(w, "Import of %s complete.\n", name)
	rows := make([][]string, 0, len(summary))
	for _, k := range sortedKeys(summary) {
		rows = append(rows, []string{k, fmt.Sprint(summary[k])})
	}
	return renderTable(w, []string{"RESULT", "VALUE"}, rows)
}

// NewImportHeadersCmd creates the import-headers command, which uploads a
// file and shows the detected headers and the automatic mapping without
// importing anything.
func NewImportHeadersCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "import-headers <entity> <file>",
		Short:             "Show the columns the server detects in an import file",
		Args:              cobra.ExactArgs(2), //nolint:mnd // entity and file
		ValidArgsFunction: entityArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, err := startImport(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			flow.AutoMap()
			mapping := flow.Mapping()

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Detected headers: %s\n\n", strings.Join(flow.Headers(), ", "))
			rows := make([][]string, 0, len(flow.Spec().Fields))
			for _, f := range flow.Spec().Fields {
				required := ""
				if f.Required {
					required = "yes"
				}
				rows = append(rows, []string{f.Name, required, mapping[f.Name]})
			}
			if err = renderTable(w, []string{"FIELD", "REQUIRED", "HEADER"}, rows); err != nil {
				return err
			}
			if missing := flow.Missing(); len(missing) > 0 {
				_, _ = fmt.Fprintf(w, "\nUnmapped required fields: %s\n", strings.Join(missing, ", "))
			}
			return flow.Cancel()
		},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
