package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/stockdesk/stockdesk/internal/cli/pagination"
	"github.com/stockdesk/stockdesk/internal/config"
)

const tabPadding = 2

//nolint:gochecknoglobals // stateless number formatter
var printer = message.NewPrinter(language.English)

// listOutput is the json and yaml shape of a list command.
type listOutput struct {
	Items      any                       `json:"items"      yaml:"items"`
	Pagination pagination.PaginationMeta `json:"pagination" yaml:"pagination"`
}

// outputFormat returns the --output flag, or the configured default.
func outputFormat(cmd *cobra.Command, cfg *config.Config) (string, error) {
	format, _ := cmd.Flags().GetString("output")
	if format == "" {
		format = cfg.Output.DefaultFormat
	}
	if !slices.Contains(config.OutputFormats, format) {
		return "", fmt.Errorf("%w: output format must be one of %s, got %q",
			config.ErrInvalidValue, strings.Join(config.OutputFormats, ", "), format)
	}
	return format, nil
}

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "output format: table, json or yaml (defaults from configuration)")
}

// renderList writes one page in format.
func renderList(w io.Writer, format string, page listPage) error {
	switch format {
	case "json":
		return renderJSON(w, listOutput{Items: page.Records, Pagination: page.Pagination})
	case "yaml":
		return renderYAML(w, listOutput{Items: page.Records, Pagination: page.Pagination})
	}

	if len(page.Rows) == 0 {
		_, err := fmt.Fprintln(w, "No records found.")
		return err
	}
	if err := renderTable(w, page.Headers, page.Rows); err != nil {
		return err
	}
	p := page.Pagination
	_, err := printer.Fprintf(w, "\nPage %d of %d (%d records, %d per page)\n",
		p.CurrentPage, p.TotalPages, p.TotalItems, p.PageSize)
	return err
}

// renderRecord writes a single record in format.
func renderRecord(w io.Writer, format string, headers, row []string, record any) error {
	switch format {
	case "json":
		return renderJSON(w, record)
	case "yaml":
		return renderYAML(w, record)
	}

	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	for i, h := range headers {
		if i < len(row) {
			_, _ = fmt.Fprintf(tw, "%s:\t%s\n", h, row[i])
		}
	}
	return tw.Flush()
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(headers, "\t"))
	dividers := make([]string, len(headers))
	for i, h := range headers {
		dividers[i] = strings.Repeat("-", len(h))
	}
	_, _ = fmt.Fprintln(tw, strings.Join(dividers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2) //nolint:mnd // conventional yaml indent
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
