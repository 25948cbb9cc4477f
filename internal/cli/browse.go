package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stockdesk/stockdesk/internal/dashboard"
	"github.com/stockdesk/stockdesk/internal/tui"
)

// ErrNotInteractive is returned by TUI commands without a terminal.
var ErrNotInteractive = errors.New("an interactive terminal is required")

// logToFile records whether the command logs to a file. Console logging
// would corrupt a full-screen TUI, so TUIs only log when it is set.
var logToFile bool //nolint:gochecknoglobals // set once per command in setupLogging

func tuiLogger() zerolog.Logger {
	if logToFile {
		return logger
	}
	return zerolog.Nop()
}

// NewBrowseCmd creates the browse command, the interactive list screen.
func NewBrowseCmd() *cobra.Command {
	var (
		filters      []string
		search       string
		applyFilters bool
	)

	cmd := &cobra.Command{
		Use:   "browse <entity>",
		Short: "Browse records interactively",
		Long: `Open the interactive list screen of an entity.

Keys: n/p pages, +/- page size, s/S sort, / search, f status filter,
enter details, e edit, c create, d delete, i import, r refresh, q quit.

With --apply-filters, filter edits are held until [a] applies them.`,
		Example: `  stockdesk browse products
  stockdesk browse transfers --filter status=PENDING
  stockdesk browse users --apply-filters`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: entityArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdout) {
				return fmt.Errorf("%w; use \"stockdesk list %s\" instead", ErrNotInteractive, args[0])
			}
			ctx := cmd.Context()
			scr, err := screenFor(args[0])
			if err != nil {
				return err
			}
			cfg, err := currentConfig()
			if err != nil {
				return err
			}
			filter, err := buildFilter(ctx, scr.Meta(), filters, search)
			if err != nil {
				return err
			}
			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			model := scr.browse(ctx, client, cfg, filter, applyFilters, tuiLogger())
			_, err = tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run()
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("running browser: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&filters, "filter", nil, "initial filter as key=value (repeatable)")
	cmd.Flags().StringVar(&search, "search", "", "initial free-text search")
	cmd.Flags().BoolVar(&applyFilters, "apply-filters", false, "hold filter edits until they are applied")

	return cmd
}

// dashboardMetric is the json and yaml shape of one metric.
type dashboardMetric struct {
	Key   string `json:"key"             yaml:"key"`
	Label string `json:"label"           yaml:"label"`
	Group string `json:"group"           yaml:"group"`
	Value *int   `json:"value,omitempty" yaml:"value,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

type dashboardOutput struct {
	GeneratedAt time.Time         `json:"generatedAt" yaml:"generatedAt"`
	ElapsedMs   int64             `json:"elapsedMs"   yaml:"elapsedMs"`
	Metrics     []dashboardMetric `json:"metrics"     yaml:"metrics"`
}

// NewDashboardCmd creates the dashboard command. On a terminal it opens the
// dashboard screen; otherwise, or with --output, it prints one snapshot.
func NewDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show record counts across entities",
		Example: `  stockdesk dashboard
  stockdesk dashboard --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := currentConfig()
			if err != nil {
				return err
			}
			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			interactive := isTerminal(os.Stdout) && !cmd.Flags().Changed("output")
			log := logger
			if interactive {
				log = tuiLogger()
			}
			svc := dashboard.NewService(dashboard.APICounter{Client: client}, nil, cfg.RetryPolicy(), log)

			if interactive {
				model := tui.NewDashboardModel(ctx, svc.Summary)
				if _, err = tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run(); err != nil &&
					!errors.Is(err, tea.ErrProgramKilled) {
					return fmt.Errorf("running dashboard: %w", err)
				}
				return nil
			}

			format, err := outputFormat(cmd, cfg)
			if err != nil {
				return err
			}
			summary, err := svc.Summary(ctx)
			if err != nil {
				return err
			}
			return renderSummary(cmd, format, summary)
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func renderSummary(cmd *cobra.Command, format string, s dashboard.Summary) error {
	w := cmd.OutOrStdout()
	out := dashboardOutput{GeneratedAt: s.GeneratedAt, ElapsedMs: s.Elapsed.Milliseconds()}
	for _, m := range s.Metrics {
		dm := dashboardMetric{Key: m.Key, Label: m.Label, Group: m.Group}
		if m.OK() {
			v := m.Value
			dm.Value = &v
		} else {
			dm.Error = m.Message
		}
		out.Metrics = append(out.Metrics, dm)
	}

	switch format {
	case "json":
		return renderJSON(w, out)
	case "yaml":
		return renderYAML(w, out)
	}

	rows := make([][]string, 0, len(out.Metrics))
	for _, m := range out.Metrics {
		value := "n/a"
		if m.Value != nil {
			value = printer.Sprintf("%d", *m.Value)
		}
		rows = append(rows, []string{m.Group, m.Label, value})
	}
	if err := renderTable(w, []string{"GROUP", "METRIC", "COUNT"}, rows); err != nil {
		return err
	}
	for _, m := range s.Failed() {
		_, _ = fmt.Fprintf(w, "%s unavailable: %s\n", m.Label, m.Message)
	}
	_, err := fmt.Fprintf(w, "\nUpdated %s (%sms)\n",
		s.GeneratedAt.Format(time.RFC3339), strconv.FormatInt(out.ElapsedMs, 10))
	return err
}
