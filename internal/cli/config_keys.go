package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stockdesk/stockdesk/internal/config"
)

// NewConfigSetCmd creates the config set command. It writes the project
// configuration when a project is resolved, or the global one otherwise.
func NewConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Example: `  stockdesk config set api.base_url https://stock.example.com/api
  stockdesk config set output.page_size 25
  stockdesk config set api.max_attempts 5 --global`,
		Args:      cobra.ExactArgs(2), //nolint:mnd // key and value
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := writableConfigPath(global)
			if err != nil {
				return err
			}

			// Only the file's own values are rewritten; environment overrides
			// never leak into it.
			cfg := config.Default()
			if _, statErr := os.Stat(path); statErr == nil {
				if err = cfg.Load(path); err != nil {
					return err
				}
			}
			if err = cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err = cfg.Validate(); err != nil {
				return err
			}
			cfg.SetConfigPath(path)
			if err = cfg.Save(); err != nil {
				return err
			}

			logger.Debug().Ctx(cmd.Context()).Str("key", args[0]).Str("path", path).Msg("configuration updated")
			cmd.Printf("Set %s = %s in %s\n", args[0], args[1], path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&global, "global", false, "write the global configuration even inside a project")
	return cmd
}

func writableConfigPath(global bool) (string, error) {
	if dir := config.GetResolvedProjectDir(); dir != "" && !global {
		return filepath.Join(dir, "config.yaml"), nil
	}
	dir, err := config.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// NewConfigGetCmd creates the config get command, which prints an
// effective value after every layer is applied.
func NewConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "get <key>",
		Short:     "Print an effective configuration value",
		Example:   `  stockdesk config get api.base_url`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.GetGlobalConfig().Get(args[0])
			if err != nil {
				return fmt.Errorf("%w (available: %v)", err, config.Keys())
			}
			cmd.Println(v)
			return nil
		},
	}
}

// NewConfigListCmd creates the config list command.
func NewConfigListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetGlobalConfig()
			format, err := outputFormat(cmd, cfg)
			if err != nil {
				return err
			}
			values := cfg.List()

			switch format {
			case "json":
				return renderJSON(cmd.OutOrStdout(), values)
			case "yaml":
				return renderYAML(cmd.OutOrStdout(), values)
			}
			rows := make([][]string, 0, len(values))
			for _, k := range config.Keys() {
				rows = append(rows, []string{k, values[k]})
			}
			return renderTable(cmd.OutOrStdout(), []string{"KEY", "VALUE"}, rows)
		},
	}
	addOutputFlag(cmd)
	return cmd
}
