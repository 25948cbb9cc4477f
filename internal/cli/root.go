package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stockdesk/stockdesk/internal/config"
	"github.com/stockdesk/stockdesk/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// skipVersionCheckKey marks a context whose commands skip the server
// compatibility check.
type skipVersionCheckKey struct{}

// NewRootCmd creates the root Cobra command for the stockdesk CLI.
// It wires up configuration, logging and the subcommands.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithArgs(ver, os.LookupEnv)
}

// NewRootCmdWithArgs creates the root command with an explicit env lookup for
// testability.
func NewRootCmdWithArgs(ver string, lookupEnv func(string) (string, bool)) *cobra.Command {
	var (
		logResult  *logging.LogPathResult
		projectDir string
	)

	cmd := &cobra.Command{
		Use:           "stockdesk",
		Short:         "Warehouse admin console",
		Long:          "stockdesk: browse, edit and bulk-import warehouse records from the terminal",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, skip := lookupEnv("STOCKDESK_SKIP_DOTENV"); !skip {
				if err := config.LoadDotEnv(".env"); err != nil {
					cmd.PrintErrf("Warning: could not load .env: %v\n", err)
				}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cwd, _ := os.Getwd()
			resolved := config.ResolveProjectDir(ctx, projectDir, cwd)
			config.SetResolvedProjectDir(resolved)
			config.InitGlobalConfigWithProject(ctx, resolved)

			if err := applyFlagOverrides(cmd, config.GetGlobalConfig()); err != nil {
				return err
			}

			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return cleanupLogging(logResult)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("api-url", "", "backend base URL (overrides config and STOCKDESK_API_URL)")
	cmd.PersistentFlags().Bool("skip-version-check", false, "skip the server version compatibility check")
	cmd.PersistentFlags().StringVar(&projectDir, "project-dir", "", "project directory holding .stockdesk/config.yaml")

	cmd.AddCommand(
		NewListCmd(), NewGetCmd(), NewBrowseCmd(), NewDashboardCmd(),
		NewCreateCmd(), NewUpdateCmd(), NewDeleteCmd(),
		NewImportCmd(), NewImportHeadersCmd(),
		newAuthCmd(), NewStatusCmd(), newConfigCmd(), NewDevServerCmd(),
	)

	return cmd
}

// applyFlagOverrides applies global flags that take precedence over every
// configuration layer.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	if cfg == nil {
		return nil
	}
	if cmd.Flags().Changed("api-url") {
		apiURL, _ := cmd.Flags().GetString("api-url")
		if apiURL == "" {
			return fmt.Errorf("%w: --api-url cannot be empty", config.ErrInvalidValue)
		}
		cfg.API.BaseURL = apiURL
	}
	return nil
}

const rootCmdExample = `  # List the first page of products
  stockdesk list products

  # Filter, sort and page through transfers
  stockdesk list transfers --filter status=PENDING --sort scheduledAt:asc --page 2

  # Browse inventory interactively
  stockdesk browse inventory

  # Import vehicles from a spreadsheet
  stockdesk import vehicles fleet.xlsx --map plate=Plate --map model=Model

  # Delete several users, four at a time
  stockdesk delete users 12 13 14 --concurrency 4

  # Sign in and check the backend
  stockdesk auth login --username admin
  stockdesk status

  # Run a local backend for development
  stockdesk dev-server --addr :8080`

// newAuthCmd creates the auth command group.
func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "Session management commands"}
	cmd.AddCommand(NewAuthLoginCmd(), NewAuthLogoutCmd(), NewAuthStatusCmd())
	return cmd
}

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(
		NewConfigInitCmd(), NewConfigSetCmd(), NewConfigGetCmd(),
		NewConfigListCmd(), NewConfigValidateCmd(),
	)
	return cmd
}
