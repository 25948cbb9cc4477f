package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stockdesk/stockdesk/internal/session"
)

// NewAuthLoginCmd creates the auth login command. The password is read
// from the terminal without echo, or from stdin with --password-stdin.
func NewAuthLoginCmd() *cobra.Command {
	var (
		username      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Example: `  stockdesk auth login --username admin
  echo "$PASSWORD" | stockdesk auth login --username admin --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !passwordStdin && !isTerminal(os.Stdin) {
				return fmt.Errorf("%w to read the password; use --password-stdin", ErrNotInteractive)
			}
			password, err := readPassword(cmd.ErrOrStderr(), cmd.InOrStdin())
			if err != nil {
				return err
			}

			client, _, err := newSessionClient(cmd)
			if err != nil {
				return err
			}
			token, err := client.Login(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			msg := "Logged in as " + username + "."
			if exp := session.TokenExpiry(token); !exp.IsZero() {
				msg += " Session expires " + exp.Local().Format(time.RFC1123) + "."
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// NewAuthLogoutCmd creates the auth logout command.
func NewAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := currentConfig()
			if err != nil {
				return err
			}
			store, err := sessionStore(cfg)
			if err != nil {
				return err
			}
			if err = store.Clear(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return err
		},
	}
}

// NewAuthStatusCmd creates the auth status command. It reads only local
// state and makes no request.
func NewAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if v, ok := os.LookupEnv(session.EnvToken); ok && strings.TrimSpace(v) != "" {
				_, err := fmt.Fprintf(w, "Using the token from %s.\n", session.EnvToken)
				return err
			}

			cfg, err := currentConfig()
			if err != nil {
				return err
			}
			store, err := sessionStore(cfg)
			if err != nil {
				return err
			}
			fs, ok := store.(*session.FileStore)
			if !ok {
				_, err = fmt.Fprintln(w, "Sessions are kept in memory; nothing is stored.")
				return err
			}

			entry, err := fs.Entry()
			if err != nil {
				return err
			}
			if entry == nil {
				_, err = fmt.Fprintf(w, "Not logged in (profile %s). Run \"stockdesk auth login\".\n", fs.Profile())
				return err
			}

			_, _ = fmt.Fprintf(w, "Logged in (profile %s) since %s.\n",
				fs.Profile(), entry.StoredAt.Local().Format(time.RFC1123))
			if entry.ExpiresAt.IsZero() {
				_, err = fmt.Fprintln(w, "The token carries no expiry.")
			} else {
				_, err = fmt.Fprintf(w, "Expires in %s.\n", entry.TimeUntilExpiration().Round(time.Minute))
			}
			return err
		},
	}
}
