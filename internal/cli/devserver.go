package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stockdesk/stockdesk/internal/devserver"
	"github.com/stockdesk/stockdesk/internal/logging"
)

// NewDevServerCmd creates the dev-server command, which runs an in-memory
// backend speaking the same API as production.
func NewDevServerCmd() *cobra.Command {
	var (
		addr    string
		seed    bool
		auth    bool
		version string
	)

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run an in-memory backend for local development",
		Example: `  # Serve seeded data on :8080
  stockdesk dev-server

  # Require a login, then point the CLI at it
  stockdesk dev-server --auth --addr 127.0.0.1:9090
  stockdesk --api-url http://127.0.0.1:9090/api auth login -u admin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store := devserver.NewStore()
			if seed {
				devserver.Seed(store)
			}
			srv := devserver.New(store,
				devserver.WithAuth(auth),
				devserver.WithVersion(version),
				devserver.WithLogger(logging.ComponentLogger(logger, "devserver")),
			)

			cmd.Printf("Serving %s on http://%s%s\n", version, displayAddr(addr), devserver.BasePath)
			if auth {
				cmd.Printf("Login required (user %q, password %q)\n", devserver.DefaultUser, devserver.DefaultPassword)
			}
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				return fmt.Errorf("dev server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&seed, "seed", true, "load sample records")
	cmd.Flags().BoolVar(&auth, "auth", false, "require a bearer token on entity routes")
	cmd.Flags().StringVar(&version, "server-version", devserver.DefaultVersion, "version reported by /version")

	return cmd
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
