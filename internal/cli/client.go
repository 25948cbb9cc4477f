package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stockdesk/stockdesk/internal/api"
	"github.com/stockdesk/stockdesk/internal/config"
	"github.com/stockdesk/stockdesk/internal/session"
)

func contextWithSkipVersionCheck(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipVersionCheckKey{}, true)
}

func skipVersionCheck(ctx context.Context) bool {
	skip, _ := ctx.Value(skipVersionCheckKey{}).(bool)
	return skip
}

// currentConfig returns the global configuration, validated.
func currentConfig() (*config.Config, error) {
	cfg := config.GetGlobalConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// sessionStore returns the configured token store. The file store keeps one
// token per profile under the session directory.
func sessionStore(cfg *config.Config) (session.CredentialSupplier, error) {
	if cfg.Session.Store == config.SessionStoreMemory {
		return session.NewMemoryStore(""), nil
	}
	dir, err := cfg.SessionDir()
	if err != nil {
		return nil, fmt.Errorf("resolving session directory: %w", err)
	}
	return session.NewFileStore(dir, cfg.Session.Profile)
}

// newClient builds the REST client from the configuration. STOCKDESK_TOKEN,
// when set, takes precedence over the stored session. Unless skipped, the
// server version is checked first; only an incompatible version is fatal.
func newClient(cmd *cobra.Command) (*api.Client, error) {
	client, _, err := newSessionClient(cmd)
	return client, err
}

// newSessionClient is newClient that also returns the session store the
// client reads its token from.
func newSessionClient(cmd *cobra.Command) (*api.Client, session.CredentialSupplier, error) {
	cfg, err := currentConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := sessionStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	client, err := api.NewClient(cfg.API.BaseURL, session.NewEnvSupplier(store),
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()
	if skipVersionCheck(ctx) {
		return client, store, nil
	}
	v, err := client.CheckCompatibility(ctx, "")
	switch {
	case errors.Is(err, api.ErrIncompatible):
		return nil, nil, fmt.Errorf("%w (use --skip-version-check to continue anyway)", err)
	case err != nil:
		logger.Debug().Ctx(ctx).Err(err).Msg("server version unavailable, continuing")
	default:
		logger.Debug().Ctx(ctx).Str("server_version", v.String()).Msg("server version compatible")
	}
	return client, store, nil
}
