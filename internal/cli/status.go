package cli

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/stockdesk/stockdesk/internal/api"
)

type statusOutput struct {
	Client     string `json:"client"            yaml:"client"`
	BaseURL    string `json:"baseUrl"           yaml:"baseUrl"`
	Server     string `json:"server,omitempty"  yaml:"server,omitempty"`
	Version    string `json:"version,omitempty" yaml:"version,omitempty"`
	Supported  string `json:"supported"         yaml:"supported"`
	Compatible bool   `json:"compatible"        yaml:"compatible"`
	Error      string `json:"error,omitempty"   yaml:"error,omitempty"`
}

// NewStatusCmd creates the status command, which reports the backend
// version and whether this client supports it.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the backend and its version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := currentConfig()
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd, cfg)
			if err != nil {
				return err
			}

			// status reports incompatibility instead of failing on it.
			cmd.SetContext(contextWithSkipVersionCheck(cmd.Context()))
			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			out := statusOutput{
				Client:    cmd.Root().Version,
				BaseURL:   cfg.API.BaseURL,
				Supported: api.SupportedServerVersions,
			}
			v, info, verr := client.ServerVersion(cmd.Context())
			if verr != nil {
				out.Error = api.UserMessage(verr)
			} else {
				out.Server, out.Version = info.Name, v.String()
				cons, _ := semver.NewConstraint(api.SupportedServerVersions)
				out.Compatible = cons.Check(v)
			}

			w := cmd.OutOrStdout()
			switch format {
			case "json":
				err = renderJSON(w, out)
			case "yaml":
				err = renderYAML(w, out)
			default:
				headers := []string{"Client", "Backend", "Server", "Version", "Supported", "Compatible"}
				values := []string{out.Client, out.BaseURL, out.Server, out.Version, out.Supported, fmt.Sprint(out.Compatible)}
				if out.Error != "" {
					headers, values = append(headers, "Error"), append(values, out.Error)
				}
				err = renderRecord(w, format, headers, values, nil)
			}
			if err != nil {
				return err
			}
			if verr != nil {
				return fmt.Errorf("backend unavailable: %w", verr)
			}
			if !out.Compatible {
				return fmt.Errorf("%w: server %s, client requires %s", api.ErrIncompatible, out.Version, out.Supported)
			}
			return nil
		},
	}
	addOutputFlag(cmd)
	return cmd
}
