package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Masterminds/semver/v3"
)

// SupportedServerVersions is the server API range this client speaks.
const SupportedServerVersions = ">= 1.0.0, < 2.0.0"

// ServerInfo is the body of the version endpoint.
type ServerInfo struct {
	Version string `json:"version"`
	Name    string `json:"name,omitempty"`
}

// ServerVersion returns the backend's reported version.
func (c *Client) ServerVersion(ctx context.Context) (*semver.Version, ServerInfo, error) {
	path := entityPath("version")
	raw, err := c.doJSON(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, ServerInfo{}, err
	}

	var info ServerInfo
	if err := decode(path, raw, &info); err != nil {
		return nil, ServerInfo{}, err
	}
	v, err := semver.NewVersion(info.Version)
	if err != nil {
		return nil, info, &DecodeError{Path: path, Body: excerpt(raw), Err: fmt.Errorf("parse version %q: %w", info.Version, err)}
	}
	return v, info, nil
}

// CheckCompatibility fails with ErrIncompatible when the server version is
// outside constraint. An empty constraint uses SupportedServerVersions.
func (c *Client) CheckCompatibility(ctx context.Context, constraint string) (*semver.Version, error) {
	if constraint == "" {
		constraint = SupportedServerVersions
	}
	cons, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("parse version constraint %q: %w", constraint, err)
	}

	v, _, err := c.ServerVersion(ctx)
	if err != nil {
		return nil, err
	}
	if ok, reasons := cons.Validate(v); !ok {
		return v, fmt.Errorf("%w: server %s, client requires %s (%v)", ErrIncompatible, v, constraint, reasons)
	}
	return v, nil
}
