package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
}

// Login exchanges credentials for a bearer token and stores it in the
// client's credential supplier.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", ErrEmptyCredential
	}

	path := entityPath("auth", "login")
	raw, err := c.doJSON(ctx, http.MethodPost, path, nil, loginRequest{Username: username, Password: password})
	if err != nil {
		return "", err
	}

	var out loginResponse
	if err := decode(path, raw, &out); err != nil {
		return "", err
	}
	token := out.Token
	if token == "" {
		token = out.AccessToken
	}
	if token == "" {
		return "", &DecodeError{Path: path, Err: fmt.Errorf("%w: token", errMissingField)}
	}

	if err := c.creds.Set(ctx, token); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	c.logger.Info().Str("user", username).Msg("logged in")
	return token, nil
}

// Logout forgets the stored token. The backend keeps no session to end.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.creds.Clear(ctx); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
