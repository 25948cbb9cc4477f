package api

import (
	"context"
	"net/http"
)

// Get fetches one record.
func Get[T any](ctx context.Context, c *Client, entity, id string) (T, error) {
	var out T
	path := entityPath(entity, id)
	raw, err := c.doJSON(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return out, err
	}
	err = decode(path, raw, &out)
	return out, err
}

// Create posts a new record and returns the server's copy.
func Create[T any](ctx context.Context, c *Client, entity string, record any) (T, error) {
	var out T
	path := entityPath(entity)
	raw, err := c.doJSON(ctx, http.MethodPost, path, nil, record)
	if err != nil {
		return out, err
	}
	err = decode(path, raw, &out)
	return out, err
}

// Update replaces a record and returns the server's copy.
func Update[T any](ctx context.Context, c *Client, entity, id string, record any) (T, error) {
	var out T
	path := entityPath(entity, id)
	raw, err := c.doJSON(ctx, http.MethodPut, path, nil, record)
	if err != nil {
		return out, err
	}
	err = decode(path, raw, &out)
	return out, err
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, entity, id string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, entityPath(entity, id), nil, nil)
	return err
}
