// Package users resolves staff identities from the external users API.
package users

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"resty.dev/v3"

	"barberpos/internal/sales"
)

// Client implements sales.UserDirectory over the users service HTTP API.
type Client struct {
	rc *resty.Client
}

// NewClient creates a client for the users API rooted at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		rc: resty.New().SetBaseURL(baseURL),
	}
}

// Close releases the underlying HTTP client resources.
func (c *Client) Close() error {
	return c.rc.Close()
}

// FindUser fetches one user by ID. A 404 from the users service maps to
// sales.ErrUserNotFound; any other non-2xx status is an error.
func (c *Client) FindUser(ctx context.Context, id int64) (*sales.User, error) {
	var user sales.User
	res, err := c.rc.R().
		SetContext(ctx).
		SetResult(&user).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Get("/users/{id}")
	if err != nil {
		return nil, fmt.Errorf("users api request: %w", err)
	}
	switch {
	case res.StatusCode() == http.StatusNotFound:
		return nil, sales.ErrUserNotFound
	case res.IsError():
		return nil, fmt.Errorf("users api returned status %d", res.StatusCode())
	}
	return &user, nil
}
