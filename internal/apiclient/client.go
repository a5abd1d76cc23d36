// Package apiclient issues the authenticated HTTP calls crosscheck makes
// against the API under test.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client sends JSON requests with a bearer token to one base URL.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// New creates a Client with the given request timeout.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Do sends method to path (relative to BaseURL) with an optional JSON body.
// Every request carries Content-Type: application/json and the bearer token.
// A non-nil error means no response was received; any status is returned
// as a Response for the caller to judge.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: b}, nil
}

// URL joins BaseURL and path with exactly one slash between them.
func (c *Client) URL(path string) string {
	if path == "" {
		return c.BaseURL
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// ResourcePath returns endpoint/id, e.g. ResourcePath("/items", "1") is "/items/1".
func ResourcePath(endpoint, id string) string {
	return strings.TrimRight(endpoint, "/") + "/" + id
}
