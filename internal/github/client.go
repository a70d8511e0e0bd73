// Package github is a small client for the parts of the GitHub REST API the
// updater needs: releases, release assets, commits and workflow runs.
package github

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/itsmechinmoy/dartotsu-updater/internal/config/validate"
	"github.com/itsmechinmoy/dartotsu-updater/internal/utils/network"
)

// DefaultAPIURL is the public GitHub API endpoint.
const DefaultAPIURL = "https://api.github.com"

const apiVersion = "2022-11-28"

//go:embed schema/responses.schema.json
var responseSchema []byte

var responses = validate.NewSchemaSet("github-responses", responseSchema)

// ErrUnexpectedResponse matches every *ResponseShapeError.
var ErrUnexpectedResponse = errors.New("unexpected response shape")

// APIError is returned when the API answers with a status the caller did not expect.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: GitHub API error (status %d): %s", e.Op, e.StatusCode, e.Body)
}

// ResponseShapeError is returned when a successful response does not match
// the expected schema.
type ResponseShapeError struct {
	Op  string
	Err error
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("%s: unexpected response shape: %v", e.Op, e.Err)
}

func (e *ResponseShapeError) Unwrap() error { return e.Err }

func (e *ResponseShapeError) Is(target error) bool { return target == ErrUnexpectedResponse }

// Client talks to one GitHub API endpoint with one token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient returns a client for baseURL. An empty baseURL means DefaultAPIURL;
// a nil httpClient means the hardened default client.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = network.NewSecureHTTPClient()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

func (c *Client) endpoint(format string, args ...any) string {
	return c.baseURL + "/" + strings.TrimLeft(fmt.Sprintf(format, args...), "/")
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", "dartotsu-updater")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	return req, nil
}

// do sends req and returns the body when the status is want.
func (c *Client) do(op string, req *http.Request, want int) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to send request: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", op, err)
	}
	if resp.StatusCode != want {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func (c *Client) sendJSON(ctx context.Context, op, method, endpoint string, payload any, want int) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(op, req, want)
}

// decode validates data against the named response definition and unmarshals it into v.
func decode(op, def string, data []byte, v any) error {
	if err := responses.Validate(data, "#/$defs/"+def); err != nil {
		return &ResponseShapeError{Op: op, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &ResponseShapeError{Op: op, Err: err}
	}
	return nil
}

func isStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
