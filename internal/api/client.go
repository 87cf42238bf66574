// Package api is the typed client for the platform REST API. All persistence
// and business logic live behind it; this process only consumes the
// request/response contract.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/carelink/carelink/internal/session"
	"github.com/carelink/carelink/internal/util"
)

// Client talks to the REST API at BaseURL. The bearer token for each request
// comes from the session store, so a sign-out immediately de-authenticates
// every in-flight caller that hasn't built its request yet.
type Client struct {
	BaseURL  string
	HTTP     *http.Client
	sessions *session.Store
}

func NewClient(baseURL string, sessions *session.Store) *Client {
	return &Client{
		BaseURL: util.NormalizeBaseURL(baseURL),
		HTTP: &http.Client{
			Timeout: util.DefaultFetchTimeout,
		},
		sessions: sessions,
	}
}

// Error is a non-2xx API response. Message is the server-provided message
// when one was present in the body.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// do performs one JSON request. Body (if non-nil) is marshalled as JSON; out
// (if non-nil) receives the decoded response body. The response body is
// drained and closed on every path.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess, err := c.sessions.Current(); err == nil {
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// decodeError extracts the server-provided message from an error body.
// The API uses both {"message": ...} and {"error": ...} shapes.
func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}
	var body struct {
		Message string `json:"message"`
		ErrMsg  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Message != "" {
			apiErr.Message = body.Message
		} else if body.ErrMsg != "" {
			apiErr.Message = body.ErrMsg
		}
	}
	return apiErr
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// pageQuery builds "?page=N&limit=M", omitting zero values. Returns "" when
// both are zero so unpaged calls keep clean URLs.
func pageQuery(page, limit int) string {
	var parts []string
	if page > 0 {
		parts = append(parts, fmt.Sprintf("page=%d", page))
	}
	if limit > 0 {
		parts = append(parts, fmt.Sprintf("limit=%d", limit))
	}
	if len(parts) == 0 {
		return ""
	}
	return "?" + strings.Join(parts, "&")
}
