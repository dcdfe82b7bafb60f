package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// APIError carries the provider's status so callers can mirror it.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vapi: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the voice provider REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreateCall(ctx context.Context, req CreateCallRequest) (Call, error) {
	var out Call
	err := c.do(ctx, http.MethodPost, "/call", req, &out)
	return out, err
}

func (c *Client) GetCall(ctx context.Context, id string) (Call, error) {
	var out Call
	err := c.do(ctx, http.MethodGet, "/call/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) ListCalls(ctx context.Context, limit int) ([]Call, error) {
	path := "/call"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	out := make([]Call, 0)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) CreateAssistant(ctx context.Context, a Assistant) (Assistant, error) {
	var out Assistant
	err := c.do(ctx, http.MethodPost, "/assistant", a, &out)
	return out, err
}

func (c *Client) GetAssistant(ctx context.Context, id string) (Assistant, error) {
	var out Assistant
	err := c.do(ctx, http.MethodGet, "/assistant/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) ListAssistants(ctx context.Context) ([]Assistant, error) {
	out := make([]Assistant, 0)
	err := c.do(ctx, http.MethodGet, "/assistant", nil, &out)
	return out, err
}

func (c *Client) UpdateAssistant(ctx context.Context, id string, patch Assistant) (Assistant, error) {
	var out Assistant
	err := c.do(ctx, http.MethodPatch, "/assistant/"+url.PathEscape(id), patch, &out)
	return out, err
}

func (c *Client) DeleteAssistant(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/assistant/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "vapi: encode request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "vapi: build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "vapi: %s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "vapi: read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return &APIError{StatusCode: resp.StatusCode, Body: msg}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "vapi: decode response")
	}
	return nil
}
