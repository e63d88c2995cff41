// Package transform calls the external text-transformation service and
// coordinates outcome logging and usage accounting.
package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/House-lovers7/tone-bridge/errors"
)

// DefaultTimeout bounds the call to the transformation service.
const DefaultTimeout = 30 * time.Second

// transformPath is the service endpoint appended to the base URL.
const transformPath = "/api/v1/transform"

// Request is the wire format sent to the transformation service.
type Request struct {
	Text               string         `json:"text"`
	TransformationType string         `json:"transformation_type"`
	Intensity          int            `json:"intensity"`
	Options            map[string]any `json:"options,omitempty"`
}

// Response is the wire format returned by the transformation service.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		TransformedText string   `json:"transformed_text"`
		Suggestions     []string `json:"suggestions,omitempty"`
	} `json:"data"`
}

// ClientConfig configures the transformation service client.
type ClientConfig struct {
	// BaseURL of the transformation service, e.g. "http://llm-service:8001".
	BaseURL string
	// Timeout for the HTTP call. Defaults to DefaultTimeout.
	Timeout time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client calls the external transformation service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a transformation service client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.Invalid("transform", "NewClient", "base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
	}, nil
}

// Transform sends the text to the service and returns the transformed
// text with any suggestions. Non-2xx responses, transport errors, and
// success=false bodies are all failures.
func (c *Client) Transform(ctx context.Context, req *Request) (string, []string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", nil, errors.WrapFatal(err, "transform", "Transform", "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+transformPath, bytes.NewReader(body))
	if err != nil {
		return "", nil, errors.WrapFatal(err, "transform", "Transform", "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", nil, errors.WrapTransient(err, "transform", "Transform", "call service")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", nil, errors.WrapTransient(err, "transform", "Transform", "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, errors.WrapTransient(
			fmt.Errorf("service returned %d: %s", resp.StatusCode, truncate(respBody, 200)),
			"transform", "Transform", "service error")
	}

	var parsed Response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", nil, errors.WrapFatal(err, "transform", "Transform", "decode response")
	}

	if !parsed.Success {
		msg := parsed.Error
		if msg == "" {
			msg = "transformation not applied"
		}
		return "", nil, errors.WrapTransient(
			fmt.Errorf("%w: %s", errors.ErrTransformFailed, msg),
			"transform", "Transform", "service rejected request")
	}

	return parsed.Data.TransformedText, parsed.Data.Suggestions, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
