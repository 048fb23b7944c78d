package kommo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Error codes attached to client errors.
const (
	CodeEncode    = "kommo_encode"
	CodeRequest   = "kommo_request"
	CodeTransport = "kommo_transport"
	CodeTimeout   = "kommo_timeout"
	CodeStatus    = "kommo_status"
)

// Client posts messages to the chat API. Safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client. A nil httpClient gets one bounded by cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.AccessToken,
		http:    httpClient,
	}
}

// SendMessages makes exactly one POST with msgs and returns the HTTP status.
// The response body is drained and discarded; it never appears in errors.
func (c *Client) SendMessages(ctx context.Context, msgs []OutgoingMessage) (int, error) {
	body, err := json.Marshal(SendRequest{Messages: msgs})
	if err != nil {
		return 0, oops.Code(CodeEncode).Wrapf(err, "encode messages")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+MessagesPath, bytes.NewReader(body))
	if err != nil {
		return 0, oops.Code(CodeRequest).Wrapf(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		code := CodeTransport
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			code = CodeTimeout
		}
		// *url.Error carries the URL and cause only, never headers
		return 0, oops.Code(code).Wrapf(err, "post messages")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, oops.
			Code(CodeStatus).
			With("status", resp.StatusCode).
			Errorf("post messages: unexpected status %d", resp.StatusCode)
	}

	return resp.StatusCode, nil
}
