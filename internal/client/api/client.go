// Package api is the gateway to the remote cards API and the separate
// registration/authentication API. It turns HTTP responses into domain
// values or classified *Error failures.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxBody caps how much of a response body is read.
const maxBody = 4 << 20

// Client talks to both APIs over one *http.Client.
type Client struct {
	http    *http.Client
	apiURL  string
	authURL string
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a Client for the cards API at apiURL and the auth API at
// authURL. A nil httpClient means http.DefaultClient.
func New(httpClient *http.Client, apiURL, authURL string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		http:    httpClient,
		apiURL:  strings.TrimRight(apiURL, "/"),
		authURL: strings.TrimRight(authURL, "/"),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// serverMessage extracts {"message": "..."} or falls back to the raw body.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// do performs one request. in is encoded as JSON when non-nil; out is
// decoded from a 2xx body when non-nil.
func (c *Client) do(ctx context.Context, op, method, url, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: KindUnknown, Op: op, Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &Error{Kind: KindUnknown, Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	log := c.log.With(
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", url),
		zap.String("request_id", requestID),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		apiErr := &Error{Kind: KindNetwork, Op: op, Err: err}
		log.Warn("request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return apiErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		log.Warn("read response failed", zap.Int("status", resp.StatusCode), zap.Error(err))
		return &Error{Kind: KindNetwork, Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{
			Kind:    classifyStatus(resp.StatusCode),
			Op:      op,
			Status:  resp.StatusCode,
			Message: serverMessage(data),
		}
		log.Warn("request rejected",
			zap.Int("status", resp.StatusCode),
			zap.Stringer("kind", apiErr.Kind),
			zap.String("message", apiErr.Message),
			zap.Duration("elapsed", time.Since(start)),
		)
		return apiErr
	}

	log.Debug("request done", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindUnknown, Op: op, Status: resp.StatusCode, Err: errors.Join(errors.New("invalid response"), err)}
	}
	return nil
}
