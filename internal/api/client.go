// Package api wraps the authenticated TrainingSoft endpoints used after login:
// password changes, the instructor dashboard, company lookups and trainee
// history.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sstasesores/trainingsoft/internal/auth"
)

const maxBodyBytes = 32 << 20

// Sentinel errors.
var (
	ErrRoleNotPermitted = errors.New("api: operation not permitted for this role")
	ErrMissingToken     = errors.New("api: session has no token")
)

// Error is a failed call. Message is suitable for display.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Client calls the TrainingSoft REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	validate   *validator.Validate
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient constructs a Client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		validate:   validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type call struct {
	method   string
	path     string
	query    url.Values
	token    string
	body     any
	accept   string
	fallback string
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do performs one request and returns the body of a 2xx answer.
func (c *Client) do(ctx context.Context, in call) ([]byte, error) {
	var body io.Reader
	if in.body != nil {
		payload, err := json.Marshal(in.body)
		if err != nil {
			return nil, fmt.Errorf("api: encode payload: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, in.method, c.endpoint(in.path, in.query), body)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	accept := in.accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if in.token != "" {
		req.Header.Set("Authorization", "Bearer "+in.token)
		req.Header.Set("x-auth-token", in.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("api unreachable", slog.String("path", in.path), slog.String("request_id", requestID), slog.Any("error", err))
		return nil, &Error{Message: auth.MsgNetworkUnreachable, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fallback := in.fallback
		if fallback == "" {
			fallback = fmt.Sprintf("Error %d", resp.StatusCode)
		}
		msg := fallback
		if err == nil {
			msg = auth.ResponseMessage(raw, fallback)
		}
		c.logger.Info("api call failed",
			slog.String("path", in.path),
			slog.Int("status", resp.StatusCode),
			slog.String("request_id", requestID))
		return nil, &Error{Status: resp.StatusCode, Message: msg, Err: err}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Status: resp.StatusCode, Message: auth.MsgMalformed, Err: err}
	}
	c.logger.Debug("api call", slog.String("path", in.path), slog.Int("status", resp.StatusCode), slog.String("request_id", requestID))
	return raw, nil
}

// decodeInto decodes a 2xx body that must match target.
func decodeInto(raw []byte, target any) error {
	if err := json.Unmarshal(raw, target); err != nil {
		return &Error{Message: auth.MsgMalformed, Err: err}
	}
	return nil
}
