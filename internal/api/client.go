// Package api is the client for the prediction backend. Every request carries
// the signed-in user's bearer token; a request without one is never sent.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agenthands/cogniscan/internal/apperr"
	"github.com/agenthands/cogniscan/internal/dataset"
	"github.com/agenthands/cogniscan/internal/telemetry"
)

// maxResponseBytes bounds how much of a response body is read. Visualization
// payloads are base64 images and can be large.
const maxResponseBytes = 64 << 20

// TokenSource yields the bearer credential for the current session.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: 2 * time.Minute},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the backend's response wrapper. Failures carry the reason in
// message or, on older routes, error.
type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (e envelope) reason() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// request is one POST to the backend. fallback is the message shown when the
// backend gives no reason.
type request struct {
	path        string
	contentType string
	body        []byte
	fallback    string
}

// do sends req and returns the raw response body of a successful call.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	target := c.baseURL + req.path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(req.body))
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", req.path, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", req.contentType)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(ctx, req.path, 0, time.Since(start))
		c.logger.Warn("backend request failed", "endpoint", req.path, "error", err)
		return nil, &apperr.RemoteRequestError{Endpoint: req.path, Message: req.fallback}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.metrics.ObserveRequest(ctx, req.path, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &apperr.RemoteRequestError{Endpoint: req.path, Status: resp.StatusCode, Message: req.fallback}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := req.fallback
		if decodeErr == nil && env.reason() != "" {
			msg = env.reason()
		}
		c.logger.Warn("backend request rejected", "endpoint", req.path, "status", resp.StatusCode, "message", msg)
		return nil, &apperr.RemoteRequestError{Endpoint: req.path, Status: resp.StatusCode, Message: msg}
	}

	// Some routes answer 200 with status "failed".
	if decodeErr == nil && env.Status == "failed" {
		msg := env.reason()
		if msg == "" {
			msg = req.fallback
		}
		return nil, &apperr.RemoteRequestError{Endpoint: req.path, Status: resp.StatusCode, Message: msg}
	}

	c.logger.Debug("backend request ok", "endpoint", req.path, "status", resp.StatusCode, "elapsed", time.Since(start))
	return raw, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", apperr.Authentication("no signed-in user", nil)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		var authErr *apperr.AuthenticationError
		if errors.As(err, &authErr) {
			return "", err
		}
		return "", apperr.Authentication("could not obtain credential", err)
	}
	if token == "" {
		return "", apperr.Authentication("no signed-in user", nil)
	}
	return token, nil
}

// multipartBody encodes src as the "file" part plus any extra fields.
func multipartBody(src dataset.Source, fields map[string]string) ([]byte, string, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, "", &apperr.ParseError{File: src.Name(), Err: err}
	}
	defer rc.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", src.Name())
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, rc); err != nil {
		return nil, "", &apperr.ParseError{File: src.Name(), Err: err}
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// unwrapData returns the envelope's data member when the body is an object
// that has one, and the body itself otherwise.
func unwrapData(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return trimmed
	}
	if data, ok := fields["data"]; ok && string(data) != "null" {
		return data
	}
	return trimmed
}

func visualizationPath(kind string) string {
	return "/visualizations/generate/" + url.PathEscape(kind)
}
