// Package gateway is the single HTTP channel between the console and its
// backend. It attaches the bearer token read at call time and turns
// unauthorized responses into session expiry events. It never touches
// storage or navigation itself.
package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/songzhibin97/adminconsole/internal/normalize"
	"github.com/songzhibin97/adminconsole/internal/tracing"
	"github.com/songzhibin97/adminconsole/pkg/log"
	"github.com/songzhibin97/adminconsole/pkg/metrics"
)

// TokenSource yields the current session token. An empty token means the
// request goes out without an Authorization header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// ExpiryEvent is raised once per request that the backend rejected with
// 401 while a session token was expected to be valid.
type ExpiryEvent struct {
	Method     string
	Path       string
	StatusCode int
	// TokenFingerprint identifies the token the rejected request carried,
	// empty when it carried none.
	TokenFingerprint string
	At               time.Time
}

// Fingerprint returns a short digest of token, empty for an empty token.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

// ExpiryHandler receives expiry events.
type ExpiryHandler func(ExpiryEvent)

// Options configures a Client
type Options struct {
	BaseURL    string
	Prefix     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     log.Logger
	Metrics    metrics.Recorder
}

// Client issues backend requests
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     log.Logger
	metrics    metrics.Recorder
	tracer     trace.Tracer

	mu          sync.RWMutex
	subscribers map[int]ExpiryHandler
	nextID      int
}

// Request describes one backend call
type Request struct {
	// Name labels the call in metrics and spans, e.g. "users.list".
	Name   string
	Method string
	// Path is relative to the API prefix.
	Path  string
	Query url.Values
	// Body is JSON encoded when non-nil.
	Body interface{}
	// AuthCall marks login and profile verification. A 401 on such a call
	// is a credential failure, not an expired session.
	AuthCall bool
}

// Response is a successful backend response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// New creates a new gateway client
func New(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	recorder := opts.Metrics
	if recorder == nil {
		recorder = metrics.Nop()
	}

	return &Client{
		baseURL:     joinURL(opts.BaseURL, opts.Prefix),
		httpClient:  httpClient,
		tokens:      opts.Tokens,
		logger:      logger.With(log.Component("gateway")),
		metrics:     recorder,
		tracer:      tracing.Tracer(),
		subscribers: make(map[int]ExpiryHandler),
	}, nil
}

// OnSessionExpired subscribes h to expiry events. The returned function
// removes the subscription.
func (c *Client) OnSessionExpired(h ExpiryHandler) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subscribers[id] = h
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

// Do sends req and returns the response for 2xx/3xx statuses. Statuses of
// 400 and above return a *ResponseError. A 401 on a non-auth call notifies
// every expiry subscriber before returning.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	name := req.Name
	if name == "" {
		name = req.Method + " " + req.Path
	}

	ctx, span := c.tracer.Start(ctx, "gateway "+name, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		semconv.HTTPMethodKey.String(req.Method),
		semconv.HTTPURLKey.String(httpReq.URL.String()),
	)

	logger := c.logger.WithContext(ctx).With(
		log.String(log.FieldMethod, req.Method),
		log.String(log.FieldPath, req.Path),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(req.Method, name, 0, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("request failed", log.Error(err), log.Duration(log.FieldDuration, time.Since(start)))
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	c.metrics.ObserveRequest(req.Method, name, resp.StatusCode, duration)
	span.SetAttributes(semconv.HTTPStatusCodeKey.Int(resp.StatusCode))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%s %s: failed to read response body: %w", req.Method, req.Path, err)
	}

	logger.Debug("request completed",
		log.Int(log.FieldStatusCode, resp.StatusCode),
		log.Duration(log.FieldDuration, duration),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		respErr := &ResponseError{
			StatusCode: resp.StatusCode,
			Method:     req.Method,
			Path:       req.Path,
			Body:       body,
			Message:    normalize.ErrorMessage(body),
			AuthCall:   req.AuthCall,
		}
		span.SetStatus(codes.Error, respErr.Error())

		if resp.StatusCode == http.StatusUnauthorized && !req.AuthCall {
			logger.Info("session rejected by backend")
			c.metrics.IncSessionExpired()
			c.emitExpired(ExpiryEvent{
				Method:           req.Method,
				Path:             req.Path,
				StatusCode:       resp.StatusCode,
				TokenFingerprint: Fingerprint(strings.TrimPrefix(httpReq.Header.Get("Authorization"), "Bearer ")),
				At:               time.Now(),
			})
		}
		return nil, respErr
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	var reqBody io.Reader
	if req.Body != nil {
		jsonData, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	target := joinURL(c.baseURL, req.Path)
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read session token: %w", err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	tracing.InjectTraceHeaders(ctx, httpReq.Header)
	return httpReq, nil
}

func (c *Client) emitExpired(event ExpiryEvent) {
	c.mu.RLock()
	handlers := make([]ExpiryHandler, 0, len(c.subscribers))
	for _, h := range c.subscribers {
		handlers = append(handlers, h)
	}
	c.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

func joinURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	path = strings.Trim(path, "/")
	if path == "" {
		return base
	}
	return base + "/" + path
}
