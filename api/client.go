// Package api is the HTTP client for the WaliCode backend. It signs requests
// with the session token pair, unwraps the response envelope, classifies
// failures and reacts to the server's session invalidation signals.
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
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/net/publicsuffix"

	"github.com/jmcleod/walicode/session"
)

// Credentials is the cookie inclusion policy of a request.
type Credentials string

const (
	CredentialsInclude    Credentials = "include"
	CredentialsSameOrigin Credentials = "same-origin"
	CredentialsOmit       Credentials = "omit"
)

// RequestIDHeader carries a per-request identifier.
const RequestIDHeader = "X-Request-Id"

const maxResponseBody = 8 << 20

// Config holds the instance defaults of a Client.
type Config struct {
	BaseURL              string
	Timeout              time.Duration
	Retry                int // negative disables retries
	RetryDelay           time.Duration
	Credentials          Credentials
	SessionExpiredMarker string
}

// DefaultConfig returns the defaults used for zero Config fields.
func DefaultConfig() Config {
	return Config{
		BaseURL:              "http://localhost:8888/api",
		Timeout:              10 * time.Second,
		Retry:                3,
		RetryDelay:           time.Second,
		Credentials:          CredentialsInclude,
		SessionExpiredMarker: DefaultSessionExpiredMarker,
	}
}

// InvalidationHandler is called, after the token pair has been cleared,
// whenever the server signals that the session is no longer valid.
type InvalidationHandler func(ctx context.Context, cause error)

// Client issues requests against one base URL.
type Client struct {
	cfg     Config
	base    *url.URL
	withJar *http.Client
	bare    *http.Client
	tokens  *session.Jar
	logger  *slog.Logger
	metrics *Metrics

	mu           sync.RWMutex
	onInvalidate InvalidationHandler
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTransport sets the RoundTripper used for all requests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.withJar.Transport = rt
		c.bare.Transport = rt
	}
}

// WithMetrics records request counts and latencies in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a Client. tokens supplies the token pair used to sign
// requests; it is also cleared when the server invalidates the session.
func New(cfg Config, tokens *session.Jar, opts ...Option) (*Client, error) {
	cfg = withDefaults(cfg)
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if tokens == nil {
		return nil, errors.New("token jar is required")
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	c := &Client{
		cfg:     cfg,
		base:    base,
		withJar: &http.Client{Jar: jar},
		bare:    &http.Client{},
		tokens:  tokens,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	switch {
	case cfg.Retry == 0:
		cfg.Retry = def.Retry
	case cfg.Retry < 0:
		cfg.Retry = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.Credentials == "" {
		cfg.Credentials = def.Credentials
	}
	if cfg.SessionExpiredMarker == "" {
		cfg.SessionExpiredMarker = def.SessionExpiredMarker
	}
	return cfg
}

// Config returns the instance defaults.
func (c *Client) Config() Config { return c.cfg }

// OnInvalidate registers the handler run on session invalidation,
// replacing any previous one.
func (c *Client) OnInvalidate(h InvalidationHandler) {
	c.mu.Lock()
	c.onInvalidate = h
	c.mu.Unlock()
}

// RequestOption overrides an instance default for one call.
type RequestOption func(*requestConfig)

type requestConfig struct {
	timeout     time.Duration
	retry       int
	retryDelay  time.Duration
	credentials Credentials
	header      http.Header
}

func WithTimeout(d time.Duration) RequestOption {
	return func(rc *requestConfig) { rc.timeout = d }
}

func WithRetry(n int) RequestOption {
	return func(rc *requestConfig) { rc.retry = n }
}

func WithRetryDelay(d time.Duration) RequestOption {
	return func(rc *requestConfig) { rc.retryDelay = d }
}

func WithCredentials(cr Credentials) RequestOption {
	return func(rc *requestConfig) { rc.credentials = cr }
}

// WithHeader adds a header to the request. The auth header always wins.
func WithHeader(key, value string) RequestOption {
	return func(rc *requestConfig) { rc.header.Add(key, value) }
}

// Get issues a GET with query parameters and decodes the body into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out, opts...)
}

// Post issues a POST with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out, opts...)
}

// Put issues a PUT with a JSON body and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out, opts...)
}

// Delete issues a DELETE and decodes the response into out.
func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out, opts...)
}

// Do issues a request. out may be nil to discard the body.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any, opts ...RequestOption) error {
	rc := requestConfig{
		timeout:     c.cfg.Timeout,
		retry:       c.cfg.Retry,
		retryDelay:  c.cfg.RetryDelay,
		credentials: c.cfg.Credentials,
		header:      http.Header{},
	}
	for _, opt := range opts {
		opt(&rc)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
	}

	start := time.Now()
	resp, err := c.send(ctx, method, path, query, payload, rc)
	if err != nil {
		c.metrics.observe(method, path, KindTransport.String(), time.Since(start))
		c.logger.ErrorContext(ctx, "api: request failed", "method", method, "path", path, "error", err)
		return err
	}
	err = c.handleResponse(ctx, method, path, resp, out)
	outcome := "ok"
	var apiErr *Error
	if errors.As(err, &apiErr) {
		outcome = apiErr.Kind.String()
	}
	c.metrics.observe(method, path, outcome, time.Since(start))
	return err
}

type rawResponse struct {
	status    int
	body      []byte
	requestID string
}

// send performs the round trip, retrying transport failures of GET requests.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, rc requestConfig) (*rawResponse, error) {
	if method != http.MethodGet || rc.retry <= 0 {
		return c.roundTrip(ctx, method, path, query, payload, rc)
	}
	delay := rc.retryDelay
	if delay <= 0 {
		delay = time.Millisecond
	}
	var resp *rawResponse
	backoff := retry.WithMaxRetries(uint64(rc.retry), retry.NewConstant(delay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		resp, err = c.roundTrip(ctx, method, path, query, payload, rc)
		if err != nil && ctx.Err() == nil {
			c.logger.WarnContext(ctx, "api: retrying request", "method", method, "path", path, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	return resp, err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, payload []byte, rc requestConfig) (*rawResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()

	u := c.resolve(path, query)
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Path: path, Err: err}
	}
	requestID := c.intercept(req, rc.header)

	hc := c.withJar
	if rc.credentials == CredentialsOmit {
		hc = c.bare
	}
	c.logger.DebugContext(ctx, "api: request", "method", method, "path", path, "request_id", requestID)
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Path: path, RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Path: path, Status: resp.StatusCode, RequestID: requestID, Err: err}
	}
	return &rawResponse{status: resp.StatusCode, body: data, requestID: requestID}, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// intercept sets the standard headers and signs the request with the token
// pair. It returns the request ID.
func (c *Client) intercept(req *http.Request, extra http.Header) string {
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		req.Header.Set(RequestIDHeader, requestID)
	}
	if pair, ok := c.tokens.Pair(); ok {
		session.HeaderFor(pair).Apply(req.Header)
	}
	return requestID
}

func (c *Client) handleResponse(ctx context.Context, method, path string, resp *rawResponse, out any) error {
	body := unwrapBody(resp.body)
	st, isEnvelope := probeStatus(body)
	requestID := resp.requestID
	if st.RequestID != "" {
		requestID = st.RequestID
	}

	if resp.status < 200 || resp.status > 299 {
		apiErr := &Error{
			Kind:      KindHTTP,
			Method:    method,
			Path:      path,
			Status:    resp.status,
			Body:      resp.body,
			RequestID: requestID,
		}
		if isEnvelope {
			apiErr.Code = string(st.ErrorCode)
			apiErr.Message = st.ErrorMsg
		}
		if resp.status == http.StatusUnauthorized || apiErr.Code == SessionExpiredCode {
			apiErr.Kind = KindSessionExpired
			c.invalidate(ctx, apiErr)
			return apiErr
		}
		c.logger.ErrorContext(ctx, "api: request failed", "method", method, "path", path,
			"status", resp.status, "request_id", requestID)
		return apiErr
	}

	if isEnvelope && st.ErrorMsg == c.cfg.SessionExpiredMarker {
		apiErr := &Error{
			Kind:      KindSessionExpired,
			Method:    method,
			Path:      path,
			Status:    resp.status,
			Code:      string(st.ErrorCode),
			Message:   st.ErrorMsg,
			Body:      resp.body,
			RequestID: requestID,
		}
		c.invalidate(ctx, apiErr)
		return apiErr
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindDecode, Method: method, Path: path, Status: resp.status, Body: resp.body, RequestID: requestID, Err: err}
	}
	return nil
}

// invalidate clears the token pair and runs the invalidation handler before
// the failing call returns.
func (c *Client) invalidate(ctx context.Context, cause *Error) {
	c.logger.WarnContext(ctx, "api: session invalidated by server",
		"method", cause.Method, "path", cause.Path, "status", cause.Status, "request_id", cause.RequestID)
	if err := c.tokens.Clear(); err != nil {
		c.logger.ErrorContext(ctx, "api: clearing token pair failed", "error", err)
	}
	c.mu.RLock()
	h := c.onInvalidate
	c.mu.RUnlock()
	if h != nil {
		h(ctx, cause)
	}
}
