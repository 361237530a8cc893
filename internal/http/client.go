package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/travio/travio-client/internal/constants"
	"github.com/travio/travio-client/pkg/travio"
)

const defaultUserAgent = "travio-client/1.0"

// TokenProvider supplies the bearer credential for outgoing requests.
// An empty token sends the request unauthenticated.
type TokenProvider interface {
	GetToken(ctx context.Context) (string, error)
}

// Logger is the logging interface used by the transport.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Doer performs one logical request.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Requester is a Doer with verb helpers.
type Requester interface {
	Doer
	Get(ctx context.Context, path string, query url.Values) (*Response, error)
	Post(ctx context.Context, path string, body interface{}) (*Response, error)
	Put(ctx context.Context, path string, body interface{}) (*Response, error)
	Patch(ctx context.Context, path string, body interface{}) (*Response, error)
	Delete(ctx context.Context, path string) (*Response, error)
}

// Request describes one call. It is treated as immutable once sent; the
// session layer replays a Clone with Retry set.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
	// Retry marks the single replay after a credential refresh.
	Retry bool
}

// Clone returns a copy safe to modify.
func (r *Request) Clone() *Request {
	out := *r

	if r.Query != nil {
		out.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			out.Query[k] = append([]string(nil), v...)
		}
	}

	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}

	return &out
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Headers    stdhttp.Header
	Body       []byte
}

// Decode parses the JSON body into v. 204 and empty bodies leave v untouched.
func (r *Response) Decode(v interface{}) error {
	if r.StatusCode == stdhttp.StatusNoContent || len(r.Body) == 0 {
		return nil
	}

	err := json.Unmarshal(r.Body, v)
	if err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}

	return nil
}

// Client is the transport core: one JSON exchange per call against a base URL.
type Client struct {
	Methods

	baseURL      string
	httpClient   *retryablehttp.Client
	tokens       TokenProvider
	logger       Logger
	debug        bool
	userAgent    string
	interceptors *travio.InterceptorChain
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig enables transient-failure retries. 4xx responses other
// than 429 are never retried.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithTimeout sets the per-exchange transport timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(client *stdhttp.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = client
	}
}

// WithInterceptors runs chain around every exchange.
func WithInterceptors(chain *travio.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// NewClient creates a transport for baseURL. tokens may be nil.
func NewClient(baseURL string, tokens TokenProvider, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   retryClient,
		tokens:       tokens,
		logger:       travio.NopLogger{},
		userAgent:    defaultUserAgent,
		interceptors: travio.NewInterceptorChain(),
	}

	c.Methods = Methods{Doer: c}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.RetryMax > 0 {
		c.httpClient.Logger = &leveledLogger{logger: c.logger}
	}

	return c
}

// BaseURL returns the gateway base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs the exchange. Non-2xx responses return both the response and a
// *travio.APIError; failures without a response wrap travio.ErrNetwork.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	fullURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	body, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	headers, err := c.buildHeaders(ctx, req)
	if err != nil {
		return nil, err
	}

	intercepted := &travio.Request{
		Method:   req.Method,
		Path:     req.Path,
		Headers:  headers,
		Body:     body,
		Metadata: map[string]interface{}{"retry": req.Retry},
	}

	err = c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
	if err != nil {
		return nil, err
	}

	var rawBody interface{}
	if intercepted.Body != nil {
		rawBody = intercepted.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, rawBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header = intercepted.Headers

	if c.debug {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    fullURL,
			"retry":  req.Retry,
		})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		netErr := fmt.Errorf("%w: %s %s: %w", travio.ErrNetwork, req.Method, req.Path, err)
		_ = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &travio.Response{Error: netErr})

		return nil, netErr
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %w", travio.ErrNetwork, err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	if c.debug {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status": httpResp.StatusCode,
			"url":    fullURL,
			"bytes":  len(respBody),
		})
	}

	var apiErr error
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		apiErr = travio.NewAPIError(httpResp.StatusCode, statusText(httpResp), respBody)
	}

	err = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &travio.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
		Error:      apiErr,
	})
	if err != nil {
		// the status error stays first so callers still branch on it
		return resp, errors.Join(apiErr, err)
	}

	if apiErr != nil {
		return resp, apiErr
	}

	return resp, nil
}

func (c *Client) buildHeaders(ctx context.Context, req *Request) (stdhttp.Header, error) {
	headers := make(stdhttp.Header)
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json")
	headers.Set("User-Agent", c.userAgent)

	if c.tokens != nil {
		token, err := c.tokens.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting access token: %w", err)
		}

		if token != "" {
			headers.Set("Authorization", "Bearer "+token)
		}
	}

	for key, value := range req.Headers {
		headers.Set(key, value)
	}

	return headers, nil
}

func encodeBody(req *Request) ([]byte, error) {
	if req.Body == nil || req.Method == stdhttp.MethodGet {
		return nil, nil
	}

	if raw, ok := req.Body.([]byte); ok {
		return raw, nil
	}

	var buf bytes.Buffer

	err := json.NewEncoder(&buf).Encode(req.Body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// statusText strips the numeric prefix from "404 Not Found".
func statusText(resp *stdhttp.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return stdhttp.StatusText(resp.StatusCode)
	}

	return text
}

// Methods adds the verb helpers to any Doer.
type Methods struct {
	Doer
}

// Get performs a GET request.
func (m Methods) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return m.Do(ctx, &Request{Method: stdhttp.MethodGet, Path: path, Query: query})
}

// Post performs a POST request.
func (m Methods) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return m.Do(ctx, &Request{Method: stdhttp.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request.
func (m Methods) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return m.Do(ctx, &Request{Method: stdhttp.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request.
func (m Methods) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return m.Do(ctx, &Request{Method: stdhttp.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (m Methods) Delete(ctx context.Context, path string) (*Response, error) {
	return m.Do(ctx, &Request{Method: stdhttp.MethodDelete, Path: path})
}

// leveledLogger adapts Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, kvFields(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, kvFields(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, kvFields(keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, kvFields(keysAndValues))
}

func kvFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}
