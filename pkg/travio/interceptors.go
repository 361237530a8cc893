package travio

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Request is a gateway call as the hooks see it before it goes on the wire.
// Metadata travels from the request hooks to the response hooks of the same
// exchange.
type Request struct {
	Method   string
	Path     string
	Headers  http.Header
	Body     []byte
	Metadata map[string]interface{}
}

// Response is what came back for a Request. Error is set instead of
// StatusCode when the gateway could not be reached.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

// RequestInterceptor may rewrite an outgoing call. Returning an error aborts it.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor observes a finished call.
type ResponseInterceptor func(ctx context.Context, req *Request, resp *Response) error

// InterceptorChain holds the hooks run around every gateway call, in the
// order they were added.
type InterceptorChain struct {
	before []RequestInterceptor
	after  []ResponseInterceptor
}

func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{}
}

func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.before = append(c.before, interceptor)
}

func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.after = append(c.after, interceptor)
}

// ExecuteRequestInterceptors stops at the first hook that fails.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	for i, hook := range c.before {
		if err := hook(ctx, req); err != nil {
			return fmt.Errorf("request interceptor %d: %w", i, err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors stops at the first hook that fails.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, resp *Response) error {
	for i, hook := range c.after {
		if err := hook(ctx, req, resp); err != nil {
			return fmt.Errorf("response interceptor %d: %w", i, err)
		}
	}

	return nil
}

func (c *InterceptorChain) Empty() bool {
	return len(c.before)+len(c.after) == 0
}

const (
	metadataStartTime = "start_time"
	metadataRequestID = "request_id"

	// RequestIDHeader carries the per-exchange correlation id.
	RequestIDHeader = "X-Request-ID"
)

func (r *Request) header() http.Header {
	if r.Headers == nil {
		r.Headers = http.Header{}
	}

	return r.Headers
}

func (r *Request) annotate(key string, value interface{}) {
	if r.Metadata == nil {
		r.Metadata = map[string]interface{}{}
	}

	r.Metadata[key] = value
}

// HeaderInterceptor sets fixed headers, such as a client tag, on every call.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(_ context.Context, req *Request) error {
		h := req.header()
		for key, value := range headers {
			h.Set(key, value)
		}

		return nil
	}
}

// RequestIDInterceptor stamps every exchange with a fresh X-Request-ID unless
// the caller already set one.
func RequestIDInterceptor() RequestInterceptor {
	return func(_ context.Context, req *Request) error {
		h := req.header()

		id := h.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			h.Set(RequestIDHeader, id)
		}

		req.annotate(metadataRequestID, id)

		return nil
	}
}

// MetricsRequestInterceptor notes when the call left so the response side can
// compute latency.
func MetricsRequestInterceptor() RequestInterceptor {
	return func(_ context.Context, req *Request) error {
		req.annotate(metadataStartTime, time.Now())

		return nil
	}
}

// MetricsResponseInterceptor feeds the outcome of each call into metrics.
// Calls that never got a start time are counted with zero latency.
func MetricsResponseInterceptor(metrics *Metrics) ResponseInterceptor {
	return func(_ context.Context, req *Request, resp *Response) error {
		var elapsed time.Duration
		if sent, ok := req.Metadata[metadataStartTime].(time.Time); ok {
			elapsed = time.Since(sent)
		}

		metrics.ObserveRequest(req.Method, resp.StatusCode, resp.Error, elapsed)

		return nil
	}
}
