package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/remotefiles/gateway-client-go/internal/httpclient"
)

// Request describes one outgoing call to the gateway.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    interface{}
}

// Response is the buffered result of a gateway call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport issues requests on behalf of the client. It must fail with
// an auth-kind *apierror.APIError when a response carries the gateway's
// auth-failure status code, and a generic error otherwise. Headers
// returns the base headers attached to every request; the client merges
// its auth headers over them.
type Transport interface {
	Headers(ctx context.Context) (map[string]string, error)
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransportConfig configures the default HTTP transport.
type HTTPTransportConfig struct {
	Timeout time.Duration
	// AuthStatus is the status classified as an auth failure, 401 when
	// zero.
	AuthStatus int
	// BaseHeaders are attached to every request.
	BaseHeaders map[string]string
}

// HTTPTransport is the default Transport, backed by the shared HTTP
// client.
type HTTPTransport struct {
	client *httpclient.Client
}

// NewHTTPTransport creates an HTTP transport. A nil config selects the
// defaults.
func NewHTTPTransport(config *HTTPTransportConfig) *HTTPTransport {
	if config == nil {
		config = &HTTPTransportConfig{}
	}
	return &HTTPTransport{
		client: httpclient.New(&httpclient.Config{
			Timeout:        config.Timeout,
			AuthStatus:     config.AuthStatus,
			DefaultHeaders: config.BaseHeaders,
		}),
	}
}

// Headers returns a copy of the transport's base headers.
func (t *HTTPTransport) Headers(ctx context.Context) (map[string]string, error) {
	return t.client.DefaultHeaders(), nil
}

// Do performs the request. Error responses are returned alongside the
// classified error so callers can still observe the status code.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	resp, err := t.client.Do(ctx, &httpclient.Request{
		Method:  req.Method,
		URL:     req.URL,
		Headers: req.Headers,
		Body:    req.Body,
	})

	var out *Response
	if resp != nil {
		out = &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       resp.BodyBytes,
		}
		_ = resp.SafeClose()
	}
	return out, err
}
