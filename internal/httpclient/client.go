// Package httpclient wraps http.Client with the conventions the gateway
// client relies on: JSON bodies, buffered responses, and classification
// of error statuses into apierror values. The configured auth-failure
// status is the one status that yields an auth-kind error; everything
// else above 399 yields a generic APIError.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/remotefiles/gateway-client-go/apierror"
)

// DefaultTimeout bounds a single request round-trip.
const DefaultTimeout = 30 * time.Second

// DefaultAuthStatus is the status code gateways use for "access token
// invalid/expired" unless configured otherwise.
const DefaultAuthStatus = http.StatusUnauthorized

// Config holds HTTP client configuration.
type Config struct {
	Timeout        time.Duration
	AuthStatus     int
	DefaultHeaders map[string]string
}

// DefaultConfig returns the default HTTP client configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:        DefaultTimeout,
		AuthStatus:     DefaultAuthStatus,
		DefaultHeaders: make(map[string]string),
	}
}

// Client wraps http.Client with gateway-specific error handling.
type Client struct {
	httpClient *http.Client
	config     *Config
}

// New creates a new HTTP client with the given configuration.
func New(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.AuthStatus == 0 {
		config.AuthStatus = DefaultAuthStatus
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// DefaultHeaders returns a copy of the headers attached to every request.
func (c *Client) DefaultHeaders() map[string]string {
	headers := make(map[string]string, len(c.config.DefaultHeaders))
	for k, v := range c.config.DefaultHeaders {
		headers[k] = v
	}
	return headers
}

// Request represents an HTTP request.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    interface{}
}

// Response represents a buffered HTTP response.
type Response struct {
	*http.Response
	BodyBytes []byte
}

// SafeClose safely closes the response body.
func (r *Response) SafeClose() error {
	if r == nil || r.Response == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// JSON unmarshals the response body into the provided value.
func (r *Response) JSON(v interface{}) error {
	if len(r.BodyBytes) == 0 {
		return fmt.Errorf("empty response body")
	}
	return json.Unmarshal(r.BodyBytes, v)
}

// String returns the response body as a string.
func (r *Response) String() string {
	return string(r.BodyBytes)
}

// Do performs a single HTTP request. Responses with an error status are
// returned alongside an *apierror.APIError; the response is still usable
// so callers can observe the status code.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		switch body := req.Body.(type) {
		case string:
			bodyReader = bytes.NewBufferString(body)
		case []byte:
			bodyReader = bytes.NewBuffer(body)
		case io.Reader:
			bodyReader = body
		default:
			jsonBytes, err := json.Marshal(req.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request body: %w", err)
			}
			bodyReader = bytes.NewBuffer(jsonBytes)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		_ = httpResp.Body.Close()
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	resp := &Response{
		Response:  httpResp,
		BodyBytes: bodyBytes,
	}

	if httpResp.StatusCode >= 400 {
		return resp, c.classify(httpResp.StatusCode, bodyBytes)
	}

	return resp, nil
}

// classify converts an error status into the matching APIError kind.
func (c *Client) classify(statusCode int, body []byte) error {
	message := string(body)
	if message == "" {
		message = http.StatusText(statusCode)
	}
	if statusCode == c.config.AuthStatus {
		return apierror.NewAuth(statusCode, message)
	}
	return apierror.New(statusCode, message)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method:  http.MethodGet,
		URL:     url,
		Headers: headers,
	})
}

// Post performs a POST request. Non-string bodies are sent as JSON.
func (c *Client) Post(ctx context.Context, url string, body interface{}, headers map[string]string) (*Response, error) {
	if headers == nil {
		headers = make(map[string]string)
	}
	if _, exists := headers["Content-Type"]; !exists {
		headers["Content-Type"] = "application/json"
	}

	return c.Do(ctx, &Request{
		Method:  http.MethodPost,
		URL:     url,
		Headers: headers,
		Body:    body,
	})
}
