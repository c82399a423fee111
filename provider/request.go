package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/remotefiles/gateway-client-go/apierror"
)

// refreshOp is the shared handle for an in-flight token refresh. At most
// one exists per Client at any time. done is closed after the handle has
// been cleared, so a waiter that wakes and fails again starts a fresh
// refresh instead of joining a finished one.
type refreshOp struct {
	done chan struct{}
	err  error
}

// Request issues an authenticated call to the gateway. Auth headers are
// attached to every call, and a transport auth failure triggers exactly
// one coalesced token refresh followed by one retry; every other failure
// propagates unchanged.
func (c *Client) Request(ctx context.Context, req *Request) (*Response, error) {
	// Queue behind any refresh already in flight rather than racing it;
	// the retry ordering guarantee depends on this.
	if err := c.awaitRefresh(ctx); err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, req)
	if err == nil {
		return resp, nil
	}

	if !c.supportsRefresh || !apierror.IsAuthError(err) {
		return resp, err
	}

	if refreshErr := c.refreshAuthToken(); refreshErr != nil {
		return nil, refreshErr
	}

	// Exactly one retry with the refreshed token. A second auth failure
	// propagates unchanged.
	return c.send(ctx, req)
}

// send performs one transport call with auth headers attached, and
// updates the authenticated flag from the observed status.
func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	base, auth, err := c.fetchHeaders(ctx)
	if err != nil {
		return nil, err
	}

	// Merge order: base headers, then per-request headers, then the auth
	// headers, which win on key collision.
	headers := make(map[string]string, len(base)+len(req.Headers)+len(auth))
	for k, v := range base {
		headers[k] = v
	}
	for k, v := range req.Headers {
		headers[k] = v
	}
	for k, v := range auth {
		headers[k] = v
	}

	resp, err := c.transport.Do(ctx, &Request{
		Method:  req.Method,
		URL:     req.URL,
		Headers: headers,
		Body:    req.Body,
	})
	if resp != nil {
		c.observeStatus(resp.StatusCode)
	}
	return resp, err
}

// fetchHeaders assembles the headers for one call. The base headers and
// the current access token are fetched concurrently; the token is
// re-read from the store on every call so external rotation is picked up
// immediately.
func (c *Client) fetchHeaders(ctx context.Context) (base, auth map[string]string, err error) {
	var token string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := c.transport.Headers(gctx)
		if err != nil {
			return fmt.Errorf("failed to fetch base headers: %w", err)
		}
		base = h
		return nil
	})
	g.Go(func() error {
		t, err := c.tokens.GetItem(c.tokenKey())
		if err != nil {
			return fmt.Errorf("failed to read auth token: %w", err)
		}
		token = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	auth = make(map[string]string, 2)
	if token != "" {
		auth[AuthTokenHeader] = token
	}
	if len(c.credentials) > 0 {
		encoded, err := encodeCredentials(c.credentials)
		if err != nil {
			return nil, nil, err
		}
		auth[CredentialsHeader] = encoded
	}
	return base, auth, nil
}

// observeStatus updates the authenticated flag. Once authenticated, only
// the designated auth-failure status flips it off; unrelated errors do
// not. From an unauthenticated state, any non-error status flips it on.
func (c *Client) observeStatus(statusCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.authenticated {
		if statusCode == c.authStatus {
			c.authenticated = false
		}
	} else if statusCode < 400 {
		c.authenticated = true
	}
}

// awaitRefresh blocks until any in-flight refresh completes. The
// refresh's own outcome is observed by whoever joined it in
// refreshAuthToken; callers here proceed with whatever token the store
// holds afterwards.
func (c *Client) awaitRefresh(ctx context.Context) error {
	c.mu.Lock()
	op := c.refresh
	c.mu.Unlock()
	if op == nil {
		return nil
	}

	select {
	case <-op.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// refreshAuthToken joins the in-flight refresh, or starts one if none is
// in flight, and waits for its outcome. The refresh itself is not
// cancellable: once started it runs to completion so no caller ever
// observes partially-refreshed state.
func (c *Client) refreshAuthToken() error {
	c.mu.Lock()
	op := c.refresh
	if op == nil {
		op = &refreshOp{done: make(chan struct{})}
		c.refresh = op
		go c.runRefresh(op)
	}
	c.mu.Unlock()

	<-op.done
	return op.err
}

// runRefresh executes one refresh and always clears the shared handle
// when done, success or failure, so a failed refresh cannot wedge all
// future requests.
func (c *Client) runRefresh(op *refreshOp) {
	defer func() {
		c.mu.Lock()
		c.refresh = nil
		c.mu.Unlock()
		close(op.done)
	}()

	op.err = c.doRefresh()
	if op.err != nil {
		c.log.Warnf("token refresh failed: %v", op.err)
	}
}

// doRefresh performs the dedicated refresh request and persists the new
// token. It runs on a background context, detached from the caller that
// happened to trigger it.
func (c *Client) doRefresh() error {
	ctx := context.Background()

	base, auth, err := c.fetchHeaders(ctx)
	if err != nil {
		return err
	}
	headers := make(map[string]string, len(base)+len(auth))
	for k, v := range base {
		headers[k] = v
	}
	for k, v := range auth {
		headers[k] = v
	}

	resp, err := c.transport.Do(ctx, &Request{
		Method:  http.MethodPost,
		URL:     c.RefreshAddress(),
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("token refresh request failed: %w", err)
	}

	token := gjson.GetBytes(resp.Body, "token").String()
	if token == "" {
		return fmt.Errorf("refresh response carried no token")
	}

	if err := c.SetAuthToken(token); err != nil {
		return fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	return nil
}
