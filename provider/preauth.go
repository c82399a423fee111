package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// ensurePreAuth returns the cached pre-auth token, fetching it on first
// use. Concurrent first uses are deduplicated; all callers share one
// fetch. The token lives for the lifetime of the Client.
func (c *Client) ensurePreAuth(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.preAuthToken
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	v, err, _ := c.preauthGroup.Do("preauth", func() (interface{}, error) {
		// Re-check after winning the flight; a previous flight may have
		// filled the cache.
		c.mu.Lock()
		cached := c.preAuthToken
		c.mu.Unlock()
		if cached != "" {
			return cached, nil
		}

		token, err := c.fetchPreAuthToken(ctx)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.preAuthToken = token
		c.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// fetchPreAuthToken exchanges the shared credential parameters for a
// short-lived pre-auth token.
func (c *Client) fetchPreAuthToken(ctx context.Context) (string, error) {
	resp, err := c.transport.Do(ctx, &Request{
		Method: http.MethodPost,
		URL:    c.PreAuthAddress(),
		Body:   map[string]interface{}{"params": c.credentials},
	})
	if err != nil {
		return "", fmt.Errorf("pre-auth request failed: %w", err)
	}

	token := gjson.GetBytes(resp.Body, "token").String()
	if token == "" {
		return "", fmt.Errorf("pre-auth response carried no token")
	}
	return token, nil
}
