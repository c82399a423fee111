package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// abortNoticeDuration bounds the transient notice shown when the user
// aborts the handshake.
const abortNoticeDuration = 5 * time.Second

// Login performs one interactive authorization round-trip: it obtains a
// pre-auth token if the provider requires one, opens an interactive
// context at the authorization address, and waits for a single
// completion message. The first valid, origin-approved message decides
// the outcome; the context and listeners are torn down with that
// decision.
//
// Login imposes no timeout of its own; cancel ctx to bound the wait. On
// success the received token has been persisted in the token store.
func (c *Client) Login(ctx context.Context, opts *LoginOptions) error {
	if c.host == nil {
		return fmt.Errorf("no interactive host configured")
	}

	if len(c.credentials) > 0 {
		if _, err := c.ensurePreAuth(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrPreAuthUnavailable, err)
		}
	}

	// Don't open an interactive context for an already-cancelled caller.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginCancelled, err)
	}

	address, err := c.AuthAddress(opts)
	if err != nil {
		return err
	}

	popup, messages, err := c.host.Open(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to open authorization context: %w", err)
	}

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			if err := popup.Close(); err != nil {
				c.log.Warnf("failed to close authorization context: %v", err)
			}
		})
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrLoginCancelled, ctx.Err())

		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("%w: authorization context closed", ErrLoginCancelled)
			}

			if msg.Source != popup {
				c.log.Debugf("ignoring message from foreign context (origin %s)", msg.Origin)
				continue
			}

			if !c.allowedOrigins.Match(msg.Origin) {
				return &OriginRejectedError{
					Origin:  msg.Origin,
					Allowed: c.allowedOrigins.String(),
				}
			}

			payload := parseCompletionPayload(msg.Data)
			if payload.aborted {
				c.notifier.Notify(fmt.Sprintf("Authentication with %s was aborted", c.name), abortNoticeDuration)
				if payload.errMessage != "" {
					return fmt.Errorf("%w: %s", ErrAuthAborted, payload.errMessage)
				}
				return ErrAuthAborted
			}

			if payload.token == "" {
				return ErrNoToken
			}

			if err := c.SetAuthToken(payload.token); err != nil {
				return fmt.Errorf("failed to persist auth token: %w", err)
			}
			return nil
		}
	}
}

// completionPayload is the decoded body of a completion message.
type completionPayload struct {
	token      string
	aborted    bool
	errMessage string
}

// parseCompletionPayload decodes a completion message body. Older
// gateways send the payload as a JSON-encoded string containing the
// object; both shapes are accepted.
func parseCompletionPayload(data []byte) completionPayload {
	result := gjson.ParseBytes(data)
	if result.Type == gjson.String {
		result = gjson.Parse(result.String())
	}

	errField := result.Get("error")
	return completionPayload{
		token:      result.Get("token").String(),
		aborted:    errField.Exists(),
		errMessage: errField.String(),
	}
}
