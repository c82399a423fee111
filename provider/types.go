package provider

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Message is a completion message delivered by an interactive context.
type Message struct {
	// Source identifies the context the message came from. The handshake
	// only honors messages whose Source is the context it opened.
	Source InteractiveContext
	// Origin is the web origin the message was sent from.
	Origin string
	// Data carries the raw payload. It may be a JSON object or a
	// JSON-encoded string containing an object (older gateways
	// double-encode).
	Data []byte
}

// InteractiveContext is an open interactive browsing context, such as a
// popup window or a system browser paired with a local callback server.
type InteractiveContext interface {
	// Close tears the context down. Close is idempotent.
	Close() error
}

// InteractiveHost opens interactive contexts and delivers the completion
// messages they produce. Implementations decide what "interactive" means
// for their environment; the handshake only consumes this interface.
type InteractiveHost interface {
	Open(ctx context.Context, address string) (InteractiveContext, <-chan Message, error)
}

// Notifier displays best-effort, user-facing notices. Failures are
// non-fatal; implementations should log and move on.
type Notifier interface {
	Notify(message string, duration time.Duration)
}

// logNotifier is the default Notifier. It writes notices to the log.
type logNotifier struct{}

func (logNotifier) Notify(message string, duration time.Duration) {
	log.Info(message)
}

// LoginOptions carries per-invocation knobs for Login.
type LoginOptions struct {
	// ExtraParams are caller-supplied query parameters added to the
	// authorization address.
	ExtraParams map[string]string
}
