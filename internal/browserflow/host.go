// Package browserflow implements the default interactive host for
// processes with access to a system browser: Open launches the browser
// at the authorization address and runs a loopback callback server that
// turns the gateway's completion callback into a handshake message.
package browserflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/browser"
	log "github.com/sirupsen/logrus"

	"github.com/remotefiles/gateway-client-go/provider"
)

const (
	// DefaultCallbackPath is the loopback path the gateway redirects or
	// posts the completion message to.
	DefaultCallbackPath = "/gateway/callback"

	// RedirectParam tells the gateway where to deliver the completion.
	RedirectParam = "redirect"

	shutdownTimeout = 2 * time.Second
)

// Host opens authorization addresses in the system browser and collects
// completion messages on a local callback server.
type Host struct {
	// Port is the preferred callback port; 0 probes from DefaultBasePort.
	Port int
	// Path is the callback path, DefaultCallbackPath when empty.
	Path string
	// OpenBrowser launches the browser; overridable for tests. Defaults
	// to browser.OpenURL.
	OpenBrowser func(url string) error
}

// DefaultBasePort is the first port probed when none is configured.
const DefaultBasePort = 3334

// browserContext is one open authorization attempt: a running callback
// server plus the browser tab pointed at the gateway.
type browserContext struct {
	server   *http.Server
	closed   sync.Once
	closeErr error
}

// Close shuts the callback server down. Close is idempotent.
func (b *browserContext) Close() error {
	b.closed.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		b.closeErr = b.server.Shutdown(ctx)
	})
	return b.closeErr
}

// Open starts the callback server, then sends the browser to the
// authorization address with the callback location attached as the
// redirect parameter. Each inbound callback request becomes one Message
// carrying the request's Origin header.
func (h *Host) Open(ctx context.Context, address string) (provider.InteractiveContext, <-chan provider.Message, error) {
	listener, port, err := listenAvailable(h.Port)
	if err != nil {
		return nil, nil, err
	}

	path := h.Path
	if path == "" {
		path = DefaultCallbackPath
	}

	messages := make(chan provider.Message, 1)
	handle := &browserContext{}

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		msg := provider.Message{
			Source: handle,
			Origin: requestOrigin(r),
			Data:   completionData(r),
		}

		select {
		case messages <- msg:
		default:
			// A message is already queued; the handshake honors only the
			// first one anyway.
		}

		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, completionPage)
	})

	handle.server = &http.Server{Handler: mux}

	go func() {
		if err := handle.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warnf("callback server error: %v", err)
		}
	}()

	callback := fmt.Sprintf("http://127.0.0.1:%d%s", port, path)
	target, err := withRedirect(address, callback)
	if err != nil {
		_ = handle.Close()
		return nil, nil, err
	}

	log.Infof("Opening browser for authorization: %s", target)
	if err := h.openBrowser(target); err != nil {
		log.Warnf("could not open browser automatically, visit the URL above: %v", err)
	}

	return handle, messages, nil
}

func (h *Host) openBrowser(url string) error {
	if h.OpenBrowser != nil {
		return h.OpenBrowser(url)
	}
	return browser.OpenURL(url)
}

// requestOrigin extracts the web origin of a callback request. Browser
// redirects don't always carry an Origin header, so the referrer's
// origin is used as a fallback.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	if referer := r.Header.Get("Referer"); referer != "" {
		if u, err := url.Parse(referer); err == nil && u.Scheme != "" && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	return ""
}

// completionData normalizes a callback request into a completion
// payload. POST bodies are passed through as-is; redirect-style GET
// callbacks are rebuilt from the query string.
func completionData(r *http.Request) []byte {
	if r.Method == http.MethodPost {
		data, err := io.ReadAll(r.Body)
		if err == nil && len(data) > 0 {
			return data
		}
		return []byte("{}")
	}

	payload := make(map[string]string)
	if token := r.URL.Query().Get("token"); token != "" {
		payload["token"] = token
	}
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		payload["error"] = errMsg
	}
	data, _ := json.Marshal(payload)
	return data
}

// withRedirect appends the callback location to the authorization
// address.
func withRedirect(address, callback string) (string, error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("invalid authorization address: %w", err)
	}
	q := u.Query()
	q.Set(RedirectParam, callback)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// listenAvailable binds the preferred port, probing upwards when it is
// taken.
func listenAvailable(preferred int) (net.Listener, int, error) {
	base := preferred
	if base <= 0 {
		base = DefaultBasePort
	}

	for i := 0; i < 100; i++ {
		port := base + i
		listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return listener, port, nil
		}
	}

	return nil, 0, fmt.Errorf("could not find an available callback port after 100 attempts from %d", base)
}

const completionPage = `<!DOCTYPE html>
<html>
<head>
	<title>Authorization Complete</title>
	<style>
		body { font-family: Arial, sans-serif; text-align: center; padding: 50px; }
		.container { max-width: 600px; margin: 0 auto; }
	</style>
</head>
<body>
	<div class="container">
		<h1>Authorization Complete</h1>
		<p>You can close this window and return to the application.</p>
	</div>
</body>
</html>
`
