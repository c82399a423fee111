// Package provider implements an authenticated client for one provider
// hosted by a remote gateway. It owns the interactive authorization
// handshake, transparent single-flight token refresh, and the headers
// that authenticate every outgoing request. Token persistence, HTTP
// transport, and the interactive environment are consumed through
// narrow interfaces so embedders can substitute their own.
package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Header and parameter names on the gateway wire protocol.
const (
	// AuthTokenHeader carries the provider access token.
	AuthTokenHeader = "Gateway-Auth-Token"
	// CredentialsHeader carries base64-encoded shared credential
	// parameters.
	CredentialsHeader = "Gateway-Credentials-Params"
	// PreAuthTokenParam is the connect-address query parameter for the
	// pre-auth token.
	PreAuthTokenParam = "preAuthToken"
	// StateParam is the connect-address query parameter carrying the
	// base64 state object.
	StateParam = "state"
)

// DefaultNamespace namespaces token-store keys when the embedder does
// not provide its own identifier.
const DefaultNamespace = "gateway"

// Client is an authenticated client for a single provider on a gateway.
// A Client manages exactly one provider identity; construct one Client
// per provider.
type Client struct {
	id              string
	name            string
	baseURL         string
	namespace       string
	supportsRefresh bool
	authStatus      int
	clientOrigin    string
	credentials     map[string]string
	extraAuthParams map[string]string
	allowedOrigins  *AllowedOrigins

	tokens    TokenStore
	transport Transport
	host      InteractiveHost
	notifier  Notifier
	log       *log.Entry

	mu            sync.Mutex
	refresh       *refreshOp
	preAuthToken  string
	authenticated bool

	preauthGroup singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithName sets an explicit display name, overriding derivation from the
// provider id.
func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

// WithNamespace sets the identifier used to namespace token-store keys.
func WithNamespace(namespace string) Option {
	return func(c *Client) { c.namespace = namespace }
}

// WithRefreshSupport declares whether the provider supports refresh
// tokens. Refresh is enabled by default; disabling it makes every
// transport auth failure terminal.
func WithRefreshSupport(enabled bool) Option {
	return func(c *Client) { c.supportsRefresh = enabled }
}

// WithAuthStatus overrides the status code recognized as "access token
// invalid/expired".
func WithAuthStatus(status int) Option {
	return func(c *Client) { c.authStatus = status }
}

// WithCredentials sets shared credential parameters. When present they
// are sent with every request under CredentialsHeader, and the client
// obtains a pre-auth token before the interactive handshake.
func WithCredentials(params map[string]string) Option {
	return func(c *Client) { c.credentials = params }
}

// WithExtraAuthParams sets provider-specific query parameters appended
// to every authorization address.
func WithExtraAuthParams(params map[string]string) Option {
	return func(c *Client) { c.extraAuthParams = params }
}

// WithAllowedOrigins sets the allowed-origin configuration for
// completion messages. The default allows only the gateway's own origin.
func WithAllowedOrigins(origins *AllowedOrigins) Option {
	return func(c *Client) { c.allowedOrigins = origins }
}

// WithClientOrigin sets the caller origin embedded in the state
// parameter of the authorization address.
func WithClientOrigin(origin string) Option {
	return func(c *Client) { c.clientOrigin = origin }
}

// WithTokenStore sets the token store. The default is an in-memory
// store.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.tokens = store }
}

// WithTransport sets the transport. The default is an HTTP transport
// with the client's auth-failure status.
func WithTransport(transport Transport) Option {
	return func(c *Client) { c.transport = transport }
}

// WithInteractiveHost sets the host used to open the authorization
// context. Login fails without one.
func WithInteractiveHost(host InteractiveHost) Option {
	return func(c *Client) { c.host = host }
}

// WithNotifier sets the sink for user-facing notices.
func WithNotifier(notifier Notifier) Option {
	return func(c *Client) { c.notifier = notifier }
}

// New creates a client for the provider identified by providerID on the
// gateway at baseURL.
func New(baseURL, providerID string, opts ...Option) (*Client, error) {
	if providerID == "" {
		return nil, fmt.Errorf("provider id is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid gateway URL %q", baseURL)
	}

	c := &Client{
		id:              providerID,
		baseURL:         strings.TrimSuffix(baseURL, "/"),
		namespace:       DefaultNamespace,
		supportsRefresh: true,
		authStatus:      http.StatusUnauthorized,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.name == "" {
		c.name = DisplayName(providerID)
	}
	if c.allowedOrigins == nil {
		c.allowedOrigins = OriginsFromString(originFromURL(parsed.Scheme, parsed.Host))
	}
	if c.tokens == nil {
		c.tokens = NewMemoryStore()
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(&HTTPTransportConfig{AuthStatus: c.authStatus})
	}
	if c.notifier == nil {
		c.notifier = logNotifier{}
	}
	c.log = log.WithField("provider", providerID)

	return c, nil
}

// ID returns the provider's immutable id.
func (c *Client) ID() string {
	return c.id
}

// Name returns the provider's display name.
func (c *Client) Name() string {
	return c.name
}

// Authenticated reports whether the client is believed to hold a valid
// session, per the most recent response observed.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// DisplayName derives a human-readable name from a hyphen-separated
// provider id: "my-custom-provider" becomes "My Custom Provider".
func DisplayName(id string) string {
	parts := strings.Split(id, "-")
	out := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, strings.ToUpper(p[:1])+p[1:])
	}
	return strings.Join(out, " ")
}

// AuthAddress builds the authorization address opened by the handshake:
// {base}/{id}/connect plus caller params, the state object, any
// provider-specific params, and the pre-auth token when one is held.
func (c *Client) AuthAddress(opts *LoginOptions) (string, error) {
	query := url.Values{}
	if opts != nil {
		for k, v := range opts.ExtraParams {
			query.Set(k, v)
		}
	}

	state, err := c.encodeState()
	if err != nil {
		return "", err
	}
	query.Set(StateParam, state)

	for k, v := range c.extraAuthParams {
		query.Set(k, v)
	}

	c.mu.Lock()
	preAuth := c.preAuthToken
	c.mu.Unlock()
	if preAuth != "" {
		query.Set(PreAuthTokenParam, preAuth)
	}

	return fmt.Sprintf("%s/%s/connect?%s", c.baseURL, c.id, query.Encode()), nil
}

// RefreshAddress returns the token-refresh address.
func (c *Client) RefreshAddress() string {
	return fmt.Sprintf("%s/%s/refresh-token", c.baseURL, c.id)
}

// ResourceAddress returns the address of a single resource.
func (c *Client) ResourceAddress(resourceID string) string {
	return fmt.Sprintf("%s/%s/get/%s", c.baseURL, c.id, url.PathEscape(resourceID))
}

// PreAuthAddress returns the pre-authorization address.
func (c *Client) PreAuthAddress() string {
	return fmt.Sprintf("%s/%s/preauth", c.baseURL, c.id)
}

// LogoutAddress returns the provider logout address.
func (c *Client) LogoutAddress() string {
	return fmt.Sprintf("%s/%s/logout", c.baseURL, c.id)
}

// encodeState builds the base64 JSON state object carried in the
// authorization address.
func (c *Client) encodeState() (string, error) {
	payload, err := json.Marshal(map[string]string{
		"origin": c.clientOrigin,
		"nonce":  uuid.New().String(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode state: %w", err)
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// tokenKey returns the namespaced token-store key for this provider.
func (c *Client) tokenKey() string {
	return TokenKey(c.namespace, c.id)
}

// SetAuthToken persists an access token for this provider.
func (c *Client) SetAuthToken(token string) error {
	return c.tokens.SetItem(c.tokenKey(), token)
}

// RemoveAuthToken deletes the persisted access token.
func (c *Client) RemoveAuthToken() error {
	return c.tokens.RemoveItem(c.tokenKey())
}

// Get fetches a single resource through the authenticated request path.
func (c *Client) Get(ctx context.Context, resourceID string) (*Response, error) {
	return c.Request(ctx, &Request{
		Method: http.MethodGet,
		URL:    c.ResourceAddress(resourceID),
	})
}

// Logout asks the provider to end the session, then clears the persisted
// token. The provider's logout response is returned to the caller.
func (c *Client) Logout(ctx context.Context) (*Response, error) {
	resp, err := c.Request(ctx, &Request{
		Method: http.MethodGet,
		URL:    c.LogoutAddress(),
	})
	if err != nil {
		return resp, err
	}

	if err := c.RemoveAuthToken(); err != nil {
		return resp, fmt.Errorf("logout succeeded but token removal failed: %w", err)
	}
	return resp, nil
}

// encodeCredentials encodes the shared credential parameters for the
// credentials header.
func encodeCredentials(params map[string]string) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{"params": params})
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}
