package agentgate

import "net/http"

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	httpClient *http.Client
	userAgent  string
	agentID    string
	secret     string
	provider   string
	scopes     []string
	token      string
}

// WithHTTPClient replaces the default HTTP client, e.g. to set
// timeouts or a proxy.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithCredentials sets the agent id and secret used by Authenticate.
func WithCredentials(agentID, secret string) Option {
	return func(c *clientConfig) {
		c.agentID = agentID
		c.secret = secret
	}
}

// WithProvider declares which provider the agent belongs to.
func WithProvider(provider string) Option {
	return func(c *clientConfig) { c.provider = provider }
}

// WithScopes requests specific scopes at token issuance.
func WithScopes(scopes ...string) Option {
	return func(c *clientConfig) { c.scopes = scopes }
}

// WithToken supplies a pre-issued token, skipping Authenticate.
func WithToken(token string) Option {
	return func(c *clientConfig) { c.token = token }
}

// WithUserAgent sets the User-Agent header. The gateway blocklists by
// declared identity, so pick something honest.
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) { c.userAgent = ua }
}
