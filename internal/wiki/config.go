package wiki

import (
	"fmt"
	"net/url"
	"time"
)

// DefaultTimeout bounds every API round trip when Config.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// apiScript is the MediaWiki API entry point, relative to the endpoint.
const apiScript = "api.php"

// Config holds MediaWiki connection settings
type Config struct {
	// Endpoint is the wiki base URL, e.g. http://docs.funtoo.org.
	// The API URL is api.php resolved against it.
	Endpoint string

	// UserAgent identifies the client to the wiki
	UserAgent string

	// Timeout for API requests
	Timeout time.Duration

	// Proxy is an optional SOCKS5 proxy in host:port form.
	Proxy string
}

// APIURL resolves api.php against the endpoint the way a browser resolves a
// relative link: a trailing slash keeps the last path segment, no trailing
// slash replaces it.
func (c Config) APIURL() (*url.URL, error) {
	base, err := url.Parse(c.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, c.Endpoint)
	}
	return base.ResolveReference(&url.URL{Path: apiScript}), nil
}
