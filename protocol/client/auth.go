package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/anni-dev/anni-fetch/options"
)

// Option configures a rawClient via NewRawClient. It is an alias for
// options.Option so call sites in this package can build []Option slices
// without an options. qualifier.
type Option = options.Option

// WithBasicAuth sets the HTTP Basic Auth options.
// This is not a particularly secure method of authentication, so you probably want to recommend or require WithTokenAuth instead.
func WithBasicAuth(username, password string) Option {
	// NOTE: basic auth is defined as a valid authentication method by the http-protocol spec.
	// See: https://git-scm.com/docs/http-protocol#_authentication
	return options.WithBasicAuth(username, password)
}

// WithTokenAuth sets the Authorization header to the given token.
// We will not modify it for you. As such, if it needs a "Bearer" or "token" prefix, you must add that yourself.
func WithTokenAuth(token string) Option {
	// NOTE: auth beyond basic is defined as a valid authentication method by the http-protocol spec, if the server wants to implement it.
	// See: https://git-scm.com/docs/http-protocol#_authentication
	return options.WithTokenAuth(token)
}

// IsAuthorized checks if the client can successfully communicate with the Git server.
// It performs a basic connectivity test by attempting to fetch the server's capabilities
// through the git-upload-pack service.
//
// Returns:
//   - true if the server is reachable and the client is authorized
//   - false if the server returns a 401 Unauthorized response
//   - error if there are any other connection or protocol issues
func (c *rawClient) IsAuthorized(ctx context.Context) (bool, error) {
	// First get the initial capability advertisement
	err := c.SmartInfo(ctx, "git-upload-pack")
	if err != nil {
		if strings.Contains(err.Error(), "401 Unauthorized") {
			return false, nil
		}
		return false, fmt.Errorf("get repository info: %w", err)
	}

	return true, nil
}
