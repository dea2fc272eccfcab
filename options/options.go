// Package options provides functional configuration for protocol/client.RawClient.
package options

import (
	"errors"
	"net/http"
)

// BasicAuth holds HTTP Basic Auth credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Options collects the configuration applied by a chain of Option functions.
type Options struct {
	HTTPClient *http.Client
	UserAgent  string
	BasicAuth  *BasicAuth
	AuthToken  *string
}

// Option mutates an Options value. Option functions are applied in order and
// may return an error to abort client construction.
type Option func(*Options) error

// WithHTTPClient overrides the default *http.Client used for all requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) error {
		if client == nil {
			return errors.New("httpClient is nil")
		}
		o.HTTPClient = client
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(agent string) Option {
	return func(o *Options) error {
		if agent == "" {
			return errors.New("user agent cannot be empty")
		}
		o.UserAgent = agent
		return nil
	}
}

// WithBasicAuth sets HTTP Basic Auth credentials. Mutually exclusive with WithTokenAuth.
func WithBasicAuth(username, password string) Option {
	return func(o *Options) error {
		if username == "" {
			return errors.New("username cannot be empty")
		}
		if o.AuthToken != nil {
			return errors.New("cannot use both basic auth and token auth")
		}
		o.BasicAuth = &BasicAuth{Username: username, Password: password}
		return nil
	}
}

// WithTokenAuth sets the Authorization header verbatim. Mutually exclusive with
// WithBasicAuth. The caller must supply any required "Bearer"/"token" prefix.
func WithTokenAuth(token string) Option {
	return func(o *Options) error {
		if token == "" {
			return errors.New("token cannot be empty")
		}
		if o.BasicAuth != nil {
			return errors.New("cannot use both basic auth and token auth")
		}
		o.AuthToken = &token
		return nil
	}
}
