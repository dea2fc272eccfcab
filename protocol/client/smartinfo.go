package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/anni-dev/anni-fetch/log"
	"github.com/anni-dev/anni-fetch/protocol"
	"github.com/anni-dev/anni-fetch/retry"
)

// SmartInfo probes $GIT_URL/info/refs?service=<service>, the capability
// discovery endpoint of the Git Smart HTTP protocol (spec.md §6). It is used
// as a connectivity/authorization check (see IsAuthorized); callers that need
// the actual ref advertisement body drive ls-refs over UploadPack instead.
//
// A non-2xx response is an error. 5xx and 429 responses are retried through
// the context's retry.Retrier, since a GET is safe to repeat; 4xx responses
// are returned immediately without consulting the retrier.
func (c *rawClient) SmartInfo(ctx context.Context, service string) error {
	u := c.base.JoinPath("info/refs")
	query := make(url.Values)
	query.Set("service", service)
	u.RawQuery = query.Encode()

	logger := log.FromContext(ctx)
	retrier := retry.FromContextOrNoop(ctx)
	maxAttempts := retrier.MaxAttempts()

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		c.addDefaultHeaders(req)

		logger.Debug("SmartInfo", "url", u.String(), "service", service, "attempt", attempt)

		res, err := c.client.Do(req)
		if err != nil {
			if retrier.ShouldRetry(ctx, err, attempt) && (maxAttempts <= 0 || attempt < maxAttempts) {
				if waitErr := retrier.Wait(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}

		body, readErr := io.ReadAll(res.Body)
		res.Body.Close()

		if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
			svcErr := protocol.NewServerUnavailableError(res.StatusCode, fmt.Errorf("got status code %d: %s", res.StatusCode, res.Status))
			if retrier.ShouldRetry(ctx, svcErr, attempt) && (maxAttempts <= 0 || attempt < maxAttempts) {
				if waitErr := retrier.Wait(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return svcErr
		}

		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return fmt.Errorf("%w: got status code %d: %s", protocol.ErrInvalidServerStatus, res.StatusCode, res.Status)
		}

		if readErr != nil {
			return readErr
		}

		logger.Debug("SmartInfo response", "status", res.StatusCode, "responseSize", len(body))
		return nil
	}
}
