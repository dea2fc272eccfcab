package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/anni-dev/anni-fetch/log"
	"github.com/anni-dev/anni-fetch/protocol"
	"github.com/anni-dev/anni-fetch/retry"
)

// UploadPack sends a POST request to the git-upload-pack endpoint and
// returns the response body for the caller to drain and close. This is the
// sole transport used for both ls-refs and fetch command bodies (spec.md
// §6): the command body is pre-composed in memory, not streamed, so a
// failed attempt can be resent verbatim.
//
// Only transport-level failures (the request never reaching a server) are
// retried through the context's retry.Retrier. A non-2xx HTTP response is
// never retried here: the request body has already been sent, and resending
// it on a 5xx is the caller's decision, not this method's.
func (c *rawClient) UploadPack(ctx context.Context, data io.Reader) (io.ReadCloser, error) {
	body, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	// NOTE: This path is defined in the protocol-v2 spec as required under $GIT_URL/git-upload-pack.
	// See: https://git-scm.com/docs/protocol-v2#_http_transport
	u := c.base.JoinPath("git-upload-pack").String()

	logger := log.FromContext(ctx)
	retrier := retry.FromContextOrNoop(ctx)
	maxAttempts := retrier.MaxAttempts()

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-git-upload-pack-request")
		c.addDefaultHeaders(req)

		logger.Debug("Upload-pack", "url", u, "requestSize", len(body), "attempt", attempt)

		res, err := c.client.Do(req)
		if err != nil {
			if retrier.ShouldRetry(ctx, err, attempt) && (maxAttempts <= 0 || attempt < maxAttempts) {
				if waitErr := retrier.Wait(ctx, attempt); waitErr != nil {
					return nil, waitErr
				}
				continue
			}
			return nil, err
		}

		if res.StatusCode < 200 || res.StatusCode >= 300 {
			defer res.Body.Close()
			return nil, fmt.Errorf("%w: got status code %d: %s", protocol.ErrInvalidServerStatus, res.StatusCode, res.Status)
		}

		logger.Debug("Upload-pack response", "status", res.StatusCode, "statusText", res.Status)
		return res.Body, nil
	}
}
