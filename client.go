// Package nanogit implements a Git Smart HTTP protocol v2 client, read-only:
// ref discovery (ls-refs) and object retrieval (fetch) without push/write
// support. See protocol/client for the transport binding this wraps and
// protocol for the wire codec and PACK decoder underneath it.
package nanogit

import (
	"context"
	"fmt"

	"github.com/anni-dev/anni-fetch/log"
	"github.com/anni-dev/anni-fetch/options"
	"github.com/anni-dev/anni-fetch/protocol"
	"github.com/anni-dev/anni-fetch/protocol/client"
	"github.com/anni-dev/anni-fetch/protocol/hash"
	"github.com/anni-dev/anni-fetch/retry"
	"github.com/anni-dev/anni-fetch/storage"
	"golang.org/x/sync/errgroup"
)

// Client is the read-only porcelain over protocol/client.RawClient: ref
// listing and object fetch, stitched into a single Clone call for the
// common "give me every object reachable from this ref" case.
type Client interface {
	// IsAuthorized checks if the client can successfully communicate with the Git server.
	IsAuthorized(ctx context.Context) (bool, error)

	// ListRefs returns every ref the server advertises under ls-refs.
	ListRefs(ctx context.Context, prefix string) ([]protocol.RefLine, error)

	// Fetch retrieves the objects reachable from want, optionally through
	// the configured storage cache.
	Fetch(ctx context.Context, opts client.FetchOptions) (map[string]*protocol.PackfileObject, error)

	// Clone resolves prefix to refs and fetches every object they advertise,
	// running the authorization probe and ref listing concurrently.
	Clone(ctx context.Context, prefix string) (*CloneResult, error)
}

// CloneResult is the outcome of Clone: the refs advertised under prefix and
// the full set of objects fetched for them.
type CloneResult struct {
	Refs    []protocol.RefLine
	Objects map[string]*protocol.PackfileObject
}

type clientImpl struct {
	raw client.RawClient
}

// NewClient creates a read-only Client for the given repository URL. Options
// are the same options.Option values accepted by protocol/client.NewRawClient
// (auth, HTTP client, user agent).
func NewClient(repo string, opts ...options.Option) (Client, error) {
	raw, err := client.NewRawClient(repo, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating raw client: %w", err)
	}

	return &clientImpl{raw: raw}, nil
}

func (c *clientImpl) IsAuthorized(ctx context.Context) (bool, error) {
	return c.raw.IsAuthorized(ctx)
}

func (c *clientImpl) ListRefs(ctx context.Context, prefix string) ([]protocol.RefLine, error) {
	return c.raw.LsRefs(ctx, client.LsRefsOptions{Prefix: prefix})
}

func (c *clientImpl) Fetch(ctx context.Context, opts client.FetchOptions) (map[string]*protocol.PackfileObject, error) {
	return c.raw.Fetch(ctx, opts)
}

// Clone runs the authorization probe and ls-refs concurrently (errgroup),
// since neither depends on the other's result, then fetches every advertised
// ref's object in one command=fetch request.
func (c *clientImpl) Clone(ctx context.Context, prefix string) (*CloneResult, error) {
	logger := log.FromContext(ctx)

	var refs []protocol.RefLine

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		authorized, err := c.raw.IsAuthorized(gctx)
		if err != nil {
			return fmt.Errorf("checking authorization: %w", err)
		}
		if !authorized {
			return fmt.Errorf("not authorized")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		refs, err = c.raw.LsRefs(gctx, client.LsRefsOptions{Prefix: prefix})
		if err != nil {
			return fmt.Errorf("listing refs: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	want := make([]hash.Hash, 0, len(refs))
	for _, ref := range refs {
		h, err := hash.FromHex(ref.Hash)
		if err != nil {
			return nil, fmt.Errorf("parsing ref hash %q: %w", ref.Hash, err)
		}
		want = append(want, h)
	}

	logger.Debug("Clone", "prefix", prefix, "refCount", len(refs))

	objects, err := c.raw.Fetch(ctx, client.FetchOptions{Want: want, Done: true})
	if err != nil {
		return nil, fmt.Errorf("fetching objects: %w", err)
	}

	return &CloneResult{Refs: refs, Objects: objects}, nil
}

// WithRetry injects retrier into ctx so every protocol/client HTTP call made
// through it retries transient failures per retrier's policy.
func WithRetry(ctx context.Context, retrier retry.Retrier) context.Context {
	return retry.ToContext(ctx, retrier)
}

// WithStorage injects a packfile cache into ctx so Fetch consults it before
// issuing a command=fetch request and populates it with whatever it decodes.
func WithStorage(ctx context.Context, s storage.PackfileStorage) context.Context {
	return storage.ToContext(ctx, s)
}

// WithLogger injects logger into ctx for every protocol/client call made through it.
func WithLogger(ctx context.Context, logger log.Logger) context.Context {
	return log.ToContext(ctx, logger)
}
