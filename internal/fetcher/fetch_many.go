package fetcher

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/libretto-pm/libretto/internal/index"
)

// FetchMany fetches every name in parallel, deduplicating concurrent
// requests for the same name (spec §4.5: "fetch_many(names) schedules all
// fetches on the async runtime and awaits them; deduplication is by name").
// It never returns an error: per-name failures are logged and surface as a
// nil entry for that name, matching the "never throws" failure semantics.
func (c *Client) FetchMany(ctx context.Context, names []string) map[string]*index.PackageEntry {
	out := make(map[string]*index.PackageEntry, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, n := range names {
		name := n
		g.Go(func() error {
			entry, err := c.Fetch(gctx, name)
			if err != nil {
				c.log.WithError(err).WithField("package", name).Warn("metadata fetcher: fetch_many entry failed")
				entry = nil
			}
			mu.Lock()
			out[name] = entry
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
