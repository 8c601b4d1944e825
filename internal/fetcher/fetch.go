package fetcher

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/libretto-pm/libretto/internal/index"
)

type result struct {
	entry *index.PackageEntry
}

// Fetch retrieves name's package metadata, implementing index.PackageSource.
//
// Within the freshness window, a cached body is returned without touching
// the network. Beyond it, a conditional request is sent; a 304 refreshes
// the cache's freshness without a new body, a 2xx replaces it. A 404
// reports the package as genuinely absent ((nil, nil), the Index's
// cacheable-negative contract), and so does any other non-2xx status. A
// request that fails without a response degrades to the stale cached body
// if one exists (recorded as a degraded read) rather than failing the
// caller; with no cache to fall back on, that error is propagated.
func (c *Client) Fetch(ctx context.Context, name string) (*index.PackageEntry, error) {
	r, err := c.fetchDeduped(ctx, name)
	if err != nil {
		return nil, err
	}
	return r.entry, nil
}

func (c *Client) fetchDeduped(ctx context.Context, name string) (result, error) {
	c.inflightMu.Lock()
	if f, ok := c.inflight[name]; ok {
		c.inflightMu.Unlock()
		<-f.done
		return f.entry, f.err
	}
	f := &inflightFetch{done: make(chan struct{})}
	c.inflight[name] = f
	c.inflightMu.Unlock()

	f.entry, f.err = c.fetchOne(ctx, name)

	c.inflightMu.Lock()
	delete(c.inflight, name)
	c.inflightMu.Unlock()
	close(f.done)

	return f.entry, f.err
}

func (c *Client) fetchOne(ctx context.Context, name string) (result, error) {
	cached, hasCache := c.readDiskCache(name)
	if hasCache && time.Since(cached.modTime) < c.cfg.Freshness {
		atomic.AddUint64(&c.stats.CacheHits, 1)
		return c.toResult(name, cached.body)
	}

	body, notFound, revalidated, fetchErr := c.revalidate(ctx, name, cached)
	if fetchErr == nil {
		if revalidated {
			atomic.AddUint64(&c.stats.Revalidated, 1)
			c.touch(name)
		}
		if notFound {
			return result{}, nil
		}
		if revalidated {
			return c.toResult(name, cached.body)
		}
		return c.toResult(name, body)
	}

	atomic.AddUint64(&c.stats.Errors, 1)
	c.log.WithError(fetchErr).WithField("package", name).Warn("metadata fetcher: request failed")
	if hasCache {
		atomic.AddUint64(&c.stats.Degraded, 1)
		return c.toResult(name, cached.body)
	}
	return result{}, fetchErr
}

// revalidate performs the conditional GET, returning the body to use, a
// notFound flag for a 404/non-2xx response, whether a 304 revalidation
// occurred, and any request-level error.
func (c *Client) revalidate(ctx context.Context, name string, cached *diskEntry) (body []byte, notFound, revalidated bool, err error) {
	u, err := c.metadataURL(name)
	if err != nil {
		return nil, false, false, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.TotalTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, false, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept-Encoding", acceptEncodingHeader)
	if cached != nil {
		if cached.etag != "" {
			req.Header.Set("If-None-Match", cached.etag)
		}
		req.Header.Set("If-Modified-Since", cached.modTime.UTC().Format(http.TimeFormat))
	}

	atomic.AddUint64(&c.stats.Requests, 1)
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, false, false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining for connection reuse
		return nil, false, true, nil
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, true, false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := decodeBody(resp)
		if err != nil {
			return nil, false, false, err
		}
		atomic.AddUint64(&c.stats.Bytes, uint64(len(body)))
		if err := c.writeDiskCache(name, body, resp.Header.Get("ETag")); err != nil {
			return nil, false, false, err
		}
		return body, false, false, nil
	default:
		c.log.WithField("package", name).WithField("status", resp.StatusCode).
			Warn("metadata fetcher: non-2xx response")
		return nil, true, false, nil
	}
}

func (c *Client) toResult(name string, body []byte) (result, error) {
	if body == nil {
		return result{}, nil
	}
	entry, err := c.parseMetadata(name, body)
	if err != nil {
		return result{}, err
	}
	return result{entry: entry}, nil
}
