// Package fetcher implements the Metadata Fetcher: an HTTP client with
// conditional revalidation, on-disk ETag/mtime caching, and parallel
// fanout with per-name deduplication, per spec §4.5. It satisfies
// internal/index's PackageSource (and, for repositories that publish a
// provider-includes file, its optional ProviderSource) so an Index can be
// built directly on top of a Client.
package fetcher

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"

	"github.com/sirupsen/logrus"
)

const (
	defaultFreshness     = 5 * time.Minute
	defaultReadTimeout   = 10 * time.Second
	defaultTotalTimeout  = 15 * time.Second
	defaultMaxIdleConns  = 64
	acceptEncodingHeader = "gzip, br, deflate, zstd"
)

// Config tunes a Client's endpoint, cache location, and timeouts.
type Config struct {
	// BaseURL is the repository root, e.g. "https://repo.packagist.org".
	// Package metadata is fetched from BaseURL + "/p2/<name>.json", the
	// Composer v2 metadata layout.
	BaseURL string

	// CacheDir is the directory under which per-package cache and ETag
	// files are written (spec: "<home>/metadata/").
	CacheDir string

	UserAgent string

	// Freshness is how long a cached body is served without even
	// attempting revalidation. Zero uses defaultFreshness.
	Freshness time.Duration

	// ReadTimeout bounds a single response read; TotalTimeout bounds the
	// whole request including connect and TLS handshake.
	ReadTimeout  time.Duration
	TotalTimeout time.Duration

	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	if c.Freshness == 0 {
		c.Freshness = defaultFreshness
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.TotalTimeout == 0 {
		c.TotalTimeout = defaultTotalTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = "Libretto/1.0 (+https://github.com/libretto-pm/libretto)"
	}
	if c.HTTPClient == nil {
		transport := &http.Transport{
			MaxIdleConns:        defaultMaxIdleConns,
			MaxIdleConnsPerHost: defaultMaxIdleConns,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		}
		// ConfigureTransport wires HTTP/2 with adaptive flow-control windows
		// onto the plain http.Transport, per spec §4.5.
		_ = http2.ConfigureTransport(transport)
		c.HTTPClient = &http.Client{Transport: transport, Timeout: c.TotalTimeout}
	}
	return c
}

// Stats holds the Client's monotonically increasing counters (spec §4.5:
// "Monotonic counters for requests, bytes, cache hits, recorded
// atomically").
type Stats struct {
	Requests    uint64
	Bytes       uint64
	CacheHits   uint64
	Revalidated uint64
	Degraded    uint64
	Errors      uint64
}

// Client is the Metadata Fetcher. It is safe for concurrent use; every
// exported method may be called from any number of goroutines.
type Client struct {
	cfg Config
	log *logrus.Entry

	stats Stats

	inflightMu sync.Mutex
	inflight   map[string]*inflightFetch
}

type inflightFetch struct {
	done  chan struct{}
	entry result
	err   error
}

// New builds a Client. log may be nil, in which case a standard logrus
// entry is used.
func New(cfg Config, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{cfg: cfg.withDefaults(), log: log, inflight: make(map[string]*inflightFetch)}
}

// Stats returns a snapshot of the client's counters.
func (c *Client) Stats() Stats {
	return Stats{
		Requests:    atomic.LoadUint64(&c.stats.Requests),
		Bytes:       atomic.LoadUint64(&c.stats.Bytes),
		CacheHits:   atomic.LoadUint64(&c.stats.CacheHits),
		Revalidated: atomic.LoadUint64(&c.stats.Revalidated),
		Degraded:    atomic.LoadUint64(&c.stats.Degraded),
		Errors:      atomic.LoadUint64(&c.stats.Errors),
	}
}

// metadataURL builds the Composer v2 metadata URL for a package name.
func (c *Client) metadataURL(name string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	u.Path = path.Join(u.Path, "p2", name+".json")
	return u.String(), nil
}

// providersURL builds the provider-includes lookup URL for a virtual
// package name. This is Libretto's own repository-side convention for
// discovering which real packages provide or replace a virtual one,
// analogous to Packagist's provider-includes metadata.
func (c *Client) providersURL(virtualName string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	u.Path = path.Join(u.Path, "providers", virtualName+".json")
	return u.String(), nil
}

// cacheKey sanitizes a package name into a filesystem-safe cache file stem.
func cacheKey(name string) string {
	return strings.ReplaceAll(name, "/", "~")
}
