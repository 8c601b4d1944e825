// Package index implements the Package Index: a pluggable-source-backed,
// TTL-cached view of package metadata, with a constraint-evaluation cache
// and provides/replaces tracking (spec §4.2).
package index

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/libretto-pm/libretto/internal/version"
	"golang.org/x/sync/errgroup"
)

const numShards = 32

// PackageSource is the pluggable backend an Index fetches through on a
// cache miss. A nil entry with a nil error means the package genuinely
// doesn't exist (a cacheable negative); a non-nil error means a transient
// failure that should not be cached.
type PackageSource interface {
	Fetch(ctx context.Context, name string) (*PackageEntry, error)
}

// ProviderSource is an optional PackageSource capability mirroring
// Packagist's provider-includes metadata: given a virtual package name
// (one nothing `Fetch`es directly, such as a psr/*-implementation), it
// returns the real package names known to provide or replace it, so the
// Index can warm its provides/replaces tables without the caller having
// requested those packages by name first.
type ProviderSource interface {
	Providers(ctx context.Context, virtualName string) ([]string, error)
}

// Stats holds the Index's monotonically increasing counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Fetches   uint64
	FetchErrs uint64
}

type entryCache struct {
	mu    sync.RWMutex
	m     map[string]*entryCacheItem
	order []string
}

type entryCacheItem struct {
	entry      *PackageEntry // nil means "known not to exist"
	fetchedAt  time.Time
	insertSeq  uint64
}

type constraintCacheShard struct {
	mu sync.RWMutex
	m  map[string]*constraintCacheItem
}

type constraintCacheItem struct {
	indices []int
	ts      time.Time
}

// Config tunes the Index's cache TTLs and bounds.
type Config struct {
	EntryTTL           time.Duration // default 5 minutes
	ConstraintTTL       time.Duration // default 60 seconds
	MaxEntries          int           // default 10000
	MaxConstraintCached int           // default 50000
}

func (c Config) withDefaults() Config {
	if c.EntryTTL == 0 {
		c.EntryTTL = 5 * time.Minute
	}
	if c.ConstraintTTL == 0 {
		c.ConstraintTTL = 60 * time.Second
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = 10000
	}
	if c.MaxConstraintCached == 0 {
		c.MaxConstraintCached = 50000
	}
	return c
}

// Index is the package metadata cache and lookup surface the resolver
// queries against.
type Index struct {
	cfg    Config
	source PackageSource

	entries    [numShards]*entryCache
	constraint [numShards]*constraintCacheShard

	provides  sync.Map // virtual name -> []Provider
	replaces  sync.Map // replaced name -> []Provider

	seq   uint64
	stats Stats
}

// Provider is a (package, version) pair that satisfies a virtual package
// name through `provides` or `replaces`.
type Provider struct {
	Package string
	Version *version.Version
}

// New builds an Index backed by source.
func New(source PackageSource, cfg Config) *Index {
	idx := &Index{cfg: cfg.withDefaults(), source: source}
	for i := range idx.entries {
		idx.entries[i] = &entryCache{m: make(map[string]*entryCacheItem)}
		idx.constraint[i] = &constraintCacheShard{m: make(map[string]*constraintCacheItem)}
	}
	return idx
}

func shardFor(name string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(name); i++ {
		h ^= uint32(name[i])
		h *= 16777619
	}
	return h % numShards
}

// Get returns name's PackageEntry, fetching through the source on a cache
// miss or stale entry. A nil, nil result means the package doesn't exist.
func (idx *Index) Get(ctx context.Context, name string) (*PackageEntry, error) {
	shard := idx.entries[shardFor(name)]

	shard.mu.RLock()
	item, ok := shard.m[name]
	shard.mu.RUnlock()
	if ok && time.Since(item.fetchedAt) < idx.cfg.EntryTTL {
		atomic.AddUint64(&idx.stats.Hits, 1)
		return item.entry, nil
	}

	atomic.AddUint64(&idx.stats.Misses, 1)
	atomic.AddUint64(&idx.stats.Fetches, 1)
	entry, err := idx.source.Fetch(ctx, name)
	if err != nil {
		atomic.AddUint64(&idx.stats.FetchErrs, 1)
		if ok {
			// Serve the stale entry rather than propagate a transient fetch
			// failure, matching the fetcher's own stale-on-error contract.
			return item.entry, nil
		}
		return nil, err
	}

	idx.store(shard, name, entry)
	if entry != nil {
		idx.recordProvidesReplaces(entry)
	} else if ps, ok := idx.source.(ProviderSource); ok {
		idx.warmProviders(ctx, name, ps)
	}
	return entry, nil
}

// warmProviders resolves a virtual package name's real providers/replacers
// through the source's ProviderSource capability and fetches each one, so
// their provides/replaces entries land in idx.provides/idx.replaces even
// though nothing ever asked for them by name directly.
func (idx *Index) warmProviders(ctx context.Context, virtualName string, ps ProviderSource) {
	names, err := ps.Providers(ctx, virtualName)
	if err != nil {
		return
	}
	for _, n := range names {
		_, _ = idx.Get(ctx, n)
	}
}

func (idx *Index) store(shard *entryCache, name string, entry *PackageEntry) {
	shard.mu.Lock()
	defer shard.mu.Unlock()
	seq := atomic.AddUint64(&idx.seq, 1)
	if _, exists := shard.m[name]; !exists {
		shard.order = append(shard.order, name)
	}
	shard.m[name] = &entryCacheItem{entry: entry, fetchedAt: time.Now(), insertSeq: seq}
	if len(shard.m) > idx.cfg.MaxEntries/numShards+1 {
		evictOldestQuarter(shard)
	}
}

func evictOldestQuarter(shard *entryCache) {
	sort.Slice(shard.order, func(i, j int) bool {
		return shard.m[shard.order[i]].insertSeq < shard.m[shard.order[j]].insertSeq
	})
	cut := len(shard.order) / 4
	for i := 0; i < cut; i++ {
		delete(shard.m, shard.order[i])
	}
	shard.order = append([]string(nil), shard.order[cut:]...)
}

func (idx *Index) recordProvidesReplaces(entry *PackageEntry) {
	for _, pv := range entry.Versions {
		for virtual := range pv.Provides {
			idx.appendProvider(&idx.provides, virtual, Provider{Package: entry.Name, Version: pv.Version})
		}
		for replaced := range pv.Replaces {
			idx.appendProvider(&idx.replaces, replaced, Provider{Package: entry.Name, Version: pv.Version})
		}
	}
}

func (idx *Index) appendProvider(m *sync.Map, key string, p Provider) {
	for {
		existing, _ := m.Load(key)
		var list []Provider
		if existing != nil {
			list = existing.([]Provider)
		}
		for _, e := range list {
			if e.Package == p.Package && e.Version.Equal(p.Version) {
				return
			}
		}
		updated := append(append([]Provider{}, list...), p)
		if m.CompareAndSwap(key, existing, updated) {
			return
		}
	}
}

// GetProviders returns every (package, version) that provides the virtual
// package name.
func (idx *Index) GetProviders(name string) []Provider {
	v, ok := idx.provides.Load(name)
	if !ok {
		return nil
	}
	return v.([]Provider)
}

// GetReplacers returns every (package, version) that replaces name.
func (idx *Index) GetReplacers(name string) []Provider {
	v, ok := idx.replaces.Load(name)
	if !ok {
		return nil
	}
	return v.([]Provider)
}

// GetMatchingVersions returns the versions of name that satisfy c, using
// (and populating) the constraint-evaluation cache: the cache stores only
// indices into the entry's version list plus a timestamp, never copies of
// the versions themselves, per spec §3's ownership note.
func (idx *Index) GetMatchingVersions(ctx context.Context, name string, c *version.Constraint) ([]*version.Version, error) {
	entry, err := idx.Get(ctx, name)
	if err != nil || entry == nil {
		return nil, err
	}

	cshard := idx.constraint[shardFor(name)]
	key := name + "\x00" + c.String()

	cshard.mu.RLock()
	item, ok := cshard.m[key]
	cshard.mu.RUnlock()
	if ok && time.Since(item.ts) < idx.cfg.ConstraintTTL {
		return resolveIndices(entry, item.indices), nil
	}

	indices := entry.MatchingIndices(c)
	cshard.mu.Lock()
	if len(cshard.m) >= idx.cfg.MaxConstraintCached/numShards+1 {
		evictOldestConstraintQuarter(cshard)
	}
	cshard.m[key] = &constraintCacheItem{indices: indices, ts: time.Now()}
	cshard.mu.Unlock()

	return resolveIndices(entry, indices), nil
}

func evictOldestConstraintQuarter(shard *constraintCacheShard) {
	type kv struct {
		key string
		ts  time.Time
	}
	all := make([]kv, 0, len(shard.m))
	for k, v := range shard.m {
		all = append(all, kv{k, v.ts})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ts.Before(all[j].ts) })
	cut := len(all) / 4
	for i := 0; i < cut; i++ {
		delete(shard.m, all[i].key)
	}
}

func resolveIndices(entry *PackageEntry, indices []int) []*version.Version {
	out := make([]*version.Version, len(indices))
	for i, idx := range indices {
		out[i] = entry.Versions[idx].Version
	}
	return out
}

// Prefetch issues parallel fetches for every name not already cached.
func (idx *Index) Prefetch(ctx context.Context, names []string) error {
	g, gctx := errgroup.WithContext(ctx)
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		name := n
		if seen[name] {
			continue
		}
		seen[name] = true
		shard := idx.entries[shardFor(name)]
		shard.mu.RLock()
		item, ok := shard.m[name]
		shard.mu.RUnlock()
		if ok && time.Since(item.fetchedAt) < idx.cfg.EntryTTL {
			continue
		}
		g.Go(func() error {
			_, err := idx.Get(gctx, name)
			return err
		})
	}
	return g.Wait()
}

// Stats returns a snapshot of the index's counters.
func (idx *Index) Stats() Stats {
	return Stats{
		Hits:      atomic.LoadUint64(&idx.stats.Hits),
		Misses:    atomic.LoadUint64(&idx.stats.Misses),
		Fetches:   atomic.LoadUint64(&idx.stats.Fetches),
		FetchErrs: atomic.LoadUint64(&idx.stats.FetchErrs),
	}
}
