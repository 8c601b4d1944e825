// Package cache implements Libretto's tiered content-addressed cache: an
// in-memory LRU (L1) in front of an on-disk sharded store (L2), with an
// optional bloom filter for fast negative lookups, per spec §4.4.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/libretto-pm/libretto/internal/integrity"
	"github.com/libretto-pm/libretto/internal/libretr"
	"github.com/sirupsen/logrus"
)

const (
	compressionThreshold         = 1024 // bytes; below this, compression is never attempted
	bulkRemovalRebuildThreshold  = 100
	defaultL1MaxBytes      int64 = 64 << 20
	defaultL2MaxBytes      int64 = 1 << 30
	defaultGCInterval            = 10 * time.Minute
)

// Config tunes a Cache's storage budgets and maintenance schedule.
type Config struct {
	Root         string
	L1MaxBytes   int64
	L2MaxBytes   int64
	GCInterval   time.Duration // 0 selects the default; negative disables background GC
	DisableBloom bool
}

func (c Config) withDefaults() Config {
	if c.L1MaxBytes == 0 {
		c.L1MaxBytes = defaultL1MaxBytes
	}
	if c.L2MaxBytes == 0 {
		c.L2MaxBytes = defaultL2MaxBytes
	}
	if c.GCInterval == 0 {
		c.GCInterval = defaultGCInterval
	}
	return c
}

// GcResult summarizes one garbage-collection pass.
type GcResult struct {
	Removed    int
	BytesFreed int64
}

// Cache is the tiered L1+L2(+bloom) cache.
type Cache struct {
	cfg Config
	log *logrus.Entry

	l1    *l1Cache
	l2    *l2Store
	bloom *bloomGuard

	removalsSinceRebuild int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Open creates or attaches to a cache rooted at cfg.Root, starting the
// background GC loop if cfg.GCInterval is positive.
func Open(cfg Config, log *logrus.Entry) (*Cache, error) {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, libretr.Wrap(libretr.CodeCache, err, "creating cache root")
	}

	l2, err := openL2Store(cfg.Root)
	if err != nil {
		return nil, err
	}

	c := &Cache{cfg: cfg, log: log, l1: newL1Cache(cfg.L1MaxBytes), l2: l2}
	if !cfg.DisableBloom {
		c.bloom = loadOrNewBloomGuard(filepath.Join(cfg.Root, "bloom.bin"), log)
	}
	if cfg.GCInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.wg.Add(1)
		go c.gcLoop(ctx)
	}
	return c, nil
}

// Close cancels background maintenance, flushes the bloom filter to disk,
// and closes the L2 index.
func (c *Cache) Close() error {
	if c.cancel != nil {
		c.cancel()
		c.wg.Wait()
	}
	if c.bloom != nil {
		c.bloom.save()
	}
	return c.l2.close()
}

func (c *Cache) gcLoop(ctx context.Context) {
	defer c.wg.Done()
	t := time.NewTicker(c.cfg.GCInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := c.GC(); err != nil {
				c.log.WithError(err).Warn("cache gc pass failed")
			}
		}
	}
}

// Get returns hash's bytes, checking L1, then the bloom filter for a fast
// negative, then L2 (promoting back to L1 on a hit). A single L2 read
// error degrades to a miss rather than propagating, per spec §4.4.
func (c *Cache) Get(hash integrity.ContentHash) ([]byte, bool, error) {
	if data, ok := c.l1.get(hash); ok {
		return data, true, nil
	}
	if c.bloom != nil && !c.bloom.mightContain(hash) {
		return nil, false, nil
	}

	raw, _, ok, err := c.l2.read(hash)
	if err != nil {
		c.log.WithError(err).WithField("hash", hash.String()).Warn("l2 read failed, treating as a miss")
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}

	data, err := maybeDecompress(raw)
	if err != nil {
		c.log.WithError(err).WithField("hash", hash.String()).Warn("cache entry failed to decompress, evicting")
		c.l2.remove(hash)
		return nil, false, libretr.Wrap(libretr.CodeCache, err, "decompressing cache entry")
	}

	c.l1.put(hash, data, len(data), false)
	return data, true, nil
}

// Put computes bytes' content hash, persists it to L2 (compressing first
// if that strictly shrinks the payload), promotes it into L1, and updates
// the bloom filter.
func (c *Cache) Put(data []byte, entryType string, ttl time.Duration, metadata map[string]string) (integrity.ContentHash, error) {
	hash := integrity.Hash(data)

	payload := data
	compressed := false
	if len(data) >= compressionThreshold {
		if z, ok := tryCompress(data); ok && len(z) < len(data) {
			payload = z
			compressed = true
		}
	}

	meta := l2Meta{
		Type:         entryType,
		Size:         len(payload),
		OriginalSize: len(data),
		Compressed:   compressed,
		TTL:          ttl,
		AccessedAt:   time.Now(),
		Metadata:     metadata,
	}
	if err := c.l2.write(hash, payload, meta); err != nil {
		return integrity.ContentHash{}, libretr.Wrap(libretr.CodeCache, err, "writing cache entry")
	}

	c.l1.put(hash, data, len(data), false)
	if c.bloom != nil {
		c.bloom.add(hash)
	}
	return hash, nil
}

// Contains reports whether hash is cached, using the bloom filter as a
// fast negative before touching L2.
func (c *Cache) Contains(hash integrity.ContentHash) bool {
	if c.l1.contains(hash) {
		return true
	}
	if c.bloom != nil && !c.bloom.mightContain(hash) {
		return false
	}
	ok, _ := c.l2.contains(hash)
	return ok
}

// Remove evicts hash from both tiers, reporting whether it was present in
// either.
func (c *Cache) Remove(hash integrity.ContentHash) bool {
	removedL1 := c.l1.remove(hash)
	removedL2 := c.l2.remove(hash)
	if removedL1 || removedL2 {
		c.noteRemovals(1)
		return true
	}
	return false
}

// ClearByType removes every entry of entryType, returning the count
// removed.
func (c *Cache) ClearByType(entryType string) int {
	keys := c.l2.keysOfType(entryType)
	for _, h := range keys {
		c.l1.remove(h)
		c.l2.remove(h)
	}
	if len(keys) > 0 {
		c.noteRemovals(len(keys))
	}
	return len(keys)
}

// GC expires TTL'd L2 entries and, if still over budget, evicts the
// least-recently-accessed entries until under the configured L2 limit.
func (c *Cache) GC() (GcResult, error) {
	removed, freed := c.l2.gc(c.cfg.L2MaxBytes)
	for _, h := range removed {
		c.l1.remove(h)
	}
	if len(removed) > 0 {
		c.noteRemovals(len(removed))
	}
	return GcResult{Removed: len(removed), BytesFreed: freed}, nil
}

// noteRemovals tracks bulk deletions and rebuilds the bloom filter once
// more than bulkRemovalRebuildThreshold entries have been removed since
// the last rebuild, per spec §4.4.
func (c *Cache) noteRemovals(n int) {
	if c.bloom == nil {
		return
	}
	total := atomic.AddInt64(&c.removalsSinceRebuild, int64(n))
	if total <= bulkRemovalRebuildThreshold {
		return
	}
	atomic.StoreInt64(&c.removalsSinceRebuild, 0)
	c.bloom.rebuild(c.l2.allHashes())
}
