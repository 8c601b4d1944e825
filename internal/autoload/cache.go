package autoload

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"time"

	"github.com/libretto-pm/libretto/internal/libretr"
	"github.com/libretto-pm/libretto/internal/lockfile"
)

var scanCacheMagic = [8]byte{'L', 'B', 'R', 'T', 'A', 'U', 'T', 'L'}

const scanCacheVersion uint32 = 1

// scanCacheEntry is one file's record in the incremental scan cache: the
// mtime and fingerprint let Generate skip re-parsing files that haven't
// semantically changed since the last run.
type scanCacheEntry struct {
	ModTime     int64    `json:"mtime"`
	Fingerprint string   `json:"fingerprint"`
	Classes     []string `json:"classes"`
}

// scanCache is the on-disk incremental cache, keyed by vendor-root-relative
// path.
type scanCache struct {
	Entries map[string]scanCacheEntry `json:"entries"`
}

func newScanCache() *scanCache {
	return &scanCache{Entries: map[string]scanCacheEntry{}}
}

// loadScanCache reads path's cache file. A missing file, a magic
// mismatch, or a version mismatch all produce a fresh empty cache rather
// than an error, per spec §4.7: "mismatched version triggers full
// rescan."
func loadScanCache(path string) *scanCache {
	data, err := os.ReadFile(path)
	if err != nil {
		return newScanCache()
	}
	if len(data) < 12 {
		return newScanCache()
	}
	if !bytes.Equal(data[:8], scanCacheMagic[:]) {
		return newScanCache()
	}
	version := binary.BigEndian.Uint32(data[8:12])
	if version != scanCacheVersion {
		return newScanCache()
	}

	var c scanCache
	if err := json.Unmarshal(data[12:], &c); err != nil {
		return newScanCache()
	}
	if c.Entries == nil {
		c.Entries = map[string]scanCacheEntry{}
	}
	return &c
}

// save writes the cache atomically via the lockfile package's
// write-fsync-verify-rename protocol, since this cache is as much a
// correctness-bearing artifact as the lock file itself: a torn write
// here would silently skip re-scanning a changed file.
func (c *scanCache) save(path string) error {
	body, err := json.Marshal(c)
	if err != nil {
		return libretr.Wrap(libretr.CodeIO, err, "encoding autoload scan cache")
	}

	var buf bytes.Buffer
	buf.Write(scanCacheMagic[:])
	var versionBytes [4]byte
	binary.BigEndian.PutUint32(versionBytes[:], scanCacheVersion)
	buf.Write(versionBytes[:])
	buf.Write(body)

	return lockfile.WriteFile(path, buf.Bytes())
}

// unchanged reports whether relPath's cached record still matches a file
// whose modification time is modTime. Only the mtime is compared; the
// stored fingerprint is not consulted, so a touch with no content change
// still counts as changed.
func (c *scanCache) unchanged(relPath string, modTime time.Time) (scanCacheEntry, bool) {
	entry, ok := c.Entries[relPath]
	if !ok {
		return scanCacheEntry{}, false
	}
	return entry, entry.ModTime == modTime.UnixNano()
}

func (c *scanCache) put(relPath string, modTime time.Time, fingerprint string, classes []string) {
	c.Entries[relPath] = scanCacheEntry{
		ModTime:     modTime.UnixNano(),
		Fingerprint: fingerprint,
		Classes:     append([]string(nil), classes...),
	}
}
