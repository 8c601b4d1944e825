package fetcher

import (
	"os"
	"path/filepath"
	"time"
)

// diskEntry is what's persisted per package: the raw (already-decoded)
// response body plus the ETag needed for conditional revalidation.
type diskEntry struct {
	body    []byte
	etag    string
	modTime time.Time
}

func (c *Client) bodyPath(name string) string {
	return filepath.Join(c.cfg.CacheDir, cacheKey(name)+".json")
}

func (c *Client) etagPath(name string) string {
	return filepath.Join(c.cfg.CacheDir, cacheKey(name)+".etag")
}

// readDiskCache loads name's cached body and ETag, if present. A missing
// cache file is not an error: (nil, false) is returned.
func (c *Client) readDiskCache(name string) (*diskEntry, bool) {
	bodyPath := c.bodyPath(name)
	info, err := os.Stat(bodyPath)
	if err != nil {
		return nil, false
	}
	body, err := os.ReadFile(bodyPath)
	if err != nil {
		return nil, false
	}
	etag, _ := os.ReadFile(c.etagPath(name))
	return &diskEntry{body: body, etag: string(etag), modTime: info.ModTime()}, true
}

// writeDiskCache overwrites name's cached body and ETag and touches both
// files' mtimes to now.
func (c *Client) writeDiskCache(name string, body []byte, etag string) error {
	if err := os.MkdirAll(c.cfg.CacheDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(c.bodyPath(name), body, 0o644); err != nil {
		return err
	}
	if etag != "" {
		if err := os.WriteFile(c.etagPath(name), []byte(etag), 0o644); err != nil {
			return err
		}
	} else {
		_ = os.Remove(c.etagPath(name))
	}
	return nil
}

// touch resets name's cache file mtime to now, marking a 304 revalidation
// as fresh again without rewriting the body.
func (c *Client) touch(name string) {
	now := time.Now()
	_ = os.Chtimes(c.bodyPath(name), now, now)
}
