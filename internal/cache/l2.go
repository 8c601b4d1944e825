package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/libretto-pm/libretto/internal/integrity"
	"github.com/libretto-pm/libretto/internal/libretr"
	"go.etcd.io/bbolt"
)

var entriesBucket = []byte("entries")

// l2Meta is the per-entry record kept in the bbolt index: everything
// except the blob bytes themselves, which live in the sharded object tree.
type l2Meta struct {
	Type         string            `json:"type"`
	Size         int               `json:"size"`
	OriginalSize int               `json:"original_size"`
	Compressed   bool              `json:"compressed"`
	TTL          time.Duration     `json:"ttl"`
	AccessedAt   time.Time         `json:"accessed_at"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// l2Store is the on-disk content-addressed tier: blobs live under
// objects/<first-2-hex-chars>/<full-hex-hash>, sharded by the hash's first
// byte to bound per-shard lock contention; an embedded bbolt index tracks
// metadata for every stored key, mirroring golang-dep's bolt-backed
// source cache.
type l2Store struct {
	root       string
	db         *bbolt.DB
	shardLocks [256]sync.Mutex
}

func openL2Store(root string) (*l2Store, error) {
	if err := os.MkdirAll(filepath.Join(root, "objects"), 0o755); err != nil {
		return nil, libretr.Wrap(libretr.CodeCache, err, "creating cache object tree")
	}
	db, err := bbolt.Open(filepath.Join(root, "index.bin"), 0o644, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, libretr.Wrap(libretr.CodeCache, err, "opening cache index")
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, libretr.Wrap(libretr.CodeCache, err, "initializing cache index")
	}
	return &l2Store{root: root, db: db}, nil
}

func (l *l2Store) close() error { return l.db.Close() }

func (l *l2Store) objectPath(hex string) string {
	return filepath.Join(l.root, "objects", hex[:2], hex)
}

func (l *l2Store) lockFor(hash integrity.ContentHash) *sync.Mutex {
	return &l.shardLocks[hash[0]]
}

func (l *l2Store) write(hash integrity.ContentHash, payload []byte, meta l2Meta) error {
	mu := l.lockFor(hash)
	mu.Lock()
	defer mu.Unlock()

	hex := hash.String()
	dir := filepath.Join(l.root, "objects", hex[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := l.objectPath(hex)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	return l.putMeta(hex, meta)
}

func (l *l2Store) putMeta(hex string, meta l2Meta) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return l.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(entriesBucket).Put([]byte(hex), b)
	})
}

func (l *l2Store) read(hash integrity.ContentHash) ([]byte, l2Meta, bool, error) {
	mu := l.lockFor(hash)
	mu.Lock()
	defer mu.Unlock()

	hex := hash.String()
	var meta l2Meta
	var found bool
	err := l.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(entriesBucket).Get([]byte(hex))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &meta)
	})
	if err != nil || !found {
		return nil, l2Meta{}, false, err
	}

	data, err := os.ReadFile(l.objectPath(hex))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, l2Meta{}, false, nil
		}
		return nil, l2Meta{}, false, err
	}
	meta.AccessedAt = time.Now()
	_ = l.putMeta(hex, meta)
	return data, meta, true, nil
}

func (l *l2Store) contains(hash integrity.ContentHash) (bool, error) {
	hex := hash.String()
	var found bool
	err := l.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(entriesBucket).Get([]byte(hex)) != nil
		return nil
	})
	return found, err
}

func (l *l2Store) remove(hash integrity.ContentHash) bool {
	mu := l.lockFor(hash)
	mu.Lock()
	defer mu.Unlock()

	hex := hash.String()
	var existed bool
	_ = l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		if b.Get([]byte(hex)) != nil {
			existed = true
		}
		return b.Delete([]byte(hex))
	})
	if existed {
		_ = os.Remove(l.objectPath(hex))
	}
	return existed
}

type l2Record struct {
	hash integrity.ContentHash
	meta l2Meta
}

func (l *l2Store) all() []l2Record {
	var out []l2Record
	_ = l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(entriesBucket).ForEach(func(k, v []byte) error {
			var m l2Meta
			if err := json.Unmarshal(v, &m); err != nil {
				return nil
			}
			if h, ok := integrity.ParseContentHash(string(k)); ok {
				out = append(out, l2Record{hash: h, meta: m})
			}
			return nil
		})
	})
	return out
}

func (l *l2Store) keysOfType(entryType string) []integrity.ContentHash {
	var out []integrity.ContentHash
	for _, r := range l.all() {
		if r.meta.Type == entryType {
			out = append(out, r.hash)
		}
	}
	return out
}

func (l *l2Store) allHashes() []integrity.ContentHash {
	recs := l.all()
	out := make([]integrity.ContentHash, len(recs))
	for i, r := range recs {
		out[i] = r.hash
	}
	return out
}

// gc expires TTL'd entries, then evicts least-recently-accessed entries
// until total size is under maxBytes, per spec §4.4.
func (l *l2Store) gc(maxBytes int64) (removed []integrity.ContentHash, bytesFreed int64) {
	now := time.Now()
	var live []l2Record
	for _, r := range l.all() {
		if r.meta.TTL > 0 && now.After(r.meta.AccessedAt.Add(r.meta.TTL)) {
			if l.remove(r.hash) {
				removed = append(removed, r.hash)
				bytesFreed += int64(r.meta.Size)
			}
			continue
		}
		live = append(live, r)
	}

	var total int64
	for _, r := range live {
		total += int64(r.meta.Size)
	}
	if total <= maxBytes {
		return removed, bytesFreed
	}

	sort.Slice(live, func(i, j int) bool { return live[i].meta.AccessedAt.Before(live[j].meta.AccessedAt) })
	for _, r := range live {
		if total <= maxBytes {
			break
		}
		if l.remove(r.hash) {
			removed = append(removed, r.hash)
			bytesFreed += int64(r.meta.Size)
			total -= int64(r.meta.Size)
		}
	}
	return removed, bytesFreed
}
