package cache

import (
	"io"
	"os"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/libretto-pm/libretto/internal/integrity"
	"github.com/sirupsen/logrus"
)

const (
	bloomMagic         = "LBRTAUTL"
	bloomFormatVersion = byte(1)
	bloomDefaultN      = 100000
	bloomDefaultFP     = 0.01
)

// bloomGuard is the negative-cache fast-path in front of L2: a possible
// miss can skip the disk entirely, a possible hit still needs confirming
// against L2's index, per spec §4.4.
type bloomGuard struct {
	mu     sync.RWMutex
	path   string
	filter *bloom.BloomFilter
	log    *logrus.Entry
}

func loadOrNewBloomGuard(path string, log *logrus.Entry) *bloomGuard {
	g := &bloomGuard{path: path, log: log}
	if filter, ok := readBloomFile(path, log); ok {
		g.filter = filter
		return g
	}
	g.filter = bloom.NewWithEstimates(bloomDefaultN, bloomDefaultFP)
	return g
}

func readBloomFile(path string, log *logrus.Entry) (*bloom.BloomFilter, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	header := make([]byte, len(bloomMagic)+1)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, false
	}
	if string(header[:len(bloomMagic)]) != bloomMagic || header[len(bloomMagic)] != bloomFormatVersion {
		log.Warn("cache bloom filter has a mismatched magic or version, discarding")
		return nil, false
	}

	filter := &bloom.BloomFilter{}
	if _, err := filter.ReadFrom(f); err != nil {
		log.WithError(err).Warn("cache bloom filter is corrupt, discarding")
		return nil, false
	}
	return filter, true
}

func (g *bloomGuard) mightContain(hash integrity.ContentHash) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.filter.Test(hash[:])
}

func (g *bloomGuard) add(hash integrity.ContentHash) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filter.Add(hash[:])
}

// rebuild replaces the filter from scratch, used after bulk removals
// (spec §4.4: "Rebuilt from L2 index after bulk removals >100 entries").
func (g *bloomGuard) rebuild(hashes []integrity.ContentHash) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := uint(len(hashes))
	if n < 1000 {
		n = 1000
	}
	g.filter = bloom.NewWithEstimates(n, bloomDefaultFP)
	for _, h := range hashes {
		g.filter.Add(h[:])
	}
}

func (g *bloomGuard) save() {
	g.mu.RLock()
	defer g.mu.RUnlock()
	f, err := os.Create(g.path)
	if err != nil {
		if g.log != nil {
			g.log.WithError(err).Warn("failed to persist cache bloom filter")
		}
		return
	}
	defer f.Close()

	header := append([]byte(bloomMagic), bloomFormatVersion)
	if _, err := f.Write(header); err != nil {
		return
	}
	_, _ = g.filter.WriteTo(f)
}
