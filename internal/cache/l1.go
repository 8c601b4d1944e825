package cache

import (
	"container/list"
	"sync"

	"github.com/libretto-pm/libretto/internal/integrity"
)

type l1Entry struct {
	hash         integrity.ContentHash
	bytes        []byte
	originalSize int
	compressed   bool
}

// l1Cache is a true-LRU (not clock) in-memory cache bounded by a byte
// budget: eviction happens on insertion, from the back of the list, per
// spec §4.4.
type l1Cache struct {
	mu       sync.Mutex
	ll       *list.List
	items    map[integrity.ContentHash]*list.Element
	curBytes int64
	maxBytes int64
}

func newL1Cache(maxBytes int64) *l1Cache {
	return &l1Cache{
		ll:       list.New(),
		items:    make(map[integrity.ContentHash]*list.Element),
		maxBytes: maxBytes,
	}
}

func (c *l1Cache) get(hash integrity.ContentHash) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[hash]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*l1Entry).bytes, true
}

func (c *l1Cache) contains(hash integrity.ContentHash) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[hash]
	return ok
}

func (c *l1Cache) put(hash integrity.ContentHash, data []byte, originalSize int, compressed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := &l1Entry{hash: hash, bytes: data, originalSize: originalSize, compressed: compressed}
	if el, ok := c.items[hash]; ok {
		c.curBytes -= int64(len(el.Value.(*l1Entry).bytes))
		el.Value = entry
		c.ll.MoveToFront(el)
	} else {
		c.items[hash] = c.ll.PushFront(entry)
	}
	c.curBytes += int64(len(data))
	c.evictLocked()
}

func (c *l1Cache) evictLocked() {
	for c.curBytes > c.maxBytes {
		back := c.ll.Back()
		if back == nil {
			return
		}
		e := back.Value.(*l1Entry)
		c.ll.Remove(back)
		delete(c.items, e.hash)
		c.curBytes -= int64(len(e.bytes))
	}
}

func (c *l1Cache) remove(hash integrity.ContentHash) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[hash]
	if !ok {
		return false
	}
	e := el.Value.(*l1Entry)
	c.ll.Remove(el)
	delete(c.items, hash)
	c.curBytes -= int64(len(e.bytes))
	return true
}
