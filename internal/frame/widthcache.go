package frame

import "golang.org/x/image/math/fixed"

type widthKey struct {
	text string
	size fixed.Int26_6
}

// widthCache is an LRU of measured advances with a soft limit.
// When the cache exceeds softLimit, the oldest quarter is evicted.
//
// widthCache is not safe for concurrent use; Measurer guards it.
type widthCache struct {
	entries   map[widthKey]*widthEntry
	softLimit int
	tick      int64 // monotonic access counter
}

type widthEntry struct {
	advance fixed.Int26_6
	atime   int64
}

func newWidthCache(softLimit int) *widthCache {
	return &widthCache{
		entries:   make(map[widthKey]*widthEntry),
		softLimit: softLimit,
	}
}

func (c *widthCache) get(k widthKey) (fixed.Int26_6, bool) {
	e, ok := c.entries[k]
	if !ok {
		return 0, false
	}
	c.tick++
	e.atime = c.tick
	return e.advance, true
}

func (c *widthCache) set(k widthKey, adv fixed.Int26_6) {
	c.tick++
	c.entries[k] = &widthEntry{advance: adv, atime: c.tick}
	if c.softLimit > 0 && len(c.entries) > c.softLimit {
		c.evictOldest()
	}
}

func (c *widthCache) len() int { return len(c.entries) }

// evictOldest removes entries until three quarters of softLimit remain.
func (c *widthCache) evictOldest() {
	target := max(c.softLimit*3/4, 1)
	toEvict := len(c.entries) - target
	if toEvict <= 0 {
		return
	}

	type entry struct {
		key   widthKey
		atime int64
	}
	entries := make([]entry, 0, len(c.entries))
	for k, e := range c.entries {
		entries = append(entries, entry{key: k, atime: e.atime})
	}

	// Partial selection sort, oldest first.
	for i := 0; i < toEvict && i < len(entries); i++ {
		minIdx := i
		for j := i + 1; j < len(entries); j++ {
			if entries[j].atime < entries[minIdx].atime {
				minIdx = j
			}
		}
		entries[i], entries[minIdx] = entries[minIdx], entries[i]
		delete(c.entries, entries[i].key)
	}
}
