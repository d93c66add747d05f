package store

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/urkel-db/urkel/store/storefs"
)

// handleEntry wraps a cached file handle with the outstanding-read counter
// that eviction must respect: a file with reads in flight
// is never evicted mid-read.
type handleEntry struct {
	mu    sync.Mutex
	file  storefs.File
	reads int32
}

// handleCache is a small, sparse index -> handle table with randomized
// eviction. An LRU would do marginally better but isn't required for
// correctness here, so eviction just picks uniformly among eligible
// handles.
type handleCache struct {
	mu       sync.Mutex
	fs       storefs.FS
	dir      string
	max      int
	handles  map[uint16]*handleEntry
	opening  map[uint16]*sync.Mutex // per-index open lock
	current  uint16                 // the file index never evicted
	nameFunc func(uint16) string
}

func newHandleCache(fs storefs.FS, dir string, max int, nameFunc func(uint16) string) *handleCache {
	return &handleCache{
		fs:       fs,
		dir:      dir,
		max:      max,
		handles:  make(map[uint16]*handleEntry),
		opening:  make(map[uint16]*sync.Mutex),
		nameFunc: nameFunc,
	}
}

// SetCurrent marks index as the file that must never be evicted: the
// writer's active file.
func (c *handleCache) SetCurrent(index uint16) {
	c.mu.Lock()
	c.current = index
	c.mu.Unlock()
}

// openLock returns (and lazily creates) the per-index lock that serializes
// concurrent opens of the same index so only one syscall issues.
func (c *handleCache) openLock(index uint16) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.opening[index]
	if !ok {
		l = &sync.Mutex{}
		c.opening[index] = l
	}
	return l
}

// Get returns a handle for index, opening (and creating, if create is set)
// it on first use, evicting another handle first if the cache is full.
func (c *handleCache) Get(index uint16, create bool) (*handleEntry, error) {
	c.mu.Lock()
	if e, ok := c.handles[index]; ok {
		c.mu.Unlock()
		return e, nil
	}
	c.mu.Unlock()

	lock := c.openLock(index)
	lock.Lock()
	defer lock.Unlock()

	// Re-check: another goroutine may have opened it while we waited.
	c.mu.Lock()
	if e, ok := c.handles[index]; ok {
		c.mu.Unlock()
		return e, nil
	}
	c.mu.Unlock()

	c.evictIfFull()

	f, err := c.fs.Open(c.dir+"/"+c.nameFunc(index), create)
	if err != nil {
		return nil, fmt.Errorf("store: open file %d: %w", index, err)
	}
	e := &handleEntry{file: f}
	c.mu.Lock()
	c.handles[index] = e
	c.mu.Unlock()
	return e, nil
}

// evictIfFull picks a random non-current handle with zero outstanding
// reads and closes it, if the cache is at capacity. If none qualifies, it
// does nothing this call — the cache is allowed to temporarily exceed max
// rather than block or fail.
func (c *handleCache) evictIfFull() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.handles) < c.max {
		return
	}
	candidates := make([]uint16, 0, len(c.handles))
	for idx, e := range c.handles {
		if idx == c.current {
			continue
		}
		e.mu.Lock()
		reads := e.reads
		e.mu.Unlock()
		if reads == 0 {
			candidates = append(candidates, idx)
		}
	}
	if len(candidates) == 0 {
		return
	}
	victim := candidates[rand.Intn(len(candidates))]
	e := c.handles[victim]
	delete(c.handles, victim)
	e.file.Close()
}

// BeginRead increments the outstanding-read counter, keeping the handle
// alive across the suspension inside a read call.
func (e *handleEntry) BeginRead() {
	e.mu.Lock()
	e.reads++
	e.mu.Unlock()
}

// EndRead decrements the outstanding-read counter.
func (e *handleEntry) EndRead() {
	e.mu.Lock()
	e.reads--
	e.mu.Unlock()
}

// CloseAll closes every cached handle, used on store Close.
func (c *handleCache) CloseAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for idx, e := range c.handles {
		if err := e.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.handles, idx)
	}
	return firstErr
}
