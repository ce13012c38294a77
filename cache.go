package host1x

import (
	"container/list"
	"time"

	"github.com/grate-driver/go-host1x/internal/constants"
)

// bucket is one size class of the reuse cache: a threshold and a free
// list of BOs whose size rounds up to it, ordered oldest-freed-first.
type bucket struct {
	size uint64
	free *list.List // of *BO
}

// reuseCache is the size-bucketed free list plus the timed mmap cache
// described for the device's C3 component. Every mutation happens under
// the owning Device's tableLock; this type has no lock of its own.
type reuseCache struct {
	buckets []*bucket
	mmap    *list.List // of *BO pending munmap
}

func newReuseCache(coarse bool) *reuseCache {
	c := &reuseCache{mmap: list.New()}
	add := func(size uint64) { c.buckets = append(c.buckets, &bucket{size: size, free: list.New()}) }

	add(4096)
	add(8192)
	if !coarse {
		add(12288)
	}
	for size := uint64(16 * 1024); size <= constants.CacheMaxBucketSize; size *= 2 {
		add(size)
		if !coarse {
			add(size + size/4)
			add(size + size/2)
			add(size + size*3/4)
		}
	}
	return c
}

// findBucket returns the first bucket whose size is >= the requested
// size, or nil if the request exceeds the largest tracked bucket.
func (c *reuseCache) findBucket(size uint64) *bucket {
	for _, b := range c.buckets {
		if b.size >= size {
			return b
		}
	}
	return nil
}

// alloc rounds size up to a page multiple, finds the matching bucket,
// and pops an idle head entry if one exists. Returns nil if nothing is
// available, in which case the caller must issue a real GEM_CREATE.
func (c *reuseCache) alloc(size uint64) (*BO, uint64) {
	size = roundUpPage(size)
	b := c.findBucket(size)
	if b == nil {
		return nil, size
	}
	front := b.free.Front()
	if front == nil {
		return nil, b.size
	}
	bo := front.Value.(*BO)
	if !bo.isIdle() {
		return nil, b.size
	}
	b.free.Remove(front)
	bo.bucketElem = nil
	return bo, b.size
}

// free stashes bo in the bucket matching its size and sweeps expired
// entries. Returns false if no bucket fits bo.size, meaning the caller
// must actually free the BO.
func (c *reuseCache) free(bo *BO, now time.Time) bool {
	b := c.findBucket(bo.size)
	if b == nil {
		return false
	}
	bo.freeTime = now
	bo.bucketElem = b.free.PushBack(bo)
	c.cleanup(now)
	return true
}

// cleanup evicts entries older than the reuse retention window, starting
// from each bucket's head and stopping at the first entry still within
// the window (entries are appended in increasing free_time order).
func (c *reuseCache) cleanup(now time.Time) {
	for _, b := range c.buckets {
		for {
			front := b.free.Front()
			if front == nil {
				break
			}
			bo := front.Value.(*BO)
			if now.Sub(bo.freeTime) <= constants.ReuseCacheRetentionSeconds*time.Second {
				break
			}
			b.free.Remove(front)
			bo.bucketElem = nil
			bo.freeToKernel()
		}
	}
}

// unmap moves bo's live mapping into the timed mmap cache instead of
// calling munmap immediately, and sweeps expired mappings.
func (c *reuseCache) unmap(bo *BO, now time.Time) {
	bo.mapCachedFull = bo.mmapFull
	bo.mmapFull = nil
	bo.mapped = nil
	bo.unmapTime = now
	bo.mmapElem = c.mmap.PushBack(bo)
	c.mmapCleanup(now)
}

// remap splices bo's cached mapping back out of the mmap cache, if
// present, returning the raw mapping so bo.Map can reslice it without a
// fresh mmap call.
func (c *reuseCache) remap(bo *BO) []byte {
	if bo.mmapElem == nil {
		return nil
	}
	c.mmap.Remove(bo.mmapElem)
	bo.mmapElem = nil
	full := bo.mapCachedFull
	bo.mapCachedFull = nil
	return full
}

func (c *reuseCache) mmapCleanup(now time.Time) {
	for {
		front := c.mmap.Front()
		if front == nil {
			break
		}
		bo := front.Value.(*BO)
		if now.Sub(bo.unmapTime) <= constants.MmapCacheRetentionSeconds*time.Second {
			break
		}
		c.mmap.Remove(front)
		bo.mmapElem = nil
		bo.munmapCached()
	}
}

// drain empties every bucket and the mmap cache unconditionally, used by
// Device.Close.
func (c *reuseCache) drain() {
	far := time.Now().Add(24 * 365 * time.Hour)
	c.cleanup(far)
	c.mmapCleanup(far)
}

func roundUpPage(size uint64) uint64 {
	const page = constants.PageSize
	return (size + page - 1) &^ (page - 1)
}
