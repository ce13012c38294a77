package host1x

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoundUpPage(t *testing.T) {
	require.Equal(t, uint64(4096), roundUpPage(1))
	require.Equal(t, uint64(4096), roundUpPage(4096))
	require.Equal(t, uint64(8192), roundUpPage(4097))
}

func TestCacheFindBucketOutOfRange(t *testing.T) {
	c := newReuseCache(false)
	require.Nil(t, c.findBucket(CacheMaxBucketSize*2))
}

func TestCacheAllocMissWithEmptyBuckets(t *testing.T) {
	c := newReuseCache(false)
	bo, size := c.alloc(100)
	require.Nil(t, bo)
	require.Equal(t, uint64(4096), size)
}

func TestCacheFreeThenAllocRoundTrip(t *testing.T) {
	c := newReuseCache(false)
	bo := &BO{size: 4096, reuse: true}
	bo.ref.Store(1)

	ok := c.free(bo, time.Now())
	require.True(t, ok)

	got, _ := c.alloc(4096)
	require.Same(t, bo, got)
}

func TestCacheCoarseSkipsFineBuckets(t *testing.T) {
	coarse := newReuseCache(true)
	fine := newReuseCache(false)
	require.Less(t, len(coarse.buckets), len(fine.buckets))
}

func TestCacheDrainEvictsEverything(t *testing.T) {
	dev, driver := newTestDevice(t)
	bo, err := dev.NewBO(0, 4096)
	require.NoError(t, err)
	bo.Unref()

	dev.cache.drain()
	require.Equal(t, 1, driver.GemCloseCalls)
}
