// Package constants holds default tunables shared across the host1x packages.
package constants

// Page and bucket sizing for the buffer-object reuse cache.
const (
	// PageSize is the allocation granularity BO sizes are rounded up to.
	PageSize = 4096

	// CacheMaxBucketSize is the largest power-of-two bucket size. Unless
	// the cache is coarse, this step also gets its +1/4, +1/2 and +3/4
	// buckets, so the largest tracked bucket is 112 MiB (64 MiB when
	// coarse); requests above the largest bucket always go straight to
	// the kernel.
	CacheMaxBucketSize = 64 * 1024 * 1024

	// MaxBuckets is the size of the original tegra_bo_cache.c static
	// bucket table (14 powers of two * 4 refinements). The reuse cache
	// here builds its bucket list dynamically and does not consult it.
	MaxBuckets = 14 * 4
)

// Retention windows for the two caches (seconds), matching
// tegra_bo_cache.c's cache_cleanup/mmap_cache_cleanup thresholds.
const (
	// ReuseCacheRetentionSeconds is how long a freed BO sits in its size
	// bucket before cache_cleanup reclaims it.
	ReuseCacheRetentionSeconds = 1

	// MmapCacheRetentionSeconds is how long an unmapped BO's mapping is
	// kept around before the mapping is actually munmap'd.
	MmapCacheRetentionSeconds = 3
)

// SubmitTimeoutMs is the default kernel-side submission timeout; callers
// can override it per Job.Submit call.
const SubmitTimeoutMs = 1000

// NoTimeout is the sentinel passed to SYNCPT_WAIT to wait forever.
const NoTimeout = 0xFFFFFFFF

// DriverName is the expected drm_version.name for a host1x-backed device.
const DriverName = "tegra"

// Debug environment toggles. Value "1" enables.
const (
	EnvDebugBO           = "LIBDRM_TEGRA_DEBUG_BO"
	EnvDebugBOBackGuard  = "LIBDRM_TEGRA_DEBUG_BO_BACK_GUARD"
	EnvDebugBOFrontGuard = "LIBDRM_TEGRA_DEBUG_BO_FRONT_GUARD"
)

// GuardPageSize is the guard size reported in the debug log when a guard
// env toggle is enabled. No canary region is allocated around a BO's
// mapping; the toggles only add logging.
const GuardPageSize = 4096

// DefaultPushbufWords is the minimum word count a fresh pushbuf gather is
// sized for when prepare(n) requests fewer words than this.
const DefaultPushbufWords = 1024
