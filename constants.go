package host1x

import (
	"github.com/grate-driver/go-host1x/internal/constants"
	"github.com/grate-driver/go-host1x/internal/drm"
)

// Re-exported tunables for the public API.
const (
	PageSize                   = constants.PageSize
	CacheMaxBucketSize         = constants.CacheMaxBucketSize
	ReuseCacheRetentionSeconds = constants.ReuseCacheRetentionSeconds
	MmapCacheRetentionSeconds  = constants.MmapCacheRetentionSeconds
	SubmitTimeoutMs            = constants.SubmitTimeoutMs
	NoTimeout                  = constants.NoTimeout
	DriverName                 = constants.DriverName
	GuardPageSize              = constants.GuardPageSize
	DefaultPushbufWords        = constants.DefaultPushbufWords
)

// Debug environment variable names (value "1" enables).
const (
	EnvDebugBO           = constants.EnvDebugBO
	EnvDebugBOBackGuard  = constants.EnvDebugBOBackGuard
	EnvDebugBOFrontGuard = constants.EnvDebugBOFrontGuard
)

// Client class enumeration for Channel.Open.
const (
	ClassHost1x = drm.ClassHost1x
	ClassGR2D   = drm.ClassGR2D
	ClassGR2DSB = drm.ClassGR2DSB
	ClassGR3D   = drm.ClassGR3D
)
