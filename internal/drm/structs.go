// Package drm provides the kernel UAPI wire structures and ioctl plumbing
// for the host1x/Tegra DRM driver.
package drm

import "unsafe"

// GemClose matches struct drm_gem_close (generic DRM GEM ioctl).
type GemClose struct {
	Handle uint32
	Pad    uint32
}

var _ [8]byte = [unsafe.Sizeof(GemClose{})]byte{}

// GemFlink matches struct drm_gem_flink.
type GemFlink struct {
	Handle uint32
	Name   uint32
}

var _ [8]byte = [unsafe.Sizeof(GemFlink{})]byte{}

// GemOpen matches struct drm_gem_open.
type GemOpen struct {
	Name   uint32
	Handle uint32
	Size   uint64
}

var _ [16]byte = [unsafe.Sizeof(GemOpen{})]byte{}

// PrimeHandle matches struct drm_prime_handle, shared by both
// DRM_IOCTL_PRIME_HANDLE_TO_FD and DRM_IOCTL_PRIME_FD_TO_HANDLE.
type PrimeHandle struct {
	Handle uint32
	Flags  uint32
	FD     int32
}

var _ [12]byte = [unsafe.Sizeof(PrimeHandle{})]byte{}

// GemCreate matches struct drm_tegra_gem_create.
type GemCreate struct {
	Size   uint64
	Flags  uint32
	Handle uint32
}

var _ [16]byte = [unsafe.Sizeof(GemCreate{})]byte{}

// GemMmap matches struct drm_tegra_gem_mmap.
type GemMmap struct {
	Handle uint32
	Offset uint32
}

var _ [8]byte = [unsafe.Sizeof(GemMmap{})]byte{}

// GemSetFlags / GemGetFlags share struct drm_tegra_gem_set_flags /
// drm_tegra_gem_get_flags, which are identical in layout.
type GemSetFlags struct {
	Handle uint32
	Flags  uint32
}

var _ [8]byte = [unsafe.Sizeof(GemSetFlags{})]byte{}

// GemGetFlags mirrors GemSetFlags; kept as a distinct type for clarity at
// call sites even though the wire layout is identical.
type GemGetFlags struct {
	Handle uint32
	Flags  uint32
}

var _ [8]byte = [unsafe.Sizeof(GemGetFlags{})]byte{}

// GemSetTiling matches struct drm_tegra_gem_set_tiling.
type GemSetTiling struct {
	Handle uint32
	Mode   uint32
	Value  uint32
	Pad    uint32
}

var _ [16]byte = [unsafe.Sizeof(GemSetTiling{})]byte{}

// GemGetTiling matches struct drm_tegra_gem_get_tiling.
type GemGetTiling struct {
	Handle uint32
	Mode   uint32
	Value  uint32
	Pad    uint32
}

var _ [16]byte = [unsafe.Sizeof(GemGetTiling{})]byte{}

// SyncptRead matches struct drm_tegra_syncpt_read.
type SyncptRead struct {
	ID    uint32
	Value uint32
}

var _ [8]byte = [unsafe.Sizeof(SyncptRead{})]byte{}

// SyncptIncr matches struct drm_tegra_syncpt_incr.
type SyncptIncr struct {
	ID  uint32
	Pad uint32
}

var _ [8]byte = [unsafe.Sizeof(SyncptIncr{})]byte{}

// SyncptWait matches struct drm_tegra_syncpt_wait.
type SyncptWait struct {
	ID      uint32
	Thresh  uint32
	Timeout uint32
	Value   uint32
}

var _ [16]byte = [unsafe.Sizeof(SyncptWait{})]byte{}

// OpenChannel matches struct drm_tegra_open_channel.
type OpenChannel struct {
	Client  uint32
	Pad     uint32
	Context uint64
}

var _ [16]byte = [unsafe.Sizeof(OpenChannel{})]byte{}

// CloseChannel matches struct drm_tegra_close_channel.
type CloseChannel struct {
	Context uint64
}

var _ [8]byte = [unsafe.Sizeof(CloseChannel{})]byte{}

// GetSyncpt matches struct drm_tegra_get_syncpt.
type GetSyncpt struct {
	Context uint64
	Index   uint32
	ID      uint32
}

var _ [16]byte = [unsafe.Sizeof(GetSyncpt{})]byte{}

// GetSyncptBase matches struct drm_tegra_get_syncpt_base.
type GetSyncptBase struct {
	Context uint64
	Index   uint32
	BaseID  uint32
}

var _ [16]byte = [unsafe.Sizeof(GetSyncptBase{})]byte{}

// Syncpt matches struct drm_tegra_syncpt (one increment record inside a
// Submit call).
type Syncpt struct {
	ID    uint32
	Incrs uint32
}

var _ [8]byte = [unsafe.Sizeof(Syncpt{})]byte{}

// Cmdbuf matches struct drm_tegra_cmdbuf.
type Cmdbuf struct {
	Handle uint32
	Offset uint32
	Words  uint32
	Pad    uint32
}

var _ [16]byte = [unsafe.Sizeof(Cmdbuf{})]byte{}

// relocTarget/relocCmdbuf are the two halves of struct drm_tegra_reloc;
// kept inline on Reloc below rather than as separate named types since
// nothing references them independently.

// Reloc matches struct drm_tegra_reloc.
type Reloc struct {
	CmdbufHandle uint32
	CmdbufOffset uint32
	TargetHandle uint32
	TargetOffset uint32
	Shift        uint32
	Pad          uint32
}

var _ [24]byte = [unsafe.Sizeof(Reloc{})]byte{}

// Waitchk matches struct drm_tegra_waitchk.
type Waitchk struct {
	Handle uint32
	Offset uint32
	Syncpt uint32
	Thresh uint32
}

var _ [16]byte = [unsafe.Sizeof(Waitchk{})]byte{}

// Submit matches struct drm_tegra_submit. The four pointer fields carry
// userspace addresses of the Syncpt/Cmdbuf/Reloc/Waitchk arrays, passed
// as uint64 the way the kernel ABI requires on both 32- and 64-bit
// userspace.
type Submit struct {
	Context     uint64
	NumSyncpts  uint32
	NumCmdbufs  uint32
	NumRelocs   uint32
	NumWaitchks uint32
	WaitchkMask uint32
	Timeout     uint32
	Pad         uint32
	Syncpts     uint64
	Cmdbufs     uint64
	Relocs      uint64
	Waitchks    uint64
	Fence       uint32
	Reserved    [5]uint32
}

var _ [96]byte = [unsafe.Sizeof(Submit{})]byte{}
