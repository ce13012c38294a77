package drm

// Generic DRM ioctl base and the GEM commands every DRM driver shares.
const (
	drmIoctlBase   = 0x64 // 'd'
	drmCommandBase = 0x40

	cmdGemClose         = 0x09
	cmdGemFlink         = 0x0a
	cmdGemOpen          = 0x0b
	cmdPrimeHandleToFD  = 0x2d
	cmdPrimeFDToHandle  = 0x2e
)

// DRMCloexec is the O_CLOEXEC-equivalent flag for prime fd export.
const DRMCloexec = 02000000

// Driver-specific host1x command codes, matching DRM_TEGRA_* in
// tegra_drm.h: GEM_CREATE is 0x00 through GET_SYNCPT_BASE at 0x09, then
// the GEM tiling and flags commands at 0x0a through 0x0d.
const (
	cmdGemCreate      = 0x00
	cmdGemMmap        = 0x01
	cmdSyncptRead     = 0x02
	cmdSyncptIncr     = 0x03
	cmdSyncptWait     = 0x04
	cmdOpenChannel    = 0x05
	cmdCloseChannel   = 0x06
	cmdGetSyncpt      = 0x07
	cmdSubmit         = 0x08
	cmdGetSyncptBase  = 0x09
	cmdGemSetTiling   = 0x0a
	cmdGemGetTiling   = 0x0b
	cmdGemSetFlags    = 0x0c
	cmdGemGetFlags    = 0x0d
)

// ioctl direction/size/type encoding, matching Linux's _IOC macros.
const (
	iocWrite     = 1
	iocRead      = 2
	iocSizeBits  = 14
	iocDirBits   = 2
	iocTypeBits  = 8
	iocNrBits    = 8
	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits
)

// ioctlEncode builds a Linux ioctl request number the same way the
// kernel's _IOC/_IOWR macros do.
func ioctlEncode(dir, typ, nr, size uint32) uint32 {
	return (dir << iocDirShift) |
		(size << iocSizeShift) |
		(typ << iocTypeShift) |
		(nr << iocNrShift)
}

func drmIOWR(nr, size uint32) uint32 {
	return ioctlEncode(iocRead|iocWrite, drmIoctlBase, nr, size)
}

func tegraIOWR(cmd uint32, size uint32) uint32 {
	return drmIOWR(drmCommandBase+cmd, size)
}

// Host1x client classes, matching enum host1x_class.
const (
	ClassHost1x = 0x01
	ClassGR2D   = 0x51
	ClassGR2DSB = 0x52
	ClassGR3D   = 0x60
)

// BO creation flags, matching DRM_TEGRA_GEM_CREATE_* bits.
const (
	GemCreateTiled    = 1 << 0
	GemCreateBottomUp = 1 << 1
)

// Tiling modes, matching DRM_TEGRA_GEM_TILING_MODE_*.
const (
	TilingModePitch = 0
	TilingModeTiled = 1
	TilingModeBlock = 2
)
