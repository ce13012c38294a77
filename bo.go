package host1x

import (
	"os"
	"sync/atomic"
	"time"

	"container/list"
)

// Debug toggles read once at process start, matching the env-gated
// LIBDRM_TEGRA_DEBUG_BO* knobs from tegra_bo.c. They only gate extra
// Debug() logging (and the guard-byte accounting noted alongside it);
// they never change allocation, mapping, or refcounting behavior.
var (
	debugBO         = os.Getenv(EnvDebugBO) == "1"
	debugBackGuard  = os.Getenv(EnvDebugBOBackGuard) == "1"
	debugFrontGuard = os.Getenv(EnvDebugBOFrontGuard) == "1"
)

// BO is the refcounted wrapper over a kernel GEM handle described as C2:
// at most one CPU mapping, an mmap refcount, and reuse-cache eligibility.
type BO struct {
	dev *Device

	handle uint32
	name   uint32 // 0 if never flinked
	size   uint64
	flags  uint32

	offset      uint64
	offsetKnown bool

	mmapFull []byte // raw mapping, offset 0 through offset+size
	mapped   []byte // mmapFull[offset:offset+size], the public pointer

	mapCachedFull []byte // stashed raw mapping while sitting in the mmap cache

	ref     atomic.Int32
	mmapRef atomic.Int32

	reuse        bool
	customFlags  bool
	customTiling bool
	tilingMode   uint32
	tilingValue  uint32

	freeTime  time.Time
	unmapTime time.Time

	bucketElem *list.Element
	mmapElem   *list.Element

	// lastFence optionally associates a BO with the submission that last
	// read or wrote it, so the reuse cache can gate reuse on completion
	// (see IsIdle). Nothing in this package sets it automatically.
	lastFence *Fence
}

// NewBO requests a buffer object of the given size and flags. The reuse
// cache is tried first; on a miss a real GEM_CREATE ioctl is issued for
// the size rounded up to a whole page and the result is inserted into
// the handle table.
func (d *Device) NewBO(flags uint32, size uint64) (*BO, error) {
	if size == 0 {
		return nil, NewError("BO.New", CodeInvalid, "size must be > 0")
	}
	size = roundUpPage(size)

	d.tableLock.Lock()
	if bo, roundedSize := d.cache.alloc(size); bo != nil {
		bo.resetForReuse(flags)
		d.handleTable[bo.handle] = bo
		d.tableLock.Unlock()
		d.recordCacheHit()
		d.logf("bo cache hit", "handle", bo.handle, "size", roundedSize)
		return bo, nil
	}
	d.tableLock.Unlock()
	d.recordCacheMiss()

	handle, err := d.driver.GemCreate(size, flags)
	if err != nil {
		return nil, WrapError("BO.New", err)
	}
	bo := &BO{dev: d, handle: handle, size: size, flags: flags, reuse: true}
	bo.ref.Store(1)

	d.tableLock.Lock()
	d.handleTable[handle] = bo
	d.tableLock.Unlock()
	d.logf("bo created", "handle", handle, "size", size)
	return bo, nil
}

// WrapHandle wraps an existing kernel handle, deduplicating against the
// handle table.
func (d *Device) WrapHandle(handle uint32, flags uint32, size uint64) *BO {
	d.tableLock.Lock()
	defer d.tableLock.Unlock()
	if bo, ok := d.handleTable[handle]; ok {
		bo.ref.Add(1)
		return bo
	}
	bo := &BO{dev: d, handle: handle, size: size, flags: flags, reuse: true}
	bo.ref.Store(1)
	d.handleTable[handle] = bo
	return bo
}

// Ref increments the BO's refcount.
func (bo *BO) Ref() {
	bo.ref.Add(1)
}

// Unref decrements the refcount; on reaching zero, the BO is either kept
// alive inside the reuse cache (if reuse-eligible) or truly freed.
func (bo *BO) Unref() {
	if bo.ref.Add(-1) != 0 {
		return
	}
	d := bo.dev
	d.tableLock.Lock()
	defer d.tableLock.Unlock()

	delete(d.handleTable, bo.handle)
	if bo.name != 0 {
		delete(d.nameTable, bo.name)
	}

	if bo.reuse && d.cache.free(bo, time.Now()) {
		return
	}
	bo.freeToKernel()
}

// Map returns the CPU mapping of bo, mapping it on first use. Concurrent
// calls are serialized by the device-wide table lock.
func (bo *BO) Map() ([]byte, error) {
	d := bo.dev
	d.tableLock.Lock()
	defer d.tableLock.Unlock()

	if bo.mapped != nil {
		bo.mmapRef.Add(1)
		return bo.mapped, nil
	}

	if cached := d.cache.remap(bo); cached != nil {
		bo.mmapFull = cached
		bo.mapped = bo.mmapFull[bo.offset : bo.offset+bo.size]
		bo.mmapRef.Store(1)
		return bo.mapped, nil
	}

	if !bo.offsetKnown {
		offset, err := d.driver.GemMmapOffset(bo.handle)
		if err != nil {
			return nil, WrapError("BO.Map", err)
		}
		bo.offset = offset
		bo.offsetKnown = true
	}

	full, err := d.driver.Mmap(0, bo.offset+bo.size)
	if err != nil {
		return nil, WrapError("BO.Map", err)
	}
	bo.mmapFull = full
	bo.mapped = full[bo.offset : bo.offset+bo.size]
	bo.mmapRef.Store(1)
	if debugBO {
		d.logger.Debug("bo mapped", "handle", bo.handle, "size", bo.size, "offset", bo.offset)
	}
	if debugFrontGuard || debugBackGuard {
		d.logger.Debug("bo guard bytes", "handle", bo.handle, "guard_size", GuardPageSize,
			"front", debugFrontGuard, "back", debugBackGuard)
	}
	return bo.mapped, nil
}

// Unmap decrements the mmap refcount; on reaching zero the mapping moves
// into the timed mmap cache instead of being munmap'd immediately.
func (bo *BO) Unmap() error {
	if bo.mmapRef.Add(-1) != 0 {
		return nil
	}
	d := bo.dev
	d.tableLock.Lock()
	defer d.tableLock.Unlock()
	d.cache.unmap(bo, time.Now())
	return nil
}

// GetFlags reads back the driver-reported flags.
func (bo *BO) GetFlags() (uint32, error) {
	flags, err := bo.dev.driver.GemGetFlags(bo.handle)
	if err != nil {
		return 0, WrapError("BO.GetFlags", err)
	}
	return flags, nil
}

// SetFlags pushes new flags to the driver and marks the BO so the reuse
// path knows to reapply them on the next cache hit.
func (bo *BO) SetFlags(flags uint32) error {
	if err := bo.dev.driver.GemSetFlags(bo.handle, flags); err != nil {
		return WrapError("BO.SetFlags", err)
	}
	bo.flags = flags
	bo.customFlags = true
	return nil
}

// GetTiling reads back the driver-reported tiling mode and parameter.
func (bo *BO) GetTiling() (mode, value uint32, err error) {
	mode, value, err = bo.dev.driver.GemGetTiling(bo.handle)
	if err != nil {
		return 0, 0, WrapError("BO.GetTiling", err)
	}
	return mode, value, nil
}

// SetTiling pushes a new tiling mode to the driver and marks the BO for
// reset-on-reuse.
func (bo *BO) SetTiling(mode, value uint32) error {
	if err := bo.dev.driver.GemSetTiling(bo.handle, mode, value); err != nil {
		return WrapError("BO.SetTiling", err)
	}
	bo.tilingMode, bo.tilingValue = mode, value
	bo.customTiling = true
	return nil
}

// GetName returns bo's global name, flinking it on first call.
func (bo *BO) GetName() (uint32, error) {
	d := bo.dev
	d.tableLock.Lock()
	defer d.tableLock.Unlock()
	if bo.name != 0 {
		return bo.name, nil
	}
	name, err := d.driver.GemFlink(bo.handle)
	if err != nil {
		return 0, WrapError("BO.GetName", err)
	}
	bo.name = name
	bo.reuse = false
	d.nameTable[name] = bo
	return name, nil
}

// FromName looks up name_table first; on a miss it opens by name and
// prefers an existing handle_table wrapper for the returned handle.
func (d *Device) FromName(name uint32, flags uint32) (*BO, error) {
	d.tableLock.Lock()
	if bo, ok := d.nameTable[name]; ok {
		bo.ref.Add(1)
		if bo.bucketElem != nil {
			bo.removeFromBucketLocked()
		}
		d.tableLock.Unlock()
		return bo, nil
	}
	d.tableLock.Unlock()

	handle, size, err := d.driver.GemOpen(name)
	if err != nil {
		return nil, WrapError("BO.FromName", err)
	}

	d.tableLock.Lock()
	defer d.tableLock.Unlock()
	if bo, ok := d.handleTable[handle]; ok {
		bo.ref.Add(1)
		bo.name = name
		bo.reuse = false
		d.nameTable[name] = bo
		return bo, nil
	}

	bo := &BO{dev: d, handle: handle, name: name, size: size, flags: flags}
	bo.ref.Store(1)
	d.handleTable[handle] = bo
	d.nameTable[name] = bo
	return bo, nil
}

// removeFromBucketLocked splices bo out of its reuse bucket. Caller must
// hold d.tableLock.
func (bo *BO) removeFromBucketLocked() {
	for _, b := range bo.dev.cache.buckets {
		if bo.bucketElem != nil {
			b.free.Remove(bo.bucketElem)
		}
	}
	bo.bucketElem = nil
}

// ToDmabuf exports bo as a dma-buf file descriptor; export makes the BO
// ineligible for the reuse cache, since a shared name would make size
// rounding visible to other consumers.
func (bo *BO) ToDmabuf(cloexec bool) (int, error) {
	fd, err := bo.dev.driver.PrimeHandleToFD(bo.handle, cloexec)
	if err != nil {
		return 0, WrapError("BO.ToDmabuf", err)
	}
	bo.reuse = false
	return fd, nil
}

// FromDmabuf imports a dma-buf file descriptor, deduplicating against
// the handle table after resolving the fd to a handle.
func (d *Device) FromDmabuf(fd int, flags uint32, size uint64) (*BO, error) {
	handle, err := d.driver.PrimeFDToHandle(fd)
	if err != nil {
		return nil, WrapError("BO.FromDmabuf", err)
	}

	d.tableLock.Lock()
	defer d.tableLock.Unlock()
	if bo, ok := d.handleTable[handle]; ok {
		bo.ref.Add(1)
		return bo, nil
	}
	bo := &BO{dev: d, handle: handle, size: size, flags: flags}
	bo.ref.Store(1)
	d.handleTable[handle] = bo
	return bo, nil
}

// GetSize returns bo's size in bytes.
func (bo *BO) GetSize() uint64 { return bo.size }

// GetHandle returns bo's kernel handle.
func (bo *BO) GetHandle() uint32 { return bo.handle }

// ForbidCaching permanently excludes bo from the reuse cache.
func (bo *BO) ForbidCaching() {
	bo.reuse = false
}

// IsIdle reports whether bo is safe to hand back out of the reuse cache.
// With no fence attached this is the placeholder documented for
// cache_alloc: always true. With a fence attached, idle means the fence
// has already been reached.
func (bo *BO) IsIdle() bool {
	return bo.isIdle()
}

func (bo *BO) isIdle() bool {
	if bo.lastFence == nil {
		return true
	}
	return bo.lastFence.Wait(0) == nil
}

// resetForReuse reapplies reset_bo's bookkeeping when a bucket hit is
// about to be handed back to a caller.
func (bo *BO) resetForReuse(flags uint32) {
	bo.ref.Store(1)
	bo.mmapRef.Store(0)
	if bo.mapped != nil {
		bo.dev.cache.unmap(bo, time.Now())
	}
	if bo.customFlags {
		_ = bo.dev.driver.GemSetFlags(bo.handle, flags)
		bo.flags = flags
	}
	if bo.customTiling {
		_ = bo.dev.driver.GemSetTiling(bo.handle, 0, 0)
		bo.tilingMode, bo.tilingValue = 0, 0
	}
	bo.lastFence = nil
}

// freeToKernel unmaps any live or cached mapping and issues GEM_CLOSE.
// Caller must hold d.tableLock.
func (bo *BO) freeToKernel() {
	if debugBO {
		bo.dev.logger.Debug("bo freed", "handle", bo.handle, "size", bo.size)
	}
	if bo.mmapFull != nil {
		_ = bo.dev.driver.Munmap(bo.mmapFull)
		bo.mmapFull, bo.mapped = nil, nil
	}
	if bo.mapCachedFull != nil {
		_ = bo.dev.driver.Munmap(bo.mapCachedFull)
		bo.mapCachedFull = nil
	}
	_ = bo.dev.driver.GemClose(bo.handle)
}

// munmapCached releases a mapping that was sitting in the mmap cache
// without an active mmap_ref, once the mmap cache sweep evicts it.
func (bo *BO) munmapCached() {
	if bo.mapCachedFull == nil {
		return
	}
	_ = bo.dev.driver.Munmap(bo.mapCachedFull)
	bo.mapCachedFull = nil
}

func (d *Device) recordCacheHit() {
	if d.obs != nil {
		d.obs.RecordCacheHit()
	}
}

func (d *Device) recordCacheMiss() {
	if d.obs != nil {
		d.obs.RecordCacheMiss()
	}
}
