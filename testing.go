package host1x

import (
	"sync"
	"syscall"

	"github.com/grate-driver/go-host1x/internal/drm"
)

// MockDriver is an in-memory stand-in for internal/drm.Driver. Every
// kernel-side effect is tracked in plain fields behind one mutex, and
// call counts are exported so tests can assert "GEM_CREATE issued
// exactly once" style invariants without touching real hardware.
type MockDriver struct {
	mu sync.Mutex

	versionName string

	nextHandle uint32
	nextName   uint32
	nextOffset uint64

	gemSize   map[uint32]uint64
	gemFlags  map[uint32]uint32
	tileMode  map[uint32]uint32
	tileValue map[uint32]uint32
	offsets   map[uint32]uint64
	handles   map[uint32]bool // live handles

	nameToHandle map[uint32]uint32
	handleToName map[uint32]uint32

	nextContext uint64
	channels    map[uint64]uint32 // context -> class
	syncpts     map[uint32]uint32 // syncpt id -> current value
	classSyncpt map[uint32]uint32 // class -> its one syncpoint id

	nextDmabufFD int

	// Call counters, exported for direct test assertions.
	GemCreateCalls  int
	GemCloseCalls   int
	GemFlinkCalls   int
	GemOpenCalls    int
	SubmitCalls     int
	SyncptWaitCalls int

	// Error injection: while set, every matching call returns this error
	// instead of performing the operation.
	GemCreateErr  error
	SubmitErr     error
	SyncptWaitErr error
}

// NewMockDriver creates a mock driver reporting versionName from
// VersionName (defaulting to the real driver name if empty), with one
// syncpoint pre-registered per recognized client class starting at
// value zero.
func NewMockDriver(versionName string) *MockDriver {
	if versionName == "" {
		versionName = DriverName
	}
	m := &MockDriver{
		versionName:  versionName,
		nextHandle:   1,
		nextName:     1,
		nextOffset:   0x1000,
		gemSize:      make(map[uint32]uint64),
		gemFlags:     make(map[uint32]uint32),
		tileMode:     make(map[uint32]uint32),
		tileValue:    make(map[uint32]uint32),
		offsets:      make(map[uint32]uint64),
		handles:      make(map[uint32]bool),
		nameToHandle: make(map[uint32]uint32),
		handleToName: make(map[uint32]uint32),
		nextContext:  1,
		channels:     make(map[uint64]uint32),
		syncpts:      make(map[uint32]uint32),
		classSyncpt:  make(map[uint32]uint32),
		nextDmabufFD: 100,
	}
	for i, class := range []uint32{drm.ClassHost1x, drm.ClassGR2D, drm.ClassGR2DSB, drm.ClassGR3D} {
		id := uint32(i + 1)
		m.classSyncpt[class] = id
		m.syncpts[id] = 0
	}
	return m
}

func (m *MockDriver) VersionName() (string, error) { return m.versionName, nil }

func (m *MockDriver) Close() error { return nil }

func (m *MockDriver) GemClose(handle uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GemCloseCalls++
	delete(m.handles, handle)
	delete(m.gemSize, handle)
	delete(m.gemFlags, handle)
	if name, ok := m.handleToName[handle]; ok {
		delete(m.nameToHandle, name)
		delete(m.handleToName, handle)
	}
	return nil
}

func (m *MockDriver) GemFlink(handle uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GemFlinkCalls++
	if name, ok := m.handleToName[handle]; ok {
		return name, nil
	}
	name := m.nextName
	m.nextName++
	m.handleToName[handle] = name
	m.nameToHandle[name] = handle
	return name, nil
}

func (m *MockDriver) GemOpen(name uint32) (uint32, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GemOpenCalls++
	handle, ok := m.nameToHandle[name]
	if !ok {
		return 0, 0, NewErrnoError("GemOpen", syscall.EINVAL)
	}
	return handle, m.gemSize[handle], nil
}

func (m *MockDriver) GemCreate(size uint64, flags uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GemCreateCalls++
	if m.GemCreateErr != nil {
		return 0, m.GemCreateErr
	}
	handle := m.nextHandle
	m.nextHandle++
	m.handles[handle] = true
	m.gemSize[handle] = size
	m.gemFlags[handle] = flags
	return handle, nil
}

func (m *MockDriver) GemMmapOffset(handle uint32) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off, ok := m.offsets[handle]; ok {
		return off, nil
	}
	off := m.nextOffset
	m.nextOffset += uint64(PageSize)
	m.offsets[handle] = off
	return off, nil
}

func (m *MockDriver) GemSetFlags(handle uint32, flags uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gemFlags[handle] = flags
	return nil
}

func (m *MockDriver) GemGetFlags(handle uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gemFlags[handle], nil
}

func (m *MockDriver) GemSetTiling(handle uint32, mode, value uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tileMode[handle] = mode
	m.tileValue[handle] = value
	return nil
}

func (m *MockDriver) GemGetTiling(handle uint32) (uint32, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tileMode[handle], m.tileValue[handle], nil
}

func (m *MockDriver) OpenChannel(class uint32) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.classSyncpt[class]; !ok {
		return 0, NewErrnoError("OpenChannel", syscall.EINVAL)
	}
	ctx := m.nextContext
	m.nextContext++
	m.channels[ctx] = class
	return ctx, nil
}

func (m *MockDriver) CloseChannel(context uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, context)
	return nil
}

func (m *MockDriver) GetSyncpt(context uint64, index uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index > 0 {
		return 0, NewErrnoError("GetSyncpt", syscall.EINVAL)
	}
	class, ok := m.channels[context]
	if !ok {
		return 0, NewErrnoError("GetSyncpt", syscall.EINVAL)
	}
	return m.classSyncpt[class], nil
}

func (m *MockDriver) GetSyncptBase(context uint64, index uint32) (uint32, error) {
	return 0, NewErrnoError("GetSyncptBase", syscall.ENOSYS) // ENOSYS: bases unsupported in the mock
}

func (m *MockDriver) SyncptRead(id uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncpts[id], nil
}

func (m *MockDriver) SyncptIncr(id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncpts[id]++
	return nil
}

// SyncptWait reports success immediately whenever the syncpoint has
// already reached thresh, since the mock advances syncpoints
// synchronously inside Submit; it never actually blocks.
func (m *MockDriver) SyncptWait(id, thresh, timeoutMs uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SyncptWaitCalls++
	if m.SyncptWaitErr != nil {
		return 0, m.SyncptWaitErr
	}
	current := m.syncpts[id]
	if int32(current-thresh) >= 0 {
		return current, nil
	}
	return current, NewErrnoError("SyncptWait", syscall.ETIMEDOUT)
}

// Submit advances every named syncpoint by its requested increment
// count synchronously and returns the post-submit value of the first
// syncpoint, mirroring the kernel's target-fence-value convention.
func (m *MockDriver) Submit(req *drm.Submit, syncpts []drm.Syncpt, cmdbufs []drm.Cmdbuf, relocs []drm.Reloc, waitchks []drm.Waitchk) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubmitCalls++
	if m.SubmitErr != nil {
		return 0, m.SubmitErr
	}
	var fence uint32
	for i, sp := range syncpts {
		m.syncpts[sp.ID] += sp.Incrs
		if i == 0 {
			fence = m.syncpts[sp.ID]
		}
	}
	return fence, nil
}

// Mmap allocates a fresh buffer on every call, the same way a real
// mmap(2) of an anonymous-looking range hands back independent memory
// each time regardless of the requested file offset.
func (m *MockDriver) Mmap(offset uint64, length uint64) ([]byte, error) {
	return make([]byte, length), nil
}

func (m *MockDriver) Munmap(mapped []byte) error { return nil }

func (m *MockDriver) PrimeHandleToFD(handle uint32, cloexec bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fd := m.nextDmabufFD
	m.nextDmabufFD++
	return fd, nil
}

func (m *MockDriver) PrimeFDToHandle(fd int) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle := m.nextHandle
	m.nextHandle++
	m.handles[handle] = true
	m.gemSize[handle] = uint64(PageSize)
	return handle, nil
}

var _ drm.Driver = (*MockDriver)(nil)
