package drm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/grate-driver/go-host1x/internal/logging"
)

// Driver is the kernel ioctl surface this package needs from a host1x
// character device. It exists so unit tests can substitute an in-memory
// fake instead of opening a real /dev/dri/cardN.
type Driver interface {
	// VersionName returns the drm_version.name string reported by the
	// driver bound to this device fd.
	VersionName() (string, error)

	// Close releases the underlying device fd. Called only when the
	// Device owns it.
	Close() error

	GemClose(handle uint32) error
	GemFlink(handle uint32) (name uint32, err error)
	GemOpen(name uint32) (handle uint32, size uint64, err error)

	GemCreate(size uint64, flags uint32) (handle uint32, err error)
	GemMmapOffset(handle uint32) (offset uint64, err error)
	GemSetFlags(handle uint32, flags uint32) error
	GemGetFlags(handle uint32) (flags uint32, err error)
	GemSetTiling(handle uint32, mode, value uint32) error
	GemGetTiling(handle uint32) (mode, value uint32, err error)

	OpenChannel(client uint32) (context uint64, err error)
	CloseChannel(context uint64) error
	GetSyncpt(context uint64, index uint32) (id uint32, err error)
	GetSyncptBase(context uint64, index uint32) (baseID uint32, err error)

	SyncptRead(id uint32) (value uint32, err error)
	SyncptIncr(id uint32) error
	SyncptWait(id, thresh, timeoutMs uint32) (value uint32, err error)

	Submit(req *Submit, syncpts []Syncpt, cmdbufs []Cmdbuf, relocs []Reloc, waitchks []Waitchk) (fence uint32, err error)

	// Mmap/Munmap back BO.Map/BO.Unmap; RealDriver maps the device fd at
	// the given in-fd offset, the way drm_tegra_bo_map does.
	Mmap(offset uint64, length uint64) ([]byte, error)
	Munmap(mapped []byte) error

	// PrimeHandleToFD / PrimeFDToHandle back BO.ToDmabuf/BO.FromDmabuf,
	// using the generic DRM_IOCTL_PRIME_HANDLE_TO_FD/FD_TO_HANDLE ioctls.
	PrimeHandleToFD(handle uint32, cloexec bool) (fd int, err error)
	PrimeFDToHandle(fd int) (handle uint32, err error)
}

// RealDriver issues the ioctls above against an open device fd using
// golang.org/x/sys/unix.
type RealDriver struct {
	fd     int
	logger *logging.Logger
}

// NewRealDriver wraps an already-open device file descriptor.
func NewRealDriver(fd int, logger *logging.Logger) *RealDriver {
	if logger == nil {
		logger = logging.Default()
	}
	return &RealDriver{fd: fd, logger: logger}
}

// ioctl issues the raw syscall with EINTR retry.
func (d *RealDriver) ioctl(req uint32, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uintptr(req), uintptr(arg))
		if errno == 0 {
			return nil
		}
		if errno == unix.EINTR {
			continue
		}
		return errno
	}
}

// drmVersion mirrors struct drm_version's fixed-size header; the name
// buffer is allocated separately and pointed to via Name.
type drmVersion struct {
	Major, Minor, Patchlevel int32
	NameLen                  uint64
	Name                     uint64
	DateLen                  uint64
	Date                     uint64
	DescLen                  uint64
	Desc                     uint64
}

const drmIoctlVersion = 0x00

func (d *RealDriver) Close() error {
	return unix.Close(d.fd)
}

func (d *RealDriver) VersionName() (string, error) {
	buf := make([]byte, 32)
	v := drmVersion{
		NameLen: uint64(len(buf)),
		Name:    uint64(uintptr(unsafe.Pointer(&buf[0]))),
	}
	if err := d.ioctl(drmIOWR(drmIoctlVersion, uint32(unsafe.Sizeof(v))), unsafe.Pointer(&v)); err != nil {
		return "", fmt.Errorf("DRM_IOCTL_VERSION: %w", err)
	}
	n := int(v.NameLen)
	if n > len(buf) {
		n = len(buf)
	}
	return string(buf[:n]), nil
}

func (d *RealDriver) GemClose(handle uint32) error {
	arg := GemClose{Handle: handle}
	d.logger.Debug("gem close", "handle", handle)
	return d.ioctl(drmIOWR(cmdGemClose, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg))
}

func (d *RealDriver) GemFlink(handle uint32) (uint32, error) {
	arg := GemFlink{Handle: handle}
	if err := d.ioctl(drmIOWR(cmdGemFlink, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg)); err != nil {
		return 0, err
	}
	return arg.Name, nil
}

func (d *RealDriver) GemOpen(name uint32) (uint32, uint64, error) {
	arg := GemOpen{Name: name}
	if err := d.ioctl(drmIOWR(cmdGemOpen, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg)); err != nil {
		return 0, 0, err
	}
	return arg.Handle, arg.Size, nil
}

func (d *RealDriver) GemCreate(size uint64, flags uint32) (uint32, error) {
	arg := GemCreate{Size: size, Flags: flags}
	if err := d.ioctl(tegraIOWR(cmdGemCreate, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg)); err != nil {
		return 0, err
	}
	return arg.Handle, nil
}

func (d *RealDriver) GemMmapOffset(handle uint32) (uint64, error) {
	arg := GemMmap{Handle: handle}
	if err := d.ioctl(tegraIOWR(cmdGemMmap, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg)); err != nil {
		return 0, err
	}
	return uint64(arg.Offset), nil
}

func (d *RealDriver) GemSetFlags(handle uint32, flags uint32) error {
	arg := GemSetFlags{Handle: handle, Flags: flags}
	return d.ioctl(tegraIOWR(cmdGemSetFlags, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg))
}

func (d *RealDriver) GemGetFlags(handle uint32) (uint32, error) {
	arg := GemGetFlags{Handle: handle}
	if err := d.ioctl(tegraIOWR(cmdGemGetFlags, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg)); err != nil {
		return 0, err
	}
	return arg.Flags, nil
}

func (d *RealDriver) GemSetTiling(handle uint32, mode, value uint32) error {
	arg := GemSetTiling{Handle: handle, Mode: mode, Value: value}
	return d.ioctl(tegraIOWR(cmdGemSetTiling, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg))
}

func (d *RealDriver) GemGetTiling(handle uint32) (uint32, uint32, error) {
	arg := GemGetTiling{Handle: handle}
	if err := d.ioctl(tegraIOWR(cmdGemGetTiling, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg)); err != nil {
		return 0, 0, err
	}
	return arg.Mode, arg.Value, nil
}

func (d *RealDriver) OpenChannel(client uint32) (uint64, error) {
	arg := OpenChannel{Client: client}
	if err := d.ioctl(tegraIOWR(cmdOpenChannel, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg)); err != nil {
		return 0, err
	}
	return arg.Context, nil
}

func (d *RealDriver) CloseChannel(context uint64) error {
	arg := CloseChannel{Context: context}
	return d.ioctl(tegraIOWR(cmdCloseChannel, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg))
}

func (d *RealDriver) GetSyncpt(context uint64, index uint32) (uint32, error) {
	arg := GetSyncpt{Context: context, Index: index}
	if err := d.ioctl(tegraIOWR(cmdGetSyncpt, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg)); err != nil {
		return 0, err
	}
	return arg.ID, nil
}

func (d *RealDriver) GetSyncptBase(context uint64, index uint32) (uint32, error) {
	arg := GetSyncptBase{Context: context, Index: index}
	if err := d.ioctl(tegraIOWR(cmdGetSyncptBase, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg)); err != nil {
		return 0, err
	}
	return arg.BaseID, nil
}

func (d *RealDriver) SyncptRead(id uint32) (uint32, error) {
	arg := SyncptRead{ID: id}
	if err := d.ioctl(tegraIOWR(cmdSyncptRead, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg)); err != nil {
		return 0, err
	}
	return arg.Value, nil
}

func (d *RealDriver) SyncptIncr(id uint32) error {
	arg := SyncptIncr{ID: id}
	return d.ioctl(tegraIOWR(cmdSyncptIncr, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg))
}

func (d *RealDriver) SyncptWait(id, thresh, timeoutMs uint32) (uint32, error) {
	arg := SyncptWait{ID: id, Thresh: thresh, Timeout: timeoutMs}
	if err := d.ioctl(tegraIOWR(cmdSyncptWait, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg)); err != nil {
		return 0, err
	}
	return arg.Value, nil
}

func (d *RealDriver) Mmap(offset uint64, length uint64) ([]byte, error) {
	return unix.Mmap(d.fd, int64(offset), int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func (d *RealDriver) Munmap(mapped []byte) error {
	return unix.Munmap(mapped)
}

func (d *RealDriver) PrimeHandleToFD(handle uint32, cloexec bool) (int, error) {
	arg := PrimeHandle{Handle: handle}
	if cloexec {
		arg.Flags |= DRMCloexec
	}
	if err := d.ioctl(drmIOWR(cmdPrimeHandleToFD, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg)); err != nil {
		return 0, err
	}
	return int(arg.FD), nil
}

func (d *RealDriver) PrimeFDToHandle(fd int) (uint32, error) {
	arg := PrimeHandle{FD: int32(fd)}
	if err := d.ioctl(drmIOWR(cmdPrimeFDToHandle, uint32(unsafe.Sizeof(arg))), unsafe.Pointer(&arg)); err != nil {
		return 0, err
	}
	return arg.Handle, nil
}

func (d *RealDriver) Submit(req *Submit, syncpts []Syncpt, cmdbufs []Cmdbuf, relocs []Reloc, waitchks []Waitchk) (uint32, error) {
	req.NumSyncpts = uint32(len(syncpts))
	req.NumCmdbufs = uint32(len(cmdbufs))
	req.NumRelocs = uint32(len(relocs))
	req.NumWaitchks = uint32(len(waitchks))
	if len(syncpts) > 0 {
		req.Syncpts = uint64(uintptr(unsafe.Pointer(&syncpts[0])))
	}
	if len(cmdbufs) > 0 {
		req.Cmdbufs = uint64(uintptr(unsafe.Pointer(&cmdbufs[0])))
	}
	if len(relocs) > 0 {
		req.Relocs = uint64(uintptr(unsafe.Pointer(&relocs[0])))
	}
	if len(waitchks) > 0 {
		req.Waitchks = uint64(uintptr(unsafe.Pointer(&waitchks[0])))
	}
	d.logger.Debug("submit", "context", req.Context, "cmdbufs", len(cmdbufs), "relocs", len(relocs))
	if err := d.ioctl(tegraIOWR(cmdSubmit, uint32(unsafe.Sizeof(*req))), unsafe.Pointer(req)); err != nil {
		return 0, err
	}
	return req.Fence, nil
}
