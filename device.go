package host1x

import (
	"fmt"
	"sync"

	"github.com/grate-driver/go-host1x/internal/constants"
	"github.com/grate-driver/go-host1x/internal/drm"
	"github.com/grate-driver/go-host1x/internal/logging"
)

// Options configures a Device beyond the bare driver connection.
type Options struct {
	Logger   *logging.Logger
	Observer Observer
	// Coarse disables the finer +1/4, +1/2, +3/4 bucket refinements in
	// the reuse cache, matching cache_init(coarse) in tegra_bo_cache.c.
	Coarse bool
}

// Device is the top-level handle described as C1: it owns the driver
// connection, the handle and name dedup tables, and both caches, all
// serialized by a single device-wide mutex.
type Device struct {
	driver drm.Driver
	owns   bool
	logger *logging.Logger
	obs    Observer

	tableLock   sync.Mutex
	handleTable map[uint32]*BO
	nameTable   map[uint32]*BO
	cache       *reuseCache

	closed bool
}

// New validates the driver name is "tegra" via the generic version
// ioctl, then wraps fd with owns=false.
func New(driver drm.Driver, opts *Options) (*Device, error) {
	name, err := driver.VersionName()
	if err != nil {
		return nil, WrapError("Device.New", err)
	}
	if name != constants.DriverName {
		return nil, NewError("Device.New", CodeNotSupported, fmt.Sprintf("driver %q is not %q", name, constants.DriverName))
	}
	return newDevice(driver, false, opts), nil
}

// Wrap constructs a Device without the driver-name check, taking
// ownership of fd (closing it on Close) iff owns is true.
func Wrap(driver drm.Driver, owns bool, opts *Options) *Device {
	return newDevice(driver, owns, opts)
}

func newDevice(driver drm.Driver, owns bool, opts *Options) *Device {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Device{
		driver:      driver,
		owns:        owns,
		logger:      logger,
		obs:         opts.Observer,
		handleTable: make(map[uint32]*BO),
		nameTable:   make(map[uint32]*BO),
		cache:       newReuseCache(opts.Coarse),
	}
}

// Close drains the reuse cache (evicting everything), destroys both
// indices, and closes the underlying fd iff owned. Not safe to call
// concurrently with other operations on the same Device.
func (d *Device) Close() error {
	d.tableLock.Lock()
	defer d.tableLock.Unlock()
	if d.closed {
		return nil
	}
	d.cache.drain()
	d.handleTable = make(map[uint32]*BO)
	d.nameTable = make(map[uint32]*BO)
	d.closed = true
	if !d.owns {
		return nil
	}
	return d.driver.Close()
}

func (d *Device) logf(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
