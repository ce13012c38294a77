package host1x

import (
	"fmt"

	"github.com/grate-driver/go-host1x/internal/drm"
)

// syncpoint pairs a syncpoint id with its optional base register; base
// is -1 when the kernel doesn't support bases for this syncpoint.
type syncpoint struct {
	id   uint32
	base int64
}

// Channel is the per-client-class submission endpoint described as C4:
// an opaque kernel context plus the enumerated set of syncpoints
// attached to it.
type Channel struct {
	dev     *Device
	class   uint32
	context uint64
	syncpts []syncpoint
}

var validClasses = map[uint32]bool{
	drm.ClassHost1x: true,
	drm.ClassGR2D:   true,
	drm.ClassGR2DSB: true,
	drm.ClassGR3D:   true,
}

// OpenChannel validates class against the known client-class set, opens
// the channel, then enumerates syncpoints by calling GET_SYNCPT with
// ascending index until the driver fails. GET_SYNCPT_BASE failures are
// tolerated: a missing base is stored as -1, not an error.
func (d *Device) OpenChannel(class uint32) (*Channel, error) {
	if !validClasses[class] {
		return nil, NewError("Channel.Open", CodeInvalid, fmt.Sprintf("unknown client class %#x", class))
	}

	context, err := d.driver.OpenChannel(class)
	if err != nil {
		return nil, WrapError("Channel.Open", err)
	}

	ch := &Channel{dev: d, class: class, context: context}
	for index := uint32(0); ; index++ {
		id, err := d.driver.GetSyncpt(context, index)
		if err != nil {
			break
		}
		base := int64(-1)
		if baseID, err := d.driver.GetSyncptBase(context, index); err == nil {
			base = int64(baseID)
		}
		ch.syncpts = append(ch.syncpts, syncpoint{id: id, base: base})
	}

	if len(ch.syncpts) == 0 {
		_ = d.driver.CloseChannel(context)
		return nil, NewError("Channel.Open", CodeInvalid, "no syncpoints enumerated")
	}

	d.logf("channel opened", "class", class, "context", context, "num_syncpts", len(ch.syncpts))
	return ch, nil
}

// Close issues a close-channel ioctl with the stored context.
func (c *Channel) Close() error {
	if err := c.dev.driver.CloseChannel(c.context); err != nil {
		return WrapError("Channel.Close", err)
	}
	return nil
}

// SyncptID returns the channel's chosen syncpoint id (syncpts[0].id).
func (c *Channel) SyncptID() uint32 {
	return c.syncpts[0].id
}

// SyncptBase returns the channel's chosen syncpoint base, or -1 if the
// kernel didn't report one.
func (c *Channel) SyncptBase() int64 {
	return c.syncpts[0].base
}

// NumSyncpts returns how many syncpoints were enumerated for this
// channel.
func (c *Channel) NumSyncpts() int {
	return len(c.syncpts)
}

// ReadSyncpt issues a diagnostic SYNCPT_READ for id. It is not part of
// the Fence contract; nothing else in this package depends on it.
func (c *Channel) ReadSyncpt(id uint32) (uint32, error) {
	value, err := c.dev.driver.SyncptRead(id)
	if err != nil {
		return 0, WrapError("Channel.ReadSyncpt", err)
	}
	return value, nil
}
