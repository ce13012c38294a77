package host1x

import (
	"time"

	"github.com/grate-driver/go-host1x/internal/constants"
)

// Fence is the (syncpoint id, target value) pair returned by a
// successful submit, described as C7. It is immutable after creation.
type Fence struct {
	dev      *Device
	syncptID uint32
	value    uint32
}

// SyncptID returns the fence's syncpoint id.
func (f *Fence) SyncptID() uint32 { return f.syncptID }

// Value returns the fence's target syncpoint value.
func (f *Fence) Value() uint32 { return f.value }

// Wait blocks until the syncpoint reaches the fence's target value or
// timeout elapses. timeout == 0 returns the current status
// synchronously; timeout < 0 is passed through as "wait forever".
func (f *Fence) Wait(timeout time.Duration) error {
	timeoutMs := uint32(constants.NoTimeout)
	if timeout >= 0 {
		timeoutMs = uint32(timeout.Milliseconds())
	}

	start := time.Now()
	_, err := f.dev.driver.SyncptWait(f.syncptID, f.value, timeoutMs)
	elapsed := time.Since(start)

	if err != nil {
		wrapped := WrapError("Fence.Wait", err)
		timedOut := wrapped.Code == CodeTimedOut
		f.recordWait(elapsed, timedOut)
		return wrapped
	}
	f.recordWait(elapsed, false)
	return nil
}

func (f *Fence) recordWait(d time.Duration, timedOut bool) {
	if f.dev.obs != nil {
		f.dev.obs.RecordWait(d.Nanoseconds(), timedOut)
	}
}

// Free drops the fence wrapper. Fences carry no kernel-side resource
// beyond the syncpoint itself, so this is a no-op kept for symmetry with
// the other component Free methods.
func (f *Fence) Free() {}
