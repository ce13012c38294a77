package host1x

import (
	"syscall"
	"testing"
	"time"

	"github.com/grate-driver/go-host1x/internal/drm"
	"github.com/stretchr/testify/require"
)

func TestEmptyJobSubmitAndWait(t *testing.T) {
	dev, _ := newTestDevice(t)
	ch, err := dev.OpenChannel(drm.ClassHost1x)
	require.NoError(t, err)
	defer ch.Close()

	job := ch.NewJob()
	fence, err := job.Submit()
	require.NoError(t, err)
	require.Equal(t, ch.SyncptID(), fence.SyncptID())

	require.NoError(t, fence.Wait(0))
}

func TestFenceWaitTimesOut(t *testing.T) {
	dev, driver := newTestDevice(t)
	ch, err := dev.OpenChannel(drm.ClassHost1x)
	require.NoError(t, err)

	job := ch.NewJob()
	pb := job.NewPushbuf()
	require.NoError(t, pb.Prepare(4))
	require.NoError(t, pb.Sync(0))

	driver.SyncptWaitErr = NewErrnoError("SyncptWait", syscall.ETIMEDOUT) // force a timeout even though the mock would otherwise resolve instantly
	fence, err := job.Submit()
	require.NoError(t, err)

	err = fence.Wait(5 * time.Millisecond)
	require.Error(t, err)
	require.True(t, IsCode(err, CodeTimedOut))

	_ = pb.Free()
	job.Free()
}

func TestFenceFreeIsNoOp(t *testing.T) {
	f := &Fence{}
	require.NotPanics(t, func() { f.Free() })
}
