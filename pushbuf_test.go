package host1x

import (
	"testing"

	"github.com/grate-driver/go-host1x/internal/drm"
	"github.com/stretchr/testify/require"
)

func newTestJob(t *testing.T) *Job {
	t.Helper()
	dev, _ := newTestDevice(t)
	ch, err := dev.OpenChannel(drm.ClassHost1x)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	return ch.NewJob()
}

func TestPushbufPushWithoutPrepareFails(t *testing.T) {
	job := newTestJob(t)
	pb := job.NewPushbuf()
	err := pb.Push(0)
	require.Error(t, err)
	require.True(t, IsCode(err, CodeInvalid))
}

func TestPushbufPushAndSync(t *testing.T) {
	job := newTestJob(t)
	pb := job.NewPushbuf()
	require.NoError(t, pb.Prepare(8))

	require.NoError(t, pb.Push(0xDEAD0001))
	require.NoError(t, pb.Push(0xDEAD0002))
	require.NoError(t, pb.Sync(0))

	require.Equal(t, uint32(1), job.increments)

	fence, err := job.Submit()
	require.NoError(t, err)
	require.NoError(t, fence.Wait(0))
	require.Equal(t, uint32(1), fence.Value())
}

func TestPushbufOversizedAllocationTriggersSecondGather(t *testing.T) {
	job := newTestJob(t)
	pb := job.NewPushbuf()
	require.NoError(t, pb.Prepare(4))
	firstBO := pb.bo

	require.NoError(t, pb.Push(1))
	require.NoError(t, pb.Push(2))

	// Ask for more room than the first backing BO has left; Prepare must
	// commit the outgoing gather and switch to a fresh BO transparently.
	require.NoError(t, pb.Prepare(pb.endWord+1))
	require.NotSame(t, firstBO, pb.bo)
	require.Len(t, job.cmdbufs, 1, "the first gather must have been committed as a cmdbuf entry")
}

func TestPushbufRelocateWritesSentinel(t *testing.T) {
	job := newTestJob(t)
	dev := job.channel.dev
	target, err := dev.NewBO(0, 4096)
	require.NoError(t, err)
	defer target.Unref()

	pb := job.NewPushbuf()
	require.NoError(t, pb.Prepare(4))
	require.NoError(t, pb.Relocate(target, 0, 0))

	require.Len(t, job.relocs, 1)
	word := pb.currentWord - 1
	got := uint32(pb.words[word*4]) | uint32(pb.words[word*4+1])<<8 | uint32(pb.words[word*4+2])<<16 | uint32(pb.words[word*4+3])<<24
	require.Equal(t, uint32(0xDEADBEEF), got)
}

func TestPushbufFreeUnrefsOwnReferenceOnly(t *testing.T) {
	job := newTestJob(t)
	pb := job.NewPushbuf()
	require.NoError(t, pb.Prepare(4))
	require.NoError(t, pb.Push(1))

	job.commitGather(pb) // job now holds its own ref on pb.bo too
	bo := pb.bo

	require.NoError(t, pb.Free())
	require.Len(t, job.channel.dev.handleTable, 1, "the job's own reference must keep the BO alive after Pushbuf.Free")

	job.Free()
	_ = bo
	require.Len(t, job.channel.dev.handleTable, 0, "Job.Free must release the job's reference too")
}
