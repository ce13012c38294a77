package host1x

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJobAddCmdbufTakesOwnRef(t *testing.T) {
	job := newTestJob(t)
	dev := job.channel.dev
	bo, err := dev.NewBO(0, 4096)
	require.NoError(t, err)

	job.AddCmdbuf(bo, 0, 1)
	bo.Unref() // drop the caller's own ref; the job's ref keeps it alive
	require.Contains(t, dev.handleTable, bo.GetHandle())

	job.Free()
	require.NotContains(t, dev.handleTable, bo.GetHandle())
}

func TestJobAddRelocTakesOwnRef(t *testing.T) {
	job := newTestJob(t)
	dev := job.channel.dev
	target, err := dev.NewBO(0, 4096)
	require.NoError(t, err)

	job.AddReloc(1, 0, target, 0, 0)
	target.Unref()
	require.Contains(t, dev.handleTable, target.GetHandle())

	job.Free()
	require.NotContains(t, dev.handleTable, target.GetHandle())
}

func TestJobSubmitWithTimeoutOption(t *testing.T) {
	job := newTestJob(t)
	fence, err := job.Submit(WithTimeout(50 * time.Millisecond))
	require.NoError(t, err)
	require.NotNil(t, fence)
}

func TestJobFreeIsIdempotentAcrossMultiplePushbufs(t *testing.T) {
	job := newTestJob(t)
	pb1 := job.NewPushbuf()
	require.NoError(t, pb1.Prepare(4))
	require.NoError(t, pb1.Push(1))

	pb2 := job.NewPushbuf()
	require.NoError(t, pb2.Prepare(4))
	require.NoError(t, pb2.Push(2))

	require.Len(t, job.pushbufs, 2)
	job.Free()
	require.Len(t, job.pushbufs, 0)
	job.Free()
	require.Len(t, job.pushbufs, 0)
}
