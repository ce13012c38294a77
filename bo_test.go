package host1x

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) (*Device, *MockDriver) {
	t.Helper()
	driver := NewMockDriver("")
	dev, err := New(driver, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dev.Close() })
	return dev, driver
}

func TestNewBORejectsZeroSize(t *testing.T) {
	dev, _ := newTestDevice(t)
	_, err := dev.NewBO(0, 0)
	require.Error(t, err)
	require.True(t, IsCode(err, CodeInvalid))
}

func TestBOReuseRoundTrip(t *testing.T) {
	dev, driver := newTestDevice(t)

	bo1, err := dev.NewBO(0, 4096)
	require.NoError(t, err)
	firstHandle := bo1.GetHandle()
	bo1.Unref()

	bo2, err := dev.NewBO(0, 4096)
	require.NoError(t, err)
	require.Equal(t, firstHandle, bo2.GetHandle())
	require.Equal(t, 1, driver.GemCreateCalls, "second NewBO should hit the reuse cache, not GEM_CREATE again")
	bo2.Unref()
}

func TestBORefcountGatesVisibility(t *testing.T) {
	dev, driver := newTestDevice(t)

	bo, err := dev.NewBO(0, 4096)
	require.NoError(t, err)
	bo.Ref()
	bo.Unref() // still ref=1, BO must stay live
	bo.Unref() // ref=0, goes to cache — no GEM_CLOSE since reuse-eligible

	require.Equal(t, 0, driver.GemCloseCalls)
}

func TestBONameDedup(t *testing.T) {
	dev, driver := newTestDevice(t)

	bo, err := dev.NewBO(0, 4096)
	require.NoError(t, err)

	name, err := bo.GetName()
	require.NoError(t, err)
	require.Equal(t, 1, driver.GemFlinkCalls)

	// A second GetName call must not re-flink.
	name2, err := bo.GetName()
	require.NoError(t, err)
	require.Equal(t, name, name2)
	require.Equal(t, 1, driver.GemFlinkCalls)

	other, err := dev.FromName(name, 0)
	require.NoError(t, err)
	require.Same(t, bo, other)

	bo.Unref()
	other.Unref()
	require.Equal(t, 1, driver.GemCloseCalls, "flinked BOs are not reuse-eligible and must be closed exactly once")
}

func TestBOMapUnmapBalance(t *testing.T) {
	dev, _ := newTestDevice(t)

	bo, err := dev.NewBO(0, 4096)
	require.NoError(t, err)
	defer bo.Unref()

	mapped, err := bo.Map()
	require.NoError(t, err)
	require.Len(t, mapped, 4096)

	mapped2, err := bo.Map()
	require.NoError(t, err)
	require.Equal(t, &mapped[0], &mapped2[0])

	require.NoError(t, bo.Unmap())
	require.NoError(t, bo.Unmap())
}

func TestBOFromDmabufRoundTrip(t *testing.T) {
	dev, driver := newTestDevice(t)

	bo, err := dev.NewBO(0, 4096)
	require.NoError(t, err)

	fd, err := bo.ToDmabuf(true)
	require.NoError(t, err)
	require.GreaterOrEqual(t, fd, 0)

	imported, err := dev.FromDmabuf(fd, 0, 4096)
	require.NoError(t, err)
	_ = driver
	bo.Unref()
	imported.Unref()
}

func TestBOSetFlagsMarksCustom(t *testing.T) {
	dev, driver := newTestDevice(t)

	bo, err := dev.NewBO(0, 4096)
	require.NoError(t, err)
	require.NoError(t, bo.SetFlags(0x1))
	require.True(t, bo.customFlags)

	flags, err := bo.GetFlags()
	require.NoError(t, err)
	require.Equal(t, uint32(0x1), flags)
	_ = driver
	bo.Unref()
}

func TestBOSizeRounding(t *testing.T) {
	dev, _ := newTestDevice(t)
	bo, err := dev.NewBO(0, 1)
	require.NoError(t, err)
	defer bo.Unref()
	require.Equal(t, uint64(4096), bo.GetSize(), "a fresh allocation is rounded up to a whole page")
}
