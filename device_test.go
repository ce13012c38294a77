package host1x

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsWrongDriverName(t *testing.T) {
	driver := NewMockDriver("not-tegra")
	_, err := New(driver, nil)
	require.Error(t, err)
	require.True(t, IsCode(err, CodeNotSupported))
}

func TestNewAcceptsTegraDriver(t *testing.T) {
	driver := NewMockDriver("")
	dev, err := New(driver, nil)
	require.NoError(t, err)
	require.NotNil(t, dev)
}

func TestWrapSkipsVersionCheck(t *testing.T) {
	driver := NewMockDriver("whatever")
	dev := Wrap(driver, false, nil)
	require.NotNil(t, dev)
}

func TestDeviceCloseDrainsCacheAndClosesOwnedDriver(t *testing.T) {
	driver := NewMockDriver("")
	dev := Wrap(driver, true, nil)

	bo, err := dev.NewBO(0, 4096)
	require.NoError(t, err)
	bo.Unref() // goes into the reuse cache, not freed yet

	require.NoError(t, dev.Close())
	require.Equal(t, 1, driver.GemCloseCalls)

	// Closing twice is a no-op.
	require.NoError(t, dev.Close())
}

func TestDeviceCloseDoesNotCloseUnownedDriver(t *testing.T) {
	driver := NewMockDriver("")
	dev := Wrap(driver, false, nil)
	require.NoError(t, dev.Close())
}

func TestObserverRecordsCacheHitAndMiss(t *testing.T) {
	driver := NewMockDriver("")
	m := NewMetrics()
	dev, err := New(driver, &Options{Observer: m})
	require.NoError(t, err)

	bo1, err := dev.NewBO(0, 4096)
	require.NoError(t, err)
	bo1.Unref()

	bo2, err := dev.NewBO(0, 4096)
	require.NoError(t, err)
	bo2.Unref()

	snap := m.Snapshot()
	require.EqualValues(t, 1, snap.CacheMisses)
	require.EqualValues(t, 1, snap.CacheHits)
}
