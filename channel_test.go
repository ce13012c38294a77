package host1x

import (
	"testing"

	"github.com/grate-driver/go-host1x/internal/drm"
	"github.com/stretchr/testify/require"
)

func TestOpenChannelRejectsUnknownClass(t *testing.T) {
	dev, _ := newTestDevice(t)
	_, err := dev.OpenChannel(0xFF)
	require.Error(t, err)
	require.True(t, IsCode(err, CodeInvalid))
}

func TestOpenChannelEnumeratesSyncpt(t *testing.T) {
	dev, _ := newTestDevice(t)
	ch, err := dev.OpenChannel(drm.ClassGR2D)
	require.NoError(t, err)
	require.Equal(t, 1, ch.NumSyncpts())
	require.NotZero(t, ch.SyncptID())
	require.Equal(t, int64(-1), ch.SyncptBase(), "mock driver doesn't support syncpoint bases")
}

func TestChannelReadSyncpt(t *testing.T) {
	dev, _ := newTestDevice(t)
	ch, err := dev.OpenChannel(drm.ClassHost1x)
	require.NoError(t, err)

	value, err := ch.ReadSyncpt(ch.SyncptID())
	require.NoError(t, err)
	require.Zero(t, value)
}

func TestChannelClose(t *testing.T) {
	dev, _ := newTestDevice(t)
	ch, err := dev.OpenChannel(drm.ClassGR3D)
	require.NoError(t, err)
	require.NoError(t, ch.Close())
}
