package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Streaming(t *testing.T) {
	streamID := "stream-1"

	active := Session{IsActive: true, DeviceInfo: DeviceInfo{ActiveStreamID: &streamID}}
	assert.True(t, active.Streaming())

	idle := Session{IsActive: true}
	assert.False(t, idle.Streaming())

	closed := Session{IsActive: false, DeviceInfo: DeviceInfo{ActiveStreamID: &streamID}}
	assert.False(t, closed.Streaming(), "a closed session never counts as streaming")
}

func TestDeviceInfo_Scan(t *testing.T) {
	var info DeviceInfo
	require.NoError(t, info.Scan([]byte(`{"browser":"Firefox","activeStreamId":"stream-1"}`)))
	assert.Equal(t, "Firefox", info.Browser)
	require.NotNil(t, info.ActiveStreamID)
	assert.Equal(t, "stream-1", *info.ActiveStreamID)

	require.NoError(t, info.Scan(nil))
	assert.Nil(t, info.ActiveStreamID)

	assert.Error(t, info.Scan(42))
}

func TestCloseReason_Valid(t *testing.T) {
	assert.True(t, CloseReasonUserRequest.Valid())
	assert.True(t, CloseReasonAdminAction.Valid())
	assert.True(t, CloseReasonSessionTimeout.Valid())
	assert.True(t, CloseReasonDeviceLimit.Valid())
	assert.False(t, CloseReason("because").Valid())
	assert.False(t, CloseReason("").Valid())
}
