package audiosys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFlow(t *testing.T) {
	flow, err := ParseFlow(int(FlowRender))
	require.NoError(t, err)
	require.Equal(t, FlowRender, flow)

	flow, err = ParseFlow(int(FlowCapture))
	require.NoError(t, err)
	require.Equal(t, FlowCapture, flow)

	// The wildcard is a legal wire value; only matrix indexing rejects it.
	flow, err = ParseFlow(int(FlowAll))
	require.NoError(t, err)
	require.Equal(t, FlowAll, flow)

	_, err = ParseFlow(3)
	require.ErrorIs(t, err, ErrUnknownFlow)
	_, err = ParseFlow(-1)
	require.ErrorIs(t, err, ErrUnknownFlow)
}

func TestParseRole(t *testing.T) {
	for _, role := range Roles() {
		got, err := ParseRole(int(role))
		require.NoError(t, err)
		require.Equal(t, role, got)
	}

	_, err := ParseRole(3)
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestParseDeviceState(t *testing.T) {
	for _, state := range []DeviceState{DeviceActive, DeviceDisabled, DeviceNotPresent, DeviceUnplugged} {
		got, err := ParseDeviceState(int(state))
		require.NoError(t, err)
		require.Equal(t, state, got)
	}

	_, err := ParseDeviceState(4)
	require.ErrorIs(t, err, ErrUnknownDeviceState)
}

func TestParseSessionState(t *testing.T) {
	for _, state := range []SessionState{SessionInactive, SessionActive, SessionExpired} {
		got, err := ParseSessionState(int(state))
		require.NoError(t, err)
		require.Equal(t, state, got)
	}

	_, err := ParseSessionState(3)
	require.ErrorIs(t, err, ErrUnknownSessionState)
}

func TestParseDisconnectReason(t *testing.T) {
	valid := []DisconnectReason{
		DisconnectDeviceRemoval,
		DisconnectServerShutdown,
		DisconnectFormatChanged,
		DisconnectSessionLogoff,
		DisconnectSessionDisconnected,
		DisconnectExclusiveModeOverride,
	}
	for _, reason := range valid {
		got, err := ParseDisconnectReason(int(reason))
		require.NoError(t, err)
		require.Equal(t, reason, got)
	}

	// DisconnectExpired is synthesized internally and never arrives on
	// the wire, so the parser rejects its raw value.
	_, err := ParseDisconnectReason(int(DisconnectExpired))
	require.ErrorIs(t, err, ErrUnknownDisconnectReason)
	_, err = ParseDisconnectReason(99)
	require.ErrorIs(t, err, ErrUnknownDisconnectReason)
}
