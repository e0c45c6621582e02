package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/audioscope/audioscope/internal/trigger"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.yaml")
}

func TestNewManagerCreatesDefaultConfig(t *testing.T) {
	path := tempConfigPath(t)
	mgr, err := NewManager(path)
	require.NoError(t, err)

	cfg := mgr.Get()
	require.Equal(t, 8080, cfg.ServerPort)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "sim", cfg.Audio.Backend)
	require.Equal(t, "x11", cfg.Focus.Backend)
	require.False(t, cfg.MIDI.Enabled)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config must be written to disk")
}

func TestConfigRoundTrip(t *testing.T) {
	path := tempConfigPath(t)
	mgr, err := NewManager(path)
	require.NoError(t, err)

	cfg := mgr.Get()
	cfg.ServerPort = 9999
	cfg.Focus.Backend = "static"
	cfg.Focus.StaticPID = 1234
	cfg.MIDI.Enabled = true
	cfg.MIDI.Triggers = []TriggerRule{
		{Kind: "note_on", Channel: 0, Key: 60, Value: 127, Match: "exact", Action: "toggle-focused-mute"},
	}
	require.NoError(t, mgr.Update(cfg))

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	got := reloaded.Get()
	require.Equal(t, 9999, got.ServerPort)
	require.Equal(t, "static", got.Focus.Backend)
	require.Equal(t, int32(1234), got.Focus.StaticPID)
	require.True(t, got.MIDI.Enabled)
	require.Len(t, got.MIDI.Triggers, 1)
	require.Equal(t, "toggle-focused-mute", got.MIDI.Triggers[0].Action)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := tempConfigPath(t)
	require.NoError(t, os.WriteFile(path, []byte("server_port: 9000\n"), 0644))

	mgr, err := NewManager(path)
	require.NoError(t, err)

	cfg := mgr.Get()
	require.Equal(t, 9000, cfg.ServerPort)
	require.Equal(t, "info", cfg.LogLevel, "unset fields keep their defaults")
	require.Equal(t, "x11", cfg.Focus.Backend)
}

func TestMalformedFileRejected(t *testing.T) {
	path := tempConfigPath(t)
	require.NoError(t, os.WriteFile(path, []byte("server_port: [not a port\n"), 0644))

	_, err := NewManager(path)
	require.Error(t, err)
}

func TestBindingsConversion(t *testing.T) {
	cfg := &Config{MIDI: MIDIConfig{Triggers: []TriggerRule{
		{Kind: "note_on", Channel: 0, Key: 60, Value: 100, Match: "exact", Action: "log"},
		{Kind: "cc", Channel: 2, Key: 7, Value: 64, Match: "at_least", Action: "mute-focused"},
	}}}

	bindings, err := cfg.Bindings()
	require.NoError(t, err)
	require.Len(t, bindings, 2)
	require.Equal(t, trigger.KindNoteOn, bindings[0].Kind)
	require.Equal(t, trigger.MatchExact, bindings[0].Match)
	require.Equal(t, trigger.KindControlChange, bindings[1].Kind)
	require.Equal(t, trigger.MatchAtLeast, bindings[1].Match)
	require.Equal(t, trigger.ActionMuteFocused, bindings[1].Action)
}

func TestBindingsRejectsMalformedRules(t *testing.T) {
	cases := []TriggerRule{
		{Kind: "bogus", Action: "log"},
		{Kind: "note_on", Match: "sometimes", Action: "log"},
		{Kind: "note_on", Action: "explode"},
		{Kind: "note_on", Channel: 16, Action: "log"},
		{Kind: "note_on", Key: 128, Action: "log"},
		{Kind: "note_on", Value: 200, Action: "log"},
	}
	for _, rule := range cases {
		cfg := &Config{MIDI: MIDIConfig{Triggers: []TriggerRule{rule}}}
		_, err := cfg.Bindings()
		require.Error(t, err, "rule %+v must be rejected", rule)
	}
}
