package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/audioscope/audioscope/internal/audiosys"
	"github.com/audioscope/audioscope/internal/audiosys/sim"
	"github.com/audioscope/audioscope/internal/config"
	"github.com/audioscope/audioscope/internal/event"
	"github.com/audioscope/audioscope/internal/focus"
	"github.com/audioscope/audioscope/internal/logger"
	"github.com/audioscope/audioscope/internal/proctree"
	"github.com/audioscope/audioscope/internal/registry"
)

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	mgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}

	cfg := mgr.Get()
	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			cfg.ServerPort = port
		}
	}
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			cfg.LogLevel = level
		}
	}

	logger.Init(cfg.LogLevel, true)
	return cfg, nil
}

// buildAudioSystem selects the audio backend. The simulated backend
// carries a small demo scene so one-shot commands have something to
// show; platform backends enumerate whatever the host has.
func buildAudioSystem(cfg *config.Config) (audiosys.System, error) {
	switch cfg.Audio.Backend {
	case "sim", "":
		return demoScene(), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q (no platform backend compiled in)", cfg.Audio.Backend)
	}
}

func demoScene() *sim.System {
	sys := sim.New()
	sys.AddDevice("speakers", "Demo Speakers", audiosys.DeviceActive)
	sys.AddDevice("headset", "Demo Headset", audiosys.DeviceActive)
	sys.AddDevice("mic", "Demo Microphone", audiosys.DeviceActive)

	sys.AddSession("speakers", sim.SessionSpec{
		InstanceID:  "speakers/self",
		SessionID:   "self",
		PID:         uint32(os.Getpid()),
		DisplayName: "audioscope",
		State:       audiosys.SessionActive,
		Volume:      0.8,
	})
	sys.AddSession("speakers", sim.SessionSpec{
		InstanceID: "speakers/music",
		SessionID:  "music",
		PID:        4242,
		State:      audiosys.SessionActive,
		Volume:     0.5,
	})
	sys.AddSession("headset", sim.SessionSpec{
		InstanceID:  "headset/voice",
		SessionID:   "voice",
		PID:         4243,
		DisplayName: "Voice Chat",
		State:       audiosys.SessionInactive,
		Volume:      1.0,
		Mute:        true,
	})

	sys.SetDefault(audiosys.FlowRender, audiosys.RoleConsole, "speakers")
	sys.SetDefault(audiosys.FlowRender, audiosys.RoleMultimedia, "speakers")
	sys.SetDefault(audiosys.FlowRender, audiosys.RoleCommunications, "headset")
	sys.SetDefault(audiosys.FlowCapture, audiosys.RoleConsole, "mic")
	sys.SetDefault(audiosys.FlowCapture, audiosys.RoleMultimedia, "mic")
	sys.SetDefault(audiosys.FlowCapture, audiosys.RoleCommunications, "mic")
	return sys
}

// buildFocusBackend selects the focus backend, or returns nil when
// focus tracking is disabled.
func buildFocusBackend(cfg *config.Config) (focus.Backend, error) {
	switch cfg.Focus.Backend {
	case "x11":
		return focus.NewX11Backend(time.Duration(cfg.Focus.PollIntervalMs) * time.Millisecond)
	case "static":
		pid := cfg.Focus.StaticPID
		if pid == 0 {
			pid = int32(os.Getpid())
		}
		return focus.NewStaticBackend(pid), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown focus backend %q", cfg.Focus.Backend)
	}
}

// bootstrapReconciler builds a reconciler over a fresh registry and
// primes it from the audio system.
func bootstrapReconciler(sys audiosys.System) (*registry.Registry, *registry.Reconciler, error) {
	reg := registry.New()
	rc := registry.NewReconciler(sys, reg, event.NewQueue(), proctree.SystemInspector{})
	if err := rc.Bootstrap(); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap registry: %w", err)
	}
	return reg, rc, nil
}
