package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/audioscope/audioscope/internal/api"
	"github.com/audioscope/audioscope/internal/focus"
	"github.com/audioscope/audioscope/internal/logger"
	"github.com/audioscope/audioscope/internal/trigger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the audioscope server",
	Long: `Start the audioscope server: reconcile audio system notifications into
the registry, track window focus, run MIDI triggers and expose the REST
API with the WebSocket event stream.`,
	Example: `  # Start server on default port (8080)
  audioscope serve

  # Start server on custom port
  audioscope serve --port 9090

  # Start with specific config file
  audioscope serve --config /path/to/config.yaml

  # Start with debug logging
  audioscope serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.WithComponent("serve")

	sys, err := buildAudioSystem(cfg)
	if err != nil {
		return err
	}

	reg, rc, err := bootstrapReconciler(sys)
	if err != nil {
		return err
	}

	reconcilerDone := make(chan struct{})
	go func() {
		rc.Run()
		close(reconcilerDone)
	}()

	backend, err := buildFocusBackend(cfg)
	if err != nil {
		return err
	}
	var tracker *focus.Tracker
	if backend != nil {
		tracker = focus.NewTracker(backend, rc.Queue())
		if err := tracker.Start(); err != nil {
			return err
		}
		defer tracker.Stop()
	} else {
		log.Info().Msg("focus tracking disabled")
	}

	if cfg.MIDI.Enabled {
		bindings, err := cfg.Bindings()
		if err != nil {
			return fmt.Errorf("invalid trigger config: %w", err)
		}
		listener := trigger.NewListener(trigger.NewTable(bindings), rc)
		if err := listener.Start(cfg.MIDI.Port); err != nil {
			return fmt.Errorf("failed to start MIDI listener: %w", err)
		}
		defer listener.Stop()
	}

	server := api.NewServer(reg, rc)
	go func() {
		if err := server.Start(cfg.ServerPort); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	log.Info().
		Int("port", cfg.ServerPort).
		Str("audio_backend", cfg.Audio.Backend).
		Msg("audioscope is running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down")
	rc.Shutdown()
	<-reconcilerDone
	return nil
}
