package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"

	// Registers the rtmidi driver for every command in this binary.
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/audioscope/audioscope/internal/trigger"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Monitor MIDI input and show matching triggers",
	Long: `Open a MIDI input port, print every incoming message and show which
configured triggers it would fire. Nothing is actuated; use this to
work out channel, key and value numbers for trigger rules.`,
	Example: `  # Listen on the first available port
  audioscope listen

  # Listen on a named port
  audioscope listen --midi-port "nanoKONTROL2"`,
	RunE: runListen,
}

var listenPort string

func init() {
	rootCmd.AddCommand(listenCmd)
	listenCmd.Flags().StringVar(&listenPort, "midi-port", "", "MIDI input port name (default is the first available)")
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	bindings, err := cfg.Bindings()
	if err != nil {
		return fmt.Errorf("invalid trigger config: %w", err)
	}
	table := trigger.NewTable(bindings)

	portName := listenPort
	if portName == "" {
		portName = cfg.MIDI.Port
	}

	in, err := trigger.FindInPort(portName)
	if err != nil {
		return err
	}

	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		line := msg.String()
		if fired := table.Match(msg); len(fired) > 0 {
			for _, b := range fired {
				line += fmt.Sprintf("  => %s", b.Action)
			}
		}
		fmt.Println(line)
	})
	if err != nil {
		return fmt.Errorf("listening on %q: %w", in.String(), err)
	}
	defer stop()

	fmt.Printf("Listening on %q with %d trigger(s), press Ctrl+C to stop\n", in.String(), table.Len())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	return nil
}
