package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/audioscope/audioscope/internal/registry"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [device-id]",
	Short: "List audio sessions",
	Long: `List the audio sessions on one device, or on every device when no
device id is given.`,
	Example: `  # All sessions on all devices
  audioscope sessions

  # Sessions on one device
  audioscope sessions speakers

  # JSON output
  audioscope sessions --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessions,
}

var sessionsFormat string

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().StringVarP(&sessionsFormat, "format", "f", "table", "output format (table or json)")
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sys, err := buildAudioSystem(cfg)
	if err != nil {
		return err
	}
	reg, rc, err := bootstrapReconciler(sys)
	if err != nil {
		return err
	}
	defer drain(rc)

	devices := reg.Snapshot()
	if len(args) == 1 {
		snap, ok := reg.SnapshotDevice(args[0])
		if !ok {
			return fmt.Errorf("unknown device %q", args[0])
		}
		devices = []registry.DeviceSnapshot{snap}
	}

	if sessionsFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(devices)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tINSTANCE\tPID\tNAME\tSTATE\tVOLUME\tMUTE")
	for _, d := range devices {
		for _, s := range d.Sessions {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%.2f\t%v\n",
				d.ID, s.InstanceID, s.PID, s.DisplayName, s.State, s.Volume, s.Mute)
		}
	}
	return w.Flush()
}
