package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/audioscope/audioscope/internal/event"
	"github.com/audioscope/audioscope/internal/proctree"
)

var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Show the focused process and its audio sessions",
	Long: `Resolve the process owning the focused window, print its ancestry and
list every audio session owned by the process or its descendants.`,
	Example: `  # Correlate the focused window with audio sessions
  audioscope focus

  # JSON output
  audioscope focus --format json`,
	RunE: runFocus,
}

var focusFormat string

func init() {
	rootCmd.AddCommand(focusCmd)
	focusCmd.Flags().StringVarP(&focusFormat, "format", "f", "table", "output format (table or json)")
}

func runFocus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	backend, err := buildFocusBackend(cfg)
	if err != nil {
		return err
	}
	if backend == nil {
		return fmt.Errorf("focus backend is disabled in config")
	}
	defer backend.Close()

	pid, err := backend.FocusedPID()
	if err != nil {
		return fmt.Errorf("failed to resolve focused window: %w", err)
	}

	inspector := proctree.SystemInspector{}
	snap, err := inspector.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to snapshot process table: %w", err)
	}
	ancestry := snap.Ancestry(pid)

	sys, err := buildAudioSystem(cfg)
	if err != nil {
		return err
	}
	_, rc, err := bootstrapReconciler(sys)
	if err != nil {
		return err
	}

	// One-shot: queue the single focus observation, then drain the
	// reconciler synchronously so the correlation happens before we read
	// it back.
	rc.Queue().Push(event.Envelope{Payload: event.FocusChanged{PID: pid}})
	drain(rc)

	focusedPID, sessions, ok := rc.Focused()
	if !ok {
		return fmt.Errorf("focus correlation did not run")
	}

	if focusFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"pid":      focusedPID,
			"ancestry": ancestry,
			"sessions": sessions,
		})
	}

	fmt.Printf("Focused pid: %d\n", focusedPID)
	for i, p := range ancestry {
		indent := ""
		for j := 0; j < i; j++ {
			indent += "  "
		}
		fmt.Printf("%s%d %s\n", indent, p.PID, p.Name)
	}
	fmt.Println()

	if len(sessions) == 0 {
		fmt.Println("No audio sessions owned by the focused process tree.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tINSTANCE\tPID\tNAME")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.DeviceID, s.InstanceID, s.PID, s.DisplayName)
	}
	return w.Flush()
}
