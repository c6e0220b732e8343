package cli

import (
	"fmt"

	"github.com/neilberkman/oralvis/internal/core/daemon"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep saved image counts in sync with the session directories",
	Long: `Watch the session directories and update a saved session's image count
whenever images are added to or removed from its directory.

Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := daemon.NewWatcher(a.db, a.dirs)
	if err != nil {
		return err
	}

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", a.dirs.Root())
	if err := w.Run(cmd.Context()); err != nil {
		return err
	}

	stats := w.Stats()
	fmt.Printf("Updated %d count(s), %d error(s)\n", stats.CountsUpdated, stats.Errors)
	return nil
}
