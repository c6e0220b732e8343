package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Finish interrupted deletes and report orphaned images",
	Long: `Retry deletes whose image purge failed, then list session directories
that have no saved record (abandoned or interrupted captures).

Orphaned directories are only reported, never removed.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	spin := newSpinner("Reconciling session directories...")
	spin.Start()
	report, err := a.service.Reconcile(cmd.Context())
	spin.Stop()
	if err != nil {
		return err
	}

	// The active capture has a directory but no record yet
	active, err := a.state.Load()
	if err != nil {
		return err
	}

	for _, id := range report.Purged {
		fmt.Printf("✓ deleted %s\n", id)
	}
	for id, reason := range report.Failed {
		fmt.Printf("✗ %s still pending: %s\n", id, reason)
	}
	for _, id := range report.Orphans {
		if active != nil && active.SessionID == id {
			continue
		}
		images, err := a.dirs.ImagesFor(id)
		if err != nil {
			return err
		}
		fmt.Printf("? %s has %d image(s) but no record\n", id, len(images))
	}

	if len(report.Purged) == 0 && len(report.Failed) == 0 && len(report.Orphans) == 0 {
		fmt.Println("Nothing to reconcile.")
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d delete(s) still pending", len(report.Failed))
	}
	return nil
}
