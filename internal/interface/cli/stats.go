package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Long: `Display statistics about saved sessions.

Shows session and image counts, date range, pending deletes, and storage info.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.db.GetStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Println("Database Statistics")
	fmt.Println("===================")
	fmt.Println()
	fmt.Printf("Total Sessions:    %d\n", stats.TotalSessions)
	fmt.Printf("Total Images:      %d\n", stats.TotalImages)
	if stats.PendingDeletes > 0 {
		fmt.Printf("Pending Deletes:   %d (run 'oralvis reconcile')\n", stats.PendingDeletes)
	}
	fmt.Println()

	if stats.TotalSessions > 0 {
		fmt.Printf("Oldest Session:    %s\n", stats.OldestSession.Format("Jan 2, 2006 3:04 PM"))
		fmt.Printf("Newest Session:    %s\n", stats.NewestSession.Format("Jan 2, 2006 3:04 PM"))
		fmt.Printf("Average Age:       %.1f\n", stats.AverageAge)
		fmt.Printf("Largest Session:   %s (%d images)\n", stats.LargestSessionID, stats.LargestImages)
		fmt.Println()
	}

	// Database file size
	fileInfo, err := os.Stat(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to stat database file: %w", err)
	}

	fmt.Printf("Database Location: %s\n", cfg.DBPath)
	fmt.Printf("Database Size:     %s\n", humanize.Bytes(uint64(fileInfo.Size())))
	fmt.Printf("Pictures Root:     %s\n", a.dirs.Root())

	return nil
}
