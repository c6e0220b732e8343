package cli

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/oralvis/internal/core/search"
	"github.com/neilberkman/oralvis/internal/core/storage"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <session-id>",
	Aliases: []string{"search"},
	Short:   "Show a session and its images",
	Long: `Look up a session by identifier and show its details and images.

Examples:
  oralvis show S7
  oralvis search s7`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	sessionID := search.NormalizeSessionID(args[0])

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.service.Search(cmd.Context(), sessionID)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if !result.Found() {
		fmt.Printf("No session found with ID: %s\n", sessionID)
		return nil
	}

	s := result.Session
	fmt.Printf("Session:  %s\n", s.SessionID)
	fmt.Printf("Name:     %s\n", s.Name)
	fmt.Printf("Age:      %d\n", s.Age)
	fmt.Printf("Recorded: %s (%s)\n", s.CreatedAt().Format("Jan 2, 2006 3:04 PM"), humanize.Time(s.CreatedAt()))
	fmt.Printf("Images:   %d\n", s.ImageCount)
	fmt.Println()

	if len(result.Images) == 0 {
		fmt.Println("No images found for this session.")
		return nil
	}

	fmt.Printf("Images on disk (%d):\n", len(result.Images))
	for _, path := range result.Images {
		detail, err := storage.ImageDetails(path)
		if err != nil {
			fmt.Printf("  %s (unreadable: %v)\n", filepath.Base(path), err)
			continue
		}
		line := fmt.Sprintf("  %s  %s", filepath.Base(path), humanize.Bytes(uint64(detail.Size)))
		if !detail.DateTaken.IsZero() {
			line += "  taken " + detail.DateTaken.Format("2006-01-02 15:04:05")
		}
		fmt.Println(line)
	}
	fmt.Printf("\nDirectory: %s\n", filepath.Dir(result.Images[0]))
	return nil
}
