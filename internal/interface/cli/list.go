package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/oralvis/internal/core/search"
	"github.com/spf13/cobra"
)

var (
	listLimit  int
	listSince  string
	listBefore string
)

var listCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List saved sessions",
	Long: `List saved sessions in the order they were recorded.

The optional query filters by patient name and accepts the same prefixes as
the browser search: name:, after:, before:, date:, limit:.

Examples:
  oralvis list
  oralvis list --limit 10
  oralvis list jane
  oralvis list --since "last week"
  oralvis list after:2025-01-01 before:2025-02-01`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum number of sessions to display (0 = all)")
	listCmd.Flags().StringVar(&listSince, "since", "", "Only sessions recorded after this date (e.g. yesterday, 2025-01-08)")
	listCmd.Flags().StringVar(&listBefore, "before", "", "Only sessions recorded before this date")
}

func runList(cmd *cobra.Command, args []string) error {
	now := time.Now()
	filters := search.ParseQuery(strings.Join(args, " "), now)
	if listSince != "" {
		t, ok := search.ParseDate(nil, listSince, now)
		if !ok {
			return fmt.Errorf("could not parse --since %q", listSince)
		}
		filters.AfterDate, filters.HasAfter = t, true
	}
	if listBefore != "" {
		t, ok := search.ParseDate(nil, listBefore, now)
		if !ok {
			return fmt.Errorf("could not parse --before %q", listBefore)
		}
		filters.BeforeDate, filters.HasBefore = t, true
	}
	if listLimit > 0 {
		filters.Limit = listLimit
	}

	// A bare identifier is a lookup, not a name filter
	if filters.SessionID != "" {
		return runShow(cmd, []string{filters.SessionID})
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sessions, err := a.db.ListSessions(cmd.Context(), filters.SessionFilter())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		if len(args) > 0 || listSince != "" || listBefore != "" {
			fmt.Println("No sessions match.")
		} else {
			fmt.Println("No sessions found. Run 'oralvis start' to record one.")
		}
		return nil
	}

	fmt.Printf("Showing %d session(s)\n\n", len(sessions))
	fmt.Printf("%-8s %-28s %4s %7s  %s\n", "ID", "NAME", "AGE", "IMAGES", "RECORDED")
	for _, s := range sessions {
		fmt.Printf("%-8s %-28s %4d %7d  %s\n",
			s.SessionID,
			truncateName(s.Name, 28),
			s.Age,
			s.ImageCount,
			humanize.Time(s.CreatedAt()))
	}

	return nil
}

// truncateName collapses whitespace and shortens a name to maxLen runes
func truncateName(name string, maxLen int) string {
	name = strings.Join(strings.Fields(name), " ")

	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen-3]) + "..."
}
