package cli

import (
	"errors"
	"fmt"

	"github.com/neilberkman/oralvis/internal/core/db"
	"github.com/neilberkman/oralvis/internal/core/search"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its images",
	Long: `Delete a session record together with its image directory.

If the images cannot be removed the session stays hidden and pending;
'oralvis reconcile' finishes the deletion later.

Examples:
  oralvis delete S7`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	sessionID := search.NormalizeSessionID(args[0])

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.service.Delete(cmd.Context(), sessionID)
	if errors.Is(err, db.ErrSessionNotFound) {
		fmt.Printf("No session found with ID: %s\n", sessionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete incomplete, run 'oralvis reconcile' to retry: %w", err)
	}

	fmt.Printf("Session %s deleted\n", sessionID)
	return nil
}
