package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/neilberkman/oralvis/internal/core/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var startCopy bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new capture session",
	Long: `Start a new capture session and reserve its identifier.

The session stays active until 'oralvis end' or 'oralvis abandon'.

Examples:
  oralvis start
  oralvis start --copy`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

var captureConfirm bool

var captureCmd = &cobra.Command{
	Use:   "capture [image...]",
	Short: "Add images to the active session",
	Long: `Add images to the active session.

Each file is copied into the session directory under a fresh IMG_<timestamp>.jpg
name. With no arguments a path is reserved and printed for a camera to write
to; confirm it afterwards with --confirm so it is counted.

Examples:
  oralvis capture ~/DCIM/photo1.jpg ~/DCIM/photo2.jpg
  oralvis capture
  oralvis capture --confirm ~/.config/oralvis/Pictures/Sessions/S3/IMG_20250601_140509.jpg`,
	RunE: runCapture,
}

var (
	endName string
	endAge  string
)

var endCmd = &cobra.Command{
	Use:   "end",
	Short: "End the active session and save it",
	Long: `End the active session, saving the patient's name and age with the
number of images captured.

Examples:
  oralvis end --name "Jane Doe" --age 34`,
	Args: cobra.NoArgs,
	RunE: runEnd,
}

var abandonCmd = &cobra.Command{
	Use:   "abandon",
	Short: "Discard the active session without saving it",
	Long: `Discard the active session. No record is saved; images already captured
stay on disk and are reported by 'oralvis reconcile'.`,
	Args: cobra.NoArgs,
	RunE: runAbandon,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active session",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(startCmd, captureCmd, endCmd, abandonCmd, statusCmd)

	startCmd.Flags().BoolVar(&startCopy, "copy", false, "Copy the session ID to the clipboard")
	captureCmd.Flags().BoolVar(&captureConfirm, "confirm", false, "Count files written to paths reserved by this session")
	endCmd.Flags().StringVar(&endName, "name", "", "Patient name")
	endCmd.Flags().StringVar(&endAge, "age", "", "Patient age")
}

func runStart(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	existing, err := a.state.Load()
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", session.ErrSessionActive, existing.SessionID)
	}

	c, err := a.service.Start(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	if err := a.state.Save(c); err != nil {
		return err
	}

	fmt.Printf("Session %s started\n", c.SessionID)

	if startCopy {
		if err := clipboard.WriteAll(c.SessionID); err != nil {
			log.Warn().Err(err).Msg("clipboard unavailable")
		} else {
			fmt.Println("Session ID copied to clipboard")
		}
	}
	return nil
}

func runCapture(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.activeCapture()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		path, err := a.service.NewImagePath(c)
		if err != nil {
			return err
		}
		// The reservation must outlive this process for --confirm
		if err := a.state.Save(c); err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	}

	for _, src := range args {
		if captureConfirm {
			path, err := filepath.Abs(src)
			if err == nil {
				err = a.service.ConfirmImage(c, path)
			}
			if err != nil {
				fmt.Printf("✗ %s: %v\n", src, err)
			} else {
				fmt.Printf("✓ %s\n", path)
			}
			continue
		}

		dst, err := a.service.NewImagePath(c)
		if err != nil {
			return err
		}
		size, err := copyFile(src, dst)
		c.AddImage(dst, err == nil)
		if err != nil {
			fmt.Printf("✗ %s: %v\n", src, err)
			continue
		}
		fmt.Printf("✓ %s → %s (%s)\n", src, dst, humanize.Bytes(uint64(size)))
	}

	if err := a.state.Save(c); err != nil {
		return err
	}
	fmt.Printf("Session %s: %d image(s)\n", c.SessionID, c.ImageCount())
	return nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, err
	}
	return n, nil
}

func runEnd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.activeCapture()
	if err != nil {
		return err
	}

	record, err := a.service.End(cmd.Context(), c, endName, endAge)
	if errors.Is(err, session.ErrIncompleteDetails) {
		fmt.Println("Session not ended: enter both --name and --age.")
		return nil
	}
	if err != nil {
		return err
	}
	if err := a.state.Clear(); err != nil {
		return err
	}

	fmt.Printf("Session %s saved: %s, age %d, %d image(s)\n",
		record.SessionID, record.Name, record.Age, record.ImageCount)
	return nil
}

func runAbandon(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.activeCapture()
	if err != nil {
		return err
	}
	if err := a.service.Abandon(c); err != nil {
		return err
	}
	if err := a.state.Clear(); err != nil {
		return err
	}

	fmt.Printf("Session %s abandoned (%d image(s) left on disk)\n", c.SessionID, c.ImageCount())
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.state.Load()
	if err != nil {
		return err
	}
	if c == nil {
		fmt.Println("No active session.")
		return nil
	}

	fmt.Printf("Active session: %s\n", c.SessionID)
	fmt.Printf("Started:        %s\n", humanize.Time(c.StartedAt))
	fmt.Printf("Images:         %d\n", c.ImageCount())
	return nil
}
