package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/neilberkman/oralvis/internal/core/report"
	"github.com/neilberkman/oralvis/internal/core/search"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session report to markdown",
	Long: `Render a session and its images into a markdown report.

The report uses a mustache template; set report_template in
~/.config/oralvis/config.toml to use your own.

By default exports to the current directory as session-<id>.md.

Examples:
  oralvis export S7
  oralvis export S7 --output ~/reports/s7.md
  oralvis export S7 -o -`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path, - for stdout (default: session-<id>.md)")
}

func runExport(cmd *cobra.Command, args []string) error {
	sessionID := search.NormalizeSessionID(args[0])

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.service.Search(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	if !result.Found() {
		return fmt.Errorf("no session found with ID: %s", sessionID)
	}

	out, err := report.Render(cfg.ReportTemplate, *result.Session, result.Images, time.Now())
	if err != nil {
		return err
	}

	if exportOutput == "-" {
		fmt.Print(out)
		return nil
	}

	outputPath := exportOutput
	if outputPath == "" {
		outputPath = fmt.Sprintf("session-%s.md", sessionID)
	}
	if !filepath.IsAbs(outputPath) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		outputPath = filepath.Join(cwd, outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Printf("Exported session %s to %s\n", sessionID, outputPath)
	return nil
}
