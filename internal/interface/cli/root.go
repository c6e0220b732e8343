package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/neilberkman/oralvis/internal/core/config"
	"github.com/neilberkman/oralvis/internal/core/db"
	"github.com/neilberkman/oralvis/internal/core/logging"
	"github.com/neilberkman/oralvis/internal/core/session"
	"github.com/neilberkman/oralvis/internal/core/storage"
	"github.com/spf13/cobra"
)

var (
	dbPath       string
	picturesRoot string
	logLevel     string
	versionInfo  string

	cfg *config.Config
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI. Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "oralvis",
	Short: "Clinical photo-capture session manager",
	Long: `oralvis - capture, search, and manage clinical photo sessions

Start a session, add photographs, then end it with the patient's name and age.
Sessions can later be looked up by identifier (S1, S2, ...) to review their
details and images, or deleted together with their images.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		// Flags win over config and environment
		if cmd.Flags().Changed("db") {
			cfg.DBPath = dbPath
		}
		if cmd.Flags().Changed("pictures") {
			cfg.PicturesRoot = picturesRoot
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}

		logging.Init(cfg.LogLevel)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to TUI if no subcommand specified
		return tuiCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default ~/.config/oralvis/sessions.db)")
	rootCmd.PersistentFlags().StringVar(&picturesRoot, "pictures", "", "Pictures root holding Sessions/ (default ~/.config/oralvis/Pictures)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// app bundles everything a command needs
type app struct {
	db      *db.DB
	dirs    *storage.Manager
	service *session.Service
	state   *session.StateFile
}

func openApp() (*app, error) {
	database, err := db.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	dirs := storage.NewManager(cfg.PicturesRoot)
	return &app{
		db:      database,
		dirs:    dirs,
		service: session.NewService(database, dirs),
		state:   session.NewStateFile(cfg.StatePath()),
	}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
}

// activeCapture loads the saved capture or fails with ErrNoActiveSession
func (a *app) activeCapture() (*session.Capture, error) {
	c, err := a.state.Load()
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w (run 'oralvis start')", session.ErrNoActiveSession)
	}
	return c, nil
}
