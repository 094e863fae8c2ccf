package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lastned/lastned/internal/config"
	"github.com/lastned/lastned/internal/history"
	"github.com/lastned/lastned/internal/utils"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Globals shared by the subcommands once PersistentPreRunE has run
var (
	globalSettings *config.Settings
	logCloser      io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "lastned",
	Short:   "Batch downloader for streaming episodes built on yt-dlp",
	Long:    `lastned queues episode URLs, runs yt-dlp for each one in turn and moves the finished .mkv files into your output folder.`,
	Version: Version,

	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeGlobalState(consoleFor(cmd))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}

// execute runs the command tree. Cobra skips post-run hooks when RunE fails,
// so shared state is released here instead.
func execute() error {
	defer shutdownGlobalState()
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate("lastned version {{.Version}}\n")
	rootCmd.AddCommand(getCmd, checkCmd, historyCmd, settingsCmd)
}

// consoleFor returns the stderr sink for warnings, or nil when the TUI owns the terminal.
func consoleFor(cmd *cobra.Command) io.Writer {
	if f := cmd.Flags().Lookup("tui"); f != nil && f.Value.String() == "true" {
		return nil
	}
	return cmd.ErrOrStderr()
}

// initializeGlobalState loads settings, creates the app directories and
// configures logging and the history store.
func initializeGlobalState(console io.Writer) error {
	if err := config.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create app directories: %w", err)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		if console != nil {
			fmt.Fprintf(console, "Warning: could not load settings, using defaults: %v\n", err)
		}
		settings = config.DefaultSettings()
	}
	globalSettings = settings

	logsDir := ""
	if settings.Logging.Enabled {
		logsDir = config.GetLogsDir()
	}
	closer, err := utils.ConfigureLogger(utils.LogOptions{
		Dir:            logsDir,
		Level:          settings.Logging.Level,
		RetentionCount: settings.Logging.RetentionCount,
		Console:        console,
		ConsoleLevel:   zerolog.WarnLevel,
	})
	if err != nil && console != nil {
		fmt.Fprintf(console, "Warning: file logging disabled: %v\n", err)
	}
	logCloser = closer

	history.Configure(filepath.Join(config.GetStateDir(), "lastned.db"))
	utils.Debug("lastned %s (%s) starting", Version, BuildTime)
	return nil
}

func shutdownGlobalState() {
	history.CloseDB()
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}
