package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lastned/lastned/internal/config"
	"github.com/lastned/lastned/internal/core"
	"github.com/lastned/lastned/internal/engine/single"
	"github.com/lastned/lastned/internal/engine/types"
	"github.com/lastned/lastned/internal/metrics"
	"github.com/lastned/lastned/internal/tui"
)

// ErrAlreadyRunning is returned when another instance holds the batch lock.
var ErrAlreadyRunning = errors.New("another lastned batch is already running")

var getCmd = &cobra.Command{
	Use:   "get [url]...",
	Short: "Download one or more episodes",
	Long: `get downloads every URL given as an argument, in a --batch file or on the clipboard.

Batch file and clipboard lines have the form:
  url | title | SxxEyy
Title and episode are optional. Lines starting with # are ignored.`,
	Args: cobra.ArbitraryArgs,
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringP("batch", "b", "", "file containing one request per line")
	getCmd.Flags().Bool("clipboard", false, "read requests from the clipboard")
	getCmd.Flags().StringP("output", "o", "", "output directory (default from settings)")
	getCmd.Flags().StringP("resolution", "r", "", "maximum height: 720, 1080 or best (default from settings)")
	getCmd.Flags().StringP("language", "l", "", "audio language tag, e.g. Norsk or nob (default from settings)")
	getCmd.Flags().StringP("title", "t", "", "title for a single URL")
	getCmd.Flags().StringP("episode", "e", "", "season/episode tag for a single URL, e.g. S01E02")
	getCmd.Flags().Bool("tui", false, "run in the interactive dashboard")
	getCmd.Flags().Bool("json", false, "print events as JSON lines instead of a progress bar")
	getCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. 127.0.0.1:9091")
}

// getOptions are the parsed flags of the get command.
type getOptions struct {
	requestSources
	Output      string
	Resolution  string
	Language    string
	TUI         bool
	JSON        bool
	MetricsAddr string
}

func readGetOptions(cmd *cobra.Command, args []string) getOptions {
	var opts getOptions
	opts.Args = args
	opts.BatchFile, _ = cmd.Flags().GetString("batch")
	opts.Clipboard, _ = cmd.Flags().GetBool("clipboard")
	opts.Title, _ = cmd.Flags().GetString("title")
	opts.Episode, _ = cmd.Flags().GetString("episode")
	opts.Output, _ = cmd.Flags().GetString("output")
	opts.Resolution, _ = cmd.Flags().GetString("resolution")
	opts.Language, _ = cmd.Flags().GetString("language")
	opts.TUI, _ = cmd.Flags().GetBool("tui")
	opts.JSON, _ = cmd.Flags().GetBool("json")
	opts.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
	return opts
}

// buildRuntime flattens settings and applies the flag overrides.
func buildRuntime(settings *config.Settings, opts getOptions) *types.RuntimeConfig {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	runtime := types.ConvertRuntimeConfig(settings.ToRuntimeConfig())
	if opts.Output != "" {
		runtime.OutputDir = opts.Output
	}
	if opts.Resolution != "" {
		runtime.DefaultResolution = types.NormalizeResolution(opts.Resolution)
	}
	if opts.Language != "" {
		runtime.DefaultLanguage = opts.Language
	}
	return runtime
}

// preflight fails when yt-dlp cannot be found. A missing ffmpeg only warns
// since yt-dlp then falls back to its own lookup.
func preflight(runtime *types.RuntimeConfig) error {
	for _, s := range single.CheckTools(runtime) {
		if s.Err == nil {
			continue
		}
		if s.Name == "yt-dlp" {
			return s.Err
		}
		log.Warn().Err(s.Err).Msg("Remux tool not found")
	}
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	opts := readGetOptions(cmd, args)

	reqs, err := collectRequests(opts.requestSources)
	if err != nil {
		return err
	}
	if len(reqs) == 0 && !opts.TUI {
		return errors.New("no URLs given: pass URLs, --batch or --clipboard")
	}

	runtime := buildRuntime(globalSettings, opts)
	for i := range reqs {
		reqs[i] = runtime.ApplyDefaults(reqs[i])
	}
	if err := preflight(runtime); err != nil {
		return err
	}

	isMaster, err := AcquireLock()
	if err != nil {
		return err
	}
	if !isMaster {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := ReleaseLock(); err != nil {
			log.Warn().Err(err).Msg("Error releasing lock")
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := core.NewLocalDownloadService(single.NewDownloader(runtime))
	svc.RecordHistory = true
	defer func() { _ = svc.Shutdown() }()

	if opts.MetricsAddr != "" {
		svc.Metrics = metrics.New()
		shutdown, err := startMetricsServer(opts.MetricsAddr, svc.Metrics)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	if opts.TUI {
		return runTUI(ctx, svc, runtime, reqs)
	}

	summary, err := runHeadless(ctx, cmd.OutOrStdout(), svc, reqs, opts.JSON)
	if err != nil {
		return err
	}
	if summary.Cancelled {
		return context.Canceled
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d items failed", summary.Failed, summary.Completed+summary.Failed)
	}
	return nil
}

// runTUI runs the dashboard until the user quits. A signal is handled like ctrl+c,
// so a running batch is cancelled and cleaned up before the program exits.
func runTUI(ctx context.Context, svc core.DownloadService, runtime *types.RuntimeConfig, reqs []types.DownloadRequest) error {
	tui.ConfigureColors()

	m := tui.InitialRootModel(ctx, svc, runtime, reqs)
	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		<-ctx.Done()
		p.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// startMetricsServer serves m on addr and returns a function that stops the server.
func startMetricsServer(addr string, m *metrics.Metrics) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not bind metrics address %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
