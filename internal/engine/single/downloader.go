package single

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/h2non/filetype"
	"github.com/rs/zerolog/log"

	"github.com/lastned/lastned/internal/engine/process"
	"github.com/lastned/lastned/internal/engine/progress"
	"github.com/lastned/lastned/internal/engine/types"
	"github.com/lastned/lastned/internal/utils"
)

// Phase labels reported outside the normalizer.
const (
	PhaseStarting   = "Starting..."
	PhaseCancelling = "Cancelling..."
	PhaseCancelled  = "Cancelled"
	PhaseFailed     = "Failed"
	PhaseDone       = "Done"
)

// Downloader runs one request through yt-dlp and places the result in the output directory.
// Each Run gets its own progress state, so a Downloader can be reused across items
// but not shared between concurrent runs of the same item.
type Downloader struct {
	Runtime *types.RuntimeConfig
}

// NewDownloader creates a downloader using the given runtime settings.
func NewDownloader(runtime *types.RuntimeConfig) *Downloader {
	return &Downloader{Runtime: runtime}
}

// Run downloads one item. onPhase and onPercent are called on the calling
// goroutine in output order and never after Run returns. Either may be nil.
func (d *Downloader) Run(ctx context.Context, req types.DownloadRequest, onPhase func(string), onPercent func(float64)) types.Outcome {
	if onPhase == nil {
		onPhase = func(string) {}
	}
	if onPercent == nil {
		onPercent = func(float64) {}
	}

	names := BuildNames(req)
	workDir := d.Runtime.GetWorkDir()
	outDir := d.Runtime.GetOutputDir()

	// The cancel sweep deletes by name prefix, so it must never run in the output folder
	if types.SameDir(workDir, outDir) {
		log.Error().Str("dir", workDir).Msg("Working folder is the output folder")
		onPhase(PhaseFailed)
		return types.Failed(fmt.Sprintf("%v: working folder %s is the output folder", types.ErrFilesystem, workDir))
	}

	for _, dir := range []string{workDir, outDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			onPhase(PhaseFailed)
			return types.Failed(fmt.Sprintf("%v: create %s: %v", types.ErrFilesystem, dir, err))
		}
	}

	workingPath := filepath.Join(workDir, names.FileName)
	destPath := filepath.Join(outDir, names.FileName)

	logger := log.With().Str("title", req.DisplayName()).Str("url", req.URL).Logger()

	if err := ctx.Err(); err != nil {
		return types.Cancelled()
	}

	onPhase(PhaseStarting)
	args := BuildArgs(req, workingPath, resolveTool(d.Runtime.GetFfmpegPath()))
	utils.Debug("Single: %s %s", d.Runtime.GetYtDlpPath(), strings.Join(args, " "))

	proc, err := process.Start(d.Runtime.GetYtDlpPath(), args, workDir)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to start downloader")
		onPhase(PhaseFailed)
		return types.Failed(err.Error())
	}
	defer proc.Close()

	var norm progress.Normalizer
	emit := func(line string) {
		if e, ok := norm.Feed(line); ok {
			onPhase(e.Phase)
			onPercent(e.Percent)
		}
	}

	if cancelled := pump(ctx, proc, emit); cancelled {
		st := norm.State()
		logger.Info().Float64("percent", st.MaxReportedPercent).Int("media_file", st.MediaFileOrdinal).Msg("Cancelling download")
		onPhase(PhaseCancelling)
		d.cancel(proc, workDir, names.CleanupPrefix)
		onPhase(PhaseCancelled)
		return types.Cancelled()
	}

	if code := proc.ExitCode(); code != 0 {
		logger.Warn().Int("exit_code", code).Msg("Downloader exited with non-zero status")
	}

	if _, err := os.Stat(workingPath); err != nil {
		logger.Error().Str("path", workingPath).Msg("Output file not found after download")
		onPhase(PhaseFailed)
		return types.Failed(types.ErrOutputMissing.Error())
	}

	waitForStableSize(workingPath, d.Runtime.GetFinalizeSettle())

	if err := promoteFile(workingPath, destPath); err != nil {
		logger.Error().Err(err).Str("dest", destPath).Msg("Failed to move file to output folder")
		onPhase(PhaseFailed)
		return types.Failed(fmt.Sprintf("failed to finalize file: %v", err))
	}

	if kind, err := filetype.MatchFile(destPath); err == nil {
		logger.Info().Str("dest", destPath).Str("container", kind.MIME.Value).Msg("Download complete")
	} else {
		logger.Info().Str("dest", destPath).Msg("Download complete")
	}

	onPhase(PhaseDone)
	onPercent(100)
	return types.Completed(destPath)
}

// resolveTool returns an absolute path for a bare binary name, or "" when it cannot be found.
func resolveTool(path string) string {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return ""
	}
	if abs, err := filepath.Abs(resolved); err == nil {
		return abs
	}
	return resolved
}

// pump forwards output lines until the child exits. It reports true when ctx
// was cancelled before or at exit.
func pump(ctx context.Context, proc *process.Process, emit func(string)) bool {
	lines := proc.Lines()
	for {
		select {
		case <-ctx.Done():
			return true

		case line, ok := <-lines:
			if !ok {
				// Output closed; the child is on its way out
				select {
				case <-proc.Done():
					return ctx.Err() != nil
				case <-ctx.Done():
					return true
				}
			}
			emit(line)

		case <-proc.Done():
			drain(lines, emit, types.DrainTimeout)
			return ctx.Err() != nil
		}
	}
}

// drain forwards output still buffered after exit, bounded by timeout.
func drain(lines <-chan string, emit func(string), timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			emit(line)
		case <-timer.C:
			utils.Debug("Single: gave up draining output after %s", timeout)
			return
		}
	}
}

// cancel stops the child and removes every working file of the item.
func (d *Downloader) cancel(proc *process.Process, workDir, prefix string) {
	if err := proc.Terminate(d.Runtime.GetTerminateWait()); err != nil {
		log.Warn().Err(err).Int("pid", proc.Pid()).Msg("Downloader did not exit after kill")
	}

	// Give the OS time to release file handles
	time.Sleep(d.Runtime.GetCancelSettle())
	proc.Close()

	sweepPartials(workDir, prefix, d.Runtime.GetDeleteRetries())
}

// sweepPartials deletes every entry in dir whose name starts with prefix.
// Failures are logged and never stop the sweep.
func sweepPartials(dir, prefix string, retries int) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("Failed to list working folder for cleanup")
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		attempt := 0
		op := func() error {
			attempt++
			log.Info().Str("path", path).Int("attempt", attempt).Msg("Deleting partial file")
			err := removePath(path)
			if err != nil {
				log.Error().Err(err).Str("path", path).Int("attempt", attempt).Msg("Could not delete partial file")
			}
			return err
		}

		b := backoff.WithMaxRetries(backoff.NewConstantBackOff(types.RetryBaseDelay), uint64(max(retries-1, 0)))
		if err := backoff.Retry(op, b); err == nil {
			removed++
		}
	}
	return removed
}

// removePath is swapped out in tests.
var removePath = os.RemoveAll

var errSizeChanging = errors.New("file size still changing")

// waitForStableSize polls path until two consecutive sizes match or limit passes.
func waitForStableSize(path string, limit time.Duration) {
	last := int64(-1)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = limit / 4
	b.MaxElapsedTime = limit

	err := backoff.Retry(func() error {
		info, err := os.Stat(path)
		if err != nil {
			return backoff.Permanent(err)
		}
		size := info.Size()
		if size != last {
			last = size
			return errSizeChanging
		}
		return nil
	}, b)
	if err != nil {
		utils.Debug("Single: settle wait for %s ended: %v", path, err)
	}
}

// promoteFile moves src onto dst, replacing an existing file.
func promoteFile(src, dst string) error {
	if src == dst {
		return nil
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	// Some platforms refuse to rename over an existing file
	if _, err := os.Stat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return err
		}
		if err := os.Rename(src, dst); err == nil {
			return nil
		}
	}

	// Fallback: copy if rename fails (cross-device)
	if err := copyFile(src, dst); err != nil {
		_ = os.Remove(dst)
		return err
	}
	_ = os.Remove(src)
	return nil
}

// copyFile copies a file from src to dst (fallback when rename fails)
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if err := in.Close(); err != nil {
			utils.Debug("Error closing input file: %v", err)
		}
	}()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			utils.Debug("Error closing output file: %v", err)
		}
	}()

	buf := make([]byte, 1024*1024)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		return err
	}
	return out.Sync()
}
