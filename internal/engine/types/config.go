package types

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// OutputExtension is the container every item is remuxed into
	OutputExtension = ".mkv"
)

// Progress scaling
const (
	FirstFileShare = 80.0 // first media file fills 0..80
	LaterFileShare = 20.0 // later media files fill 80..100
	MaxUnfinalized = 99.0 // cap until the finalize marker is seen
)

// Settle and shutdown timing
const (
	TerminateWait  = 2 * time.Second        // bounded wait after killing the child
	CancelSettle   = 1 * time.Second        // lets the OS release file handles before the sweep
	FinalizeSettle = 500 * time.Millisecond // upper bound for the size-stability wait
	DrainTimeout   = 2 * time.Second        // bounded wait for trailing output after exit

	DeleteRetries  = 3
	RetryBaseDelay = 200 * time.Millisecond
)

// Channel buffer sizes
const (
	ProgressChannelBuffer = 100
	LineChannelBuffer     = 256
)

// RuntimeConfig holds dynamic settings that can override defaults
type RuntimeConfig struct {
	YtDlpPath  string
	FfmpegPath string
	OutputDir  string
	WorkDir    string

	DefaultResolution string
	DefaultLanguage   string

	TerminateWait  time.Duration
	CancelSettle   time.Duration
	FinalizeSettle time.Duration
	DeleteRetries  int
}

// GetYtDlpPath returns the configured downloader binary or the bare name for PATH lookup
func (r *RuntimeConfig) GetYtDlpPath() string {
	if r == nil || r.YtDlpPath == "" {
		return "yt-dlp"
	}
	return r.YtDlpPath
}

// GetFfmpegPath returns the configured remux binary or the bare name for PATH lookup
func (r *RuntimeConfig) GetFfmpegPath() string {
	if r == nil || r.FfmpegPath == "" {
		return "ffmpeg"
	}
	return r.FfmpegPath
}

// GetOutputDir returns configured value or the current directory
func (r *RuntimeConfig) GetOutputDir() string {
	if r == nil || r.OutputDir == "" {
		return "."
	}
	return r.OutputDir
}

// DefaultWorkDir is used when no working directory is configured. It is
// never the output directory, so the cancel sweep cannot reach finished files.
func DefaultWorkDir() string {
	return filepath.Join(os.TempDir(), "lastned")
}

// GetWorkDir returns the directory where in-progress files live
func (r *RuntimeConfig) GetWorkDir() string {
	if r == nil || r.WorkDir == "" {
		return DefaultWorkDir()
	}
	return r.WorkDir
}

// SameDir reports whether a and b name the same directory after cleaning.
func SameDir(a, b string) bool {
	if absA, err := filepath.Abs(a); err == nil {
		a = absA
	}
	if absB, err := filepath.Abs(b); err == nil {
		b = absB
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

// NormalizeResolution trims a trailing "p" so "1080p" and "1080" mean the same height.
func NormalizeResolution(res string) string {
	res = strings.TrimSpace(res)
	if strings.EqualFold(res, ResolutionBest) {
		return ResolutionBest
	}
	return strings.TrimRight(res, "pP")
}

// GetDefaultResolution returns configured value or "720"
func (r *RuntimeConfig) GetDefaultResolution() string {
	if r == nil || NormalizeResolution(r.DefaultResolution) == "" {
		return "720"
	}
	return NormalizeResolution(r.DefaultResolution)
}

// GetDefaultLanguage returns configured value or "Norsk"
func (r *RuntimeConfig) GetDefaultLanguage() string {
	if r == nil || r.DefaultLanguage == "" {
		return "Norsk"
	}
	return r.DefaultLanguage
}

// GetTerminateWait returns configured value or default
func (r *RuntimeConfig) GetTerminateWait() time.Duration {
	if r == nil || r.TerminateWait <= 0 {
		return TerminateWait
	}
	return r.TerminateWait
}

// GetCancelSettle returns configured value or default
func (r *RuntimeConfig) GetCancelSettle() time.Duration {
	if r == nil || r.CancelSettle <= 0 {
		return CancelSettle
	}
	return r.CancelSettle
}

// GetFinalizeSettle returns configured value or default
func (r *RuntimeConfig) GetFinalizeSettle() time.Duration {
	if r == nil || r.FinalizeSettle <= 0 {
		return FinalizeSettle
	}
	return r.FinalizeSettle
}

// GetDeleteRetries returns configured value or default
func (r *RuntimeConfig) GetDeleteRetries() int {
	if r == nil || r.DeleteRetries <= 0 {
		return DeleteRetries
	}
	return r.DeleteRetries
}

// ApplyDefaults fills empty resolution and language on a request.
func (r *RuntimeConfig) ApplyDefaults(req DownloadRequest) DownloadRequest {
	req.Resolution = NormalizeResolution(req.Resolution)
	if req.Resolution == "" {
		req.Resolution = r.GetDefaultResolution()
	}
	if req.Language == "" {
		req.Language = r.GetDefaultLanguage()
	}
	return req
}
