package single

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/lastned/lastned/internal/engine/types"
)

// ToolStatus is the result of locating one external binary.
type ToolStatus struct {
	Name string
	Path string // resolved path, empty when missing
	Err  error
}

// CheckTools resolves the downloader and remux binaries.
func CheckTools(runtime *types.RuntimeConfig) []ToolStatus {
	tools := []struct{ name, path string }{
		{"yt-dlp", runtime.GetYtDlpPath()},
		{"ffmpeg", runtime.GetFfmpegPath()},
	}

	statuses := make([]ToolStatus, 0, len(tools))
	for _, t := range tools {
		resolved, err := exec.LookPath(t.path)
		if err != nil {
			err = fmt.Errorf("%w: %s (%s): %v", types.ErrToolMissing, t.name, t.path, err)
		}
		statuses = append(statuses, ToolStatus{Name: t.name, Path: resolved, Err: err})
	}
	return statuses
}

// ValidateTools returns an error wrapping types.ErrToolMissing for every binary that cannot be found.
func ValidateTools(runtime *types.RuntimeConfig) error {
	var errs []error
	for _, s := range CheckTools(runtime) {
		if s.Err != nil {
			errs = append(errs, s.Err)
		}
	}
	return errors.Join(errs...)
}
