// Package progress turns the downloader's multi-file output into one
// monotonic percentage for the whole item.
//
// yt-dlp fetches video and audio as separate files (plus thumbnails and
// subtitles), restarting its own percentage for each. The first media file
// fills 0-80, later media files fill 80-100, and sidecar files are ignored.
// Nothing is reported as 100 until the merge/remux step starts.
package progress

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/h2non/filetype"

	"github.com/lastned/lastned/internal/engine/types"
)

// PhaseFinalizing is reported once the merge or remux step starts.
const PhaseFinalizing = "Finalizing"

var (
	downloadPercent = regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%`)
	destinationLine = regexp.MustCompile(`(?i)destination:\s*(.+)$`)
)

var finalizeMarkers = []string{"[Merger]", "Merging formats", "[VideoRemuxer]", "Writing video"}

// sidecarExtensions are artifacts fetched next to the media that carry no playback progress.
var sidecarExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".vtt": true, ".srt": true, ".ass": true, ".ssa": true, ".ttml": true,
	".srv1": true, ".srv2": true, ".srv3": true, ".json3": true,
	".xml": true, ".json": true, ".description": true,
}

// State is the per-item parsing state. The zero value is ready to use.
type State struct {
	MediaFileOrdinal    int
	IgnoringCurrentFile bool
	MaxReportedPercent  float64
	Finalized           bool
}

// Emission is one progress report produced by a line.
type Emission struct {
	Percent float64
	Phase   string
}

// DownloadingPhase returns the label shown while bytes are arriving.
func DownloadingPhase(percent float64) string {
	return fmt.Sprintf("Downloading... (%.0f%%)", percent)
}

// IsSidecar reports whether a destination path is a thumbnail, subtitle or metadata file.
func IsSidecar(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	if sidecarExtensions[ext] {
		return true
	}
	kind := filetype.GetType(strings.TrimPrefix(ext, "."))
	return kind != filetype.Unknown && kind.MIME.Type == "image"
}

// Step applies one output line to state. It returns the new state and, when ok
// is true, a report to forward.
func Step(state State, line string) (State, Emission, bool) {
	if m := destinationLine.FindStringSubmatch(line); m != nil {
		if IsSidecar(strings.TrimSpace(m[1])) {
			state.IgnoringCurrentFile = true
		} else {
			state.IgnoringCurrentFile = false
			state.MediaFileOrdinal++
		}
	}

	if isFinalizeLine(line) {
		state.Finalized = true
		state.MaxReportedPercent = 100
		return state, Emission{Percent: 100, Phase: PhaseFinalizing}, true
	}

	m := downloadPercent.FindStringSubmatch(line)
	if m == nil {
		return state, Emission{}, false
	}
	if state.IgnoringCurrentFile || state.Finalized {
		return state, Emission{}, false
	}

	raw, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return state, Emission{}, false
	}
	if raw > 100 {
		raw = 100
	}

	var scaled float64
	if state.MediaFileOrdinal <= 1 {
		scaled = raw * types.FirstFileShare / 100
	} else {
		scaled = types.FirstFileShare + raw*types.LaterFileShare/100
	}

	if scaled < state.MaxReportedPercent {
		scaled = state.MaxReportedPercent
	} else {
		state.MaxReportedPercent = scaled
	}
	if scaled > types.MaxUnfinalized {
		scaled = types.MaxUnfinalized
	}

	return state, Emission{Percent: scaled, Phase: DownloadingPhase(scaled)}, true
}

// isFinalizeLine matches the merge/remux markers. "[info] Writing video thumbnail"
// and friends are printed before any media arrives and do not count.
func isFinalizeLine(line string) bool {
	if strings.HasPrefix(strings.TrimSpace(line), "[info]") {
		return false
	}
	for _, marker := range finalizeMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// Normalizer wraps Step for callers that keep the state in one place.
type Normalizer struct {
	state State
}

// Feed applies a line and returns the report, if any.
func (n *Normalizer) Feed(line string) (Emission, bool) {
	var e Emission
	var ok bool
	n.state, e, ok = Step(n.state, line)
	return e, ok
}

// State returns a copy of the current state.
func (n *Normalizer) State() State {
	return n.state
}
