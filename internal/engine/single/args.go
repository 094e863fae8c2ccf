package single

import (
	"strings"

	"github.com/lastned/lastned/internal/engine/types"
	"github.com/lastned/lastned/internal/utils"
)

// languageCodes maps the UI language names onto ISO 639-2 audio tags.
var languageCodes = map[string]string{
	"norsk":   "nob",
	"svensk":  "swe",
	"dansk":   "dan",
	"engelsk": "eng",
}

// LanguageCode returns the audio language tag for a language name.
// Three-letter codes pass through; anything else is "und".
func LanguageCode(language string) string {
	l := strings.ToLower(strings.TrimSpace(language))
	if code, ok := languageCodes[l]; ok {
		return code
	}
	if len(l) == 3 && isLower(l) {
		return l
	}
	return "und"
}

func isLower(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// Names holds the file names derived from a request.
type Names struct {
	FileName      string // final file name, e.g. "Skam - S01E02 - 720p.mkv"
	CleanupPrefix string // every working file of the item starts with this
}

// BuildNames derives the output file name and cleanup prefix for a request.
func BuildNames(req types.DownloadRequest) Names {
	base := utils.SanitizeFileName(req.DisplayName())

	var resTag string
	if req.HasHeightLimit() {
		resTag = " - " + utils.SanitizeFileName(types.NormalizeResolution(req.Resolution)) + "p"
	}

	return Names{
		FileName:      base + resTag + types.OutputExtension,
		CleanupPrefix: base,
	}
}

// FormatSort returns the -S sort expression for the requested height.
func FormatSort(req types.DownloadRequest) string {
	if req.HasHeightLimit() {
		return "res:" + types.NormalizeResolution(req.Resolution)
	}
	return "res"
}

// BuildArgs assembles the downloader command line for one item. An empty
// ffmpegPath leaves the lookup to yt-dlp.
func BuildArgs(req types.DownloadRequest, outputPath, ffmpegPath string) []string {
	args := []string{
		// '%' starts an output template field
		"-o", strings.ReplaceAll(outputPath, "%", "%%"),
		"--remux-video", "mkv",
		"-S", FormatSort(req),
		"--embed-subs",
		"--embed-thumbnail",
		"--no-mtime",
		"--convert-subs", "srt",
		"--postprocessor-args", "FFmpeg:-metadata:s:a:0 language=" + LanguageCode(req.Language),
	}
	if ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", ffmpegPath)
	}
	return append(args, "--progress", "--newline", req.URL)
}
