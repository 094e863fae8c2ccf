// Package testutil provides testing utilities for the lastned download engine.
package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// Modes a fake downloader can run in for a given URL.
const (
	ModeOK      = "ok"      // print output, write the file, exit 0
	ModeMissing = "missing" // print output, exit 0 without writing the file
	ModeHang    = "hang"    // write partial files and block until killed
	ModeExit1   = "exit1"   // write the file but exit 1
)

// FakeYtDlp is a shell script that imitates yt-dlp's output and file writes.
type FakeYtDlp struct {
	Path     string
	ArgsFile string // every invocation appends its arguments here, one per line

	Lines       []string // printed before any file is written
	OutputBytes int64
	Partials    []string // suffixes appended to the output base in hang mode
	DefaultMode string

	urlModes []urlMode
}

type urlMode struct {
	pattern string
	mode    string
}

// FakeYtDlpOption configures a FakeYtDlp.
type FakeYtDlpOption func(*FakeYtDlp)

// WithLines sets the output lines printed by the fake.
func WithLines(lines ...string) FakeYtDlpOption {
	return func(f *FakeYtDlp) {
		f.Lines = lines
	}
}

// WithOutputBytes sets the size of the written output file.
func WithOutputBytes(n int64) FakeYtDlpOption {
	return func(f *FakeYtDlp) {
		f.OutputBytes = n
	}
}

// WithPartials sets the partial file suffixes created in hang mode.
func WithPartials(suffixes ...string) FakeYtDlpOption {
	return func(f *FakeYtDlp) {
		f.Partials = suffixes
	}
}

// WithMode sets the mode used when no URL pattern matches.
func WithMode(mode string) FakeYtDlpOption {
	return func(f *FakeYtDlp) {
		f.DefaultMode = mode
	}
}

// WithURLMode selects mode for URLs containing pattern.
func WithURLMode(pattern, mode string) FakeYtDlpOption {
	return func(f *FakeYtDlp) {
		f.urlModes = append(f.urlModes, urlMode{pattern: pattern, mode: mode})
	}
}

// DefaultLines is a typical two-file download with a merge step.
var DefaultLines = []string{
	"[nrktv] Extracting URL",
	"[info] Writing video thumbnail 0 to: thumb.webp",
	"[download] Destination: video.f137.mp4",
	"[download]  50.0% of 10.00MiB",
	"[download] 100% of 10.00MiB",
	"[download] Destination: audio.f140.m4a",
	"[download]  50.0% of 1.00MiB",
	"[download] 100% of 1.00MiB",
	`[Merger] Merging formats into "out.mkv"`,
}

// NewFakeYtDlp writes a fake downloader script into a temp dir and skips the
// test on platforms without a POSIX shell.
func NewFakeYtDlp(t *testing.T, opts ...FakeYtDlpOption) *FakeYtDlp {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake downloader needs a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	f := &FakeYtDlp{
		Path:        filepath.Join(dir, "yt-dlp"),
		ArgsFile:    filepath.Join(dir, "args.txt"),
		Lines:       DefaultLines,
		OutputBytes: 4096,
		Partials:    []string{".f137.mp4.part", ".f140.m4a", ".webp"},
		DefaultMode: ModeOK,
	}
	for _, opt := range opts {
		opt(f)
	}

	if err := os.WriteFile(f.Path, []byte(f.script()), 0755); err != nil {
		t.Fatalf("failed to write fake downloader: %v", err)
	}
	return f
}

// Invocations returns the argument list of every call so far.
func (f *FakeYtDlp) Invocations() ([][]string, error) {
	data, err := os.ReadFile(f.ArgsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var calls [][]string
	var current []string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "--end--" {
			calls = append(calls, current)
			current = nil
			continue
		}
		current = append(current, line)
	}
	return calls, nil
}

func (f *FakeYtDlp) script() string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "for a in \"$@\"; do printf '%%s\\n' \"$a\" >> %s; done\n", shellQuote(f.ArgsFile))
	fmt.Fprintf(&b, "echo --end-- >> %s\n", shellQuote(f.ArgsFile))
	b.WriteString(`out=""
url=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    *) url="$1"; shift ;;
  esac
done
base="${out%.mkv}"
`)
	fmt.Fprintf(&b, "mode=%s\n", shellQuote(f.DefaultMode))
	b.WriteString("case \"$url\" in\n")
	for _, m := range f.urlModes {
		fmt.Fprintf(&b, "  *%s*) mode=%s ;;\n", shellPattern(m.pattern), shellQuote(m.mode))
	}
	b.WriteString("esac\n")

	// Partials exist before any output so a cancel always has something to sweep
	b.WriteString("if [ \"$mode\" = hang ]; then\n")
	for _, suffix := range f.Partials {
		fmt.Fprintf(&b, "  : > \"$base\"%s\n", shellQuote(suffix))
	}
	b.WriteString("fi\n")

	for _, line := range f.Lines {
		fmt.Fprintf(&b, "printf '%%s\\n' %s\n", shellQuote(line))
	}

	b.WriteString("if [ \"$mode\" = hang ]; then sleep 30; exit 0; fi\n")

	fmt.Fprintf(&b, "if [ \"$mode\" != missing ]; then head -c %d /dev/zero > \"$out\"; fi\n", f.OutputBytes)
	b.WriteString("if [ \"$mode\" = exit1 ]; then exit 1; fi\n")
	b.WriteString("exit 0\n")
	return b.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// shellPattern escapes glob characters in a case pattern.
func shellPattern(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`, ` `, `\ `, `"`, `\"`)
	return r.Replace(s)
}
