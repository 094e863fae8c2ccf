package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	logFilePrefix = "log_"
	logFileSuffix = ".txt"
)

// LogOptions configures the global logger.
type LogOptions struct {
	Dir            string // directory for daily log files; empty disables the file sink
	Level          string // debug, info, warn, error, disabled
	RetentionCount int    // number of daily files to keep; 0 keeps all
	Console        io.Writer
	ConsoleLevel   zerolog.Level
}

// LogFileName returns the daily log file name for t, e.g. log_2024-05-01.txt.
func LogFileName(t time.Time) string {
	return logFilePrefix + t.Format("2006-01-02") + logFileSuffix
}

// ParseLevel maps a settings level string onto a zerolog level. Unknown values mean info.
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return l
}

// ConfigureLogger installs the global zerolog logger. The returned closer releases the log file.
func ConfigureLogger(opts LogOptions) (io.Closer, error) {
	var writers []io.Writer
	var file *os.File

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nopCloser{}, fmt.Errorf("create log dir: %w", err)
		}
		path := filepath.Join(opts.Dir, LogFileName(time.Now()))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nopCloser{}, fmt.Errorf("open log file: %w", err)
		}
		file = f
		writers = append(writers, f)

		if opts.RetentionCount > 0 {
			CleanupLogs(opts.Dir, opts.RetentionCount)
		}
	}

	if opts.Console != nil {
		console := zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: "15:04:05"}
		writers = append(writers, levelFilter{w: console, min: opts.ConsoleLevel})
	}

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = zerolog.MultiLevelWriter(writers...)
	}

	log.Logger = zerolog.New(out).Level(ParseLevel(opts.Level)).With().Timestamp().Logger()

	if file == nil {
		return nopCloser{}, nil
	}
	return file, nil
}

// CleanupLogs keeps the newest keep daily log files in dir and removes the rest.
func CleanupLogs(dir string, keep int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, logFilePrefix) && strings.HasSuffix(name, logFileSuffix) {
			names = append(names, name)
		}
	}
	if len(names) <= keep {
		return
	}

	// Date-stamped names sort chronologically
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names[keep:] {
		_ = os.Remove(filepath.Join(dir, name))
	}
}

// levelFilter forwards only events at or above min.
type levelFilter struct {
	w   io.Writer
	min zerolog.Level
}

func (f levelFilter) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f levelFilter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < f.min {
		return len(p), nil
	}
	return f.w.Write(p)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
