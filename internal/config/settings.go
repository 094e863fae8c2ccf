package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. LASTNED_GENERAL_OUTPUT_DIR.
const EnvPrefix = "LASTNED"

// Settings holds all user-configurable application settings organized by category.
type Settings struct {
	General GeneralSettings `json:"general" mapstructure:"general"`
	Tools   ToolSettings    `json:"tools" mapstructure:"tools"`
	Timing  TimingSettings  `json:"timing" mapstructure:"timing"`
	Logging LogSettings     `json:"logging" mapstructure:"logging"`
}

// GeneralSettings contains output placement and request defaults.
type GeneralSettings struct {
	OutputDir         string `json:"output_dir" mapstructure:"output_dir"`
	TempDir           string `json:"temp_dir" mapstructure:"temp_dir"`
	UseSystemTemp     bool   `json:"use_system_temp" mapstructure:"use_system_temp"`
	DefaultResolution string `json:"default_resolution" mapstructure:"default_resolution"`
	DefaultLanguage   string `json:"default_language" mapstructure:"default_language"`
}

// ToolSettings locates the external binaries.
type ToolSettings struct {
	YtDlpPath  string `json:"ytdlp_path" mapstructure:"ytdlp_path"`
	FfmpegPath string `json:"ffmpeg_path" mapstructure:"ffmpeg_path"`
}

// TimingSettings tunes cancellation and finalization waits.
type TimingSettings struct {
	TerminateWait  time.Duration `json:"terminate_wait" mapstructure:"terminate_wait"`
	CancelSettle   time.Duration `json:"cancel_settle" mapstructure:"cancel_settle"`
	FinalizeSettle time.Duration `json:"finalize_settle" mapstructure:"finalize_settle"`
	DeleteRetries  int           `json:"delete_retries" mapstructure:"delete_retries"`
}

// LogSettings controls the file logger.
type LogSettings struct {
	Enabled        bool   `json:"enabled" mapstructure:"enabled"`
	Level          string `json:"level" mapstructure:"level"`
	RetentionCount int    `json:"retention_count" mapstructure:"retention_count"`
}

// SettingMeta provides metadata for a single setting (for help output).
type SettingMeta struct {
	Key         string // dotted key name
	Label       string // Human-readable label
	Description string
	Type        string // "string", "int", "bool", "duration"
}

// GetSettingsMetadata returns metadata for all settings organized by category.
func GetSettingsMetadata() map[string][]SettingMeta {
	return map[string][]SettingMeta{
		"General": {
			{Key: "general.output_dir", Label: "Output Folder", Description: "Where finished files are placed.", Type: "string"},
			{Key: "general.temp_dir", Label: "Temp Folder", Description: "Working folder for in-progress files when system temp is off.", Type: "string"},
			{Key: "general.use_system_temp", Label: "Use System Temp", Description: "Keep in-progress files under the OS temp directory.", Type: "bool"},
			{Key: "general.default_resolution", Label: "Default Resolution", Description: "Height limit for new items (e.g. 720, 1080, best).", Type: "string"},
			{Key: "general.default_language", Label: "Default Language", Description: "Audio language tag for new items (Norsk, Svensk, Dansk, Engelsk or an ISO code).", Type: "string"},
		},
		"Tools": {
			{Key: "tools.ytdlp_path", Label: "yt-dlp Path", Description: "Path to the yt-dlp binary. Leave empty to search PATH.", Type: "string"},
			{Key: "tools.ffmpeg_path", Label: "ffmpeg Path", Description: "Path to the ffmpeg binary. Leave empty to search PATH.", Type: "string"},
		},
		"Timing": {
			{Key: "timing.terminate_wait", Label: "Terminate Wait", Description: "How long to wait for the downloader to exit after a cancel (e.g. 2s).", Type: "duration"},
			{Key: "timing.cancel_settle", Label: "Cancel Settle", Description: "Pause before partial files are swept (e.g. 1s).", Type: "duration"},
			{Key: "timing.finalize_settle", Label: "Finalize Settle", Description: "Upper bound for waiting on a stable output file (e.g. 500ms).", Type: "duration"},
			{Key: "timing.delete_retries", Label: "Delete Retries", Description: "Attempts per partial file during cleanup.", Type: "int"},
		},
		"Logging": {
			{Key: "logging.enabled", Label: "File Logging", Description: "Write a daily log file.", Type: "bool"},
			{Key: "logging.level", Label: "Log Level", Description: "debug, info, warn, error or disabled.", Type: "string"},
			{Key: "logging.retention_count", Label: "Log Retention Count", Description: "Number of recent log files to keep.", Type: "int"},
		},
	}
}

// CategoryOrder returns the order of categories for display.
func CategoryOrder() []string {
	return []string{"General", "Tools", "Timing", "Logging"}
}

// DefaultSettings returns a new Settings instance with sensible defaults.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	defaultDir := filepath.Join(homeDir, "Downloads")

	return &Settings{
		General: GeneralSettings{
			OutputDir:         defaultDir,
			UseSystemTemp:     true,
			DefaultResolution: "720",
			DefaultLanguage:   "Norsk",
		},
		Timing: TimingSettings{
			TerminateWait:  2 * time.Second,
			CancelSettle:   1 * time.Second,
			FinalizeSettle: 500 * time.Millisecond,
			DeleteRetries:  3,
		},
		Logging: LogSettings{
			Enabled:        true,
			Level:          "info",
			RetentionCount: 5,
		},
	}
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetLastnedDir(), "settings.json")
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultSettings()
	v.SetDefault("general.output_dir", d.General.OutputDir)
	v.SetDefault("general.temp_dir", d.General.TempDir)
	v.SetDefault("general.use_system_temp", d.General.UseSystemTemp)
	v.SetDefault("general.default_resolution", d.General.DefaultResolution)
	v.SetDefault("general.default_language", d.General.DefaultLanguage)
	v.SetDefault("tools.ytdlp_path", d.Tools.YtDlpPath)
	v.SetDefault("tools.ffmpeg_path", d.Tools.FfmpegPath)
	v.SetDefault("timing.terminate_wait", d.Timing.TerminateWait)
	v.SetDefault("timing.cancel_settle", d.Timing.CancelSettle)
	v.SetDefault("timing.finalize_settle", d.Timing.FinalizeSettle)
	v.SetDefault("timing.delete_retries", d.Timing.DeleteRetries)
	v.SetDefault("logging.enabled", d.Logging.Enabled)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.retention_count", d.Logging.RetentionCount)
	return v
}

// LoadSettings loads settings from disk with environment overrides applied.
// Returns defaults if the file doesn't exist.
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(GetSettingsPath())
}

// LoadSettingsFrom loads settings from an explicit path.
func LoadSettingsFrom(path string) (*Settings, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	settings := DefaultSettings()
	if err := v.Unmarshal(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveSettings saves settings to disk atomically.
func SaveSettings(s *Settings) error {
	return SaveSettingsTo(GetSettingsPath(), s)
}

// SaveSettingsTo saves settings to an explicit path.
func SaveSettingsTo(path string, s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: write to temp file, then rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

// WorkingDir returns the directory for in-progress files. A temp_dir that
// points at the output folder is ignored.
func (s *Settings) WorkingDir() string {
	systemTemp := filepath.Join(os.TempDir(), "lastned")
	if s.General.UseSystemTemp || strings.TrimSpace(s.General.TempDir) == "" {
		return systemTemp
	}
	if cleanAbs(s.General.TempDir) == cleanAbs(s.General.OutputDir) {
		return systemTemp
	}
	return s.General.TempDir
}

func cleanAbs(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// RuntimeConfig is the flattened view of Settings handed to the download engine.
type RuntimeConfig struct {
	YtDlpPath         string
	FfmpegPath        string
	OutputDir         string
	WorkDir           string
	DefaultResolution string
	DefaultLanguage   string
	TerminateWait     time.Duration
	CancelSettle      time.Duration
	FinalizeSettle    time.Duration
	DeleteRetries     int
}

// ToRuntimeConfig creates a RuntimeConfig from user Settings
func (s *Settings) ToRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		YtDlpPath:         s.Tools.YtDlpPath,
		FfmpegPath:        s.Tools.FfmpegPath,
		OutputDir:         s.General.OutputDir,
		WorkDir:           s.WorkingDir(),
		DefaultResolution: s.General.DefaultResolution,
		DefaultLanguage:   s.General.DefaultLanguage,
		TerminateWait:     s.Timing.TerminateWait,
		CancelSettle:      s.Timing.CancelSettle,
		FinalizeSettle:    s.Timing.FinalizeSettle,
		DeleteRetries:     s.Timing.DeleteRetries,
	}
}
