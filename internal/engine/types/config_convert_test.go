package types

import (
	"testing"
	"time"

	"github.com/lastned/lastned/internal/config"
)

// TestConvertRuntimeConfig_AllFieldsCopied verifies that every field in
// config.RuntimeConfig is mapped to types.RuntimeConfig.
func TestConvertRuntimeConfig_AllFieldsCopied(t *testing.T) {
	input := &config.RuntimeConfig{
		YtDlpPath:         "/opt/yt-dlp",
		FfmpegPath:        "/opt/ffmpeg",
		OutputDir:         "/media/out",
		WorkDir:           "/tmp/work",
		DefaultResolution: "1080",
		DefaultLanguage:   "Svensk",
		TerminateWait:     3 * time.Second,
		CancelSettle:      1500 * time.Millisecond,
		FinalizeSettle:    time.Second,
		DeleteRetries:     7,
	}

	result := ConvertRuntimeConfig(input)

	if result == nil {
		t.Fatal("ConvertRuntimeConfig returned nil")
	}
	if result.YtDlpPath != input.YtDlpPath {
		t.Errorf("YtDlpPath: got %q, want %q", result.YtDlpPath, input.YtDlpPath)
	}
	if result.FfmpegPath != input.FfmpegPath {
		t.Errorf("FfmpegPath: got %q, want %q", result.FfmpegPath, input.FfmpegPath)
	}
	if result.OutputDir != input.OutputDir {
		t.Errorf("OutputDir: got %q, want %q", result.OutputDir, input.OutputDir)
	}
	if result.WorkDir != input.WorkDir {
		t.Errorf("WorkDir: got %q, want %q", result.WorkDir, input.WorkDir)
	}
	if result.DefaultResolution != input.DefaultResolution {
		t.Errorf("DefaultResolution: got %q, want %q", result.DefaultResolution, input.DefaultResolution)
	}
	if result.DefaultLanguage != input.DefaultLanguage {
		t.Errorf("DefaultLanguage: got %q, want %q", result.DefaultLanguage, input.DefaultLanguage)
	}
	if result.TerminateWait != input.TerminateWait {
		t.Errorf("TerminateWait: got %v, want %v", result.TerminateWait, input.TerminateWait)
	}
	if result.CancelSettle != input.CancelSettle {
		t.Errorf("CancelSettle: got %v, want %v", result.CancelSettle, input.CancelSettle)
	}
	if result.FinalizeSettle != input.FinalizeSettle {
		t.Errorf("FinalizeSettle: got %v, want %v", result.FinalizeSettle, input.FinalizeSettle)
	}
	if result.DeleteRetries != input.DeleteRetries {
		t.Errorf("DeleteRetries: got %d, want %d", result.DeleteRetries, input.DeleteRetries)
	}
}

// TestConvertRuntimeConfig_ZeroValues verifies that zero values fall back to defaults through the getters.
func TestConvertRuntimeConfig_ZeroValues(t *testing.T) {
	result := ConvertRuntimeConfig(&config.RuntimeConfig{})

	if result.GetTerminateWait() != TerminateWait {
		t.Errorf("GetTerminateWait: got %v, want %v", result.GetTerminateWait(), TerminateWait)
	}
	if result.GetCancelSettle() != CancelSettle {
		t.Errorf("GetCancelSettle: got %v, want %v", result.GetCancelSettle(), CancelSettle)
	}
	if result.GetFinalizeSettle() != FinalizeSettle {
		t.Errorf("GetFinalizeSettle: got %v, want %v", result.GetFinalizeSettle(), FinalizeSettle)
	}
	if result.GetDeleteRetries() != DeleteRetries {
		t.Errorf("GetDeleteRetries: got %d, want %d", result.GetDeleteRetries(), DeleteRetries)
	}
	if result.GetYtDlpPath() != "yt-dlp" {
		t.Errorf("GetYtDlpPath: got %q", result.GetYtDlpPath())
	}
	if result.GetWorkDir() != DefaultWorkDir() {
		t.Errorf("GetWorkDir should fall back to the system temp folder, got %q", result.GetWorkDir())
	}
	if SameDir(result.GetWorkDir(), result.GetOutputDir()) {
		t.Error("default work dir must differ from the output dir")
	}
}

func TestConvertRuntimeConfig_Nil(t *testing.T) {
	if ConvertRuntimeConfig(nil) == nil {
		t.Fatal("ConvertRuntimeConfig(nil) should return an empty config")
	}
}
