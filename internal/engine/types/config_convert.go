package types

import "github.com/lastned/lastned/internal/config"

// ConvertRuntimeConfig converts the app-level RuntimeConfig to the engine-level RuntimeConfig.
func ConvertRuntimeConfig(rc *config.RuntimeConfig) *RuntimeConfig {
	if rc == nil {
		return &RuntimeConfig{}
	}
	return &RuntimeConfig{
		YtDlpPath:         rc.YtDlpPath,
		FfmpegPath:        rc.FfmpegPath,
		OutputDir:         rc.OutputDir,
		WorkDir:           rc.WorkDir,
		DefaultResolution: rc.DefaultResolution,
		DefaultLanguage:   rc.DefaultLanguage,
		TerminateWait:     rc.TerminateWait,
		CancelSettle:      rc.CancelSettle,
		FinalizeSettle:    rc.FinalizeSettle,
		DeleteRetries:     rc.DeleteRetries,
	}
}
