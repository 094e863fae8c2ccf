package utils

import (
	"github.com/rs/zerolog/log"
)

// Debug writes a printf-style message at debug level
func Debug(format string, args ...any) {
	log.Debug().Msgf(format, args...)
}
