package types

import "errors"

var (
	ErrToolMissing      = errors.New("required tool not found")
	ErrProcessSpawn     = errors.New("failed to start process")
	ErrOutputMissing    = errors.New("output file missing")
	ErrFilesystem       = errors.New("filesystem error")
	ErrTerminateTimeout = errors.New("process did not exit in time")
)
