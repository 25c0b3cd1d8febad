package manifest

import "errors"

var (
	ErrNotObject         = errors.New("manifest must be a JSON object")
	ErrUnsupportedFormat = errors.New("unsupported manifest file format")
	ErrInvalidRegistry   = errors.New("registry must be an array or an object keyed by module name")
	ErrSchemaCompile     = errors.New("failed to compile manifest schema")
	ErrWatcherClosed     = errors.New("manifest watcher closed")
	ErrWatcherRunning    = errors.New("manifest watcher already running")
)
