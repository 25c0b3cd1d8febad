package host

import "errors"

var (
	ErrModuleRejected      = errors.New("module rejected")
	ErrModuleAlreadyLoaded = errors.New("module already loaded")
	ErrModuleNotLoaded     = errors.New("module not loaded")
	ErrModuleNil           = errors.New("module is nil")
	ErrHostShutdown        = errors.New("host is shut down")
	ErrInvalidHostVersion  = errors.New("invalid host container version")
	ErrModalNotFound       = errors.New("modal not found")
	ErrInvalidManifest     = errors.New("invalid manifest")
)
