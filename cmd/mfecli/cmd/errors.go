package cmd

import "errors"

var (
	ErrInvalidManifest      = errors.New("manifest is invalid")
	ErrIncompatible         = errors.New("one or more manifests are incompatible with the host")
	ErrInvalidFrameworkFlag = errors.New("framework must be given as name=version")
	ErrUnsupportedOutput    = errors.New("unsupported output format")
	ErrRegistryRequired     = errors.New("--registry is required")
)
