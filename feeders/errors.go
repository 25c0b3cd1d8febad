package feeders

import "errors"

var (
	ErrInvalidStructure      = errors.New("feeder target must be a pointer to a struct")
	ErrEmptyPrefixAndSuffix  = errors.New("env: prefix or suffix cannot be empty")
	ErrEnvFieldCannotBeSet   = errors.New("env: field cannot be set")
	ErrEnvCannotConvert      = errors.New("env: cannot convert value to field type")
	ErrFileFeederUnavailable = errors.New("config file unavailable")
	ErrInvalidDotEnvLine     = errors.New("invalid .env line")
)
