package debugapi

import (
	"errors"
	"strings"
)

// ErrInvalidBasePath is returned for a base path that is not rooted.
var ErrInvalidBasePath = errors.New("debug API base path must start with '/'")

// Config configures the debug endpoints.
type Config struct {
	// BasePath prefixes every route. Empty mounts the routes at the root.
	BasePath string `json:"basePath" yaml:"basePath" toml:"basePath" env:"BASE_PATH"`

	// AuthToken, when set, is required as a bearer token on every request.
	AuthToken string `json:"authToken" yaml:"authToken" toml:"authToken" env:"AUTH_TOKEN"`

	// MetricsNamespace prefixes the exported metric names.
	MetricsNamespace string `json:"metricsNamespace" yaml:"metricsNamespace" toml:"metricsNamespace" env:"METRICS_NAMESPACE"`

	// DefaultHistoryLimit caps /events/history when no limit is given.
	DefaultHistoryLimit int `json:"defaultHistoryLimit" yaml:"defaultHistoryLimit" toml:"defaultHistoryLimit" env:"DEFAULT_HISTORY_LIMIT"`
}

// DefaultConfig returns the debug API defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:            "/debug",
		MetricsNamespace:    "mfe",
		DefaultHistoryLimit: 50,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		return ErrInvalidBasePath
	}
	return nil
}
