package eventbus

import "fmt"

// DefaultHistorySize is the number of payloads kept for debugging.
const DefaultHistorySize = 100

// DefaultSource is stamped on payloads emitted without an explicit source.
const DefaultSource = "event-bus"

// Config defines the configuration for an event bus.
//
// Example YAML configuration:
//
//	eventBus:
//	  historySize: 250
//	  enableLogging: true
//	  enableValidation: true
//	  source: "shell"
type Config struct {
	// HistorySize bounds the circular history buffer; the oldest payload is
	// evicted first once it is full.
	HistorySize int `json:"historySize" yaml:"historySize" toml:"historySize" env:"HISTORY_SIZE"`

	// EnableLogging logs every emitted payload.
	EnableLogging bool `json:"enableLogging" yaml:"enableLogging" toml:"enableLogging" env:"ENABLE_LOGGING"`

	// EnableValidation checks payload shape on emit and logs warnings.
	// Malformed payloads are still dispatched.
	EnableValidation bool `json:"enableValidation" yaml:"enableValidation" toml:"enableValidation" env:"ENABLE_VALIDATION"`

	// Source is the default payload source.
	Source string `json:"source" yaml:"source" toml:"source" env:"SOURCE"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		HistorySize: DefaultHistorySize,
		Source:      DefaultSource,
	}
}

// Validate implements the config validation contract.
func (c Config) Validate() error {
	if c.HistorySize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidHistorySize, c.HistorySize)
	}
	if c.Source == "" {
		return ErrSourceEmpty
	}
	return nil
}
