package eventbus

import "errors"

var (
	// Subscription errors
	ErrEventHandlerNil = errors.New("event handler cannot be nil")
	ErrEventTypeEmpty  = errors.New("event type cannot be empty")

	// Configuration errors
	ErrInvalidHistorySize = errors.New("history size must be at least 1")
	ErrSourceEmpty        = errors.New("default event source cannot be empty")
)
