package feed

import "errors"

var (
	// ErrNoHandler indicates a forwarder was started without a callback.
	ErrNoHandler = errors.New("event handler required")
	// ErrNotInitialized indicates the bus has no backing client.
	ErrNotInitialized = errors.New("feed bus not initialized")
)
