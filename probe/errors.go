package probe

import "errors"

var (
	// ErrStatus indicates an HTTP target answered with a status >= 400.
	ErrStatus = errors.New("probe: unexpected status")

	// ErrNotConnected indicates Ping was called before a connection exists.
	ErrNotConnected = errors.New("probe: not connected")

	// ErrUnknownType indicates the factory has no builder for a strategy type.
	ErrUnknownType = errors.New("probe: unknown strategy type")

	// ErrInvalidOptions indicates strategy options could not be decoded.
	ErrInvalidOptions = errors.New("probe: invalid options")

	// ErrMemoryCritical indicates memory use is above the critical threshold.
	ErrMemoryCritical = errors.New("probe: memory usage critical")
)
