package backoff

import "errors"

// ErrInvalidConfig is returned for non-positive strategy parameters.
var ErrInvalidConfig = errors.New("backoff: invalid configuration")
