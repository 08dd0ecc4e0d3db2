package domain

import "errors"

// ErrNotFound reports a missing or non-claimable row; repositories return it
// so callers can distinguish absence from infrastructure failure.
var ErrNotFound = errors.New("not found")
