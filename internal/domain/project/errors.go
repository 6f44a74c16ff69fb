package project

import "errors"

// ErrInvalidInput wraps validator failures on inputs, patches and status events.
var ErrInvalidInput = errors.New("invalid project input")
