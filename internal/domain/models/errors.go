package models

import "errors"

// ErrValidation marks input rejected before it reaches storage.
var ErrValidation = errors.New("validation failed")
