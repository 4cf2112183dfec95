package model

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrNoSystems        = errors.New("no systems registered")
	ErrEmptySweep       = errors.New("no system could be inspected")
	ErrStoreUnavailable = errors.New("store unavailable")
)
