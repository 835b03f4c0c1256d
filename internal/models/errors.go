package models

import "errors"

var (
	ErrAuthFailure        = errors.New("authentication failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("invalid payload")
)
