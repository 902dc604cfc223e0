package domain

import "errors"

var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidValue = errors.New("invalid field value")
)
