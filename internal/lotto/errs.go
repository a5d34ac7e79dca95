package lotto

import "errors"

var (
	// ErrInvalidParameter indicates a precondition on an argument was not met
	ErrInvalidParameter = errors.New("LOTTO_001: invalid parameter")

	// ErrInvalidRange indicates min is greater than max
	ErrInvalidRange = errors.New("LOTTO_002: invalid range: min must be less than or equal to max")
)
