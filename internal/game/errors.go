package game

import "errors"

var (
	ErrNotFound       = errors.New("table not found")
	ErrTableLocked    = errors.New("table is locked")
	ErrBoxUnavailable = errors.New("box is no longer available")
	ErrPayoutMismatch = errors.New("payouts must equal the total pot")
	ErrCodeExhausted  = errors.New("could not allocate a unique table code")
)
