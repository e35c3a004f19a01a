package credit

import "errors"

var (
	// ErrInsufficientCredits is returned when the owner's balance cannot cover the amount
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	ErrInternal = errors.New("internal error")
)
