package store

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidItem     = errors.New("product id and a numeric unit price are required")
	ErrInvalidQuantity = errors.New("quantity delta must be a positive integer")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrEmptyCart       = errors.New("cart is empty, nothing to checkout")
	ErrMissingUser     = errors.New("user id is required for checkout")
)

// CheckoutFailedError carries the submitter's error. The cart is left intact
// when checkout fails, so the caller may retry with the same contents.
type CheckoutFailedError struct {
	Cause error
}

func (e *CheckoutFailedError) Error() string {
	return fmt.Sprintf("checkout failed: %v", e.Cause)
}

func (e *CheckoutFailedError) Unwrap() error {
	return e.Cause
}
