package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrMissingPrice       = errors.New("product has no price")
	ErrNoAddressSelected  = errors.New("no delivery address selected")
	ErrUnauthenticated    = errors.New("buyer is not authenticated")
	ErrCheckoutSession    = errors.New("failed to create checkout session")
	ErrCheckoutInProgress = errors.New("checkout is already in progress")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrAlreadySubscribed  = errors.New("email is already subscribed")
)

type MissingPriceError struct {
	ProductID   string
	ProductName string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("product %q (%s) has no price", e.ProductName, e.ProductID)
}

func (e *MissingPriceError) Is(target error) bool {
	return target == ErrMissingPrice
}

// A CheckoutSessionError carries the payment collaborator failure.
type CheckoutSessionError struct {
	OrderNumber string
	Err         error
}

func (e *CheckoutSessionError) Error() string {
	return fmt.Sprintf(
		"%s: order %s: %v", ErrCheckoutSession, e.OrderNumber, e.Err,
	)
}

func (e *CheckoutSessionError) Is(target error) bool {
	return target == ErrCheckoutSession
}

func (e *CheckoutSessionError) Unwrap() error {
	return e.Err
}
