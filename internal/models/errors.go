package models

import "errors"

// Domain failures surfaced to the HTTP layer. Matched with errors.Is;
// handlers map each to a status code.
var (
	// ErrNotFound covers any missing resource lookup.
	ErrNotFound = errors.New("resource not found")

	// ErrPermission is returned when the actor is not allowed to perform
	// the operation on the target resource.
	ErrPermission = errors.New("operation not permitted")

	// ErrEmptyCart is returned when placing an order from a cart with no
	// items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrDuplicateCartItem is returned when adding a food item already in
	// the cart.
	ErrDuplicateCartItem = errors.New("item already in cart")

	// ErrInvalidTransition is returned for disallowed order or payment
	// status transitions.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPaymentExists is returned when initiating a payment for an order
	// that already has one.
	ErrPaymentExists = errors.New("payment already exists for order")

	// ErrPaymentInitiation wraps gateway failures during payment
	// initiation; the order stays unpaid and the customer may retry.
	ErrPaymentInitiation = errors.New("payment initiation failed")

	// ErrInsufficientPoints is returned when a redemption costs more than
	// the account balance.
	ErrInsufficientPoints = errors.New("insufficient loyalty points")

	// ErrDuplicateReview is returned when an order already has a review.
	ErrDuplicateReview = errors.New("order already reviewed")

	// ErrReviewWindowExpired is returned when reviewing outside the
	// order's creation day.
	ErrReviewWindowExpired = errors.New("review window expired")

	// ErrOrderNotPaid is returned when reviewing an order that has not
	// been paid.
	ErrOrderNotPaid = errors.New("order is not paid")

	// ErrDuplicateName is returned when creating a uniquely named
	// resource that already exists.
	ErrDuplicateName = errors.New("name already exists")

	// ErrValidation marks malformed or out-of-range input values.
	ErrValidation = errors.New("validation failed")
)
