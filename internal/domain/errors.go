package domain

import "errors"

var (
	ErrCourseIDRequired      = errors.New("course id is required")
	ErrCourseNotFound        = errors.New("course not found")
	ErrFreeCourse            = errors.New("this course is free, no payment required")
	ErrAlreadyEnrolled       = errors.New("already enrolled in this course")
	ErrGatewayNotConfigured  = errors.New("payment gateway is not configured")
	ErrGatewayUnavailable    = errors.New("failed to create payment order")
	ErrMissingPaymentDetails = errors.New("missing payment details")
	ErrOrderNotFound         = errors.New("order not found")
	ErrInvalidSignature      = errors.New("invalid payment signature")
	ErrOrderFailed           = errors.New("order has already failed")
	ErrVerificationFailed    = errors.New("payment verification failed")
	ErrPaymentAlreadyExists  = errors.New("payment already exists for order")
	ErrCartItemNotFound      = errors.New("item not found in cart")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidTransition     = errors.New("invalid order status transition")
)

// GatewayError wraps a failed gateway call. Description is safe to show to
// the caller; Err keeps the full cause for logging.
type GatewayError struct {
	Description string
	Err         error
}

func (e *GatewayError) Error() string {
	return ErrGatewayUnavailable.Error() + ": " + e.Err.Error()
}

func (e *GatewayError) Unwrap() []error {
	return []error{ErrGatewayUnavailable, e.Err}
}

// PublicMessage is the text rendered to API clients.
func (e *GatewayError) PublicMessage() string {
	return ErrGatewayUnavailable.Error() + ": " + e.Description
}
