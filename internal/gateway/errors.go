package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

// RejectedError is returned when the gateway answers a request with a non-2xx status.
type RejectedError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *RejectedError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("gateway rejected order with status %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway rejected order (status %d, code %s): %s", e.StatusCode, e.Code, e.Description)
}

// Describe turns a CreateOrder failure into a message that can be shown to
// the buyer. Transport details stay in the logs.
func Describe(err error) string {
	var rejected *RejectedError
	switch {
	case errors.As(err, &rejected):
		if rejected.Description != "" {
			return rejected.Description
		}
		return fmt.Sprintf("gateway rejected order with status %d", rejected.StatusCode)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "payment gateway temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "payment gateway timed out"
	default:
		return "payment gateway unreachable"
	}
}
