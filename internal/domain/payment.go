package domain

import "time"

// Payment is the immutable receipt of a verified gateway payment.
type Payment struct {
	ID                int64
	OrderID           int64
	ExternalPaymentID string
	ExternalSignature string
	PaidAt            time.Time
}
