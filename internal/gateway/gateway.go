// Package gateway is the adapter to the external payment gateway. It creates
// remote orders and verifies the signatures the gateway hands to the client
// after checkout. It keeps no state of its own.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	// AmountMinor is expressed in the currency's smallest unit (paise, cents).
	AmountMinor int64
	Currency    string
	Receipt     string
}

type RemoteOrder struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

type Client interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*RemoteOrder, error)
}

// ToMinorUnits scales a decimal price to the currency's minor unit and rounds
// half away from zero, so 499.00 with exponent 2 becomes 49900.
func ToMinorUnits(amount decimal.Decimal, exponent int32) int64 {
	return amount.Shift(exponent).Round(0).IntPart()
}
