package payment_repo

import (
	"context"

	"coursepay/internal/domain"
)

type PaymentRepository interface {
	// CreateTx returns domain.ErrPaymentAlreadyExists when the order already
	// has a payment.
	CreateTx(ctx context.Context, querier domain.Querier, payment *domain.Payment) error
	GetByOrderIDTx(ctx context.Context, querier domain.Querier, orderID int64) (*domain.Payment, error)
}
