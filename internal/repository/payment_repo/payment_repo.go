package payment_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coursepay/internal/domain"
	"coursepay/internal/infrastructure/database"
)

var ErrPaymentNotFound = errors.New("payment not found")

const paymentsOrderIDKey = "payments_order_id_key"

type paymentRepository struct{}

func NewPaymentRepository() PaymentRepository {
	return &paymentRepository{}
}

func (r *paymentRepository) CreateTx(ctx context.Context, querier domain.Querier, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (order_id, external_payment_id, external_signature, paid_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := querier.QueryRowContext(ctx, query,
		payment.OrderID,
		payment.ExternalPaymentID,
		payment.ExternalSignature,
		payment.PaidAt,
	).Scan(&payment.ID)
	if err != nil {
		if database.IsUniqueViolation(err, paymentsOrderIDKey) {
			return domain.ErrPaymentAlreadyExists
		}
		return fmt.Errorf("failed to create payment for order %d: %w", payment.OrderID, err)
	}
	return nil
}

func (r *paymentRepository) GetByOrderIDTx(ctx context.Context, querier domain.Querier, orderID int64) (*domain.Payment, error) {
	query := `
		SELECT id, order_id, external_payment_id, external_signature, paid_at
		FROM payments
		WHERE order_id = $1
	`
	payment := &domain.Payment{}
	err := querier.QueryRowContext(ctx, query, orderID).Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.ExternalPaymentID,
		&payment.ExternalSignature,
		&payment.PaidAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment by order id %d: %w", orderID, err)
	}
	return payment, nil
}
