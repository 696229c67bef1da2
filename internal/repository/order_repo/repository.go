package order_repo

import (
	"context"

	"coursepay/internal/domain"
)

type OrderRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, order *domain.Order) error
	GetByIDForUserTx(ctx context.Context, querier domain.Querier, id, userID int64) (*domain.Order, error)
	// GetByIDForUpdateTx locks the order row until the transaction ends.
	GetByIDForUpdateTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Order, error)
	SetExternalOrderIDTx(ctx context.Context, querier domain.Querier, id int64, externalOrderID string) error
	// UpdateStatusTx moves the order from one status to another and reports
	// whether the row was in the expected status.
	UpdateStatusTx(ctx context.Context, querier domain.Querier, id int64, from, to domain.OrderStatus) (bool, error)
	// DeleteTx removes the order together with its payment. Call it inside a
	// transaction.
	DeleteTx(ctx context.Context, querier domain.Querier, id int64) error
	ListByUserTx(ctx context.Context, querier domain.Querier, userID int64) ([]domain.OrderView, error)
	ListPaidByInstructorTx(ctx context.Context, querier domain.Querier, instructorID int64) ([]domain.OrderView, error)
}
