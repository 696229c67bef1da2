package cart_repo

import (
	"context"

	"coursepay/internal/domain"
)

type CartRepository interface {
	AddIfAbsentTx(ctx context.Context, querier domain.Querier, userID, courseID int64) (item *domain.CartItem, created bool, err error)
	ListByUserTx(ctx context.Context, querier domain.Querier, userID int64) ([]domain.CartItem, error)
	DeleteTx(ctx context.Context, querier domain.Querier, userID, courseID int64) (bool, error)
}
