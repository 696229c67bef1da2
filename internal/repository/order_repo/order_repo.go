package order_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coursepay/internal/domain"
)

type orderRepository struct{}

func NewOrderRepository() OrderRepository {
	return &orderRepository{}
}

const orderColumns = `id, user_id, course_id, amount, status, COALESCE(external_order_id, ''), created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }, order *domain.Order) error {
	return row.Scan(
		&order.ID,
		&order.UserID,
		&order.CourseID,
		&order.Amount,
		&order.Status,
		&order.ExternalOrderID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
}

func (r *orderRepository) CreateTx(ctx context.Context, querier domain.Querier, order *domain.Order) error {
	query := `
		INSERT INTO orders (user_id, course_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := querier.QueryRowContext(ctx, query,
		order.UserID,
		order.CourseID,
		order.Amount,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("failed to create order for user %d course %d: %w", order.UserID, order.CourseID, err)
	}
	return nil
}

func (r *orderRepository) GetByIDForUserTx(ctx context.Context, querier domain.Querier, id, userID int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`
	order := &domain.Order{}
	if err := scanOrder(querier.QueryRowContext(ctx, query, id, userID), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	return order, nil
}

func (r *orderRepository) GetByIDForUpdateTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	order := &domain.Order{}
	if err := scanOrder(querier.QueryRowContext(ctx, query, id), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order %d: %w", id, err)
	}
	return order, nil
}

func (r *orderRepository) SetExternalOrderIDTx(ctx context.Context, querier domain.Querier, id int64, externalOrderID string) error {
	query := `UPDATE orders SET external_order_id = $1, updated_at = $2 WHERE id = $3`
	res, err := querier.ExecContext(ctx, query, externalOrderID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set external order id for order %d: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for order %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) UpdateStatusTx(ctx context.Context, querier domain.Querier, id int64, from, to domain.OrderStatus) (bool, error) {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	res, err := querier.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update status of order %d to %s: %w", id, to, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for order status update %d: %w", id, err)
	}
	return rowsAffected > 0, nil
}

func (r *orderRepository) DeleteTx(ctx context.Context, querier domain.Querier, id int64) error {
	if _, err := querier.ExecContext(ctx, `DELETE FROM payments WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete payment of order %d: %w", id, err)
	}
	if _, err := querier.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete order %d: %w", id, err)
	}
	return nil
}

const orderViewQuery = `
	SELECT o.id, o.user_id, o.course_id, o.amount, o.status, COALESCE(o.external_order_id, ''),
	       o.created_at, o.updated_at,
	       c.title, c.price, c.instructor_id,
	       u.full_name, u.email
	FROM orders o
	JOIN courses c ON c.id = o.course_id
	JOIN users u ON u.id = o.user_id
`

func (r *orderRepository) ListByUserTx(ctx context.Context, querier domain.Querier, userID int64) ([]domain.OrderView, error) {
	query := orderViewQuery + ` WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id DESC`
	views, err := r.queryViews(ctx, querier, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user %d: %w", userID, err)
	}
	return views, nil
}

func (r *orderRepository) ListPaidByInstructorTx(ctx context.Context, querier domain.Querier, instructorID int64) ([]domain.OrderView, error) {
	query := orderViewQuery + ` WHERE c.instructor_id = $1 AND o.status = $2 ORDER BY o.created_at DESC, o.id DESC`
	views, err := r.queryViews(ctx, querier, query, instructorID, domain.OrderStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to list paid orders for instructor %d: %w", instructorID, err)
	}
	return views, nil
}

func (r *orderRepository) queryViews(ctx context.Context, querier domain.Querier, query string, args ...any) ([]domain.OrderView, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]domain.OrderView, 0)
	for rows.Next() {
		var v domain.OrderView
		if err := rows.Scan(
			&v.ID,
			&v.UserID,
			&v.CourseID,
			&v.Amount,
			&v.Status,
			&v.ExternalOrderID,
			&v.CreatedAt,
			&v.UpdatedAt,
			&v.CourseTitle,
			&v.CoursePrice,
			&v.InstructorID,
			&v.StudentName,
			&v.StudentEmail,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return views, nil
}
