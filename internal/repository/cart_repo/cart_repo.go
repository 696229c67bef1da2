package cart_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coursepay/internal/domain"
)

type cartRepository struct{}

func NewCartRepository() CartRepository {
	return &cartRepository{}
}

func (r *cartRepository) AddIfAbsentTx(ctx context.Context, querier domain.Querier, userID, courseID int64) (*domain.CartItem, bool, error) {
	insertQuery := `
		INSERT INTO cart_items (user_id, course_id)
		VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT cart_items_user_course_key DO NOTHING
		RETURNING id, user_id, course_id, added_at
	`
	item := &domain.CartItem{}
	err := querier.QueryRowContext(ctx, insertQuery, userID, courseID).Scan(&item.ID, &item.UserID, &item.CourseID, &item.AddedAt)
	if err == nil {
		return item, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to add course %d to cart of user %d: %w", courseID, userID, err)
	}

	selectQuery := `
		SELECT id, user_id, course_id, added_at
		FROM cart_items
		WHERE user_id = $1 AND course_id = $2
	`
	err = querier.QueryRowContext(ctx, selectQuery, userID, courseID).Scan(&item.ID, &item.UserID, &item.CourseID, &item.AddedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get existing cart item for user %d course %d: %w", userID, courseID, err)
	}
	return item, false, nil
}

func (r *cartRepository) ListByUserTx(ctx context.Context, querier domain.Querier, userID int64) ([]domain.CartItem, error) {
	query := `
		SELECT ci.id, ci.user_id, ci.course_id, ci.added_at,
		       c.title, c.description, c.instructor_id, c.price, c.is_approved
		FROM cart_items ci
		JOIN courses c ON c.id = ci.course_id
		WHERE ci.user_id = $1
		ORDER BY ci.added_at DESC, ci.id DESC
	`
	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items for user %d: %w", userID, err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var item domain.CartItem
		course := &domain.Course{}
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.CourseID,
			&item.AddedAt,
			&course.Title,
			&course.Description,
			&course.InstructorID,
			&course.Price,
			&course.IsApproved,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		course.ID = item.CourseID
		item.Course = course
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return items, nil
}

func (r *cartRepository) DeleteTx(ctx context.Context, querier domain.Querier, userID, courseID int64) (bool, error) {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND course_id = $2`
	res, err := querier.ExecContext(ctx, query, userID, courseID)
	if err != nil {
		return false, fmt.Errorf("failed to delete cart item for user %d course %d: %w", userID, courseID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for cart delete: %w", err)
	}
	return rowsAffected > 0, nil
}
