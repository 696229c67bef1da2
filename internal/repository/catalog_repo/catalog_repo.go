package catalog_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coursepay/internal/domain"
)

type courseRepository struct{}

func NewCourseRepository() CourseRepository {
	return &courseRepository{}
}

func (r *courseRepository) GetApprovedCourseTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Course, error) {
	query := `
		SELECT id, title, description, instructor_id, price, is_approved
		FROM courses
		WHERE id = $1 AND is_approved = TRUE
	`
	course := &domain.Course{}
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&course.InstructorID,
		&course.Price,
		&course.IsApproved,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course %d: %w", id, err)
	}
	return course, nil
}
