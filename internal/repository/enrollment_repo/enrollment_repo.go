package enrollment_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coursepay/internal/domain"
)

var errEnrollmentNotFound = errors.New("enrollment not found")

type enrollmentRepository struct{}

func NewEnrollmentRepository() EnrollmentRepository {
	return &enrollmentRepository{}
}

func (r *enrollmentRepository) ExistsTx(ctx context.Context, querier domain.Querier, studentID, courseID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)`
	var exists bool
	if err := querier.QueryRowContext(ctx, query, studentID, courseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check enrollment for student %d course %d: %w", studentID, courseID, err)
	}
	return exists, nil
}

func (r *enrollmentRepository) GetTx(ctx context.Context, querier domain.Querier, studentID, courseID int64) (*domain.Enrollment, error) {
	query := `
		SELECT id, student_id, course_id, enrolled_at
		FROM enrollments
		WHERE student_id = $1 AND course_id = $2
	`
	e := &domain.Enrollment{}
	err := querier.QueryRowContext(ctx, query, studentID, courseID).Scan(&e.ID, &e.StudentID, &e.CourseID, &e.EnrolledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment for student %d course %d: %w", studentID, courseID, err)
	}
	return e, nil
}

func (r *enrollmentRepository) GetOrCreateTx(ctx context.Context, querier domain.Querier, studentID, courseID int64) (*domain.Enrollment, bool, error) {
	existing, err := r.GetTx(ctx, querier, studentID, courseID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, errEnrollmentNotFound) {
		return nil, false, err
	}

	// ON CONFLICT keeps a concurrent insert from aborting the surrounding
	// transaction; the loser re-reads the winner's row.
	query := `
		INSERT INTO enrollments (student_id, course_id)
		VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT enrollments_student_course_key DO NOTHING
		RETURNING id, student_id, course_id, enrolled_at
	`
	e := &domain.Enrollment{}
	err = querier.QueryRowContext(ctx, query, studentID, courseID).Scan(&e.ID, &e.StudentID, &e.CourseID, &e.EnrolledAt)
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create enrollment for student %d course %d: %w", studentID, courseID, err)
	}

	existing, err = r.GetTx(ctx, querier, studentID, courseID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-read enrollment after conflict: %w", err)
	}
	return existing, false, nil
}
