package enrollment_repo

import (
	"context"

	"coursepay/internal/domain"
)

type EnrollmentRepository interface {
	ExistsTx(ctx context.Context, querier domain.Querier, studentID, courseID int64) (bool, error)
	GetTx(ctx context.Context, querier domain.Querier, studentID, courseID int64) (*domain.Enrollment, error)
	// GetOrCreateTx returns the enrollment for (student, course), creating it
	// when absent. created is false when the row already existed.
	GetOrCreateTx(ctx context.Context, querier domain.Querier, studentID, courseID int64) (enrollment *domain.Enrollment, created bool, err error)
}
