package catalog_repo

import (
	"context"

	"coursepay/internal/domain"
)

// CourseRepository reads catalog courses. The catalog service owns writes.
type CourseRepository interface {
	GetApprovedCourseTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Course, error)
}
