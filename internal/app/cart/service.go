package cart

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"coursepay/internal/cache"
	"coursepay/internal/domain"
	"coursepay/internal/repository/cart_repo"
	"coursepay/internal/repository/catalog_repo"
	"coursepay/internal/repository/enrollment_repo"
)

type CartService interface {
	AddItem(ctx context.Context, identity domain.Identity, courseID int64) (*domain.CartItem, bool, error)
	ListItems(ctx context.Context, identity domain.Identity) ([]domain.CartItem, error)
	RemoveItem(ctx context.Context, identity domain.Identity, courseID int64) error
	// RemoveEnrolledCourse drops a course from the cart once the user owns it.
	// Removing an absent item is not an error.
	RemoveEnrolledCourse(ctx context.Context, userID, courseID int64) error
}

type cartService struct {
	db          domain.Querier
	carts       cart_repo.CartRepository
	courses     catalog_repo.CourseRepository
	enrollments enrollment_repo.EnrollmentRepository
	cache       cache.CartCache
	logger      *zap.Logger
}

func NewCartService(
	db domain.Querier,
	carts cart_repo.CartRepository,
	courses catalog_repo.CourseRepository,
	enrollments enrollment_repo.EnrollmentRepository,
	cartCache cache.CartCache,
	logger *zap.Logger,
) CartService {
	if cartCache == nil {
		cartCache = cache.NoopCache{}
	}
	return &cartService{
		db:          db,
		carts:       carts,
		courses:     courses,
		enrollments: enrollments,
		cache:       cartCache,
		logger:      logger,
	}
}

func (s *cartService) AddItem(ctx context.Context, identity domain.Identity, courseID int64) (*domain.CartItem, bool, error) {
	if !identity.IsStudent() {
		return nil, false, domain.ErrForbidden
	}
	if courseID <= 0 {
		return nil, false, domain.ErrCourseIDRequired
	}

	course, err := s.courses.GetApprovedCourseTx(ctx, s.db, courseID)
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			return nil, false, domain.ErrCourseNotFound
		}
		return nil, false, fmt.Errorf("failed to load course %d: %w", courseID, err)
	}

	enrolled, err := s.enrollments.ExistsTx(ctx, s.db, identity.UserID, courseID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return nil, false, domain.ErrAlreadyEnrolled
	}

	item, created, err := s.carts.AddIfAbsentTx(ctx, s.db, identity.UserID, courseID)
	if err != nil {
		s.logger.Error("Failed to add course to cart",
			zap.Int64("user_id", identity.UserID),
			zap.Int64("course_id", courseID),
			zap.Error(err))
		return nil, false, fmt.Errorf("failed to add cart item: %w", err)
	}
	item.Course = course

	if created {
		s.evict(ctx, identity.UserID)
		s.logger.Info("Course added to cart", zap.Int64("user_id", identity.UserID), zap.Int64("course_id", courseID))
	}
	return item, created, nil
}

func (s *cartService) ListItems(ctx context.Context, identity domain.Identity) ([]domain.CartItem, error) {
	if !identity.IsStudent() {
		return nil, domain.ErrForbidden
	}

	items, err := s.cache.Get(ctx, identity.UserID)
	if err == nil {
		return items, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Cart cache read failed, falling back to database", zap.Int64("user_id", identity.UserID), zap.Error(err))
	}

	version, versionErr := s.cache.Version(ctx, identity.UserID)

	items, err = s.carts.ListByUserTx(ctx, s.db, identity.UserID)
	if err != nil {
		s.logger.Error("Failed to list cart items", zap.Int64("user_id", identity.UserID), zap.Error(err))
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}

	if versionErr != nil {
		return items, nil
	}
	if err := s.cache.Set(ctx, identity.UserID, version, items); err != nil {
		s.logger.Warn("Failed to cache cart", zap.Int64("user_id", identity.UserID), zap.Error(err))
	}
	return items, nil
}

func (s *cartService) RemoveItem(ctx context.Context, identity domain.Identity, courseID int64) error {
	if !identity.IsStudent() {
		return domain.ErrForbidden
	}
	if courseID <= 0 {
		return domain.ErrCourseIDRequired
	}

	removed, err := s.carts.DeleteTx(ctx, s.db, identity.UserID, courseID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	if !removed {
		return domain.ErrCartItemNotFound
	}
	s.evict(ctx, identity.UserID)
	return nil
}

func (s *cartService) RemoveEnrolledCourse(ctx context.Context, userID, courseID int64) error {
	removed, err := s.carts.DeleteTx(ctx, s.db, userID, courseID)
	if err != nil {
		return fmt.Errorf("failed to remove enrolled course from cart: %w", err)
	}
	if removed {
		s.logger.Info("Removed enrolled course from cart", zap.Int64("user_id", userID), zap.Int64("course_id", courseID))
	}
	// Evict even when nothing was removed; the checkout flow may have deleted
	// the row without reaching the cache.
	s.evict(ctx, userID)
	return nil
}

func (s *cartService) evict(ctx context.Context, userID int64) {
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("Failed to evict cart cache", zap.Int64("user_id", userID), zap.Error(err))
	}
}
