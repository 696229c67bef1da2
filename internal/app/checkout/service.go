package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"coursepay/internal/cache"
	"coursepay/internal/config"
	"coursepay/internal/domain"
	"coursepay/internal/gateway"
	"coursepay/internal/infrastructure/database"
	"coursepay/internal/metrics"
	"coursepay/internal/repository/cart_repo"
	"coursepay/internal/repository/catalog_repo"
	"coursepay/internal/repository/enrollment_repo"
	"coursepay/internal/repository/order_repo"
	"coursepay/internal/repository/outbox_repo"
	"coursepay/internal/repository/payment_repo"
	"coursepay/internal/util"
)

const settleTimeout = 15 * time.Second

type CheckoutService interface {
	CreateOrder(ctx context.Context, identity domain.Identity, courseID int64) (*CreateOrderResult, error)
	VerifyPayment(ctx context.Context, identity domain.Identity, req VerifyPaymentRequest) (*VerifyPaymentResult, error)
	ListOrders(ctx context.Context, identity domain.Identity) ([]domain.OrderView, error)
	ListEarnings(ctx context.Context, identity domain.Identity) ([]domain.OrderView, error)
	GatewayStatus() GatewayStatus
}

type Dependencies struct {
	DB          domain.Querier
	Tx          database.TxManager
	Courses     catalog_repo.CourseRepository
	Enrollments enrollment_repo.EnrollmentRepository
	Orders      order_repo.OrderRepository
	Payments    payment_repo.PaymentRepository
	Outbox      outbox_repo.OutboxRepository
	Carts       cart_repo.CartRepository
	CartCache   cache.CartCache
	Gateway     gateway.Client
	Verifier    *gateway.SignatureVerifier
	GatewayCfg  config.GatewayConfig
	EventsTopic string
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

type checkoutService struct {
	Dependencies
}

func NewCheckoutService(deps Dependencies) CheckoutService {
	if deps.CartCache == nil {
		deps.CartCache = cache.NoopCache{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNop()
	}
	if deps.Verifier == nil {
		deps.Verifier = gateway.NewSignatureVerifier(deps.GatewayCfg.KeySecret)
	}
	return &checkoutService{Dependencies: deps}
}

func (s *checkoutService) CreateOrder(ctx context.Context, identity domain.Identity, courseID int64) (*CreateOrderResult, error) {
	if !identity.IsStudent() {
		return nil, domain.ErrForbidden
	}
	if courseID <= 0 {
		return nil, domain.ErrCourseIDRequired
	}
	if !s.GatewayCfg.Configured() {
		s.Logger.Error("Payment gateway credentials are missing or placeholders, refusing to create order",
			zap.Int64("user_id", identity.UserID),
			zap.Int64("course_id", courseID))
		return nil, domain.ErrGatewayNotConfigured
	}

	course, err := s.Courses.GetApprovedCourseTx(ctx, s.DB, courseID)
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to load course %d: %w", courseID, err)
	}
	if course.IsFree() {
		return nil, domain.ErrFreeCourse
	}

	enrolled, err := s.Enrollments.ExistsTx(ctx, s.DB, identity.UserID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return nil, domain.ErrAlreadyEnrolled
	}

	order := domain.NewOrder(identity.UserID, course)
	if err := s.Orders.CreateTx(ctx, s.DB, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	s.Logger.Info("Order created, requesting remote order from gateway",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.Int64("course_id", order.CourseID),
		zap.String("amount", order.Amount.StringFixed(2)))

	remote, err := s.Gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
		AmountMinor: gateway.ToMinorUnits(order.Amount, s.GatewayCfg.CurrencyExponent),
		Currency:    s.GatewayCfg.Currency,
		Receipt:     order.Receipt(),
	})
	if err != nil {
		s.Metrics.GatewayFailures.Inc()
		s.Logger.Error("Gateway failed to create remote order, deleting local order",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
		s.deleteOrder(ctx, order.ID)
		return nil, &domain.GatewayError{Description: gateway.Describe(err), Err: err}
	}

	if err := s.Orders.SetExternalOrderIDTx(ctx, s.DB, order.ID, remote.ID); err != nil {
		s.Logger.Error("Failed to store remote order id, deleting local order",
			zap.Int64("order_id", order.ID),
			zap.String("remote_order_id", remote.ID),
			zap.Error(err))
		s.deleteOrder(ctx, order.ID)
		return nil, fmt.Errorf("failed to store remote order id: %w", err)
	}
	order.ExternalOrderID = remote.ID

	s.removeFromCart(ctx, order.UserID, order.CourseID)
	s.Metrics.OrdersCreated.Inc()

	s.Logger.Info("Order ready for payment",
		zap.Int64("order_id", order.ID),
		zap.String("remote_order_id", remote.ID))

	return &CreateOrderResult{
		OrderID:          order.ID,
		RemoteOrderID:    remote.ID,
		Amount:           order.Amount,
		Currency:         s.GatewayCfg.Currency,
		GatewayPublicKey: s.GatewayCfg.KeyID,
		Course: CourseSummary{
			ID:    course.ID,
			Title: course.Title,
			Price: course.Price,
		},
	}, nil
}

// deleteOrder is the compensating action for a failed remote order. It runs
// detached from the request context so a cancelled request still cleans up.
func (s *checkoutService) deleteOrder(ctx context.Context, orderID int64) {
	ctx = context.WithoutCancel(ctx)
	err := s.Tx.WithinTx(ctx, func(q domain.Querier) error {
		return s.Orders.DeleteTx(ctx, q, orderID)
	})
	if err != nil {
		s.Logger.Error("Failed to delete order after gateway failure", zap.Int64("order_id", orderID), zap.Error(err))
	}
}

func (s *checkoutService) removeFromCart(ctx context.Context, userID, courseID int64) {
	if _, err := s.Carts.DeleteTx(ctx, s.DB, userID, courseID); err != nil {
		s.Logger.Warn("Failed to remove course from cart", zap.Int64("user_id", userID), zap.Int64("course_id", courseID), zap.Error(err))
	}
	s.evictCart(ctx, userID)
}

func (s *checkoutService) evictCart(ctx context.Context, userID int64) {
	if err := s.CartCache.Delete(ctx, userID); err != nil {
		s.Logger.Warn("Failed to evict cart cache", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (s *checkoutService) VerifyPayment(ctx context.Context, identity domain.Identity, req VerifyPaymentRequest) (*VerifyPaymentResult, error) {
	if !identity.IsStudent() {
		return nil, domain.ErrForbidden
	}
	if !req.complete() {
		return nil, domain.ErrMissingPaymentDetails
	}

	order, err := s.Orders.GetByIDForUserTx(ctx, s.DB, req.OrderID, identity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		s.Logger.Error("Failed to load order for verification", zap.Int64("order_id", req.OrderID), zap.Error(err))
		s.Metrics.ObserveVerification(metrics.VerificationFailed)
		return nil, domain.ErrVerificationFailed
	}

	if order.Status == domain.OrderStatusFailed {
		s.Logger.Warn("Verification attempted on failed order", zap.Int64("order_id", order.ID))
		s.Metrics.ObserveVerification(metrics.VerificationRejected)
		return nil, domain.ErrOrderFailed
	}

	// The signature only binds the remote ids, so the remote order must also be
	// the one minted for this local order.
	valid := req.RemoteOrderID == order.ExternalOrderID &&
		s.Verifier.Verify(req.RemoteOrderID, req.RemotePaymentID, req.Signature)
	if !valid {
		s.Metrics.ObserveVerification(metrics.VerificationInvalidSignature)
		s.Logger.Warn("Invalid payment signature",
			zap.Int64("order_id", order.ID),
			zap.String("status", string(order.Status)),
			zap.String("remote_order_id", req.RemoteOrderID),
			zap.String("remote_payment_id", req.RemotePaymentID))
		if order.Status == domain.OrderStatusCreated {
			if err := s.failOrder(ctx, order, "invalid_signature"); err != nil {
				s.Logger.Error("Failed to mark order as failed", zap.Int64("order_id", order.ID), zap.Error(err))
			}
		}
		return nil, domain.ErrInvalidSignature
	}

	result, err := s.settle(ctx, order, req)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrPaymentAlreadyExists):
		// A concurrent request stored the payment first.
		result, err = s.recoverSettled(ctx, order.ID, identity.UserID)
		if err != nil {
			s.Logger.Error("Failed to recover already verified order", zap.Int64("order_id", order.ID), zap.Error(err))
			s.Metrics.ObserveVerification(metrics.VerificationFailed)
			return nil, domain.ErrVerificationFailed
		}
	case errors.Is(err, domain.ErrOrderFailed):
		s.Metrics.ObserveVerification(metrics.VerificationRejected)
		return nil, domain.ErrOrderFailed
	default:
		s.Logger.Error("Payment verification failed, marking order as failed", zap.Int64("order_id", order.ID), zap.Error(err))
		if failErr := s.failOrder(ctx, order, "verification_error"); failErr != nil {
			s.Logger.Error("Failed to mark order as failed", zap.Int64("order_id", order.ID), zap.Error(failErr))
		}
		s.Metrics.ObserveVerification(metrics.VerificationFailed)
		return nil, domain.ErrVerificationFailed
	}

	s.evictCart(ctx, identity.UserID)
	if result.AlreadyProcessed {
		s.Metrics.ObserveVerification(metrics.VerificationReplayed)
		s.Logger.Info("Payment already verified for order", zap.Int64("order_id", order.ID), zap.Int64("enrollment_id", result.EnrollmentID))
	} else {
		s.Metrics.ObserveVerification(metrics.VerificationPaid)
		s.Logger.Info("Payment verified and student enrolled",
			zap.Int64("order_id", order.ID),
			zap.Int64("user_id", order.UserID),
			zap.Int64("course_id", order.CourseID),
			zap.Int64("enrollment_id", result.EnrollmentID))
	}
	return result, nil
}

// settle stores the payment, marks the order paid and enrolls the student in
// one transaction. Re-running it on a paid order only fills in whatever a
// crashed earlier run left missing.
//
// The signature is already verified at this point, so a client disconnect
// must not abort the transaction and get a paid order marked FAILED.
func (s *checkoutService) settle(ctx context.Context, order *domain.Order, req VerifyPaymentRequest) (*VerifyPaymentResult, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	result := &VerifyPaymentResult{OrderID: order.ID, CourseID: order.CourseID}

	err := s.Tx.WithinTx(ctx, func(q domain.Querier) error {
		locked, err := s.Orders.GetByIDForUpdateTx(ctx, q, order.ID)
		if err != nil {
			return err
		}

		switch locked.Status {
		case domain.OrderStatusFailed:
			return domain.ErrOrderFailed
		case domain.OrderStatusPaid:
			result.AlreadyProcessed = true
			if err := s.ensurePayment(ctx, q, locked, req); err != nil {
				return err
			}
		default:
			payment := &domain.Payment{
				OrderID:           locked.ID,
				ExternalPaymentID: req.RemotePaymentID,
				ExternalSignature: req.Signature,
				PaidAt:            time.Now(),
			}
			if err := s.Payments.CreateTx(ctx, q, payment); err != nil {
				return err
			}
			if err := locked.MarkPaid(); err != nil {
				return err
			}
			updated, err := s.Orders.UpdateStatusTx(ctx, q, locked.ID, domain.OrderStatusCreated, domain.OrderStatusPaid)
			if err != nil {
				return err
			}
			if !updated {
				return fmt.Errorf("order %d left CREATED while locked: %w", locked.ID, domain.ErrInvalidTransition)
			}
		}

		enrollment, created, err := s.Enrollments.GetOrCreateTx(ctx, q, locked.UserID, locked.CourseID)
		if err != nil {
			return err
		}
		result.EnrollmentID = enrollment.ID

		if _, err := s.Carts.DeleteTx(ctx, q, locked.UserID, locked.CourseID); err != nil {
			return err
		}

		if created {
			return s.enqueueEnrollmentCreated(ctx, q, locked, enrollment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *checkoutService) ensurePayment(ctx context.Context, q domain.Querier, order *domain.Order, req VerifyPaymentRequest) error {
	_, err := s.Payments.GetByOrderIDTx(ctx, q, order.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, payment_repo.ErrPaymentNotFound) {
		return err
	}
	s.Logger.Warn("Paid order has no payment record, restoring it", zap.Int64("order_id", order.ID))
	return s.Payments.CreateTx(ctx, q, &domain.Payment{
		OrderID:           order.ID,
		ExternalPaymentID: req.RemotePaymentID,
		ExternalSignature: req.Signature,
		PaidAt:            time.Now(),
	})
}

func (s *checkoutService) recoverSettled(ctx context.Context, orderID, userID int64) (*VerifyPaymentResult, error) {
	order, err := s.Orders.GetByIDForUserTx(ctx, s.DB, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusPaid {
		return nil, fmt.Errorf("order %d has a payment but status %s", order.ID, order.Status)
	}
	enrollment, _, err := s.Enrollments.GetOrCreateTx(ctx, s.DB, order.UserID, order.CourseID)
	if err != nil {
		return nil, err
	}
	return &VerifyPaymentResult{
		OrderID:          order.ID,
		EnrollmentID:     enrollment.ID,
		CourseID:         order.CourseID,
		AlreadyProcessed: true,
	}, nil
}

// failOrder moves a CREATED order to FAILED. It never touches PAID or FAILED
// orders and runs detached from the request context.
func (s *checkoutService) failOrder(ctx context.Context, order *domain.Order, reason string) error {
	ctx = context.WithoutCancel(ctx)
	return s.Tx.WithinTx(ctx, func(q domain.Querier) error {
		updated, err := s.Orders.UpdateStatusTx(ctx, q, order.ID, domain.OrderStatusCreated, domain.OrderStatusFailed)
		if err != nil {
			return err
		}
		if !updated {
			return nil
		}
		if err := order.MarkFailed(); err != nil {
			return err
		}
		return s.enqueue(ctx, q, order.ID, domain.EventOrderFailed, domain.OrderFailedEvent{
			Type:      domain.EventOrderFailed,
			OrderID:   order.ID,
			UserID:    order.UserID,
			CourseID:  order.CourseID,
			Reason:    reason,
			Timestamp: time.Now().UTC(),
		})
	})
}

func (s *checkoutService) enqueueEnrollmentCreated(ctx context.Context, q domain.Querier, order *domain.Order, enrollment *domain.Enrollment) error {
	return s.enqueue(ctx, q, order.ID, domain.EventEnrollmentCreated, domain.EnrollmentCreatedEvent{
		Type:         domain.EventEnrollmentCreated,
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		CourseID:     enrollment.CourseID,
		OrderID:      order.ID,
		Amount:       order.Amount.StringFixed(2),
		Timestamp:    time.Now().UTC(),
	})
}

func (s *checkoutService) enqueue(ctx context.Context, q domain.Querier, orderID int64, messageType string, event any) error {
	if s.Outbox == nil || s.EventsTopic == "" {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", messageType, err)
	}
	key := strconv.FormatInt(orderID, 10)
	return s.Outbox.CreateMessageTx(ctx, q, &domain.OutboxMessage{
		ID:          util.GenerateUUID(),
		AggregateID: key,
		MessageType: messageType,
		Topic:       s.EventsTopic,
		Key:         key,
		Payload:     payload,
		Status:      domain.OutboxStatusPending,
		CreatedAt:   time.Now(),
	})
}

func (s *checkoutService) ListOrders(ctx context.Context, identity domain.Identity) ([]domain.OrderView, error) {
	orders, err := s.Orders.ListByUserTx(ctx, s.DB, identity.UserID)
	if err != nil {
		s.Logger.Error("Failed to list orders for user", zap.Int64("user_id", identity.UserID), zap.Error(err))
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *checkoutService) ListEarnings(ctx context.Context, identity domain.Identity) ([]domain.OrderView, error) {
	if !identity.CanViewEarnings() {
		return nil, domain.ErrForbidden
	}
	orders, err := s.Orders.ListPaidByInstructorTx(ctx, s.DB, identity.UserID)
	if err != nil {
		s.Logger.Error("Failed to list earnings for instructor", zap.Int64("instructor_id", identity.UserID), zap.Error(err))
		return nil, fmt.Errorf("failed to list earnings: %w", err)
	}
	return orders, nil
}

func (s *checkoutService) GatewayStatus() GatewayStatus {
	status := GatewayStatus{
		Configured: s.GatewayCfg.Configured(),
		HasSecret:  s.GatewayCfg.HasSecret(),
	}
	if key := s.GatewayCfg.KeyID; key != "" {
		if len(key) > 15 {
			key = key[:15]
		}
		status.KeyIDPrefix = key + "..."
	}
	return status
}
