package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"coursepay/internal/app/cart"
	"coursepay/internal/domain"
	kafka_infra "coursepay/internal/infrastructure/kafka"
)

// EnrollmentCreatedMessageHandler keeps carts consistent with enrollments made
// anywhere on the platform, including free courses enrolled by the catalog.
// Other event types on the topic are ignored.
func EnrollmentCreatedMessageHandler(cartService cart.CartService, logger *zap.Logger) kafka_infra.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event domain.EnrollmentCreatedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("Failed to unmarshal Kafka message value to EnrollmentCreatedEvent",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			return nil
		}

		if event.Type != domain.EventEnrollmentCreated {
			logger.Debug("Skipping event", zap.String("type", event.Type), zap.Int64("offset", msg.Offset))
			return nil
		}
		if event.StudentID <= 0 || event.CourseID <= 0 {
			logger.Warn("Enrollment event without student or course, skipping",
				zap.Int64("enrollment_id", event.EnrollmentID),
				zap.Int64("offset", msg.Offset))
			return nil
		}

		if err := cartService.RemoveEnrolledCourse(ctx, event.StudentID, event.CourseID); err != nil {
			logger.Error("Failed to clean cart after enrollment",
				zap.Int64("enrollment_id", event.EnrollmentID),
				zap.Int64("user_id", event.StudentID),
				zap.Int64("course_id", event.CourseID),
				zap.Error(err))
			return fmt.Errorf("failed to process enrollment %d: %w", event.EnrollmentID, err)
		}

		logger.Info("Processed enrollment event",
			zap.Int64("enrollment_id", event.EnrollmentID),
			zap.Int64("user_id", event.StudentID),
			zap.Int64("course_id", event.CourseID))
		return nil
	}
}
