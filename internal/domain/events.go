package domain

import "time"

const (
	EventEnrollmentCreated = "enrollment.created"
	EventOrderFailed       = "order.failed"
)

// EnrollmentCreatedEvent is published when a student gains access to a course.
// The catalog service emits the same event for free courses.
type EnrollmentCreatedEvent struct {
	Type         string    `json:"type"`
	EnrollmentID int64     `json:"enrollment_id"`
	StudentID    int64     `json:"student_id"`
	CourseID     int64     `json:"course_id"`
	OrderID      int64     `json:"order_id,omitempty"`
	Amount       string    `json:"amount,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type OrderFailedEvent struct {
	Type      string    `json:"type"`
	OrderID   int64     `json:"order_id"`
	UserID    int64     `json:"user_id"`
	CourseID  int64     `json:"course_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}
