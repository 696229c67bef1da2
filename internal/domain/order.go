package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "CREATED"
	OrderStatusPaid    OrderStatus = "PAID"
	OrderStatusFailed  OrderStatus = "FAILED"
)

type Order struct {
	ID              int64
	UserID          int64
	CourseID        int64
	Amount          decimal.Decimal
	Status          OrderStatus
	ExternalOrderID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewOrder pins the amount to the course price at creation time.
func NewOrder(userID int64, course *Course) *Order {
	now := time.Now()
	return &Order{
		UserID:    userID,
		CourseID:  course.ID,
		Amount:    course.Price,
		Status:    OrderStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Receipt is the identifier sent to the gateway alongside the remote order.
func (o *Order) Receipt() string {
	return fmt.Sprintf("order_%d", o.ID)
}

func (o *Order) MarkPaid() error {
	switch o.Status {
	case OrderStatusPaid:
		return nil
	case OrderStatusFailed:
		return fmt.Errorf("cannot mark failed order %d as paid: %w", o.ID, ErrInvalidTransition)
	}
	o.Status = OrderStatusPaid
	o.UpdatedAt = time.Now()
	return nil
}

// MarkFailed is only allowed from CREATED. FAILED is terminal and PAID never
// moves backwards.
func (o *Order) MarkFailed() error {
	switch o.Status {
	case OrderStatusFailed:
		return nil
	case OrderStatusPaid:
		return fmt.Errorf("cannot mark paid order %d as failed: %w", o.ID, ErrInvalidTransition)
	}
	o.Status = OrderStatusFailed
	o.UpdatedAt = time.Now()
	return nil
}

// OrderView is a read projection of an order joined with its course and buyer.
type OrderView struct {
	Order
	CourseTitle  string
	CoursePrice  decimal.Decimal
	InstructorID int64
	StudentName  string
	StudentEmail string
}
