package checkout

import (
	"time"

	"coursepay/internal/app/checkout"
	"coursepay/internal/domain"
)

type CreateOrderRequest struct {
	CourseID int64 `json:"course_id"`
}

type CourseSummaryResponse struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
}

type CreateOrderResponse struct {
	OrderID          int64                 `json:"order_id"`
	RemoteOrderID    string                `json:"remote_order_id"`
	Amount           float64               `json:"amount"`
	Currency         string                `json:"currency"`
	GatewayPublicKey string                `json:"gateway_public_key"`
	Course           CourseSummaryResponse `json:"course"`
}

type VerifyPaymentRequest struct {
	OrderID         int64  `json:"order_id"`
	RemoteOrderID   string `json:"remote_order_id"`
	RemotePaymentID string `json:"remote_payment_id"`
	Signature       string `json:"signature"`
}

type VerifyPaymentResponse struct {
	Message      string `json:"message"`
	OrderID      int64  `json:"order_id"`
	EnrollmentID int64  `json:"enrollment_id"`
	CourseID     int64  `json:"course_id"`
}

type OrderResponse struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user"`
	CourseID      int64     `json:"course"`
	CourseTitle   string    `json:"course_title"`
	CoursePrice   float64   `json:"course_price"`
	StudentName   string    `json:"student_name,omitempty"`
	StudentEmail  string    `json:"student_email,omitempty"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	RemoteOrderID string    `json:"remote_order_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type GatewayStatusResponse struct {
	Configured  bool   `json:"configured"`
	KeyIDPrefix string `json:"key_id_prefix"`
	HasSecret   bool   `json:"has_secret"`
}

func mapCreateOrderResult(res *checkout.CreateOrderResult) CreateOrderResponse {
	return CreateOrderResponse{
		OrderID:          res.OrderID,
		RemoteOrderID:    res.RemoteOrderID,
		Amount:           res.Amount.InexactFloat64(),
		Currency:         res.Currency,
		GatewayPublicKey: res.GatewayPublicKey,
		Course: CourseSummaryResponse{
			ID:    res.Course.ID,
			Title: res.Course.Title,
			Price: res.Course.Price.InexactFloat64(),
		},
	}
}

func mapOrderViews(views []domain.OrderView) []OrderResponse {
	out := make([]OrderResponse, 0, len(views))
	for _, v := range views {
		out = append(out, OrderResponse{
			ID:            v.ID,
			UserID:        v.UserID,
			CourseID:      v.CourseID,
			CourseTitle:   v.CourseTitle,
			CoursePrice:   v.CoursePrice.InexactFloat64(),
			StudentName:   v.StudentName,
			StudentEmail:  v.StudentEmail,
			Amount:        v.Amount.InexactFloat64(),
			Status:        string(v.Status),
			RemoteOrderID: v.ExternalOrderID,
			CreatedAt:     v.CreatedAt,
			UpdatedAt:     v.UpdatedAt,
		})
	}
	return out
}
