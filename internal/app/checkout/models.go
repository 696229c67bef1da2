package checkout

import "github.com/shopspring/decimal"

type CourseSummary struct {
	ID    int64
	Title string
	Price decimal.Decimal
}

type CreateOrderResult struct {
	OrderID          int64
	RemoteOrderID    string
	Amount           decimal.Decimal
	Currency         string
	GatewayPublicKey string
	Course           CourseSummary
}

type VerifyPaymentRequest struct {
	OrderID         int64
	RemoteOrderID   string
	RemotePaymentID string
	Signature       string
}

func (r VerifyPaymentRequest) complete() bool {
	return r.OrderID > 0 && r.RemoteOrderID != "" && r.RemotePaymentID != "" && r.Signature != ""
}

type VerifyPaymentResult struct {
	OrderID      int64
	EnrollmentID int64
	CourseID     int64
	// AlreadyProcessed is set when the order had been paid by an earlier call.
	AlreadyProcessed bool
}

type GatewayStatus struct {
	Configured  bool
	KeyIDPrefix string
	HasSecret   bool
}
