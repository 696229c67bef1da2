package checkout

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"coursepay/internal/app/checkout"
	"coursepay/internal/handler/http/httpx"
)

type CheckoutHandler struct {
	service checkout.CheckoutService
	logger  *zap.Logger
}

func NewCheckoutHandler(s checkout.CheckoutService, l *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: s, logger: l}
}

func (h *CheckoutHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body for CreateOrder", zap.Error(err))
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.CreateOrder(r.Context(), httpx.Identity(r), req.CourseID)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, mapCreateOrderResult(res))
}

func (h *CheckoutHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body for VerifyPayment", zap.Error(err))
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.VerifyPayment(r.Context(), httpx.Identity(r), checkout.VerifyPaymentRequest{
		OrderID:         req.OrderID,
		RemoteOrderID:   req.RemoteOrderID,
		RemotePaymentID: req.RemotePaymentID,
		Signature:       req.Signature,
	})
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	message := "Payment verified successfully"
	if res.AlreadyProcessed {
		message = "Payment already verified"
	}
	httpx.WriteJSON(w, http.StatusOK, VerifyPaymentResponse{
		Message:      message,
		OrderID:      res.OrderID,
		EnrollmentID: res.EnrollmentID,
		CourseID:     res.CourseID,
	})
}

func (h *CheckoutHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListOrders(r.Context(), httpx.Identity(r))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapOrderViews(views))
}

func (h *CheckoutHandler) ListEarnings(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListEarnings(r.Context(), httpx.Identity(r))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapOrderViews(views))
}

func (h *CheckoutHandler) GatewayStatus(w http.ResponseWriter, r *http.Request) {
	status := h.service.GatewayStatus()
	httpx.WriteJSON(w, http.StatusOK, GatewayStatusResponse{
		Configured:  status.Configured,
		KeyIDPrefix: status.KeyIDPrefix,
		HasSecret:   status.HasSecret,
	})
}
