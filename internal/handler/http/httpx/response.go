package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"coursepay/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// StatusFor maps workflow errors to HTTP statuses. Unknown errors are 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrCourseIDRequired),
		errors.Is(err, domain.ErrFreeCourse),
		errors.Is(err, domain.ErrAlreadyEnrolled),
		errors.Is(err, domain.ErrMissingPaymentDetails),
		errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrOrderFailed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCourseNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrCartItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as {"error": ...}. Internal failures are logged and
// replaced with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := StatusFor(err)
	message := err.Error()
	switch {
	case errors.Is(err, domain.ErrGatewayUnavailable):
		message = domain.ErrGatewayUnavailable.Error()
		var gwErr *domain.GatewayError
		if errors.As(err, &gwErr) {
			message = gwErr.PublicMessage()
		}
		logger.Error("Gateway error", zap.String("path", r.URL.Path), zap.Error(err))
	case errors.Is(err, domain.ErrGatewayNotConfigured), errors.Is(err, domain.ErrVerificationFailed):
		logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	case status == http.StatusInternalServerError:
		logger.Error("Internal server error", zap.String("path", r.URL.Path), zap.Error(err))
		message = "Internal server error"
	default:
		logger.Info("Request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	WriteErrorMessage(w, status, message)
}
