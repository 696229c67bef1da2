package checkout

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"coursepay/internal/app/checkout"
	"coursepay/internal/handler/http/httpx"
)

func RegisterRoutes(r chi.Router, s checkout.CheckoutService, l *zap.Logger) {
	handler := NewCheckoutHandler(s, l.With(zap.String("component", "CheckoutHTTPHandler")))

	r.Route("/orders", func(r chi.Router) {
		r.Use(httpx.RequireIdentity)
		r.Post("/create", handler.CreateOrder)
		r.Post("/verify", handler.VerifyPayment)
		r.Get("/mine", handler.ListOrders)
		r.Get("/earnings", handler.ListEarnings)
		r.Get("/gateway-status", handler.GatewayStatus)
	})
}
