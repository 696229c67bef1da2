package cart

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"coursepay/internal/app/cart"
	"coursepay/internal/handler/http/httpx"
)

func RegisterRoutes(r chi.Router, s cart.CartService, l *zap.Logger) {
	handler := NewCartHandler(s, l.With(zap.String("component", "CartHTTPHandler")))

	r.Route("/cart", func(r chi.Router) {
		r.Use(httpx.RequireIdentity)
		r.Get("/", handler.ListItems)
		r.Post("/", handler.AddItem)
		r.Delete("/{courseID}", handler.RemoveItem)
	})
}
