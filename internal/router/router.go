package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"coursepay/internal/app/cart"
	"coursepay/internal/app/checkout"
	http_cart "coursepay/internal/handler/http/cart"
	http_checkout "coursepay/internal/handler/http/checkout"
	"coursepay/internal/handler/http/httpx"
	"coursepay/internal/metrics"
)

type Options struct {
	AllowedOrigins []string
	Checkout       checkout.CheckoutService
	Cart           cart.CartService
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	// Ping reports whether the database is reachable; nil skips the check.
	Ping   func(ctx context.Context) error
	Logger *zap.Logger
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", httpx.HeaderUserID, httpx.HeaderUserRole},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := opts.Ping(ctx); err != nil {
				opts.Logger.Warn("Health check failed", zap.Error(err))
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(opts.Gatherer))
	}

	http_checkout.RegisterRoutes(r, opts.Checkout, opts.Logger)
	http_cart.RegisterRoutes(r, opts.Cart, opts.Logger)

	return r
}
