package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"coursepay/internal/app/checkout"
	"coursepay/internal/config"
	"coursepay/internal/metrics"
)

func newTestRouter(ping func(context.Context) error) (http.Handler, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	svc := checkout.NewCheckoutService(checkout.Dependencies{
		GatewayCfg: config.GatewayConfig{KeyID: "rzp_test_abcdefghijklmnop", KeySecret: "s"},
		Logger:     zap.NewNop(),
	})
	return NewRouter(Options{
		AllowedOrigins: []string{"http://localhost:5173"},
		Checkout:       svc,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		Ping:           ping,
		Logger:         zap.NewNop(),
	}), reg
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h, _ = newTestRouter(func(context.Context) error { return errors.New("db down") })
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRoutesRequireIdentity(t *testing.T) {
	h, _ := newTestRouter(nil)

	for _, path := range []string{"/orders/mine", "/orders/gateway-status", "/cart"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestMetricsEndpointExposesRouteCounters(t *testing.T) {
	h, _ := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/orders/gateway-status", nil)
	req.Header.Set("X-User-ID", "1")
	req.Header.Set("X-User-Role", "ADMIN")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `coursepay_http_requests_total{method="GET",route="/orders/gateway-status",status="200"} 1`))
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodOptions, "/orders/create", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
