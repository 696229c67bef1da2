package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewHTTPClient(HTTPClientConfig{
		BaseURL:   server.URL + "/v1/",
		KeyID:     "rzp_test_key",
		KeySecret: "secret",
		Timeout:   2 * time.Second,
	}, zap.NewNop())
}

func TestHTTPClient_CreateOrder_Success(t *testing.T) {
	var got createOrderPayload
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_remote_1","amount":49900,"currency":"INR","receipt":"order_7","status":"created"}`))
	})

	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		AmountMinor: 49900,
		Currency:    "INR",
		Receipt:     "order_7",
	})

	require.NoError(t, err)
	assert.Equal(t, "order_remote_1", order.ID)
	assert.Equal(t, int64(49900), order.Amount)
	assert.Equal(t, createOrderPayload{Amount: 49900, Currency: "INR", Receipt: "order_7", PaymentCapture: 1}, got)
}

func TestHTTPClient_CreateOrder_GatewayError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"Authentication failed"}}`))
	})

	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{AmountMinor: 100, Currency: "INR", Receipt: "order_1"})

	require.Error(t, err)
	assert.Nil(t, order)
	assert.Contains(t, err.Error(), "Authentication failed")

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusBadRequest, rejected.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", rejected.Code)
	assert.Equal(t, "Authentication failed", Describe(err))
}

func TestHTTPClient_CreateOrder_MissingID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"amount":100}`))
	})

	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{AmountMinor: 100, Currency: "INR", Receipt: "order_1"})
	require.Error(t, err)
}

func TestHTTPClient_CircuitOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := CreateOrderRequest{AmountMinor: 100, Currency: "INR", Receipt: "order_1"}
	for i := 0; i < 5; i++ {
		_, err := client.CreateOrder(context.Background(), req)
		require.Error(t, err)
	}

	_, err := client.CreateOrder(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temporarily unavailable")
	assert.Equal(t, "payment gateway temporarily unavailable", Describe(err))
	assert.Equal(t, 5, calls)
}
