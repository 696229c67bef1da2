package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type HTTPClientConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

type httpClient struct {
	cfg        HTTPClientConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*RemoteOrder]
	logger     *zap.Logger
}

func NewHTTPClient(cfg HTTPClientConfig, logger *zap.Logger) Client {
	breaker := gobreaker.NewCircuitBreaker[*RemoteOrder](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Payment gateway circuit breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &httpClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		logger:     logger,
	}
}

type createOrderPayload struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

type remoteOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *httpClient) CreateOrder(ctx context.Context, req CreateOrderRequest) (*RemoteOrder, error) {
	order, err := c.breaker.Execute(func() (*RemoteOrder, error) {
		return c.createOrder(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("payment gateway temporarily unavailable: %w", err)
		}
		return nil, err
	}
	return order, nil
}

func (c *httpClient) createOrder(ctx context.Context, req CreateOrderRequest) (*RemoteOrder, error) {
	payload, err := json.Marshal(createOrderPayload{
		Amount:         req.AmountMinor,
		Currency:       req.Currency,
		Receipt:        req.Receipt,
		PaymentCapture: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway order payload: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/orders"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send gateway request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rejected := &RejectedError{StatusCode: resp.StatusCode}
		var gwErr errorResponse
		if json.Unmarshal(body, &gwErr) == nil {
			rejected.Code = gwErr.Error.Code
			rejected.Description = gwErr.Error.Description
		}
		return nil, rejected
	}

	var result remoteOrderResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gateway response: %w", err)
	}
	if result.ID == "" {
		return nil, errors.New("gateway response has no order id")
	}

	c.logger.Debug("Remote order created",
		zap.String("remote_order_id", result.ID),
		zap.String("receipt", req.Receipt),
		zap.Int64("amount", req.AmountMinor))

	return &RemoteOrder{
		ID:       result.ID,
		Amount:   result.Amount,
		Currency: result.Currency,
		Receipt:  result.Receipt,
		Status:   result.Status,
	}, nil
}
