// Package printful implements the fulfillment gateway against the Printful API.
package printful

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"goflare.io/printshop/gateway"
)

const (
	DefaultBaseURL = "https://api.printful.com"

	breakerInterval     = time.Minute
	breakerOpenTimeout  = 30 * time.Second
	breakerTripFailures = 5
	maxErrorBody        = 4 << 10
)

var (
	_ gateway.FulfillmentGateway  = (*Client)(nil)
	_ gateway.AvailabilityChecker = (*Client)(nil)
)

// ErrMissingResult is returned when the provider answers 2xx without a result payload.
var ErrMissingResult = errors.New("printful response has no result")

// APIError is a non-2xx answer from Printful.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("printful: status %d: %s", e.StatusCode, e.Message)
}

type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to Printful. A circuit breaker rejects calls while the
// provider keeps failing; it never retries.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	c := &Client{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		http:    opts.HTTPClient,
		logger:  logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "printful",
		Interval: breakerInterval,
		Timeout:  breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripFailures
		},
		// 4xx 代表請求本身有問題；呼叫端取消也不是供應商的錯，兩者都不應讓斷路器跳開
		IsSuccessful: func(err error) bool {
			if errors.Is(err, context.Canceled) {
				return true
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return c
}

// Available reports whether calls are currently let through the breaker.
func (c *Client) Available() bool {
	return c.breaker.State() != gobreaker.StateOpen
}

type envelope[T any] struct {
	Code   int `json:"code"`
	Result *T  `json:"result"`
	Error  *struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type orderResult struct {
	ID int64 `json:"id"`
}

func (c *Client) CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.OrderConfirmation, error) {
	var env envelope[orderResult]
	if err := c.do(ctx, http.MethodPost, "/orders", req, &env); err != nil {
		return nil, fmt.Errorf("failed to create printful order: %w", err)
	}
	if env.Result == nil || env.Result.ID == 0 {
		return nil, fmt.Errorf("failed to create printful order: %w", ErrMissingResult)
	}

	orderID := strconv.FormatInt(env.Result.ID, 10)
	c.logger.Info("Printful order created", zap.String("order_id", orderID), zap.Int("items", len(req.Items)))

	return &gateway.OrderConfirmation{OrderID: orderID}, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]gateway.RawProduct, error) {
	var env envelope[[]gateway.RawProduct]
	if err := c.do(ctx, http.MethodGet, "/store/products", nil, &env); err != nil {
		return nil, fmt.Errorf("failed to list printful products: %w", err)
	}
	if env.Result == nil {
		return nil, fmt.Errorf("failed to list printful products: %w", ErrMissingResult)
	}
	return *env.Result, nil
}

func (c *Client) GetProductDetail(ctx context.Context, id string) (*gateway.RawProductDetail, error) {
	var env envelope[gateway.RawProductDetail]
	err := c.do(ctx, http.MethodGet, "/store/products/"+url.PathEscape(id), nil, &env)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("product %s: %w", id, gateway.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get printful product %s: %w", id, err)
	}
	if env.Result == nil {
		return nil, fmt.Errorf("product %s: %w", id, gateway.ErrNotFound)
	}
	return env.Result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, body, out)
	})
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env envelope[json.RawMessage]
		if json.Unmarshal(raw, &env) == nil && env.Error != nil && env.Error.Message != "" {
			apiErr.Message = env.Error.Message
		}
		c.logger.Warn("Printful request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return apiErr
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
