package backendclient

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

	"github.com/mbsaloka/lume-cashier-app/internal/domain"
	"github.com/mbsaloka/lume-cashier-app/internal/logger"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// Options tune the client. BreakerFailures consecutive failures open the
// breaker for BreakerOpenFor, then BreakerHalfOpen probes are let through.
type Options struct {
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
	BreakerHalfOpen uint32
	HTTPClient      *http.Client
}

// Client talks to the products/transactions/stats backend over HTTP.
// All calls go through one circuit breaker so a dead backend fails fast.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerOpenFor <= 0 {
		opts.BreakerOpenFor = 10 * time.Second
	}
	if opts.BreakerHalfOpen == 0 {
		opts.BreakerHalfOpen = 1
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	failures := opts.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "backend",
		MaxRequests: opts.BreakerHalfOpen,
		Timeout:     opts.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// a rejected request means the backend is alive
			var respErr *ResponseError
			if errors.As(err, &respErr) {
				return !respErr.Temporary()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.L().Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: opts.Timeout,
		http:    httpClient,
		breaker: breaker,
	}
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, nil, &products); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// CommitTransaction persists a finalized sale. The idempotency key lets the
// backend return the stored record when a retried commit already landed.
func (c *Client) CommitTransaction(ctx context.Context, idempotencyKey string, req *domain.TransactionRequest) (*domain.TransactionRecord, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers[IdempotencyKeyHeader] = idempotencyKey
	}

	var record domain.TransactionRecord
	if err := c.do(ctx, http.MethodPost, "/api/transactions", req, headers, &record); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	if record.ID == "" {
		return nil, fmt.Errorf("commit transaction: %w: missing transaction id", ErrMalformedResponse)
	}
	return &record, nil
}

func (c *Client) ListTransactions(ctx context.Context) ([]domain.TransactionRecord, error) {
	var records []domain.TransactionRecord
	if err := c.do(ctx, http.MethodGet, "/api/transactions", nil, nil, &records); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return records, nil
}

func (c *Client) Stats(ctx context.Context) (*domain.Stats, error) {
	var stats domain.Stats
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/stats", nil, nil, &stats); err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}
	return &stats, nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			var eb errorBody
			_ = json.Unmarshal(raw, &eb)
			msg := eb.Message
			if msg == "" {
				msg = eb.Error
			}
			return nil, &ResponseError{StatusCode: resp.StatusCode, Message: msg}
		}
		return raw, nil
	})
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
