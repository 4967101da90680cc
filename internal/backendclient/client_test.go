package backendclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mbsaloka/lume-cashier-app/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL, Options{
		Timeout:         time.Second,
		BreakerFailures: 2,
		BreakerOpenFor:  time.Minute,
		HTTPClient:      srv.Client(),
	})
	return c, srv
}

func TestListProducts_Success(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/products", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"p1","name":"Kopi Susu","price":18000,"stock":4,"category":"Coffee"},
			{"id":"p2","name":"Croissant","price":"22500.50","stock":0,"category":"Pastry"}]`))
	})

	products, err := c.ListProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "p1", products[0].ID)
	assert.True(t, decimal.RequireFromString("18000").Equal(products[0].Price))
	assert.True(t, decimal.RequireFromString("22500.50").Equal(products[1].Price))
	assert.False(t, products[1].InStock())
}

func TestCommitTransaction_SendsPayloadAndKey(t *testing.T) {
	var got domain.TransactionRequest
	var gotKey string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/transactions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotKey = r.Header.Get(IdempotencyKeyHeader)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.TransactionRecord{
			ID:        "tx-1",
			Items:     got.Items,
			Total:     got.Total,
			Method:    got.Method,
			CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		})
	})

	req := &domain.TransactionRequest{
		Items: []domain.TransactionItem{
			{ProductID: "p1", Name: "Kopi Susu", Quantity: 2, Price: decimal.RequireFromString("10000")},
		},
		Total:  decimal.RequireFromString("20000"),
		Method: domain.PaymentMethodCash,
	}
	record, err := c.CommitTransaction(context.Background(), "session-key", req)

	require.NoError(t, err)
	assert.Equal(t, "tx-1", record.ID)
	assert.Equal(t, "session-key", gotKey)
	assert.Equal(t, domain.PaymentMethodCash, got.Method)
	assert.True(t, decimal.RequireFromString("20000").Equal(got.Total))
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestCommitTransaction_RejectedReturnsResponseError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"total does not match items"}`))
	})

	record, err := c.CommitTransaction(context.Background(), "k", &domain.TransactionRequest{})

	assert.Nil(t, record)
	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusBadRequest, respErr.StatusCode)
	assert.Equal(t, "total does not match items", respErr.Message)
	assert.False(t, respErr.Temporary())
}

func TestCommitTransaction_MissingIDIsMalformed(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.CommitTransaction(context.Background(), "k", &domain.TransactionRequest{})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestStats_MalformedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	stats, err := c.Stats(context.Background())
	assert.Nil(t, stats)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestStats_Success(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/dashboard/stats", r.URL.Path)
		_, _ = w.Write([]byte(`{"totalSales":125000,"totalTransactions":3,"totalItemsSold":9}`))
	})

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(125000).Equal(stats.TotalSales))
	assert.Equal(t, int64(3), stats.TotalTransactions)
	assert.Equal(t, int64(9), stats.TotalItemsSold)
}

func TestBreaker_OpensAfterServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 2; i++ {
		_, err := c.ListTransactions(context.Background())
		var respErr *ResponseError
		require.ErrorAs(t, err, &respErr)
	}

	_, err := c.ListTransactions(context.Background())
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(2), calls.Load())
}

func TestBreaker_StaysClosedOnRejections(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	for i := 0; i < 4; i++ {
		_, err := c.CommitTransaction(context.Background(), "k", &domain.TransactionRequest{})
		var respErr *ResponseError
		require.ErrorAs(t, err, &respErr)
	}
	assert.Equal(t, int32(4), calls.Load())
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL, Options{Timeout: 20 * time.Millisecond, HTTPClient: srv.Client()})

	_, err := c.ListProducts(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
