package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mbsaloka/lume-cashier-app/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	repo, err := NewRepository(ctx, dsn)
	require.NoError(t, err)

	err = repo.RunMigrations("./migrations")
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func sampleRequest() *domain.TransactionRequest {
	items := []domain.TransactionItem{
		{ProductID: "p1", Name: "Coffee", Quantity: 2, Price: decimal.NewFromInt(5000)},
		{ProductID: "p2", Name: "Bread", Quantity: 1, Price: decimal.RequireFromString("10000.50")},
	}
	return &domain.TransactionRequest{
		Items:  items,
		Total:  domain.ItemsTotal(items),
		Method: domain.PaymentMethodCash,
	}
}

func TestProducts_CRUD(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	p := &domain.Product{Name: "Coffee", Price: decimal.RequireFromString("5000.25"), Stock: 10, Category: "Drinks"}
	require.NoError(t, repo.CreateProduct(ctx, p))
	require.NotEmpty(t, p.ID)

	got, err := repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", got.Name)
	assert.True(t, got.Price.Equal(p.Price))

	p.Stock = 3
	p.Name = "Iced Coffee"
	require.NoError(t, repo.UpdateProduct(ctx, *p))

	list, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Iced Coffee", list[0].Name)
	assert.Equal(t, 3, list[0].Stock)

	require.NoError(t, repo.DeleteProduct(ctx, p.ID))
	_, err = repo.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, repo.DeleteProduct(ctx, p.ID), ErrProductNotFound)
	assert.ErrorIs(t, repo.UpdateProduct(ctx, *p), ErrProductNotFound)
}

func TestCreateTransaction_WritesOutbox(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	rec, created, err := repo.CreateTransaction(ctx, "key-1", sampleRequest())
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, rec.ID)
	assert.True(t, rec.Total.Equal(decimal.RequireFromString("20000.50")))
	require.Len(t, rec.Items, 2)
	assert.False(t, rec.CreatedAt.IsZero())

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, rec.ID, events[0].AggregateID)
	assert.Equal(t, EventTransactionCommitted, events[0].EventType)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCreateTransaction_Idempotent(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	first, created, err := repo.CreateTransaction(ctx, "same-key", sampleRequest())
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := repo.CreateTransaction(ctx, "same-key", sampleRequest())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	list, err := repo.ListTransactions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestCreateTransaction_ConcurrentSameKey(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 5)
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, _, err := repo.CreateTransaction(ctx, "race-key", sampleRequest())
			errs[i] = err
			if rec != nil {
				ids[i] = rec.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	list, err := repo.ListTransactions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListTransactions_NewestFirst(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		rec, _, err := repo.CreateTransaction(ctx, fmt.Sprintf("key-%d", i), sampleRequest())
		require.NoError(t, err)
		ids = append(ids, rec.ID)
		time.Sleep(5 * time.Millisecond)
	}

	list, err := repo.ListTransactions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[0], list[2].ID)

	limited, err := repo.ListTransactions(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStats(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.TotalSales.IsZero())
	assert.Zero(t, stats.TotalTransactions)

	_, _, err = repo.CreateTransaction(ctx, "", sampleRequest())
	require.NoError(t, err)
	_, _, err = repo.CreateTransaction(ctx, "", sampleRequest())
	require.NoError(t, err)

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.TotalSales.Equal(decimal.RequireFromString("40001")))
	assert.Equal(t, int64(2), stats.TotalTransactions)
	assert.Equal(t, int64(6), stats.TotalItemsSold)
}

func TestContextCancellation(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()
	time.Sleep(10 * time.Millisecond)

	_, err := repo.ListProducts(ctx)
	assert.Error(t, err)
}
