package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/repository"
)

// openTestDB connects to the database named by STOREFRONT_TEST_DATABASE_DSN
// and skips the test when it is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("STOREFRONT_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("STOREFRONT_TEST_DATABASE_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())
	require.NoError(t, Migrate(db))
	return db
}

// seedVariant inserts a one-variant product and returns its id
func seedVariant(t *testing.T, db *sql.DB, stock int) string {
	t.Helper()
	ctx := context.Background()
	id := "it-" + uuid.NewString()

	_, err := db.ExecContext(ctx, `INSERT INTO products (id, slug, name, base_price) VALUES ($1, $1, 'Test Tee', 999)`, id)
	require.NoError(t, err)
	var colorID int
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO product_colors (product_id, name) VALUES ($1, 'Black') RETURNING id`, id).Scan(&colorID))
	_, err = db.ExecContext(ctx, `INSERT INTO product_sizes (color_id, label, stock) VALUES ($1, 'M', $2)`, colorID, stock)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM order_items WHERE product_id = $1`, id)
		_, _ = db.Exec(`DELETE FROM orders WHERE buyer_email = $1`, id+"@example.com")
		_, _ = db.Exec(`DELETE FROM products WHERE id = $1`, id)
	})
	return id
}

func stockOf(t *testing.T, db *sql.DB, productID string) int {
	t.Helper()
	var stock int
	require.NoError(t, db.QueryRow(`
		SELECT s.stock FROM product_sizes s
		JOIN product_colors c ON s.color_id = c.id
		WHERE c.product_id = $1 AND c.name = 'Black' AND s.label = 'M'
	`, productID).Scan(&stock))
	return stock
}

func placeOrder(t *testing.T, repos *repository.Repositories, productID string, qty int) *domain.Order {
	t.Helper()
	order := &domain.Order{
		BuyerEmail:    productID + "@example.com",
		PaymentMethod: domain.PaymentMethodCOD,
		PaymentStatus: domain.PaymentStatusPending,
		Status:        domain.OrderStatusProcessing,
		Subtotal:      decimal.NewFromInt(999),
		TotalAmount:   decimal.NewFromInt(999),
		Items: []domain.OrderItem{{
			ProductID:   productID,
			ProductName: "Test Tee",
			Color:       "Black",
			Size:        "M",
			Price:       decimal.NewFromInt(999),
			Quantity:    qty,
			Status:      domain.ItemStatusOrdered,
		}},
	}
	require.NoError(t, repos.Order.Place(context.Background(), order))
	return order
}

func TestTransitionMatchesStoredStatus(t *testing.T) {
	db := openTestDB(t)
	repos := NewRepositories(db, zap.NewNop())
	ctx := context.Background()

	productID := seedVariant(t, db, 3)
	order := placeOrder(t, repos, productID, 1)

	item, err := repos.OrderItem.GetByID(ctx, order.Items[0].ID)
	require.NoError(t, err)
	require.Equal(t, domain.ItemStatusOrdered, item.Status)

	// Stored status is Ordered, so a transition expecting anything else
	// must not touch the row.
	item.Status = domain.ItemStatusReturnApproved
	changed, err := repos.OrderItem.Transition(ctx, item, domain.ItemStatusReturnRequested, nil)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := repos.OrderItem.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusOrdered, stored.Status)

	action := domain.ActionReturn
	reason := domain.ReasonDamaged
	item.Status = domain.ItemStatusReturnRequested
	item.ActionType = &action
	item.ReasonCode = &reason
	changed, err = repos.OrderItem.Transition(ctx, item, domain.ItemStatusOrdered, nil)
	require.NoError(t, err)
	assert.True(t, changed)

	// A second writer holding the same stale status loses.
	item.Status = domain.ItemStatusExchangeRequested
	changed, err = repos.OrderItem.Transition(ctx, item, domain.ItemStatusOrdered, nil)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err = repos.OrderItem.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusReturnRequested, stored.Status)
	require.NotNil(t, stored.ReasonCode)
	assert.Equal(t, reason, *stored.ReasonCode)
}

func TestCancelRestocksOnlyOnce(t *testing.T) {
	db := openTestDB(t)
	repos := NewRepositories(db, zap.NewNop())
	ctx := context.Background()

	productID := seedVariant(t, db, 3)
	order := placeOrder(t, repos, productID, 2)
	assert.Equal(t, 1, stockOf(t, db, productID))

	changed, err := repos.Order.Cancel(ctx, order.ID, domain.OrderStatusProcessing, domain.PaymentStatusFailed)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 3, stockOf(t, db, productID))

	changed, err = repos.Order.Cancel(ctx, order.ID, domain.OrderStatusProcessing, domain.PaymentStatusFailed)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 3, stockOf(t, db, productID))
}
