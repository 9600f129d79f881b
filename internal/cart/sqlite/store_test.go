package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staturevogue/storefront/internal/cart"
	"github.com/staturevogue/storefront/internal/domain"
)

func TestCartSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cart.db")

	db, err := Open(path)
	require.NoError(t, err)

	store, err := cart.Open(ctx, db, nil)
	require.NoError(t, err)

	first, err := store.Add(ctx, domain.CartLine{
		ProductID:     "m-crew-1",
		Name:          "Classic Men's Crew Neck",
		Color:         "Black",
		Size:          "M",
		Quantity:      1,
		Price:         decimal.RequireFromString("999.50"),
		OriginalPrice: decimal.NewFromInt(1499),
		Image:         "/images/products/men-crew.jpg",
	})
	require.NoError(t, err)
	_, err = store.Add(ctx, domain.CartLine{
		ProductID: "w-crop-2",
		Color:     "White",
		Size:      "S",
		Quantity:  2,
		Price:     decimal.NewFromInt(799),
	})
	require.NoError(t, err)
	require.NoError(t, store.UpdateQuantity(ctx, first.Line.ID, 3))
	require.NoError(t, db.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	restored, err := cart.Open(ctx, reopened, nil)
	require.NoError(t, err)

	lines := restored.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, first.Line.ID, lines[0].ID)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.True(t, lines[0].Price.Equal(decimal.RequireFromString("999.5")))
	assert.Equal(t, "/images/products/men-crew.jpg", lines[0].Image)
	assert.Equal(t, "w-crop-2", lines[1].ProductID)
	assert.True(t, restored.Subtotal().Equal(decimal.RequireFromString("4596.5")))
}

func TestSaveEmptyClearsStoredLines(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "cart.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Save(ctx, []domain.CartLine{{
		ID: "l1", ProductID: "p", Size: "M", Quantity: 1, Price: decimal.NewFromInt(10),
	}}))
	require.NoError(t, db.Save(ctx, nil))

	lines, err := db.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}
