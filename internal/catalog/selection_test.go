package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/cart"
	"github.com/staturevogue/storefront/pkg/errors"
)

// addSelection mirrors the add-to-cart button: the line goes into the store
// only when the selection yields one.
func addSelection(ctx context.Context, store *cart.Store, sel *Selection, qty int) error {
	line, err := sel.Line(qty)
	if err != nil {
		return err
	}
	_, err = store.Add(ctx, line)
	return err
}

func TestOutOfStockSizeLeavesCartUnchanged(t *testing.T) {
	ctx := context.Background()
	store := cart.NewMemoryStore(zap.NewNop())
	sel := NewSelection(NewResolver(crewNeck()))

	require.NoError(t, sel.SelectSize("XL"))
	require.NoError(t, addSelection(ctx, store, sel, 1))

	lines, items, subtotal := store.LineCount(), store.ItemCount(), store.Subtotal()
	assert.True(t, subtotal.Equal(decimal.NewFromInt(1099)))

	sel.SelectColor("White")
	assert.True(t, errors.IsStock(sel.SelectSize("M")))
	assert.False(t, NewResolver(crewNeck()).IsPurchasable("White", "M"))

	err := addSelection(ctx, store, sel, 1)
	assert.Error(t, err)

	assert.Equal(t, lines, store.LineCount())
	assert.Equal(t, items, store.ItemCount())
	assert.True(t, subtotal.Equal(store.Subtotal()))
}

func TestQuantityAboveStockLeavesCartUnchanged(t *testing.T) {
	ctx := context.Background()
	store := cart.NewMemoryStore(zap.NewNop())
	sel := NewSelection(NewResolver(crewNeck()))

	require.NoError(t, sel.SelectSize("M"))
	err := addSelection(ctx, store, sel, 3)

	var stockErr *errors.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 0, store.LineCount())
	assert.Equal(t, 0, store.ItemCount())
	assert.True(t, store.Subtotal().IsZero())
}
