package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/staturevogue/storefront/internal/domain"
)

// Variant is the resolved view of one color/size combination
type Variant struct {
	ProductID string
	Color     string
	Size      string
	Price     decimal.Decimal
	Stock     int
	Images    []string
}

// Resolver maps a color/size selection on a product to its price, stock and
// imagery. It holds no state besides the product it was built for.
type Resolver struct {
	product *domain.Product
}

// NewResolver creates a resolver over product. The product must not be
// mutated afterwards.
func NewResolver(product *domain.Product) *Resolver {
	return &Resolver{product: product}
}

// Product returns the product this resolver reads from
func (r *Resolver) Product() *domain.Product {
	return r.product
}

// ColorOf returns the color variant named color, or the first color of the
// product when there is no such variant. ok is false only when the product
// has no colors at all.
func (r *Resolver) ColorOf(color string) (domain.ColorVariant, bool) {
	for _, c := range r.product.Colors {
		if c.Name == color {
			return c, true
		}
	}
	if len(r.product.Colors) > 0 {
		return r.product.Colors[0], true
	}
	return domain.ColorVariant{}, false
}

// DefaultColor is the color a fresh selection starts on
func (r *Resolver) DefaultColor() string {
	if len(r.product.Colors) == 0 {
		return ""
	}
	return r.product.Colors[0].Name
}

// ImagesFor returns the color's images, falling back to the product images
// and then to the first color that has any.
func (r *Resolver) ImagesFor(color string) []string {
	if c, ok := r.ColorOf(color); ok && len(c.Images) > 0 {
		return c.Images
	}
	if len(r.product.Images) > 0 {
		return r.product.Images
	}
	for _, c := range r.product.Colors {
		if len(c.Images) > 0 {
			return c.Images
		}
	}
	return nil
}

// SizesFor returns the sizes of color only. Sizes are never shared across
// colors, so an unmatched color yields no sizes.
func (r *Resolver) SizesFor(color string) []domain.SizeVariant {
	for _, c := range r.product.Colors {
		if c.Name == color {
			return c.Sizes
		}
	}
	return nil
}

// sizeOf finds size within color. An unknown color is read as the
// product's first color.
func (r *Resolver) sizeOf(color, size string) (domain.SizeVariant, bool) {
	if size == "" {
		return domain.SizeVariant{}, false
	}
	c, ok := r.ColorOf(color)
	if !ok {
		return domain.SizeVariant{}, false
	}
	for _, s := range c.Sizes {
		if s.Label == size {
			return s, true
		}
	}
	return domain.SizeVariant{}, false
}

// priceSource yields a price when it applies to the selection
type priceSource func(r *Resolver, color, size string) (decimal.Decimal, bool)

// priceChain is consulted in order; the first source that applies wins.
var priceChain = []priceSource{
	sizeOverridePrice,
	productBasePrice,
}

func sizeOverridePrice(r *Resolver, color, size string) (decimal.Decimal, bool) {
	s, ok := r.sizeOf(color, size)
	if !ok || s.Price == nil {
		return decimal.Decimal{}, false
	}
	return *s.Price, true
}

func productBasePrice(r *Resolver, _, _ string) (decimal.Decimal, bool) {
	return r.product.BasePrice, true
}

// PriceFor returns the price of the selection. An empty or unknown size
// resolves to the product base price.
func (r *Resolver) PriceFor(color, size string) decimal.Decimal {
	for _, source := range priceChain {
		if price, ok := source(r, color, size); ok {
			return price
		}
	}
	return r.product.BasePrice
}

// StockFor returns the stock of the selected size, zero when unselected
func (r *Resolver) StockFor(color, size string) int {
	s, ok := r.sizeOf(color, size)
	if !ok || s.Stock < 0 {
		return 0
	}
	return s.Stock
}

// IsPurchasable is true iff a size is selected and has stock
func (r *Resolver) IsPurchasable(color, size string) bool {
	return r.StockFor(color, size) > 0
}

// Resolve returns the full variant view for color and size. An unknown color
// resolves against the product's first color.
func (r *Resolver) Resolve(color, size string) Variant {
	if c, ok := r.ColorOf(color); ok {
		color = c.Name
	}
	return Variant{
		ProductID: r.product.ID,
		Color:     color,
		Size:      size,
		Price:     r.PriceFor(color, size),
		Stock:     r.StockFor(color, size),
		Images:    r.ImagesFor(color),
	}
}

// HasVariant reports whether color and size both name an existing variant
// exactly, with no fallback.
func (r *Resolver) HasVariant(color, size string) bool {
	for _, s := range r.SizesFor(color) {
		if s.Label == size {
			return true
		}
	}
	return false
}
