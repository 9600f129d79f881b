package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/pkg/errors"
)

// Selection is a buyer's current color/size pick on a product page. The size
// is always scoped to the current color.
type Selection struct {
	resolver *Resolver
	color    string
	size     string
}

// NewSelection starts on the product's first color with no size chosen
func NewSelection(r *Resolver) *Selection {
	return &Selection{resolver: r, color: r.DefaultColor()}
}

func (s *Selection) Color() string { return s.color }
func (s *Selection) Size() string  { return s.size }

// SelectColor switches color and clears the size choice. Unknown colors fall
// back to the product's first color.
func (s *Selection) SelectColor(color string) {
	if c, ok := s.resolver.ColorOf(color); ok {
		color = c.Name
	}
	if color != s.color {
		s.size = ""
	}
	s.color = color
}

// SelectSize picks a size of the current color. Sizes of other colors and
// out-of-stock sizes are refused.
func (s *Selection) SelectSize(size string) error {
	for _, v := range s.resolver.SizesFor(s.color) {
		if v.Label != size {
			continue
		}
		if v.Stock <= 0 {
			return &errors.StockError{
				ProductID: s.resolver.Product().ID,
				Color:     s.color,
				Size:      size,
				Available: 0,
			}
		}
		s.size = size
		return nil
	}
	return &errors.ValidationError{Field: "size", Message: "size " + size + " is not offered in " + s.color}
}

// Price is the price displayed for the current selection
func (s *Selection) Price() decimal.Decimal {
	return s.resolver.PriceFor(s.color, s.size)
}

// Images is the image set displayed for the current color
func (s *Selection) Images() []string {
	return s.resolver.ImagesFor(s.color)
}

// Sizes lists the sizes offered in the current color
func (s *Selection) Sizes() []domain.SizeVariant {
	return s.resolver.SizesFor(s.color)
}

// Purchasable reports whether the current selection can go into the cart
func (s *Selection) Purchasable() bool {
	return s.resolver.IsPurchasable(s.color, s.size)
}

// Line snapshots the current selection as a cart line of qty units
func (s *Selection) Line(qty int) (domain.CartLine, error) {
	p := s.resolver.Product()
	if s.size == "" {
		return domain.CartLine{}, &errors.ValidationError{Field: "size", Message: "please select a size"}
	}
	if qty < 1 {
		return domain.CartLine{}, &errors.ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
	}
	stock := s.resolver.StockFor(s.color, s.size)
	if stock < qty {
		return domain.CartLine{}, &errors.StockError{
			ProductID: p.ID,
			Color:     s.color,
			Size:      s.size,
			Available: stock,
		}
	}

	image := ""
	if images := s.Images(); len(images) > 0 {
		image = images[0]
	}
	return domain.CartLine{
		ProductID:     p.ID,
		Name:          p.Name,
		Color:         s.color,
		Size:          s.size,
		Quantity:      qty,
		Price:         s.Price(),
		OriginalPrice: p.OriginalPrice,
		Image:         image,
	}, nil
}
