package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/catalog"
	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/pricing"
	"github.com/staturevogue/storefront/internal/repository"
	"github.com/staturevogue/storefront/pkg/errors"
)

const defaultCountry = "India"

// CheckoutService turns a cart submission into a persisted order
type CheckoutService struct {
	repos   *repository.Repositories
	coupons *CouponService
	gateway PaymentGateway
	rec     *recorder
	logger  *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(repos *repository.Repositories, coupons *CouponService, gw PaymentGateway, rec *recorder, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		repos:   repos,
		coupons: coupons,
		gateway: gw,
		rec:     rec,
		logger:  logger,
	}
}

// Checkout prices req from the catalog, places the order and, for online
// payment, opens a gateway order for the amount due.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	buyer, err := validateBuyer(req.Buyer)
	if err != nil {
		return nil, err
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, &errors.ValidationError{Field: "payment_method", Message: "choose Online or COD"}
	}
	if method == domain.PaymentMethodOnline && s.gateway == nil {
		return nil, &errors.PaymentError{Message: "online payment is unavailable", Recovery: "please choose cash on delivery"}
	}

	items, subtotal, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	var applied *pricing.AppliedCoupon
	if strings.TrimSpace(req.CouponCode) != "" {
		applied, err = s.coupons.Applied(ctx, req.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
	}

	policy, err := s.repos.SiteConfig.GetShippingPolicy(ctx)
	if errors.IsNotFound(err) {
		return nil, errors.ErrConfigNotLoaded
	}
	if err != nil {
		return nil, err
	}

	breakdown, err := pricing.Compute(pricing.Input{
		Subtotal: subtotal,
		Coupon:   applied,
		Policy:   *policy,
		Method:   method,
	})
	if err != nil {
		return nil, err
	}
	rounded := breakdown.Rounded()

	order := &domain.Order{
		BuyerEmail:    buyer.Email,
		Buyer:         buyer,
		PaymentMethod: method,
		PaymentStatus: domain.PaymentStatusPending,
		Status:        domain.OrderStatusPending,
		Subtotal:      rounded.Subtotal,
		Discount:      rounded.Discount,
		Tax:           rounded.Tax,
		Shipping:      rounded.Shipping,
		CODFee:        rounded.CODFee,
		TotalAmount:   rounded.Total,
		Items:         items,
	}
	if method == domain.PaymentMethodCOD {
		order.Status = domain.OrderStatusProcessing
	}
	if applied != nil {
		code := applied.Code
		order.CouponCode = &code
	}

	if err := s.repos.Order.Place(ctx, order); err != nil {
		if !errors.IsStock(err) && !errors.IsCoupon(err) {
			s.logger.Error("Failed to place order", zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_method", string(method)),
		zap.String("total", rounded.Total.StringFixed(2)),
	)
	s.rec.record(ctx, order.ID, nil, "order.created", "", string(order.Status), map[string]interface{}{
		"payment_method": method,
		"total":          rounded.Total.StringFixed(2),
	})

	result := &CheckoutResult{
		OrderID: order.ID,
		COD:     method == domain.PaymentMethodCOD,
		Total:   rounded.Total,
	}
	if result.COD {
		return result, nil
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, rounded.AmountDueMinorUnits(), order.ID.String())
	if err != nil {
		s.logger.Error("Failed to create gateway order", zap.String("order_id", order.ID.String()), zap.Error(err))
		if _, cancelErr := s.repos.Order.Cancel(ctx, order.ID, domain.OrderStatusPending, domain.PaymentStatusFailed); cancelErr != nil {
			s.logger.Error("Failed to release order after gateway failure", zap.Error(cancelErr))
		}
		return nil, &errors.PaymentError{
			Reference: order.ID.String(),
			Message:   "could not start the payment",
			Recovery:  "no money was taken, please try again",
		}
	}
	if err := s.repos.Order.SetGatewayRef(ctx, order.ID, gwOrder.ID); err != nil {
		return nil, err
	}

	result.GatewayOrderRef = gwOrder.ID
	result.AmountDue = gwOrder.Amount
	result.Currency = s.gateway.Currency()
	result.KeyID = s.gateway.KeyID()
	return result, nil
}

// priceItems resolves every requested variant against the catalog. Lines
// naming the same variant are merged before stock is checked.
func (s *CheckoutService) priceItems(ctx context.Context, reqItems []CheckoutItem) ([]domain.OrderItem, decimal.Decimal, error) {
	if len(reqItems) == 0 {
		return nil, decimal.Zero, &errors.ValidationError{Field: "items", Message: "your cart is empty"}
	}

	merged := make([]CheckoutItem, 0, len(reqItems))
	index := map[domain.LineKey]int{}
	for _, it := range reqItems {
		if it.Quantity < 1 {
			return nil, decimal.Zero, &errors.ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
		}
		key := domain.LineKey{ProductID: it.ProductID, Color: it.Color, Size: it.Size}
		if i, ok := index[key]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[key] = len(merged)
		merged = append(merged, it)
	}

	items := make([]domain.OrderItem, 0, len(merged))
	subtotal := decimal.Zero
	for _, it := range merged {
		product, err := s.repos.Product.GetByID(ctx, it.ProductID)
		if errors.IsNotFound(err) {
			return nil, decimal.Zero, &errors.ValidationError{Field: "items", Message: "a product in your cart is no longer available"}
		}
		if err != nil {
			return nil, decimal.Zero, err
		}

		resolver := catalog.NewResolver(product)
		if !resolver.HasVariant(it.Color, it.Size) {
			return nil, decimal.Zero, &errors.ValidationError{
				Field:   "items",
				Message: product.Name + " is not available in " + it.Color + " / " + it.Size,
			}
		}
		if stock := resolver.StockFor(it.Color, it.Size); stock < it.Quantity {
			return nil, decimal.Zero, &errors.StockError{ProductID: product.ID, Color: it.Color, Size: it.Size, Available: stock}
		}

		var image string
		if images := resolver.ImagesFor(it.Color); len(images) > 0 {
			image = images[0]
		}
		item := domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Color:       it.Color,
			Size:        it.Size,
			Image:       image,
			Price:       resolver.PriceFor(it.Color, it.Size),
			Quantity:    it.Quantity,
			Status:      domain.ItemStatusOrdered,
		}
		subtotal = subtotal.Add(item.LineTotal())
		items = append(items, item)
	}
	return items, subtotal, nil
}

func validateBuyer(in BuyerInfo) (domain.Buyer, error) {
	b := domain.Buyer{
		Email:     strings.TrimSpace(in.Email),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Address:   strings.TrimSpace(in.Address),
		City:      strings.TrimSpace(in.City),
		State:     strings.TrimSpace(in.State),
		PinCode:   strings.TrimSpace(in.PinCode),
		Phone:     strings.TrimSpace(in.Phone),
		Country:   strings.TrimSpace(in.Country),
	}
	if b.Country == "" {
		b.Country = defaultCountry
	}

	required := []struct{ field, value string }{
		{"email", b.Email},
		{"first_name", b.FirstName},
		{"last_name", b.LastName},
		{"address", b.Address},
		{"city", b.City},
		{"pin_code", b.PinCode},
		{"phone", b.Phone},
	}
	for _, r := range required {
		if r.value == "" {
			return domain.Buyer{}, &errors.ValidationError{Field: r.field, Message: "this field is required"}
		}
	}
	if _, err := mail.ParseAddress(b.Email); err != nil {
		return domain.Buyer{}, &errors.ValidationError{Field: "email", Message: "enter a valid email address"}
	}
	b.Email = strings.ToLower(b.Email)
	return b, nil
}
