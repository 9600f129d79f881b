// Package checkout drives a buyer's checkout: it owns the cart, the loaded
// pricing configuration, the applied coupon and the chosen payment method,
// and recomputes the price breakdown from them on demand.
package checkout

import (
	"context"
	stderrors "errors"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/cart"
	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/pricing"
	"github.com/staturevogue/storefront/internal/storefront"
	"github.com/staturevogue/storefront/pkg/errors"
)

// ErrSuperseded is returned by ApplyCoupon when a newer validation started
// before this one finished. Its result has been discarded.
var ErrSuperseded = stderrors.New("coupon validation superseded by a newer request")

// Backend is the part of the storefront API a checkout needs
type Backend interface {
	GetConfig(ctx context.Context) (domain.ShippingPolicy, error)
	ValidateCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (*storefront.CouponResult, error)
	Checkout(ctx context.Context, req storefront.CheckoutRequest) (*storefront.CheckoutResult, error)
	VerifyPayment(ctx context.Context, req storefront.VerifyPaymentRequest) (*domain.Order, error)
}

// Receipt is what the buyer is shown after submitting
type Receipt struct {
	OrderID         uuid.UUID
	COD             bool
	GatewayOrderRef string
	AmountDue       int64
	Currency        string
	KeyID           string
	Total           decimal.Decimal
}

// pendingPayment is an online order waiting for the buyer to pay
type pendingPayment struct {
	orderID    uuid.UUID
	gatewayRef string
	lineIDs    []string
}

// Session is a single buyer's checkout. It is safe for concurrent use, but
// only one user action is expected at a time.
type Session struct {
	mu      sync.Mutex
	cart    *cart.Store
	backend Backend
	logger  *zap.Logger

	policy domain.ShippingPolicy
	coupon *pricing.AppliedCoupon
	method domain.PaymentMethod

	couponSeq    uint64
	cancelCoupon context.CancelFunc

	pending *pendingPayment
}

// NewSession creates a checkout over store. Payment defaults to Online and
// the pricing configuration starts unloaded.
func NewSession(store *cart.Store, backend Backend, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cart:    store,
		backend: backend,
		logger:  logger,
		method:  domain.PaymentMethodOnline,
	}
}

// Cart returns the cart this session checks out
func (s *Session) Cart() *cart.Store {
	return s.cart
}

// LoadConfig fetches the site pricing configuration. Until it succeeds the
// session refuses to price or submit.
func (s *Session) LoadConfig(ctx context.Context) error {
	policy, err := s.backend.GetConfig(ctx)
	if err != nil {
		s.logger.Warn("Failed to load pricing configuration", zap.Error(err))
		return err
	}
	policy.Loaded = true

	s.mu.Lock()
	s.policy = policy
	s.mu.Unlock()
	return nil
}

// ConfigLoaded reports whether LoadConfig has succeeded
func (s *Session) ConfigLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.Loaded
}

// ApplyCoupon validates code against the current subtotal. A call made
// while an earlier one is in flight cancels the earlier one, whose result is
// then discarded with ErrSuperseded. A rejected code clears any coupon that
// was applied before.
func (s *Session) ApplyCoupon(ctx context.Context, code string) (*pricing.AppliedCoupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, &errors.ValidationError{Field: "coupon_code", Message: "please enter a coupon code"}
	}

	s.mu.Lock()
	s.couponSeq++
	seq := s.couponSeq
	if s.cancelCoupon != nil {
		s.cancelCoupon()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancelCoupon = cancel
	s.mu.Unlock()
	defer cancel()

	result, err := s.backend.ValidateCoupon(ctx, code, s.cart.Subtotal())

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.couponSeq {
		return nil, ErrSuperseded
	}
	s.cancelCoupon = nil

	if err != nil {
		if errors.IsCoupon(err) || errors.IsValidation(err) {
			s.coupon = nil
		}
		return nil, err
	}
	if !result.Accepted {
		s.coupon = nil
		return nil, &errors.CouponError{Code: code, Message: result.Message}
	}

	s.coupon = &pricing.AppliedCoupon{
		Code:         result.Code,
		Discount:     result.Discount,
		MinimumOrder: result.MinimumOrder,
	}
	applied := *s.coupon
	return &applied, nil
}

// RemoveCoupon drops the applied coupon and abandons any validation in flight
func (s *Session) RemoveCoupon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.couponSeq++
	if s.cancelCoupon != nil {
		s.cancelCoupon()
		s.cancelCoupon = nil
	}
	s.coupon = nil
}

// Coupon returns the applied coupon, if any
func (s *Session) Coupon() *pricing.AppliedCoupon {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.coupon == nil {
		return nil
	}
	applied := *s.coupon
	return &applied
}

// SetPaymentMethod switches between online payment and cash on delivery
func (s *Session) SetPaymentMethod(method domain.PaymentMethod) error {
	if _, err := domain.ParsePaymentMethod(string(method)); err != nil {
		return &errors.ValidationError{Field: "payment_method", Message: err.Error()}
	}

	s.mu.Lock()
	s.method = method
	s.mu.Unlock()
	return nil
}

// PaymentMethod returns the chosen payment method
func (s *Session) PaymentMethod() domain.PaymentMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.method
}

// Breakdown prices the cart as it is now. A coupon the pipeline rejects is
// cleared; the breakdown without it is returned alongside the CouponError.
func (s *Session) Breakdown() (pricing.Breakdown, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.breakdownLocked()
}

func (s *Session) breakdownLocked() (pricing.Breakdown, error) {
	b, err := pricing.Compute(pricing.Input{
		Subtotal: s.cart.Subtotal(),
		Coupon:   s.coupon,
		Policy:   s.policy,
		Method:   s.method,
	})
	if err != nil && errors.IsCoupon(err) {
		s.logger.Info("Coupon no longer applies", zap.String("code", s.coupon.Code), zap.Error(err))
		s.coupon = nil
	}
	return b, err
}

// Submit places the order for every line in the cart. Buyer fields are
// checked before anything is sent. COD orders remove the submitted lines
// at once; online orders keep them until ConfirmPayment succeeds.
func (s *Session) Submit(ctx context.Context, buyer domain.Buyer) (*Receipt, error) {
	buyer, err := validateBuyer(buyer)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	lines := s.cart.Lines()
	if len(lines) == 0 {
		s.mu.Unlock()
		return nil, &errors.ValidationError{Field: "cart", Message: "your cart is empty"}
	}
	if !s.policy.Loaded {
		s.mu.Unlock()
		return nil, errors.ErrConfigNotLoaded
	}
	breakdown, err := s.breakdownLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	method := s.method
	couponCode := breakdown.CouponCode
	s.mu.Unlock()

	req := storefront.CheckoutRequest{
		Buyer:         buyer,
		CouponCode:    couponCode,
		PaymentMethod: string(method),
	}
	lineIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		req.Items = append(req.Items, storefront.CheckoutLine{
			ProductID: line.ProductID,
			Color:     line.Color,
			Size:      line.Size,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
		lineIDs = append(lineIDs, line.ID)
	}

	result, err := s.backend.Checkout(ctx, req)
	if err != nil {
		s.logger.Warn("Checkout failed", zap.String("payment_method", string(method)), zap.Error(err))
		return nil, err
	}

	receipt := &Receipt{
		OrderID:         result.OrderID,
		COD:             result.COD,
		GatewayOrderRef: result.GatewayOrderRef,
		AmountDue:       result.AmountDue,
		Currency:        result.Currency,
		KeyID:           result.KeyID,
		Total:           result.Total,
	}

	if result.COD {
		if err := s.cart.RemoveMany(ctx, lineIDs); err != nil {
			return receipt, err
		}
		s.mu.Lock()
		s.coupon = nil
		s.pending = nil
		s.mu.Unlock()
		s.logger.Info("COD order placed", zap.String("order_id", result.OrderID.String()))
		return receipt, nil
	}

	s.mu.Lock()
	s.pending = &pendingPayment{
		orderID:    result.OrderID,
		gatewayRef: result.GatewayOrderRef,
		lineIDs:    lineIDs,
	}
	s.mu.Unlock()
	s.logger.Info("Online order awaiting payment",
		zap.String("order_id", result.OrderID.String()),
		zap.String("gateway_order_id", result.GatewayOrderRef),
	)
	return receipt, nil
}

// ConfirmPayment verifies the payment for the last online submission. On
// failure the cart is kept so the buyer can retry; on success only the
// purchased lines are removed.
func (s *Session) ConfirmPayment(ctx context.Context, paymentID, signature string) (*domain.Order, error) {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()

	if pending == nil {
		return nil, &errors.ValidationError{Field: "payment", Message: "no payment is awaiting confirmation"}
	}
	if paymentID == "" || signature == "" {
		return nil, &errors.ValidationError{Field: "payment", Message: "payment id and signature are required"}
	}

	order, err := s.backend.VerifyPayment(ctx, storefront.VerifyPaymentRequest{
		GatewayOrderID: pending.gatewayRef,
		PaymentID:      paymentID,
		Signature:      signature,
	})
	if err != nil {
		s.logger.Warn("Payment verification failed",
			zap.String("order_id", pending.orderID.String()),
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
		return nil, err
	}

	if err := s.cart.RemoveMany(ctx, pending.lineIDs); err != nil {
		return order, err
	}

	s.mu.Lock()
	if s.pending == pending {
		s.pending = nil
	}
	s.coupon = nil
	s.mu.Unlock()
	return order, nil
}

func validateBuyer(b domain.Buyer) (domain.Buyer, error) {
	required := []struct {
		field string
		value *string
	}{
		{"email", &b.Email},
		{"first_name", &b.FirstName},
		{"last_name", &b.LastName},
		{"address", &b.Address},
		{"city", &b.City},
		{"pin_code", &b.PinCode},
		{"phone", &b.Phone},
	}
	for _, r := range required {
		*r.value = strings.TrimSpace(*r.value)
		if *r.value == "" {
			return b, &errors.ValidationError{Field: r.field, Message: "this field is required"}
		}
	}
	if _, err := mail.ParseAddress(b.Email); err != nil {
		return b, &errors.ValidationError{Field: "email", Message: "please enter a valid email address"}
	}
	b.Email = strings.ToLower(b.Email)
	if strings.TrimSpace(b.Country) == "" {
		b.Country = "India"
	}
	return b, nil
}
