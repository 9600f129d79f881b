package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/pricing"
	"github.com/staturevogue/storefront/internal/repository"
	"github.com/staturevogue/storefront/pkg/errors"
)

// CouponService validates coupon codes against an order subtotal
type CouponService struct {
	repos  *repository.Repositories
	logger *zap.Logger
	now    func() time.Time
}

// NewCouponService creates a new coupon service
func NewCouponService(repos *repository.Repositories, logger *zap.Logger, now func() time.Time) *CouponService {
	if now == nil {
		now = time.Now
	}
	return &CouponService{
		repos:  repos,
		logger: logger,
		now:    now,
	}
}

// Validate accepts code for subtotal or returns a CouponError carrying the
// message to show the buyer.
func (s *CouponService) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*CouponResult, error) {
	coupon, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.check(coupon, subtotal); err != nil {
		return nil, err
	}

	return &CouponResult{
		Accepted:     true,
		Code:         coupon.Code,
		DiscountType: coupon.DiscountType,
		Value:        coupon.Value,
		Discount:     coupon.DiscountFor(subtotal),
		MinimumOrder: coupon.MinimumOrder,
		Message:      "Coupon applied",
	}, nil
}

// Applied validates code and converts it into pricing input
func (s *CouponService) Applied(ctx context.Context, code string, subtotal decimal.Decimal) (*pricing.AppliedCoupon, error) {
	coupon, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.check(coupon, subtotal); err != nil {
		return nil, err
	}
	return &pricing.AppliedCoupon{
		Code:         coupon.Code,
		Discount:     coupon.DiscountFor(subtotal),
		MinimumOrder: coupon.MinimumOrder,
	}, nil
}

func (s *CouponService) lookup(ctx context.Context, code string) (*domain.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, &errors.ValidationError{Field: "code", Message: "coupon code is required"}
	}

	coupon, err := s.repos.Coupon.GetByCode(ctx, code)
	if errors.IsNotFound(err) {
		return nil, &errors.CouponError{Code: code, Message: "Invalid coupon code"}
	}
	if err != nil {
		s.logger.Error("Failed to look up coupon", zap.String("code", code), zap.Error(err))
		return nil, err
	}
	return coupon, nil
}

func (s *CouponService) check(coupon *domain.Coupon, subtotal decimal.Decimal) error {
	if !coupon.IsActive {
		return &errors.CouponError{Code: coupon.Code, Message: "This coupon is no longer active"}
	}
	if coupon.ExpiresAt != nil && s.now().After(*coupon.ExpiresAt) {
		return &errors.CouponError{Code: coupon.Code, Message: "This coupon has expired"}
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return &errors.CouponError{Code: coupon.Code, Message: "This coupon has reached its usage limit"}
	}
	if subtotal.LessThan(coupon.MinimumOrder) {
		return errors.CouponMinimumNotMet(coupon.Code, coupon.MinimumOrder)
	}
	return nil
}
