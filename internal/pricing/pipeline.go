package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// AppliedCoupon is a coupon that passed validation for the current checkout.
// Discount is the amount granted at validation time.
type AppliedCoupon struct {
	Code         string
	Discount     decimal.Decimal
	MinimumOrder decimal.Decimal
}

// Input is everything the price breakdown depends on
type Input struct {
	Subtotal decimal.Decimal
	Coupon   *AppliedCoupon
	Policy   domain.ShippingPolicy
	Method   domain.PaymentMethod
}

// Breakdown is the full checkout price breakdown
type Breakdown struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	CouponCode   string          `json:"coupon_code,omitempty"`
	Discount     decimal.Decimal `json:"discount"`
	Taxable      decimal.Decimal `json:"taxable"`
	TaxRate      decimal.Decimal `json:"tax_rate_percentage"`
	Tax          decimal.Decimal `json:"tax"`
	FreeShipping bool            `json:"free_shipping"`
	Shipping     decimal.Decimal `json:"shipping"`
	CODFee       decimal.Decimal `json:"cod_fee"`
	Total        decimal.Decimal `json:"total"`
}

// Compute derives the breakdown from in. It keeps no state between calls.
//
// A coupon whose minimum order is not met contributes no discount; the
// breakdown is still returned, together with a *errors.CouponError. An
// unloaded policy yields errors.ErrConfigNotLoaded and no breakdown.
func Compute(in Input) (Breakdown, error) {
	if !in.Policy.Loaded {
		return Breakdown{}, errors.ErrConfigNotLoaded
	}

	subtotal := in.Subtotal
	if subtotal.IsNegative() {
		subtotal = decimal.Zero
	}

	b := Breakdown{
		Subtotal: subtotal,
		TaxRate:  in.Policy.TaxRatePercentage,
	}

	discount, couponErr := discountFor(subtotal, in.Coupon)
	if couponErr == nil && in.Coupon != nil {
		b.CouponCode = in.Coupon.Code
	}
	b.Discount = discount

	b.Taxable = decimal.Max(decimal.Zero, subtotal.Sub(discount))
	b.Tax = b.Taxable.Mul(in.Policy.TaxRatePercentage).Div(hundred)

	// Free shipping is judged on the subtotal before discount.
	threshold := in.Policy.FreeShippingThreshold
	b.FreeShipping = threshold.IsPositive() && subtotal.GreaterThanOrEqual(threshold)
	if b.FreeShipping {
		b.Shipping = decimal.Zero
	} else {
		b.Shipping = in.Policy.FlatRate
	}

	b.CODFee = decimal.Zero
	if in.Method == domain.PaymentMethodCOD {
		b.CODFee = in.Policy.CODFee
	}

	b.Total = b.Taxable.Add(b.Tax).Add(b.Shipping).Add(b.CODFee)

	if couponErr != nil {
		return b, couponErr
	}
	return b, nil
}

func discountFor(subtotal decimal.Decimal, coupon *AppliedCoupon) (decimal.Decimal, error) {
	if coupon == nil {
		return decimal.Zero, nil
	}
	if subtotal.LessThan(coupon.MinimumOrder) {
		return decimal.Zero, errors.CouponMinimumNotMet(coupon.Code, coupon.MinimumOrder)
	}
	if coupon.Discount.IsNegative() {
		return decimal.Zero, nil
	}
	return decimal.Min(coupon.Discount, subtotal), nil
}

// Rounded returns a copy with every amount rounded to two decimal places for
// display. Total is rounded independently of its parts.
func (b Breakdown) Rounded() Breakdown {
	r := b
	r.Subtotal = b.Subtotal.Round(2)
	r.Discount = b.Discount.Round(2)
	r.Taxable = b.Taxable.Round(2)
	r.Tax = b.Tax.Round(2)
	r.Shipping = b.Shipping.Round(2)
	r.CODFee = b.CODFee.Round(2)
	r.Total = b.Total.Round(2)
	return r
}

// AmountDueMinorUnits converts the total to the smallest currency unit
// (paise), rounding half away from zero, as payment gateways expect.
func (b Breakdown) AmountDueMinorUnits() int64 {
	return b.Total.Mul(hundred).Round(0).IntPart()
}
