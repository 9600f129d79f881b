package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/pkg/errors"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func policy() domain.ShippingPolicy {
	return domain.ShippingPolicy{
		FlatRate:              d("100"),
		FreeShippingThreshold: d("1999"),
		TaxRatePercentage:     d("5"),
		CODFee:                d("50"),
		Loaded:                true,
	}
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s: want %s, got %s", field, want, got)
}

func TestComputeCouponBelowFreeShipping(t *testing.T) {
	b, err := Compute(Input{
		Subtotal: d("1500"),
		Coupon:   &AppliedCoupon{Code: "SAVE150", Discount: d("150"), MinimumOrder: d("1000")},
		Policy:   policy(),
		Method:   domain.PaymentMethodOnline,
	})
	require.NoError(t, err)

	assertAmount(t, "150", b.Discount, "discount")
	assertAmount(t, "1350", b.Taxable, "taxable")
	assertAmount(t, "67.5", b.Tax, "tax")
	assertAmount(t, "100", b.Shipping, "shipping")
	assertAmount(t, "0", b.CODFee, "cod fee")
	assertAmount(t, "1517.5", b.Total, "total")
	assert.Equal(t, "SAVE150", b.CouponCode)
	assert.False(t, b.FreeShipping)
}

func TestComputeFreeShippingWithoutCoupon(t *testing.T) {
	b, err := Compute(Input{
		Subtotal: d("2000"),
		Policy:   policy(),
		Method:   domain.PaymentMethodOnline,
	})
	require.NoError(t, err)

	assert.True(t, b.FreeShipping)
	assertAmount(t, "0", b.Shipping, "shipping")
	assertAmount(t, "2100", b.Total, "total")
}

func TestFreeShippingThresholdBoundary(t *testing.T) {
	at, err := Compute(Input{Subtotal: d("1999"), Policy: policy(), Method: domain.PaymentMethodOnline})
	require.NoError(t, err)
	assert.True(t, at.FreeShipping)
	assertAmount(t, "0", at.Shipping, "shipping at threshold")

	below, err := Compute(Input{Subtotal: d("1998"), Policy: policy(), Method: domain.PaymentMethodOnline})
	require.NoError(t, err)
	assert.False(t, below.FreeShipping)
	assertAmount(t, "100", below.Shipping, "shipping below threshold")
}

func TestFreeShippingUsesPreDiscountSubtotal(t *testing.T) {
	b, err := Compute(Input{
		Subtotal: d("2000"),
		Coupon:   &AppliedCoupon{Code: "BIG", Discount: d("500")},
		Policy:   policy(),
		Method:   domain.PaymentMethodOnline,
	})
	require.NoError(t, err)
	assert.True(t, b.FreeShipping)
	assertAmount(t, "1500", b.Taxable, "taxable")
}

func TestZeroThresholdNeverGivesFreeShipping(t *testing.T) {
	p := policy()
	p.FreeShippingThreshold = decimal.Zero

	b, err := Compute(Input{Subtotal: d("100000"), Policy: p, Method: domain.PaymentMethodOnline})
	require.NoError(t, err)
	assert.False(t, b.FreeShipping)
	assertAmount(t, "100", b.Shipping, "shipping")
}

func TestCODFeeOnlyForCOD(t *testing.T) {
	for _, subtotal := range []string{"0", "500", "1999", "5000"} {
		online, err := Compute(Input{Subtotal: d(subtotal), Policy: policy(), Method: domain.PaymentMethodOnline})
		require.NoError(t, err)
		cod, err := Compute(Input{Subtotal: d(subtotal), Policy: policy(), Method: domain.PaymentMethodCOD})
		require.NoError(t, err)

		assertAmount(t, "0", online.CODFee, "online cod fee")
		assertAmount(t, "50", cod.CODFee, "cod fee")
		assertAmount(t, "50", cod.Total.Sub(online.Total), "total difference")
	}
}

func TestDiscountIsClampedToSubtotal(t *testing.T) {
	b, err := Compute(Input{
		Subtotal: d("120"),
		Coupon:   &AppliedCoupon{Code: "HUGE", Discount: d("500")},
		Policy:   policy(),
		Method:   domain.PaymentMethodOnline,
	})
	require.NoError(t, err)
	assertAmount(t, "120", b.Discount, "discount")
	assertAmount(t, "0", b.Taxable, "taxable")
	assertAmount(t, "0", b.Tax, "tax")
	assertAmount(t, "100", b.Total, "total")
}

func TestNegativeDiscountIsIgnored(t *testing.T) {
	b, err := Compute(Input{
		Subtotal: d("1000"),
		Coupon:   &AppliedCoupon{Code: "ODD", Discount: d("-50")},
		Policy:   policy(),
		Method:   domain.PaymentMethodOnline,
	})
	require.NoError(t, err)
	assertAmount(t, "0", b.Discount, "discount")
}

func TestMinimumNotMetReturnsCouponErrorAndZeroDiscount(t *testing.T) {
	b, err := Compute(Input{
		Subtotal: d("900"),
		Coupon:   &AppliedCoupon{Code: "SAVE150", Discount: d("150"), MinimumOrder: d("1000")},
		Policy:   policy(),
		Method:   domain.PaymentMethodOnline,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCoupon(err))

	assertAmount(t, "0", b.Discount, "discount")
	assert.Empty(t, b.CouponCode)
	assertAmount(t, "1045", b.Total, "total")
}

func TestUnloadedPolicyBlocksPricing(t *testing.T) {
	p := policy()
	p.Loaded = false

	_, err := Compute(Input{Subtotal: d("1500"), Policy: p, Method: domain.PaymentMethodOnline})
	assert.ErrorIs(t, err, errors.ErrConfigNotLoaded)
}

func TestComputeIsIdempotent(t *testing.T) {
	in := Input{
		Subtotal: d("1733.33"),
		Coupon:   &AppliedCoupon{Code: "TEN", Discount: d("173.33")},
		Policy:   policy(),
		Method:   domain.PaymentMethodCOD,
	}
	first, err := Compute(in)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Compute(in)
		require.NoError(t, err)
		assert.True(t, first.Total.Equal(again.Total))
		assert.True(t, first.Tax.Equal(again.Tax))
	}
}

func TestRoundedAndMinorUnits(t *testing.T) {
	b, err := Compute(Input{
		Subtotal: d("333.33"),
		Policy:   policy(),
		Method:   domain.PaymentMethodOnline,
	})
	require.NoError(t, err)

	// 333.33 + 16.6665 tax + 100 shipping
	assertAmount(t, "449.9965", b.Total, "exact total")
	assertAmount(t, "450", b.Rounded().Total, "rounded total")
	assertAmount(t, "16.67", b.Rounded().Tax, "rounded tax")
	assert.Equal(t, int64(45000), b.AmountDueMinorUnits())
}
