package service

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/staturevogue/storefront/internal/domain"
)

// CheckoutRequest is the order submission payload
type CheckoutRequest struct {
	Buyer         BuyerInfo      `json:"buyer" binding:"required"`
	Items         []CheckoutItem `json:"items" binding:"required,min=1"`
	CouponCode    string         `json:"coupon_code,omitempty"`
	PaymentMethod string         `json:"payment_method" binding:"required"`
}

type BuyerInfo struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state,omitempty"`
	PinCode   string `json:"pin_code"`
	Phone     string `json:"phone"`
	Country   string `json:"country,omitempty"`
}

// CheckoutItem names a variant and quantity. Prices are never taken from the
// client.
type CheckoutItem struct {
	ProductID string `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// CheckoutResult tells the client how to complete payment
type CheckoutResult struct {
	OrderID         uuid.UUID       `json:"order_id"`
	COD             bool            `json:"cod"`
	GatewayOrderRef string          `json:"gateway_order_id,omitempty"`
	AmountDue       int64           `json:"amount_due,omitempty"`
	Currency        string          `json:"currency,omitempty"`
	KeyID           string          `json:"key,omitempty"`
	Total           decimal.Decimal `json:"total"`
}

// VerifyPaymentRequest is what the buyer's payment widget returns
type VerifyPaymentRequest struct {
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
	Signature      string `json:"signature"`
}

// CouponResult is the outcome of a successful coupon validation
type CouponResult struct {
	Accepted     bool                `json:"accepted"`
	Code         string              `json:"code"`
	DiscountType domain.DiscountType `json:"discount_type"`
	Value        decimal.Decimal     `json:"value"`
	Discount     decimal.Decimal     `json:"discount"`
	MinimumOrder decimal.Decimal     `json:"minimum_order"`
	Message      string              `json:"message"`
}

// ItemActionRequest is a buyer's return or exchange request with its
// evidence upload
type ItemActionRequest struct {
	Action       domain.ActionType
	Reason       domain.ReasonCode
	EvidenceName string
	EvidenceSize int64
	Evidence     io.Reader
}

// RefundRequest records an executed refund against an approved return
type RefundRequest struct {
	Reference string     `json:"refund_reference"`
	Date      *time.Time `json:"refund_date,omitempty"`
}
