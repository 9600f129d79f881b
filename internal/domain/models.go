package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the immutable catalog record a buyer selects variants from
type Product struct {
	ID            string            `json:"id"`
	Slug          string            `json:"slug"`
	Name          string            `json:"name"`
	Category      string            `json:"category,omitempty"`
	BasePrice     decimal.Decimal   `json:"price"`
	OriginalPrice decimal.Decimal   `json:"original_price"`
	Images        []string          `json:"images"`
	Colors        []ColorVariant    `json:"colors"`
	Description   string            `json:"description,omitempty"`
	Features      []string          `json:"features,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// ColorVariant belongs to exactly one Product
type ColorVariant struct {
	Name   string        `json:"name"`
	Hex    string        `json:"hex,omitempty"`
	Images []string      `json:"images,omitempty"`
	Sizes  []SizeVariant `json:"sizes"`
}

// SizeVariant belongs to exactly one ColorVariant. A nil Price means the
// product base price applies.
type SizeVariant struct {
	Label string           `json:"size"`
	Stock int              `json:"stock"`
	Price *decimal.Decimal `json:"price,omitempty"`
}

// ReviewSummary aggregates the reviews of a product
type ReviewSummary struct {
	ProductID    string      `json:"product_id"`
	Average      float64     `json:"average"`
	Count        int         `json:"count"`
	Distribution map[int]int `json:"distribution"`
}

// LineKey is the identity of a cart line
type LineKey struct {
	ProductID string
	Color     string
	Size      string
}

// CartLine is one entry in the cart. Price, Image and Name are snapshots
// taken when the line was added.
type CartLine struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	Color         string          `json:"color"`
	Size          string          `json:"size"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Image         string          `json:"image"`
}

// Key returns the identity key of the line
func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Color: l.Color, Size: l.Size}
}

// LineTotal is price times quantity
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Coupon grants a discount subject to a minimum order
type Coupon struct {
	ID              uuid.UUID
	Code            string
	DiscountType    DiscountType
	Value           decimal.Decimal
	MinimumOrder    decimal.Decimal
	ExpiresAt       *time.Time
	UsageLimit      *int
	UsedCount       int
	IsActive        bool
	IssuedForItemID *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DiscountFor returns the discount this coupon grants on subtotal, never
// more than subtotal and never negative.
func (c *Coupon) DiscountFor(subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		discount = subtotal.Mul(c.Value).Div(decimal.NewFromInt(100))
	default:
		discount = c.Value
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(discount, subtotal)
}

// ShippingPolicy is the site pricing configuration. Loaded is false until the
// configuration has been read from its source; pricing refuses to run on an
// unloaded policy.
type ShippingPolicy struct {
	FlatRate              decimal.Decimal `json:"shipping_flat_rate"`
	FreeShippingThreshold decimal.Decimal `json:"shipping_free_above"`
	TaxRatePercentage     decimal.Decimal `json:"tax_rate_percentage"`
	CODFee                decimal.Decimal `json:"cod_fee"`
	Loaded                bool            `json:"-"`
}

// Buyer holds the contact and delivery fields captured at checkout
type Buyer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state,omitempty"`
	PinCode   string `json:"pin_code"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
}

// Order is created at checkout submission
type Order struct {
	ID               uuid.UUID       `json:"id"`
	BuyerEmail       string          `json:"buyer_email"`
	Buyer            Buyer           `json:"buyer"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	Status           OrderStatus     `json:"order_status"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Discount         decimal.Decimal `json:"discount"`
	Tax              decimal.Decimal `json:"tax"`
	Shipping         decimal.Decimal `json:"shipping"`
	CODFee           decimal.Decimal `json:"cod_fee"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	CouponCode       *string         `json:"coupon_code,omitempty"`
	GatewayOrderRef  *string         `json:"gateway_order_id,omitempty"`
	PaymentReference *string         `json:"payment_id,omitempty"`
	DeliveredAt      *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Items            []OrderItem     `json:"items"`
}

// OrderItem is the persisted history of one purchased line plus its own
// post-purchase lifecycle status.
type OrderItem struct {
	ID                 uuid.UUID       `json:"id"`
	OrderID            uuid.UUID       `json:"order_id"`
	ProductID          string          `json:"product_id"`
	ProductName        string          `json:"product_name"`
	Color              string          `json:"color"`
	Size               string          `json:"size"`
	Image              string          `json:"image,omitempty"`
	Price              decimal.Decimal `json:"price"`
	Quantity           int             `json:"quantity"`
	Status             ItemStatus      `json:"item_status"`
	ActionType         *ActionType     `json:"action_type,omitempty"`
	ReasonCode         *ReasonCode     `json:"reason,omitempty"`
	EvidencePath       *string         `json:"-"`
	AdminComment       *string         `json:"admin_comment,omitempty"`
	ExchangeCouponCode *string         `json:"exchange_coupon_code,omitempty"`
	RefundReference    *string         `json:"refund_reference,omitempty"`
	RefundDate         *time.Time      `json:"refund_date,omitempty"`
	RequestedAt        *time.Time      `json:"requested_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// LineTotal is price times quantity
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Admin is an operator allowed to adjudicate item actions
type Admin struct {
	ID         uuid.UUID
	Name       string
	APIKeyHash string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OrderEvent represents an audit event for an order
type OrderEvent struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	OrderItemID *uuid.UUID
	EventType   string
	EventData   map[string]interface{} // JSONB
	CreatedAt   time.Time
}
