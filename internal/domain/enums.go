package domain

import "fmt"

// OrderStatus represents the overall shipping status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a status transition is valid
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return newStatus == OrderStatusProcessing ||
			newStatus == OrderStatusCancelled
	case OrderStatusProcessing:
		return newStatus == OrderStatusShipped ||
			newStatus == OrderStatusCancelled
	case OrderStatusShipped:
		return newStatus == OrderStatusDelivered
	case OrderStatusDelivered, OrderStatusCancelled:
		return false // Terminal states
	default:
		return false
	}
}

// PaymentStatus tracks money movement for an order
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "Pending"
	PaymentStatusPaid          PaymentStatus = "Paid"
	PaymentStatusFailed        PaymentStatus = "Failed"
	PaymentStatusRefundPending PaymentStatus = "Refund Pending"
	PaymentStatusRefunded      PaymentStatus = "Refunded"
)

// PaymentMethod is how the buyer pays at checkout
type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "Online"
	PaymentMethodCOD    PaymentMethod = "COD"
)

// ParsePaymentMethod accepts the wire spelling of a payment method
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentMethodOnline, PaymentMethodCOD:
		return PaymentMethod(s), nil
	default:
		return "", fmt.Errorf("unknown payment method %q", s)
	}
}

// ItemStatus is the post-purchase lifecycle status of a single order item.
// It is independent of the parent order's shipping status.
type ItemStatus string

const (
	ItemStatusOrdered           ItemStatus = "Ordered"
	ItemStatusReturnRequested   ItemStatus = "ReturnRequested"
	ItemStatusReturnApproved    ItemStatus = "ReturnApproved"
	ItemStatusReturnRejected    ItemStatus = "ReturnRejected"
	ItemStatusRefunded          ItemStatus = "Refunded"
	ItemStatusExchangeRequested ItemStatus = "ExchangeRequested"
	ItemStatusExchangeApproved  ItemStatus = "ExchangeApproved"
	ItemStatusExchangeRejected  ItemStatus = "ExchangeRejected"
)

// IsValid checks if the item status is one of the known states
func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusOrdered,
		ItemStatusReturnRequested,
		ItemStatusReturnApproved,
		ItemStatusReturnRejected,
		ItemStatusRefunded,
		ItemStatusExchangeRequested,
		ItemStatusExchangeApproved,
		ItemStatusExchangeRejected:
		return true
	default:
		return false
	}
}

// ActionType is the kind of post-purchase request a buyer can raise
type ActionType string

const (
	ActionReturn   ActionType = "return"
	ActionExchange ActionType = "exchange"
)

func (a ActionType) IsValid() bool {
	return a == ActionReturn || a == ActionExchange
}

// ReasonCode is the fixed set of reasons a buyer picks from
type ReasonCode string

const (
	ReasonSizeDoesNotFit ReasonCode = "Size doesn't fit"
	ReasonDamaged        ReasonCode = "Damaged product"
	ReasonWrongItem      ReasonCode = "Wrong item received"
	ReasonQuality        ReasonCode = "Quality not as expected"
	ReasonColorMismatch  ReasonCode = "Color differs from picture"
	ReasonOther          ReasonCode = "Other"
)

// ReasonCodes lists every accepted reason in display order
func ReasonCodes() []ReasonCode {
	return []ReasonCode{
		ReasonSizeDoesNotFit,
		ReasonDamaged,
		ReasonWrongItem,
		ReasonQuality,
		ReasonColorMismatch,
		ReasonOther,
	}
}

func (r ReasonCode) IsValid() bool {
	for _, known := range ReasonCodes() {
		if r == known {
			return true
		}
	}
	return false
}

// Decision is an administrative verdict on a pending item action
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// DiscountType describes how a coupon value is interpreted
type DiscountType string

const (
	DiscountFixed      DiscountType = "fixed"
	DiscountPercentage DiscountType = "percentage"
)
