package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/staturevogue/storefront/internal/domain"
)

// ErrConfigNotLoaded is returned when pricing is requested before the site
// pricing configuration has been loaded. Checkout must be blocked on it.
var ErrConfigNotLoaded = errors.New("pricing configuration not loaded")

// ErrNotFound represents a resource not found error
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized represents an unauthorized error
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	return e.Message
}

// ErrInvalidStateTransition represents an illegal order status change
type ErrInvalidStateTransition struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ValidationError is raised before any network call when required input is
// missing or malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StockError blocks an add-to-cart or checkout when the selected size cannot
// cover the requested quantity.
type StockError struct {
	ProductID string
	Color     string
	Size      string
	Available int
}

func (e *StockError) Error() string {
	if e.Available <= 0 {
		return fmt.Sprintf("%s (%s / %s) is out of stock", e.ProductID, e.Color, e.Size)
	}
	return fmt.Sprintf("only %d left of %s (%s / %s)", e.Available, e.ProductID, e.Color, e.Size)
}

// CouponError carries the user-visible reason a coupon was not applied.
type CouponError struct {
	Code    string
	Message string
}

func (e *CouponError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("coupon %q is not valid", e.Code)
}

// CouponMinimumNotMet builds the CouponError returned when the subtotal is
// below the coupon's minimum order.
func CouponMinimumNotMet(code string, minimum decimal.Decimal) *CouponError {
	return &CouponError{
		Code:    code,
		Message: fmt.Sprintf("coupon %s requires a minimum order of %s", code, minimum.StringFixed(2)),
	}
}

// PaymentError marks a checkout that did not complete. Recovery, when set,
// tells the buyer what to do next (e.g. contact support after a charge).
type PaymentError struct {
	Reference string
	Message   string
	Recovery  string
}

func (e *PaymentError) Error() string {
	if e.Recovery != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Recovery)
	}
	return e.Message
}

// LifecycleError rejects an order or order item action requested in a state
// that does not allow it.
type LifecycleError struct {
	ItemID string
	Status string
	Action string
	Reason string
}

func (e *LifecycleError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("cannot %s while %s: %s", e.Action, e.Status, e.Reason)
	}
	return fmt.Sprintf("cannot %s item %s while %s: %s", e.Action, e.ItemID, e.Status, e.Reason)
}

// Is* helpers unwrap err chains.

func IsNotFound(err error) bool {
	var target *ErrNotFound
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsStock(err error) bool {
	var target *StockError
	return errors.As(err, &target)
}

func IsCoupon(err error) bool {
	var target *CouponError
	return errors.As(err, &target)
}

func IsPayment(err error) bool {
	var target *PaymentError
	return errors.As(err, &target)
}

func IsLifecycle(err error) bool {
	var target *LifecycleError
	return errors.As(err, &target)
}
