package errors

import (
	"errors"
	"net/http"
)

// Error codes carried in API error bodies
const (
	CodeValidation        = "validation"
	CodeStock             = "stock"
	CodeCoupon            = "coupon"
	CodePayment           = "payment"
	CodeLifecycle         = "lifecycle"
	CodeInvalidTransition = "invalid_transition"
	CodeNotFound          = "not_found"
	CodeUnauthorized      = "unauthorized"
	CodeConfigNotLoaded   = "config_not_loaded"
	CodeInternal          = "internal"
)

// Payload is the JSON body of every API error response
type Payload struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	Resource  string `json:"resource,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	Color     string `json:"color,omitempty"`
	Size      string `json:"size,omitempty"`
	Available *int   `json:"available,omitempty"`
	Reference string `json:"reference,omitempty"`
	Recovery  string `json:"recovery,omitempty"`
	ItemID    string `json:"item_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Action    string `json:"action,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Encode maps err to its HTTP status and body. Errors outside the taxonomy
// become a bare 500 so internals never leak.
func Encode(err error) (int, Payload) {
	var (
		validation *ValidationError
		stock      *StockError
		coupon     *CouponError
		payment    *PaymentError
		lifecycle  *LifecycleError
		transition *ErrInvalidStateTransition
		notFound   *ErrNotFound
		unauth     *ErrUnauthorized
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity, Payload{Error: validation.Error(), Code: CodeValidation, Field: validation.Field}
	case errors.As(err, &stock):
		available := stock.Available
		return http.StatusConflict, Payload{
			Error:     stock.Error(),
			Code:      CodeStock,
			ProductID: stock.ProductID,
			Color:     stock.Color,
			Size:      stock.Size,
			Available: &available,
		}
	case errors.As(err, &coupon):
		return http.StatusBadRequest, Payload{Error: coupon.Error(), Code: CodeCoupon, Reference: coupon.Code}
	case errors.As(err, &payment):
		return http.StatusPaymentRequired, Payload{
			Error:     payment.Message,
			Code:      CodePayment,
			Reference: payment.Reference,
			Recovery:  payment.Recovery,
		}
	case errors.As(err, &lifecycle):
		return http.StatusConflict, Payload{
			Error:  lifecycle.Error(),
			Code:   CodeLifecycle,
			ItemID: lifecycle.ItemID,
			Status: lifecycle.Status,
			Action: lifecycle.Action,
			Reason: lifecycle.Reason,
		}
	case errors.As(err, &transition):
		return http.StatusConflict, Payload{Error: transition.Error(), Code: CodeInvalidTransition, Status: string(transition.From), Action: string(transition.To)}
	case errors.As(err, &notFound):
		return http.StatusNotFound, Payload{Error: notFound.Error(), Code: CodeNotFound, Resource: notFound.Resource, Reference: notFound.ID}
	case errors.As(err, &unauth):
		return http.StatusUnauthorized, Payload{Error: unauth.Error(), Code: CodeUnauthorized}
	case errors.Is(err, ErrConfigNotLoaded):
		return http.StatusServiceUnavailable, Payload{Error: ErrConfigNotLoaded.Error(), Code: CodeConfigNotLoaded}
	default:
		return http.StatusInternalServerError, Payload{Error: "internal error", Code: CodeInternal}
	}
}

// Decode rebuilds the typed error a response body describes
func Decode(status int, p Payload) error {
	switch p.Code {
	case CodeValidation:
		msg := p.Error
		if p.Field != "" && len(msg) > len(p.Field)+2 && msg[:len(p.Field)+2] == p.Field+": " {
			msg = msg[len(p.Field)+2:]
		}
		return &ValidationError{Field: p.Field, Message: msg}
	case CodeStock:
		available := 0
		if p.Available != nil {
			available = *p.Available
		}
		return &StockError{ProductID: p.ProductID, Color: p.Color, Size: p.Size, Available: available}
	case CodeCoupon:
		return &CouponError{Code: p.Reference, Message: p.Error}
	case CodePayment:
		return &PaymentError{Reference: p.Reference, Message: p.Error, Recovery: p.Recovery}
	case CodeLifecycle:
		return &LifecycleError{ItemID: p.ItemID, Status: p.Status, Action: p.Action, Reason: p.Reason}
	case CodeNotFound:
		return &ErrNotFound{Resource: p.Resource, ID: p.Reference}
	case CodeUnauthorized:
		return &ErrUnauthorized{Message: p.Error}
	case CodeConfigNotLoaded:
		return ErrConfigNotLoaded
	}

	msg := p.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &HTTPError{Status: status, Message: msg}
}

// HTTPError is an API failure outside the error taxonomy
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}
