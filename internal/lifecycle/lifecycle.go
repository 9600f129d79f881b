// Package lifecycle holds the order item state machine shared by the buyer
// client and the order service. Both sides consult the same transition table.
package lifecycle

import (
	"time"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/pkg/errors"
)

// transitions lists, for every item status, the statuses it may move to.
// Statuses with no entry are terminal.
var transitions = map[domain.ItemStatus][]domain.ItemStatus{
	domain.ItemStatusOrdered: {
		domain.ItemStatusReturnRequested,
		domain.ItemStatusExchangeRequested,
	},
	domain.ItemStatusReturnRequested: {
		domain.ItemStatusReturnApproved,
		domain.ItemStatusReturnRejected,
	},
	domain.ItemStatusReturnApproved: {
		domain.ItemStatusRefunded,
	},
	domain.ItemStatusExchangeRequested: {
		domain.ItemStatusExchangeApproved,
		domain.ItemStatusExchangeRejected,
	},
}

// CanTransition reports whether an item may move from one status to another
func CanTransition(from, to domain.ItemStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next returns the statuses reachable from status in one step
func Next(status domain.ItemStatus) []domain.ItemStatus {
	next := transitions[status]
	out := make([]domain.ItemStatus, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether no further transition is possible
func IsTerminal(status domain.ItemStatus) bool {
	return len(transitions[status]) == 0
}

// RequestedStatus is the status an item enters when the buyer raises action
func RequestedStatus(action domain.ActionType) (domain.ItemStatus, bool) {
	switch action {
	case domain.ActionReturn:
		return domain.ItemStatusReturnRequested, true
	case domain.ActionExchange:
		return domain.ItemStatusExchangeRequested, true
	default:
		return "", false
	}
}

// DecidedStatus is the status a pending item enters on an admin decision
func DecidedStatus(pending domain.ItemStatus, decision domain.Decision) (domain.ItemStatus, bool) {
	switch {
	case pending == domain.ItemStatusReturnRequested && decision == domain.DecisionApprove:
		return domain.ItemStatusReturnApproved, true
	case pending == domain.ItemStatusReturnRequested && decision == domain.DecisionReject:
		return domain.ItemStatusReturnRejected, true
	case pending == domain.ItemStatusExchangeRequested && decision == domain.DecisionApprove:
		return domain.ItemStatusExchangeApproved, true
	case pending == domain.ItemStatusExchangeRequested && decision == domain.DecisionReject:
		return domain.ItemStatusExchangeRejected, true
	default:
		return "", false
	}
}

// Window bounds how long after delivery a return or exchange may be raised.
// A zero Window disables the check.
type Window time.Duration

// Days builds a window of n days
func Days(n int) Window {
	return Window(time.Duration(n) * 24 * time.Hour)
}

// CheckEligible reports, as a LifecycleError, why action cannot be requested
// on item right now. A nil result means the request is legal.
func CheckEligible(order *domain.Order, item *domain.OrderItem, action domain.ActionType, now time.Time, window Window) error {
	lifecycleErr := func(reason string) error {
		return &errors.LifecycleError{
			ItemID: item.ID.String(),
			Status: string(item.Status),
			Action: string(action),
			Reason: reason,
		}
	}

	if order.Status != domain.OrderStatusDelivered {
		return lifecycleErr("order has not been delivered (order is " + string(order.Status) + ")")
	}
	target, ok := RequestedStatus(action)
	if !ok {
		return lifecycleErr("unknown action")
	}
	if item.Status != domain.ItemStatusOrdered || !CanTransition(item.Status, target) {
		return lifecycleErr("an action was already raised for this item")
	}
	if window > 0 && order.DeliveredAt != nil && now.After(order.DeliveredAt.Add(time.Duration(window))) {
		return lifecycleErr("the return window has closed")
	}
	return nil
}

// ActionRequest is a buyer's return or exchange request for one item
type ActionRequest struct {
	Action       domain.ActionType
	Reason       domain.ReasonCode
	EvidenceName string
	EvidenceSize int64
}

// ValidateRequest checks req field by field before any network call, then
// checks item eligibility against the transition table.
func ValidateRequest(order *domain.Order, item *domain.OrderItem, req ActionRequest, now time.Time, window Window) error {
	if !req.Action.IsValid() {
		return &errors.ValidationError{Field: "action_type", Message: "action must be return or exchange"}
	}
	if !req.Reason.IsValid() {
		return &errors.ValidationError{Field: "reason", Message: "please choose a reason from the list"}
	}
	if req.EvidenceName == "" || req.EvidenceSize <= 0 {
		return &errors.ValidationError{Field: "evidence", Message: "an unboxing video is required"}
	}
	return CheckEligible(order, item, req.Action, now, window)
}

// CanCancel reports whether an order may still be cancelled by the buyer
func CanCancel(status domain.OrderStatus) bool {
	return status == domain.OrderStatusPending || status == domain.OrderStatusProcessing
}

// CheckCancellable returns a LifecycleError when order cannot be cancelled
func CheckCancellable(order *domain.Order) error {
	if CanCancel(order.Status) {
		return nil
	}
	return &errors.LifecycleError{
		Status: string(order.Status),
		Action: "cancel order",
		Reason: "only pending or processing orders can be cancelled",
	}
}
