package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/lifecycle"
	"github.com/staturevogue/storefront/internal/repository"
	"github.com/staturevogue/storefront/pkg/errors"
)

// OrderService runs the order and order item lifecycles after checkout
type OrderService struct {
	repos    *repository.Repositories
	evidence EvidenceStore
	rec      *recorder
	window   lifecycle.Window
	logger   *zap.Logger
	now      func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(repos *repository.Repositories, evidence EvidenceStore, rec *recorder, window lifecycle.Window, logger *zap.Logger, now func() time.Time) *OrderService {
	if now == nil {
		now = time.Now
	}
	return &OrderService{
		repos:    repos,
		evidence: evidence,
		rec:      rec,
		window:   window,
		logger:   logger,
		now:      now,
	}
}

// Get returns the order with its items
func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.repos.Order.GetByID(ctx, orderID)
}

// ListForBuyer returns the buyer's orders, newest first
func (s *OrderService) ListForBuyer(ctx context.Context, email string, limit, offset int) ([]*domain.Order, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, &errors.ValidationError{Field: "buyer_email", Message: "buyer email is required"}
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.Order.ListByBuyerEmail(ctx, email, limit, offset)
}

// Cancel cancels a Pending or Processing order and restocks its items. A
// paid order moves to Refund Pending.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CheckCancellable(order); err != nil {
		return nil, err
	}

	payment := order.PaymentStatus
	if payment == domain.PaymentStatusPaid {
		payment = domain.PaymentStatusRefundPending
	}

	changed, err := s.repos.Order.Cancel(ctx, orderID, order.Status, payment)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, &errors.LifecycleError{
			Status: string(order.Status),
			Action: "cancel order",
			Reason: "the order changed while cancelling, please refresh",
		}
	}

	s.logger.Info("Order cancelled", zap.String("order_id", orderID.String()))
	s.rec.record(ctx, orderID, nil, "order.cancelled", string(order.Status), string(domain.OrderStatusCancelled), map[string]interface{}{
		"payment_status": payment,
	})

	return s.repos.Order.GetByID(ctx, orderID)
}

// UpdateStatus moves the order along its shipping lifecycle. Reaching
// Delivered stamps the delivery time the return window counts from.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	if !to.IsValid() {
		return nil, &errors.ValidationError{Field: "order_status", Message: "unknown order status " + string(to)}
	}
	if to == domain.OrderStatusCancelled {
		return s.Cancel(ctx, orderID)
	}

	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Validate state transition
	if !order.Status.CanTransitionTo(to) {
		return nil, &errors.ErrInvalidStateTransition{
			From: order.Status,
			To:   to,
		}
	}

	var deliveredAt *time.Time
	if to == domain.OrderStatusDelivered {
		now := s.now()
		deliveredAt = &now
	}

	changed, err := s.repos.Order.UpdateStatus(ctx, orderID, order.Status, to, deliveredAt)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, &errors.ErrInvalidStateTransition{From: order.Status, To: to}
	}

	s.rec.record(ctx, orderID, nil, "order.status_changed", string(order.Status), string(to), nil)

	return s.repos.Order.GetByID(ctx, orderID)
}

// RequestItemAction raises a return or exchange on one delivered item. The
// evidence is stored first and discarded again if the item moved on in the
// meantime, so at most one action is ever in flight per item.
func (s *OrderService) RequestItemAction(ctx context.Context, itemID uuid.UUID, req ItemActionRequest) (*domain.OrderItem, error) {
	item, err := s.repos.OrderItem.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	order, err := s.repos.Order.GetByID(ctx, item.OrderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := lifecycle.ValidateRequest(order, item, lifecycle.ActionRequest{
		Action:       req.Action,
		Reason:       req.Reason,
		EvidenceName: req.EvidenceName,
		EvidenceSize: req.EvidenceSize,
	}, now, s.window); err != nil {
		return nil, err
	}
	if req.Evidence == nil || s.evidence == nil {
		return nil, &errors.ValidationError{Field: "evidence", Message: "an unboxing video is required"}
	}

	path, err := s.evidence.Save(ctx, item.ID, req.EvidenceName, req.Evidence)
	if err != nil {
		return nil, err
	}

	target, _ := lifecycle.RequestedStatus(req.Action)
	from := item.Status
	action := req.Action
	reason := req.Reason

	next := *item
	next.Status = target
	next.ActionType = &action
	next.ReasonCode = &reason
	next.EvidencePath = &path
	next.RequestedAt = &now

	changed, err := s.repos.OrderItem.Transition(ctx, &next, from, nil)
	if err != nil || !changed {
		if delErr := s.evidence.Delete(path); delErr != nil {
			s.logger.Warn("Failed to discard evidence", zap.String("path", path), zap.Error(delErr))
		}
	}
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, &errors.LifecycleError{
			ItemID: item.ID.String(),
			Status: string(from),
			Action: string(req.Action),
			Reason: "an action was already raised for this item",
		}
	}

	s.logger.Info("Item action requested",
		zap.String("item_id", item.ID.String()),
		zap.String("action", string(req.Action)),
		zap.String("reason", string(req.Reason)),
	)
	s.rec.record(ctx, order.ID, &item.ID, itemEventType(target), string(from), string(target), map[string]interface{}{
		"action": req.Action,
		"reason": req.Reason,
	})

	return s.repos.OrderItem.GetByID(ctx, item.ID)
}

// DecideItemAction approves or rejects a pending return or exchange. A
// rejection must carry a comment, which the buyer is shown.
// Approving an exchange issues a single-use coupon worth the item's line
// total, stored in the same write as the decision.
func (s *OrderService) DecideItemAction(ctx context.Context, itemID uuid.UUID, decision domain.Decision, comment string) (*domain.OrderItem, error) {
	if decision != domain.DecisionApprove && decision != domain.DecisionReject {
		return nil, &errors.ValidationError{Field: "decision", Message: "decision must be approve or reject"}
	}

	item, err := s.repos.OrderItem.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	target, ok := lifecycle.DecidedStatus(item.Status, decision)
	if !ok {
		return nil, &errors.LifecycleError{
			ItemID: item.ID.String(),
			Status: string(item.Status),
			Action: string(decision),
			Reason: "there is no pending request to decide",
		}
	}

	comment = strings.TrimSpace(comment)
	if decision == domain.DecisionReject && comment == "" {
		return nil, &errors.ValidationError{Field: "comment", Message: "a rejection needs a comment for the buyer"}
	}

	from := item.Status
	next := *item
	next.Status = target
	if comment != "" {
		next.AdminComment = &comment
	}

	var issued *domain.Coupon
	if target == domain.ItemStatusExchangeApproved {
		issued = s.exchangeCoupon(item)
		next.ExchangeCouponCode = &issued.Code
	}

	changed, err := s.repos.OrderItem.Transition(ctx, &next, from, issued)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, &errors.LifecycleError{
			ItemID: item.ID.String(),
			Status: string(from),
			Action: string(decision),
			Reason: "the request was already decided",
		}
	}

	data := map[string]interface{}{"decision": decision}
	if issued != nil {
		data["coupon_code"] = issued.Code
	}
	s.rec.record(ctx, item.OrderID, &item.ID, itemEventType(target), string(from), string(target), data)

	return s.repos.OrderItem.GetByID(ctx, item.ID)
}

// MarkRefunded records the refund of an approved return. The external
// reference is optional; the date defaults to now.
func (s *OrderService) MarkRefunded(ctx context.Context, itemID uuid.UUID, req RefundRequest) (*domain.OrderItem, error) {
	item, err := s.repos.OrderItem.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanTransition(item.Status, domain.ItemStatusRefunded) {
		return nil, &errors.LifecycleError{
			ItemID: item.ID.String(),
			Status: string(item.Status),
			Action: "refund",
			Reason: "only approved returns can be refunded",
		}
	}

	date := s.now()
	if req.Date != nil {
		date = *req.Date
	}

	from := item.Status
	next := *item
	next.Status = domain.ItemStatusRefunded
	next.RefundDate = &date
	data := map[string]interface{}{}
	if reference := strings.TrimSpace(req.Reference); reference != "" {
		next.RefundReference = &reference
		data["refund_reference"] = reference
	}

	changed, err := s.repos.OrderItem.Transition(ctx, &next, from, nil)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, &errors.LifecycleError{
			ItemID: item.ID.String(),
			Status: string(from),
			Action: "refund",
			Reason: "the item was already refunded",
		}
	}

	s.rec.record(ctx, item.OrderID, &item.ID, itemEventType(domain.ItemStatusRefunded), string(from), string(domain.ItemStatusRefunded), data)

	return s.repos.OrderItem.GetByID(ctx, item.ID)
}

func (s *OrderService) exchangeCoupon(item *domain.OrderItem) *domain.Coupon {
	limit := 1
	itemID := item.ID
	now := s.now()
	return &domain.Coupon{
		ID:              uuid.New(),
		Code:            "EXCH-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8]),
		DiscountType:    domain.DiscountFixed,
		Value:           item.LineTotal(),
		UsageLimit:      &limit,
		IsActive:        true,
		IssuedForItemID: &itemID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
