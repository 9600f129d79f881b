// Package account handles a buyer's post-purchase actions. Every action is
// checked against the lifecycle rules locally, submitted, and then the order
// is fetched again so the caller only ever sees the server's state.
package account

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/lifecycle"
	"github.com/staturevogue/storefront/internal/storefront"
	"github.com/staturevogue/storefront/pkg/errors"
)

// Backend is the part of the storefront API the account pages use
type Backend interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, email string) ([]*domain.Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	SubmitItemAction(ctx context.Context, itemID uuid.UUID, action storefront.ItemAction) (*domain.OrderItem, error)
}

// Evidence is the video attached to a return or exchange request
type Evidence struct {
	Name string
	Size int64
	Body io.Reader
}

// ItemActionRequest is what the buyer filled in on the return form
type ItemActionRequest struct {
	Action   domain.ActionType
	Reason   domain.ReasonCode
	Evidence *Evidence
}

// Service runs buyer actions on placed orders
type Service struct {
	backend Backend
	window  lifecycle.Window
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates an account service. window must match the server's
// return window.
func NewService(backend Backend, window lifecycle.Window, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend: backend,
		window:  window,
		logger:  logger,
		now:     time.Now,
	}
}

// Orders lists the buyer's orders
func (s *Service) Orders(ctx context.Context, email string) ([]*domain.Order, error) {
	if email == "" {
		return nil, &errors.ValidationError{Field: "email", Message: "email is required"}
	}
	return s.backend.ListOrders(ctx, email)
}

// Order fetches one order with its items
func (s *Service) Order(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.backend.GetOrder(ctx, orderID)
}

// RequestItemAction raises a return or exchange on one item of order, the
// order as the buyer last saw it. Illegal requests are rejected without any
// network call. The returned item comes from a fresh read of the order.
func (s *Service) RequestItemAction(ctx context.Context, order *domain.Order, itemID uuid.UUID, req ItemActionRequest) (*domain.OrderItem, error) {
	item := findItem(order, itemID)
	if item == nil {
		return nil, &errors.ErrNotFound{Resource: "order item", ID: itemID.String()}
	}

	check := lifecycle.ActionRequest{Action: req.Action, Reason: req.Reason}
	if req.Evidence != nil && req.Evidence.Body != nil {
		check.EvidenceName = req.Evidence.Name
		check.EvidenceSize = req.Evidence.Size
	}
	if err := lifecycle.ValidateRequest(order, item, check, s.now(), s.window); err != nil {
		return nil, err
	}

	_, err := s.backend.SubmitItemAction(ctx, itemID, storefront.ItemAction{
		Action:       req.Action,
		Reason:       req.Reason,
		EvidenceName: req.Evidence.Name,
		Evidence:     req.Evidence.Body,
	})
	if err != nil {
		s.logger.Warn("Item action rejected",
			zap.String("item_id", itemID.String()),
			zap.String("action", string(req.Action)),
			zap.Error(err),
		)
		return nil, err
	}

	fresh, err := s.backend.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	item = findItem(fresh, itemID)
	if item == nil {
		return nil, &errors.ErrNotFound{Resource: "order item", ID: itemID.String()}
	}

	s.logger.Info("Item action submitted",
		zap.String("order_id", order.ID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("item_status", string(item.Status)),
	)
	return item, nil
}

// CancelOrder asks for order to be cancelled and returns the order as the
// server has it afterwards.
func (s *Service) CancelOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := lifecycle.CheckCancellable(order); err != nil {
		return nil, err
	}

	if _, err := s.backend.CancelOrder(ctx, order.ID); err != nil {
		s.logger.Warn("Order cancellation rejected", zap.String("order_id", order.ID.String()), zap.Error(err))
		return nil, err
	}
	return s.backend.GetOrder(ctx, order.ID)
}

func findItem(order *domain.Order, itemID uuid.UUID) *domain.OrderItem {
	if order == nil {
		return nil
	}
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			return &order.Items[i]
		}
	}
	return nil
}
