package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/repository"
	"github.com/staturevogue/storefront/pkg/errors"
)

// PaymentService confirms online payments reported by the buyer
type PaymentService struct {
	repos   *repository.Repositories
	gateway PaymentGateway
	rec     *recorder
	logger  *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(repos *repository.Repositories, gw PaymentGateway, rec *recorder, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		repos:   repos,
		gateway: gw,
		rec:     rec,
		logger:  logger,
	}
}

func recoveryFor(paymentID string) string {
	return "if money was debited, contact support with payment ID " + paymentID
}

// Verify checks the gateway signature and marks the order paid. Once paid the
// order moves from Pending to Processing. Verifying the same payment twice
// is a no-op.
func (s *PaymentService) Verify(ctx context.Context, req VerifyPaymentRequest) (*domain.Order, error) {
	if req.GatewayOrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, &errors.ValidationError{Field: "signature", Message: "gateway_order_id, payment_id and signature are required"}
	}

	order, err := s.repos.Order.GetByGatewayRef(ctx, req.GatewayOrderID)
	if errors.IsNotFound(err) {
		return nil, &errors.PaymentError{
			Reference: req.PaymentID,
			Message:   "payment does not match any order",
			Recovery:  recoveryFor(req.PaymentID),
		}
	}
	if err != nil {
		return nil, err
	}

	if s.gateway == nil || !s.gateway.VerifySignature(req.GatewayOrderID, req.PaymentID, req.Signature) {
		s.logger.Warn("Payment signature mismatch",
			zap.String("order_id", order.ID.String()),
			zap.String("payment_id", req.PaymentID),
		)
		if order.PaymentStatus == domain.PaymentStatusPending {
			if err := s.repos.Order.UpdatePayment(ctx, order.ID, domain.PaymentStatusFailed, nil); err != nil {
				s.logger.Error("Failed to mark payment failed", zap.Error(err))
			}
		}
		return nil, &errors.PaymentError{
			Reference: req.PaymentID,
			Message:   "payment verification failed",
			Recovery:  recoveryFor(req.PaymentID),
		}
	}

	if order.PaymentStatus == domain.PaymentStatusPaid {
		if order.PaymentReference != nil && *order.PaymentReference == req.PaymentID {
			return order, nil
		}
		return nil, &errors.PaymentError{
			Reference: req.PaymentID,
			Message:   "order was already paid with another payment",
			Recovery:  recoveryFor(req.PaymentID),
		}
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, &errors.PaymentError{
			Reference: req.PaymentID,
			Message:   "order was cancelled before the payment completed",
			Recovery:  recoveryFor(req.PaymentID),
		}
	}

	paymentID := req.PaymentID
	if err := s.repos.Order.UpdatePayment(ctx, order.ID, domain.PaymentStatusPaid, &paymentID); err != nil {
		return nil, err
	}
	s.rec.record(ctx, order.ID, nil, "payment.paid", string(order.PaymentStatus), string(domain.PaymentStatusPaid), map[string]interface{}{
		"payment_id": paymentID,
	})

	if order.Status == domain.OrderStatusPending {
		changed, err := s.repos.Order.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusProcessing, nil)
		if err != nil {
			return nil, err
		}
		if changed {
			s.rec.record(ctx, order.ID, nil, "order.status_changed", string(domain.OrderStatusPending), string(domain.OrderStatusProcessing), nil)
		}
	}

	return s.repos.Order.GetByID(ctx, order.ID)
}
