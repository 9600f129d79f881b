package service

import (
	"context"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/events"
	"github.com/staturevogue/storefront/internal/gateway"
	"github.com/staturevogue/storefront/internal/lifecycle"
	"github.com/staturevogue/storefront/internal/repository"
)

// PaymentGateway creates payable orders and verifies completed payments
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, receipt string) (*gateway.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
	Currency() string
}

// EvidenceStore keeps the videos attached to item action requests
type EvidenceStore interface {
	Save(ctx context.Context, itemID uuid.UUID, filename string, r io.Reader) (string, error)
	Delete(path string) error
}

// Dependencies are the collaborators shared by every service
type Dependencies struct {
	Repos    *repository.Repositories
	Gateway  PaymentGateway
	Evidence EvidenceStore
	Events   events.Publisher
	Window   lifecycle.Window
	Logger   *zap.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// Services bundles the server-side services
type Services struct {
	Catalog  *CatalogService
	Coupon   *CouponService
	Checkout *CheckoutService
	Payment  *PaymentService
	Order    *OrderService
}

// New wires every service on deps
func New(deps Dependencies) *Services {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Events == nil {
		deps.Events = events.NewLogPublisher(deps.Logger)
	}

	rec := &recorder{repos: deps.Repos, events: deps.Events, logger: deps.Logger, now: deps.Now}
	coupons := NewCouponService(deps.Repos, deps.Logger, deps.Now)

	return &Services{
		Catalog:  NewCatalogService(deps.Repos, deps.Logger),
		Coupon:   coupons,
		Checkout: NewCheckoutService(deps.Repos, coupons, deps.Gateway, rec, deps.Logger),
		Payment:  NewPaymentService(deps.Repos, deps.Gateway, rec, deps.Logger),
		Order:    NewOrderService(deps.Repos, deps.Evidence, rec, deps.Window, deps.Logger, deps.Now),
	}
}

// recorder writes the audit row and publishes the lifecycle event for every
// status change. Both are best effort once the change itself is stored.
type recorder struct {
	repos  *repository.Repositories
	events events.Publisher
	logger *zap.Logger
	now    func() time.Time
}

func (r *recorder) record(ctx context.Context, orderID uuid.UUID, itemID *uuid.UUID, eventType, from, to string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["from"] = from
	data["to"] = to

	now := r.now()
	event := &domain.OrderEvent{
		OrderID:     orderID,
		OrderItemID: itemID,
		EventType:   eventType,
		EventData:   data,
		CreatedAt:   now,
	}
	if err := r.repos.OrderEvent.Create(ctx, event); err != nil {
		r.logger.Warn("Failed to store order event", zap.String("type", eventType), zap.Error(err))
	}

	if err := r.events.Publish(ctx, events.LifecycleEvent{
		Type:       eventType,
		OrderID:    orderID,
		ItemID:     itemID,
		From:       from,
		To:         to,
		OccurredAt: now,
	}); err != nil {
		r.logger.Warn("Failed to publish lifecycle event", zap.String("type", eventType), zap.Error(err))
	}
}

// itemEventType names the event for an item reaching status, e.g.
// item.return_requested
func itemEventType(status domain.ItemStatus) string {
	var b strings.Builder
	b.WriteString("item.")
	for i, r := range string(status) {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
