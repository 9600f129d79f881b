package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/staturevogue/storefront/internal/domain"
)

// ProductRepository reads the catalog
type ProductRepository interface {
	// GetByID accepts either the product id or its slug.
	GetByID(ctx context.Context, idOrSlug string) (*domain.Product, error)
	// List pages through the catalog; an empty category lists everything.
	List(ctx context.Context, category string, limit, offset int) ([]*domain.Product, error)
	ReviewSummary(ctx context.Context, productID string) (*domain.ReviewSummary, error)
}

// CouponRepository handles persistence for coupons
type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	Create(ctx context.Context, coupon *domain.Coupon) error
}

// SiteConfigRepository reads the site pricing configuration
type SiteConfigRepository interface {
	GetShippingPolicy(ctx context.Context) (*domain.ShippingPolicy, error)
}

// OrderRepository handles persistence for orders
type OrderRepository interface {
	// Place stores order and its items, decrements stock for every item and
	// redeems the order's coupon, all in one transaction.
	Place(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByGatewayRef(ctx context.Context, ref string) (*domain.Order, error)
	ListByBuyerEmail(ctx context.Context, email string, limit, offset int) ([]*domain.Order, error)
	SetGatewayRef(ctx context.Context, id uuid.UUID, ref string) error
	// UpdateStatus moves the order to status only while it is still in from.
	// It reports whether a row changed.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, deliveredAt *time.Time) (bool, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, paymentRef *string) error
	// Cancel marks the order cancelled while it is still in from, restocks
	// its items and sets the payment status, in one transaction.
	Cancel(ctx context.Context, id uuid.UUID, from domain.OrderStatus, payment domain.PaymentStatus) (bool, error)
}

// OrderItemRepository handles persistence for order items
type OrderItemRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.OrderItem, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error)
	// Transition writes item's lifecycle fields only while the stored status
	// is still from, inserting issued in the same transaction when non-nil.
	// It reports whether the item changed.
	Transition(ctx context.Context, item *domain.OrderItem, from domain.ItemStatus, issued *domain.Coupon) (bool, error)
}

// OrderEventRepository stores the audit trail
type OrderEventRepository interface {
	Create(ctx context.Context, event *domain.OrderEvent) error
}

// AdminRepository handles persistence for admins
type AdminRepository interface {
	GetByAPIKeyHash(ctx context.Context, apiKey string) (*domain.Admin, error)
	Create(ctx context.Context, admin *domain.Admin) error
}

// Repositories groups every repository the services use
type Repositories struct {
	Product    ProductRepository
	Coupon     CouponRepository
	SiteConfig SiteConfigRepository
	Order      OrderRepository
	OrderItem  OrderItemRepository
	OrderEvent OrderEventRepository
	Admin      AdminRepository
}
