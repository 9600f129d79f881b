package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/repository"
	"github.com/staturevogue/storefront/pkg/errors"
)

// DB is an in-memory stand-in for the PostgreSQL repositories. Its fields
// may be read and seeded directly while no request is running.
type DB struct {
	mu       sync.Mutex
	Products map[string]*domain.Product
	Coupons  map[string]*domain.Coupon
	Policy   *domain.ShippingPolicy
	Orders   map[uuid.UUID]*domain.Order
	Items    map[uuid.UUID]*domain.OrderItem
	Events   []domain.OrderEvent
	Admins   []*domain.Admin
}

// New creates an empty DB
func New() *DB {
	return &DB{
		Products: map[string]*domain.Product{},
		Coupons:  map[string]*domain.Coupon{},
		Orders:   map[uuid.UUID]*domain.Order{},
		Items:    map[uuid.UUID]*domain.OrderItem{},
	}
}

// Repositories exposes the DB through the repository interfaces
func (m *DB) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Product:    memProducts{m},
		Coupon:     memCoupons{m},
		SiteConfig: memSiteConfig{m},
		Order:      memOrders{m},
		OrderItem:  memOrderItems{m},
		OrderEvent: memEvents{m},
		Admin:      memAdmins{m},
	}
}

// SizeOf returns the stored size variant, nil when there is none
func (m *DB) SizeOf(productID, color, size string) *domain.SizeVariant {
	p, ok := m.Products[productID]
	if !ok {
		return nil
	}
	for ci := range p.Colors {
		if p.Colors[ci].Name != color {
			continue
		}
		for si := range p.Colors[ci].Sizes {
			if p.Colors[ci].Sizes[si].Label == size {
				return &p.Colors[ci].Sizes[si]
			}
		}
	}
	return nil
}

func (m *DB) orderWithItems(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = []domain.OrderItem{}
	for _, it := range m.Items {
		if it.OrderID == o.ID {
			cp.Items = append(cp.Items, *it)
		}
	}
	sort.Slice(cp.Items, func(i, j int) bool { return cp.Items[i].ProductID < cp.Items[j].ProductID })
	return &cp
}

type memProducts struct{ m *DB }

func (r memProducts) GetByID(_ context.Context, idOrSlug string) (*domain.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.Products {
		if p.ID == idOrSlug || p.Slug == idOrSlug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "product", ID: idOrSlug}
}

func (r memProducts) List(_ context.Context, category string, limit, offset int) ([]*domain.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*domain.Product{}
	for _, p := range r.m.Products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return []*domain.Product{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memProducts) ReviewSummary(_ context.Context, productID string) (*domain.ReviewSummary, error) {
	return &domain.ReviewSummary{ProductID: productID, Average: 4.5, Count: 2, Distribution: map[int]int{4: 1, 5: 1}}, nil
}

type memCoupons struct{ m *DB }

func (r memCoupons) GetByCode(_ context.Context, code string) (*domain.Coupon, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.Coupons[strings.ToUpper(code)]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "coupon", ID: code}
	}
	cp := *c
	return &cp, nil
}

func (r memCoupons) Create(_ context.Context, coupon *domain.Coupon) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *coupon
	r.m.Coupons[strings.ToUpper(coupon.Code)] = &cp
	return nil
}

type memSiteConfig struct{ m *DB }

func (r memSiteConfig) GetShippingPolicy(context.Context) (*domain.ShippingPolicy, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Policy == nil {
		return nil, &errors.ErrNotFound{Resource: "site config", ID: "shipping"}
	}
	cp := *r.m.Policy
	cp.Loaded = true
	return &cp, nil
}

type memOrders struct{ m *DB }

func (r memOrders) Place(_ context.Context, order *domain.Order) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, it := range order.Items {
		s := r.m.SizeOf(it.ProductID, it.Color, it.Size)
		if s == nil || s.Stock < it.Quantity {
			available := 0
			if s != nil {
				available = s.Stock
			}
			return &errors.StockError{ProductID: it.ProductID, Color: it.Color, Size: it.Size, Available: available}
		}
	}
	if order.CouponCode != nil {
		c, ok := r.m.Coupons[*order.CouponCode]
		if !ok || (c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit) {
			return &errors.CouponError{Code: *order.CouponCode, Message: "coupon is no longer available"}
		}
		c.UsedCount++
	}
	for _, it := range order.Items {
		r.m.SizeOf(it.ProductID, it.Color, it.Size).Stock -= it.Quantity
	}

	now := time.Now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt, order.UpdatedAt = now, now
	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
		order.Items[i].CreatedAt = now
		order.Items[i].UpdatedAt = now
		it := order.Items[i]
		r.m.Items[it.ID] = &it
	}
	cp := *order
	cp.Items = nil
	r.m.Orders[order.ID] = &cp
	return nil
}

func (r memOrders) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.Orders[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	return r.m.orderWithItems(o), nil
}

func (r memOrders) GetByGatewayRef(_ context.Context, ref string) (*domain.Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, o := range r.m.Orders {
		if o.GatewayOrderRef != nil && *o.GatewayOrderRef == ref {
			return r.m.orderWithItems(o), nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "order", ID: ref}
}

func (r memOrders) ListByBuyerEmail(_ context.Context, email string, limit, offset int) ([]*domain.Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*domain.Order{}
	for _, o := range r.m.Orders {
		if o.BuyerEmail == email {
			out = append(out, r.m.orderWithItems(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []*domain.Order{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memOrders) SetGatewayRef(_ context.Context, id uuid.UUID, ref string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.Orders[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	o.GatewayOrderRef = &ref
	return nil
}

func (r memOrders) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.OrderStatus, deliveredAt *time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.Orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if deliveredAt != nil {
		o.DeliveredAt = deliveredAt
	}
	return true, nil
}

func (r memOrders) UpdatePayment(_ context.Context, id uuid.UUID, status domain.PaymentStatus, paymentRef *string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.Orders[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	o.PaymentStatus = status
	if paymentRef != nil {
		o.PaymentReference = paymentRef
	}
	return nil
}

func (r memOrders) Cancel(_ context.Context, id uuid.UUID, from domain.OrderStatus, payment domain.PaymentStatus) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.Orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = domain.OrderStatusCancelled
	o.PaymentStatus = payment
	for _, it := range r.m.Items {
		if it.OrderID == id {
			if s := r.m.SizeOf(it.ProductID, it.Color, it.Size); s != nil {
				s.Stock += it.Quantity
			}
		}
	}
	return true, nil
}

type memOrderItems struct{ m *DB }

func (r memOrderItems) GetByID(_ context.Context, id uuid.UUID) (*domain.OrderItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	it, ok := r.m.Items[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order item", ID: id.String()}
	}
	cp := *it
	return &cp, nil
}

func (r memOrderItems) GetByOrderID(_ context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.Orders[orderID]
	if !ok {
		return []domain.OrderItem{}, nil
	}
	return r.m.orderWithItems(o).Items, nil
}

func (r memOrderItems) Transition(_ context.Context, item *domain.OrderItem, from domain.ItemStatus, issued *domain.Coupon) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.Items[item.ID]
	if !ok || cur.Status != from {
		return false, nil
	}
	cp := *item
	r.m.Items[item.ID] = &cp
	if issued != nil {
		c := *issued
		r.m.Coupons[strings.ToUpper(c.Code)] = &c
	}
	return true, nil
}

type memEvents struct{ m *DB }

func (r memEvents) Create(_ context.Context, event *domain.OrderEvent) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.Events = append(r.m.Events, *event)
	return nil
}

type memAdmins struct{ m *DB }

func (r memAdmins) GetByAPIKeyHash(_ context.Context, apiKey string) (*domain.Admin, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.Admins {
		if a.IsActive && bcrypt.CompareHashAndPassword([]byte(a.APIKeyHash), []byte(apiKey)) == nil {
			return a, nil
		}
	}
	return nil, &errors.ErrUnauthorized{Message: "invalid API key"}
}

func (r memAdmins) Create(_ context.Context, admin *domain.Admin) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.Admins = append(r.m.Admins, admin)
	return nil
}

