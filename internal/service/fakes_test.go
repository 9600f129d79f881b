package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/events"
	"github.com/staturevogue/storefront/internal/gateway"
	"github.com/staturevogue/storefront/internal/lifecycle"
	"github.com/staturevogue/storefront/internal/repository/memory"
)

// fakeGateway signs with a fixed secret
type fakeGateway struct {
	fail    bool
	created []int64
}

const fakeSecret = "test-secret"

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, receipt string) (*gateway.Order, error) {
	if g.fail {
		return nil, io.ErrUnexpectedEOF
	}
	g.created = append(g.created, amount)
	return &gateway.Order{ID: "order_" + receipt[:8], Amount: amount, Currency: "INR", Receipt: receipt}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return gateway.VerifySignature(fakeSecret, orderID, paymentID, signature)
}

func (g *fakeGateway) KeyID() string    { return "rzp_test_key" }
func (g *fakeGateway) Currency() string { return "INR" }

// fakeEvidence keeps uploads in memory
type fakeEvidence struct {
	mu      sync.Mutex
	saved   map[string][]byte
	deleted []string
}

func (e *fakeEvidence) Save(_ context.Context, itemID uuid.UUID, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.saved == nil {
		e.saved = map[string][]byte{}
	}
	path := "evidence/" + itemID.String() + "/" + uuid.NewString() + "-" + filename
	e.saved[path] = data
	return path, nil
}

func (e *fakeEvidence) Delete(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.saved, path)
	e.deleted = append(e.deleted, path)
	return nil
}

// capturePublisher records published events
type capturePublisher struct {
	mu     sync.Mutex
	events []events.LifecycleEvent
}

func (p *capturePublisher) Publish(_ context.Context, e events.LifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type harness struct {
	db       *memory.DB
	svc      *Services
	gw       *fakeGateway
	evidence *fakeEvidence
	pub      *capturePublisher
	now      time.Time
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pricePtr(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

// newHarness seeds one product, the site configuration and a few coupons
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		db:       memory.New(),
		gw:       &fakeGateway{},
		evidence: &fakeEvidence{},
		pub:      &capturePublisher{},
		now:      fixedNow,
	}

	h.db.Products["tee-1"] = &domain.Product{
		ID:        "tee-1",
		Slug:      "classic-tee",
		Name:      "Classic Tee",
		BasePrice: price("999"),
		Images:    []string{"tee.jpg"},
		Colors: []domain.ColorVariant{
			{Name: "Black", Images: []string{"tee-black.jpg"}, Sizes: []domain.SizeVariant{
				{Label: "M", Stock: 5},
				{Label: "XL", Stock: 2, Price: pricePtr("1099")},
			}},
			{Name: "White", Sizes: []domain.SizeVariant{
				{Label: "M", Stock: 0},
			}},
		},
	}
	h.db.Policy = &domain.ShippingPolicy{
		FlatRate:              price("50"),
		FreeShippingThreshold: price("1000"),
		TaxRatePercentage:     price("5"),
		CODFee:                price("30"),
	}
	limit := 1
	h.db.Coupons["SAVE100"] = &domain.Coupon{Code: "SAVE100", DiscountType: domain.DiscountFixed, Value: price("100"), MinimumOrder: price("500"), IsActive: true}
	h.db.Coupons["TEN"] = &domain.Coupon{Code: "TEN", DiscountType: domain.DiscountPercentage, Value: price("10"), IsActive: true}
	h.db.Coupons["ONCE"] = &domain.Coupon{Code: "ONCE", DiscountType: domain.DiscountFixed, Value: price("50"), IsActive: true, UsageLimit: &limit, UsedCount: 1}
	h.db.Coupons["OFF"] = &domain.Coupon{Code: "OFF", DiscountType: domain.DiscountFixed, Value: price("50")}
	past := fixedNow.Add(-time.Hour)
	h.db.Coupons["OLD"] = &domain.Coupon{Code: "OLD", DiscountType: domain.DiscountFixed, Value: price("50"), IsActive: true, ExpiresAt: &past}

	h.svc = New(Dependencies{
		Repos:    h.db.Repositories(),
		Gateway:  h.gw,
		Evidence: h.evidence,
		Events:   h.pub,
		Window:   lifecycle.Days(7),
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return h.now },
	})
	return h
}

func validBuyer() BuyerInfo {
	return BuyerInfo{
		Email:     "Asha@Example.com",
		FirstName: "Asha",
		LastName:  "Rao",
		Address:   "12 MG Road",
		City:      "Bengaluru",
		PinCode:   "560001",
		Phone:     "9876543210",
	}
}

// deliveredOrder places a COD order and drives it to Delivered
func (h *harness) deliveredOrder(t *testing.T) *domain.Order {
	t.Helper()
	ctx := context.Background()
	res, err := h.svc.Checkout.Checkout(ctx, CheckoutRequest{
		Buyer:         validBuyer(),
		Items:         []CheckoutItem{{ProductID: "tee-1", Color: "Black", Size: "M", Quantity: 2}},
		PaymentMethod: "COD",
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := h.svc.Order.UpdateStatus(ctx, res.OrderID, domain.OrderStatusShipped); err != nil {
		t.Fatalf("ship: %v", err)
	}
	order, err := h.svc.Order.UpdateStatus(ctx, res.OrderID, domain.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	return order
}
