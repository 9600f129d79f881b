package account

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/lifecycle"
	"github.com/staturevogue/storefront/internal/storefront"
	"github.com/staturevogue/storefront/pkg/errors"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeBackend plays the order service: it applies the same transition rules
// and lets tests count calls.
type fakeBackend struct {
	orders  map[uuid.UUID]*domain.Order
	submits int
	cancels int
	gets    int
	uploads []string
}

func (f *fakeBackend) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	f.gets++
	order, ok := f.orders[orderID]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: orderID.String()}
	}
	cp := *order
	cp.Items = append([]domain.OrderItem(nil), order.Items...)
	return &cp, nil
}

func (f *fakeBackend) ListOrders(ctx context.Context, email string) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range f.orders {
		if o.BuyerEmail == email {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeBackend) CancelOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	f.cancels++
	order := f.orders[orderID]
	if err := lifecycle.CheckCancellable(order); err != nil {
		return nil, err
	}
	order.Status = domain.OrderStatusCancelled
	return order, nil
}

func (f *fakeBackend) SubmitItemAction(ctx context.Context, itemID uuid.UUID, action storefront.ItemAction) (*domain.OrderItem, error) {
	f.submits++
	data, _ := io.ReadAll(action.Evidence)
	f.uploads = append(f.uploads, string(data))
	for _, order := range f.orders {
		for i := range order.Items {
			item := &order.Items[i]
			if item.ID != itemID {
				continue
			}
			target, _ := lifecycle.RequestedStatus(action.Action)
			if !lifecycle.CanTransition(item.Status, target) {
				return nil, &errors.LifecycleError{ItemID: itemID.String(), Status: string(item.Status), Action: string(action.Action), Reason: "an action was already raised for this item"}
			}
			item.Status = target
			return item, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "order item", ID: itemID.String()}
}

func deliveredOrder() *domain.Order {
	delivered := now.Add(-48 * time.Hour)
	orderID := uuid.New()
	return &domain.Order{
		ID:          orderID,
		BuyerEmail:  "asha@example.com",
		Status:      domain.OrderStatusDelivered,
		DeliveredAt: &delivered,
		Items: []domain.OrderItem{
			{ID: uuid.New(), OrderID: orderID, ProductID: "tee-1", Status: domain.ItemStatusOrdered, Quantity: 1},
			{ID: uuid.New(), OrderID: orderID, ProductID: "cap-1", Status: domain.ItemStatusOrdered, Quantity: 1},
		},
	}
}

func setup(orders ...*domain.Order) (*Service, *fakeBackend) {
	backend := &fakeBackend{orders: map[uuid.UUID]*domain.Order{}}
	for _, o := range orders {
		backend.orders[o.ID] = o
	}
	svc := NewService(backend, lifecycle.Days(7), zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc, backend
}

func video() *Evidence {
	return &Evidence{Name: "unboxing.mp4", Size: 11, Body: strings.NewReader("video-bytes")}
}

func TestRequestReturnThenSecondActionRejected(t *testing.T) {
	order := deliveredOrder()
	svc, backend := setup(order)
	seen, err := backend.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	itemID := seen.Items[0].ID

	item, err := svc.RequestItemAction(context.Background(), seen, itemID, ItemActionRequest{
		Action:   domain.ActionReturn,
		Reason:   domain.ReasonSizeDoesNotFit,
		Evidence: video(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusReturnRequested, item.Status)
	assert.Equal(t, []string{"video-bytes"}, backend.uploads)

	// The caller still holds the stale order; the server refuses.
	_, err = svc.RequestItemAction(context.Background(), seen, itemID, ItemActionRequest{
		Action:   domain.ActionExchange,
		Reason:   domain.ReasonSizeDoesNotFit,
		Evidence: video(),
	})
	assert.True(t, errors.IsLifecycle(err))

	// With the refreshed order the request never leaves the client.
	fresh, err := svc.Order(context.Background(), order.ID)
	require.NoError(t, err)
	submits := backend.submits
	_, err = svc.RequestItemAction(context.Background(), fresh, itemID, ItemActionRequest{
		Action:   domain.ActionExchange,
		Reason:   domain.ReasonSizeDoesNotFit,
		Evidence: video(),
	})
	assert.True(t, errors.IsLifecycle(err))
	assert.Equal(t, submits, backend.submits)
}

func TestRequestWithoutEvidenceNeverSubmits(t *testing.T) {
	order := deliveredOrder()
	svc, backend := setup(order)

	_, err := svc.RequestItemAction(context.Background(), order, order.Items[0].ID, ItemActionRequest{
		Action: domain.ActionReturn,
		Reason: domain.ReasonDamaged,
	})
	var vErr *errors.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "evidence", vErr.Field)

	_, err = svc.RequestItemAction(context.Background(), order, order.Items[0].ID, ItemActionRequest{
		Action:   domain.ActionReturn,
		Reason:   "Changed my mind",
		Evidence: video(),
	})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "reason", vErr.Field)

	assert.Zero(t, backend.submits)
	assert.Zero(t, backend.gets)
}

func TestRequestBeforeDeliveryRejected(t *testing.T) {
	order := deliveredOrder()
	order.Status = domain.OrderStatusShipped
	order.DeliveredAt = nil
	svc, backend := setup(order)

	_, err := svc.RequestItemAction(context.Background(), order, order.Items[0].ID, ItemActionRequest{
		Action:   domain.ActionExchange,
		Reason:   domain.ReasonWrongItem,
		Evidence: video(),
	})
	assert.True(t, errors.IsLifecycle(err))
	assert.Zero(t, backend.submits)
}

func TestRequestAfterWindowRejected(t *testing.T) {
	order := deliveredOrder()
	late := now.Add(-8 * 24 * time.Hour)
	order.DeliveredAt = &late
	svc, backend := setup(order)

	_, err := svc.RequestItemAction(context.Background(), order, order.Items[0].ID, ItemActionRequest{
		Action:   domain.ActionReturn,
		Reason:   domain.ReasonQuality,
		Evidence: video(),
	})
	var lcErr *errors.LifecycleError
	require.ErrorAs(t, err, &lcErr)
	assert.Contains(t, lcErr.Reason, "window")
	assert.Zero(t, backend.submits)
}

func TestRequestUnknownItem(t *testing.T) {
	order := deliveredOrder()
	svc, _ := setup(order)

	_, err := svc.RequestItemAction(context.Background(), order, uuid.New(), ItemActionRequest{
		Action:   domain.ActionReturn,
		Reason:   domain.ReasonOther,
		Evidence: video(),
	})
	assert.True(t, errors.IsNotFound(err))
}

func TestCancelOrder(t *testing.T) {
	order := deliveredOrder()
	order.Status = domain.OrderStatusProcessing
	order.DeliveredAt = nil
	svc, backend := setup(order)

	fresh, err := svc.CancelOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, fresh.Status)
	assert.Equal(t, 1, backend.cancels)
	assert.Equal(t, 1, backend.gets)
}

func TestCancelShippedOrderRejectedLocally(t *testing.T) {
	order := deliveredOrder()
	order.Status = domain.OrderStatusShipped
	svc, backend := setup(order)

	_, err := svc.CancelOrder(context.Background(), order)
	assert.True(t, errors.IsLifecycle(err))
	assert.Zero(t, backend.cancels)
}

func TestOrdersRequiresEmail(t *testing.T) {
	order := deliveredOrder()
	svc, _ := setup(order)

	_, err := svc.Orders(context.Background(), "")
	assert.True(t, errors.IsValidation(err))

	orders, err := svc.Orders(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
