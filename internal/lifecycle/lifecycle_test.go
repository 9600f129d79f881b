package lifecycle

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/pkg/errors"
)

var allStatuses = []domain.ItemStatus{
	domain.ItemStatusOrdered,
	domain.ItemStatusReturnRequested,
	domain.ItemStatusReturnApproved,
	domain.ItemStatusReturnRejected,
	domain.ItemStatusRefunded,
	domain.ItemStatusExchangeRequested,
	domain.ItemStatusExchangeApproved,
	domain.ItemStatusExchangeRejected,
}

func deliveredOrder(deliveredAt time.Time) *domain.Order {
	return &domain.Order{
		ID:          uuid.New(),
		Status:      domain.OrderStatusDelivered,
		DeliveredAt: &deliveredAt,
	}
}

func orderedItem(orderID uuid.UUID) *domain.OrderItem {
	return &domain.OrderItem{ID: uuid.New(), OrderID: orderID, Status: domain.ItemStatusOrdered}
}

func TestTransitionTable(t *testing.T) {
	allowed := map[[2]domain.ItemStatus]bool{
		{domain.ItemStatusOrdered, domain.ItemStatusReturnRequested}:            true,
		{domain.ItemStatusOrdered, domain.ItemStatusExchangeRequested}:          true,
		{domain.ItemStatusReturnRequested, domain.ItemStatusReturnApproved}:     true,
		{domain.ItemStatusReturnRequested, domain.ItemStatusReturnRejected}:     true,
		{domain.ItemStatusReturnApproved, domain.ItemStatusRefunded}:            true,
		{domain.ItemStatusExchangeRequested, domain.ItemStatusExchangeApproved}: true,
		{domain.ItemStatusExchangeRequested, domain.ItemStatusExchangeRejected}: true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[[2]domain.ItemStatus{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []domain.ItemStatus{
		domain.ItemStatusReturnRejected,
		domain.ItemStatusRefunded,
		domain.ItemStatusExchangeApproved,
		domain.ItemStatusExchangeRejected,
	} {
		assert.True(t, IsTerminal(s), s)
		assert.Empty(t, Next(s))
	}
	assert.False(t, IsTerminal(domain.ItemStatusOrdered))
	assert.False(t, IsTerminal(domain.ItemStatusReturnApproved))
}

func TestDecidedStatus(t *testing.T) {
	s, ok := DecidedStatus(domain.ItemStatusExchangeRequested, domain.DecisionApprove)
	require.True(t, ok)
	assert.Equal(t, domain.ItemStatusExchangeApproved, s)

	s, ok = DecidedStatus(domain.ItemStatusReturnRequested, domain.DecisionReject)
	require.True(t, ok)
	assert.Equal(t, domain.ItemStatusReturnRejected, s)

	_, ok = DecidedStatus(domain.ItemStatusOrdered, domain.DecisionApprove)
	assert.False(t, ok)
}

func TestValidateRequestRequiresEvidence(t *testing.T) {
	now := time.Now()
	order := deliveredOrder(now.Add(-24 * time.Hour))
	item := orderedItem(order.ID)

	err := ValidateRequest(order, item, ActionRequest{
		Action: domain.ActionReturn,
		Reason: domain.ReasonSizeDoesNotFit,
	}, now, Days(7))
	assert.True(t, errors.IsValidation(err))
}

func TestValidateRequestRejectsUnknownReason(t *testing.T) {
	now := time.Now()
	order := deliveredOrder(now)
	item := orderedItem(order.ID)

	err := ValidateRequest(order, item, ActionRequest{
		Action:       domain.ActionReturn,
		Reason:       "changed my mind",
		EvidenceName: "unboxing.mp4",
		EvidenceSize: 1024,
	}, now, Days(7))
	assert.True(t, errors.IsValidation(err))
}

func TestValidateRequestAcceptsDeliveredOrderedItem(t *testing.T) {
	now := time.Now()
	order := deliveredOrder(now.Add(-48 * time.Hour))
	item := orderedItem(order.ID)

	err := ValidateRequest(order, item, ActionRequest{
		Action:       domain.ActionReturn,
		Reason:       domain.ReasonSizeDoesNotFit,
		EvidenceName: "unboxing.mp4",
		EvidenceSize: 2048,
	}, now, Days(7))
	assert.NoError(t, err)
}

func TestCheckEligibleRequiresDeliveredOrder(t *testing.T) {
	for _, status := range []domain.OrderStatus{
		domain.OrderStatusPending,
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusCancelled,
	} {
		order := &domain.Order{ID: uuid.New(), Status: status}
		err := CheckEligible(order, orderedItem(order.ID), domain.ActionExchange, time.Now(), 0)
		assert.True(t, errors.IsLifecycle(err), status)
	}
}

func TestCheckEligibleRejectsItemsWithActionInFlight(t *testing.T) {
	now := time.Now()
	order := deliveredOrder(now)

	for _, status := range allStatuses {
		if status == domain.ItemStatusOrdered {
			continue
		}
		item := orderedItem(order.ID)
		item.Status = status
		err := CheckEligible(order, item, domain.ActionReturn, now, Days(7))
		assert.True(t, errors.IsLifecycle(err), status)
	}
}

func TestCheckEligibleEnforcesReturnWindow(t *testing.T) {
	now := time.Now()
	order := deliveredOrder(now.Add(-8 * 24 * time.Hour))
	item := orderedItem(order.ID)

	err := CheckEligible(order, item, domain.ActionReturn, now, Days(7))
	assert.True(t, errors.IsLifecycle(err))

	assert.NoError(t, CheckEligible(order, item, domain.ActionReturn, now, 0), "window disabled")
}

func TestCancellation(t *testing.T) {
	assert.True(t, CanCancel(domain.OrderStatusPending))
	assert.True(t, CanCancel(domain.OrderStatusProcessing))
	assert.False(t, CanCancel(domain.OrderStatusShipped))
	assert.False(t, CanCancel(domain.OrderStatusDelivered))
	assert.False(t, CanCancel(domain.OrderStatusCancelled))

	err := CheckCancellable(&domain.Order{Status: domain.OrderStatusShipped})
	assert.True(t, errors.IsLifecycle(err))
}
