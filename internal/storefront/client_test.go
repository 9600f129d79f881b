package storefront

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/config"
	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/pkg/errors"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.StorefrontConfig{BaseURL: srv.URL + "/v1/", Token: "tok"}, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetProduct(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/store/products/classic-tee", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, domain.Product{
			ID:        "tee-1",
			Name:      "Classic Tee",
			BasePrice: decimal.NewFromInt(999),
			Colors:    []domain.ColorVariant{{Name: "Black", Sizes: []domain.SizeVariant{{Label: "M", Stock: 3}}}},
		})
	})

	product, err := c.GetProduct(context.Background(), "classic-tee")
	require.NoError(t, err)
	assert.Equal(t, "tee-1", product.ID)
	assert.True(t, product.BasePrice.Equal(decimal.NewFromInt(999)))
	require.Len(t, product.Colors, 1)
	assert.Equal(t, 3, product.Colors[0].Sizes[0].Stock)
}

func TestGetConfigMarksLoaded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"shipping_flat_rate":"100","shipping_free_above":"1999","tax_rate_percentage":"5","cod_fee":"30"}`))
	})

	policy, err := c.GetConfig(context.Background())
	require.NoError(t, err)
	assert.True(t, policy.Loaded)
	assert.True(t, policy.FreeShippingThreshold.Equal(decimal.NewFromInt(1999)))
	assert.True(t, policy.CODFee.Equal(decimal.NewFromInt(30)))
}

func TestGetConfigUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		status, body := errors.Encode(errors.ErrConfigNotLoaded)
		writeJSON(w, status, body)
	})

	policy, err := c.GetConfig(context.Background())
	assert.ErrorIs(t, err, errors.ErrConfigNotLoaded)
	assert.False(t, policy.Loaded)
}

func TestValidateCoupon(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/store/validate-coupon", r.URL.Path)
		var body struct {
			Code       string          `json:"code"`
			OrderTotal decimal.Decimal `json:"order_total"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Code != "SAVE150" {
			status, payload := errors.Encode(&errors.CouponError{Code: body.Code, Message: "Invalid coupon code"})
			writeJSON(w, status, payload)
			return
		}
		assert.True(t, body.OrderTotal.Equal(decimal.NewFromInt(1500)))
		writeJSON(w, http.StatusOK, CouponResult{Accepted: true, Code: "SAVE150", Discount: decimal.NewFromInt(150), MinimumOrder: decimal.NewFromInt(1000)})
	})

	result, err := c.ValidateCoupon(context.Background(), "SAVE150", decimal.NewFromInt(1500))
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.True(t, result.Discount.Equal(decimal.NewFromInt(150)))

	_, err = c.ValidateCoupon(context.Background(), "NOPE", decimal.NewFromInt(1500))
	var couponErr *errors.CouponError
	require.ErrorAs(t, err, &couponErr)
	assert.Equal(t, "Invalid coupon code", couponErr.Message)
	assert.Equal(t, "NOPE", couponErr.Code)
}

func TestCheckoutDecodesTypedErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		status, payload := errors.Encode(&errors.StockError{ProductID: "tee-1", Color: "Black", Size: "M", Available: 1})
		writeJSON(w, status, payload)
	})

	_, err := c.Checkout(context.Background(), CheckoutRequest{PaymentMethod: "COD"})
	var stockErr *errors.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, "M", stockErr.Size)
}

func TestVerifyPaymentError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		status, payload := errors.Encode(&errors.PaymentError{Reference: "order_1", Message: "payment signature mismatch", Recovery: "contact support"})
		writeJSON(w, status, payload)
	})

	_, err := c.VerifyPayment(context.Background(), VerifyPaymentRequest{GatewayOrderID: "order_1", PaymentID: "pay_1", Signature: "bad"})
	var payErr *errors.PaymentError
	require.ErrorAs(t, err, &payErr)
	assert.Equal(t, "contact support", payErr.Recovery)
}

func TestNonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := c.GetOrder(context.Background(), uuid.New())
	var httpErr *errors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Status)
	assert.Equal(t, "upstream down", httpErr.Message)
}

func TestListOrdersAndCancel(t *testing.T) {
	orderID := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/orders":
			assert.Equal(t, "a@b.in", r.URL.Query().Get("buyer_email"))
			writeJSON(w, http.StatusOK, map[string]interface{}{"orders": []domain.Order{{ID: orderID, Status: domain.OrderStatusProcessing}}})
		case "/v1/orders/" + orderID.String() + "/cancel":
			assert.Equal(t, http.MethodPost, r.Method)
			writeJSON(w, http.StatusOK, domain.Order{ID: orderID, Status: domain.OrderStatusCancelled})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	orders, err := c.ListOrders(context.Background(), "a@b.in")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, orderID, orders[0].ID)

	order, err := c.CancelOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
}

func TestSubmitItemActionMultipart(t *testing.T) {
	itemID := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/order-items/"+itemID.String()+"/actions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "return", r.FormValue("action_type"))
		assert.Equal(t, "Size doesn't fit", r.FormValue("reason"))

		file, header, err := r.FormFile("evidence")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "unboxing.mp4", header.Filename)
		assert.Equal(t, "video-bytes", string(data))

		writeJSON(w, http.StatusOK, domain.OrderItem{ID: itemID, Status: domain.ItemStatusReturnRequested})
	})

	item, err := c.SubmitItemAction(context.Background(), itemID, ItemAction{
		Action:       domain.ActionReturn,
		Reason:       domain.ReasonSizeDoesNotFit,
		EvidenceName: "unboxing.mp4",
		Evidence:     strings.NewReader("video-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusReturnRequested, item.Status)
}

func TestSubmitItemActionLifecycleError(t *testing.T) {
	itemID := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		status, payload := errors.Encode(&errors.LifecycleError{
			ItemID: itemID.String(),
			Status: string(domain.ItemStatusReturnRequested),
			Action: "return",
			Reason: "an action was already raised for this item",
		})
		writeJSON(w, status, payload)
	})

	_, err := c.SubmitItemAction(context.Background(), itemID, ItemAction{
		Action:       domain.ActionReturn,
		Reason:       domain.ReasonDamaged,
		EvidenceName: "v.mp4",
		Evidence:     strings.NewReader("x"),
	})
	var lcErr *errors.LifecycleError
	require.ErrorAs(t, err, &lcErr)
	assert.Equal(t, "an action was already raised for this item", lcErr.Reason)
}

func TestListProductsSendsCategory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/store/products", r.URL.Path)
		assert.Equal(t, "tees", r.URL.Query().Get("category"))
		assert.Equal(t, "24", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"products": []domain.Product{{ID: "tee-1", Category: "tees"}},
		})
	})

	products, err := c.ListProducts(context.Background(), "tees", 24, 0)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "tee-1", products[0].ID)
}
