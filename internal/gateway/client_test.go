package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/config"
)

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key_1", user)
		assert.Equal(t, "secret_1", pass)

		var req OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(45000), req.Amount)
		assert.Equal(t, "INR", req.Currency)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Order{ID: "order_abc", Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created"})
	}))
	defer srv.Close()

	c := NewClient(config.GatewayConfig{BaseURL: srv.URL + "/", KeyID: "key_1", KeySecret: "secret_1"}, zap.NewNop())
	order, err := c.CreateOrder(context.Background(), 45000, "rcpt-1")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, "key_1", c.KeyID())
	assert.Equal(t, "INR", c.Currency())
}

func TestCreateOrderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"Authentication failed"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.GatewayConfig{BaseURL: srv.URL}, zap.NewNop())
	_, err := c.CreateOrder(context.Background(), 100, "rcpt-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Authentication failed")
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	c := NewClient(config.GatewayConfig{BaseURL: "http://unused"}, zap.NewNop())
	_, err := c.CreateOrder(context.Background(), 0, "rcpt-3")
	assert.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	sig := Sign("secret", "order_1", "pay_1")
	assert.Len(t, sig, 64)

	assert.True(t, VerifySignature("secret", "order_1", "pay_1", sig))
	assert.False(t, VerifySignature("secret", "order_1", "pay_2", sig))
	assert.False(t, VerifySignature("other", "order_1", "pay_1", sig))
	assert.False(t, VerifySignature("secret", "order_1", "pay_1", ""))
	assert.False(t, VerifySignature("", "order_1", "pay_1", sig))

	c := NewClient(config.GatewayConfig{KeySecret: "secret"}, zap.NewNop())
	assert.True(t, c.VerifySignature("order_1", "pay_1", sig))
}
