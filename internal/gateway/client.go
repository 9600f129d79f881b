package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/config"
)

// Client talks to the payment gateway's orders API
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	currency   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new payment gateway client
func NewClient(cfg config.GatewayConfig, logger *zap.Logger) *Client {
	// Normalize base URL - remove trailing slashes
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	currency := cfg.Currency
	if currency == "" {
		currency = "INR"
	}

	return &Client{
		baseURL:   baseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		currency:  currency,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// KeyID is the public key the buyer's payment widget is opened with
func (c *Client) KeyID() string {
	return c.keyID
}

// Currency is the ISO code every gateway order is created in
func (c *Client) Currency() string {
	return c.currency
}

// OrderRequest is the body of a gateway order creation
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the gateway's view of an order awaiting payment
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder registers amount (in minor units) with the gateway and returns
// the reference the buyer pays against.
func (c *Client) CreateOrder(ctx context.Context, amount int64, receipt string) (*Order, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("gateway amount must be positive, got %d", amount)
	}

	reqBody := OrderRequest{
		Amount:   amount,
		Currency: c.currency,
		Receipt:  receipt,
		Notes:    map[string]string{"order_id": receipt},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Description != "" {
			return nil, fmt.Errorf("gateway API error: status %d: %s", resp.StatusCode, apiErr.Error.Description)
		}
		return nil, fmt.Errorf("gateway API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("gateway returned an order without id")
	}

	c.logger.Info("Gateway order created",
		zap.String("gateway_order_id", order.ID),
		zap.String("receipt", receipt),
		zap.Int64("amount", order.Amount),
	)

	return &order, nil
}

// VerifySignature checks the signature the gateway hands the buyer after a
// successful payment: hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(c.keySecret, orderID, paymentID, signature)
}

// Sign computes the payment signature for orderID and paymentID
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares signature against Sign in constant time
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	expected := Sign(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
