package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/config"
	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/pkg/errors"
)

// Client talks to the storefront API on behalf of a buyer
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new storefront API client
func NewClient(cfg config.StorefrontConfig, logger *zap.Logger) *Client {
	// Normalize base URL - remove trailing slashes
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		baseURL: baseURL,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		logger: logger,
	}
}

// CouponResult is the server's answer to a coupon validation
type CouponResult struct {
	Accepted     bool                `json:"accepted"`
	Code         string              `json:"code"`
	DiscountType domain.DiscountType `json:"discount_type"`
	Value        decimal.Decimal     `json:"value"`
	Discount     decimal.Decimal     `json:"discount"`
	MinimumOrder decimal.Decimal     `json:"minimum_order"`
	Message      string              `json:"message"`
}

// CheckoutLine is the cart snapshot sent for one line. Price is informative;
// the server charges its own catalog price.
type CheckoutLine struct {
	ProductID string          `json:"product_id"`
	Color     string          `json:"color"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// CheckoutRequest is the order submission body
type CheckoutRequest struct {
	Buyer         domain.Buyer   `json:"buyer"`
	Items         []CheckoutLine `json:"items"`
	CouponCode    string         `json:"coupon_code,omitempty"`
	PaymentMethod string         `json:"payment_method"`
}

// CheckoutResult tells the buyer how to complete payment. COD orders carry
// no gateway fields.
type CheckoutResult struct {
	OrderID         uuid.UUID       `json:"order_id"`
	COD             bool            `json:"cod"`
	GatewayOrderRef string          `json:"gateway_order_id,omitempty"`
	AmountDue       int64           `json:"amount_due,omitempty"`
	Currency        string          `json:"currency,omitempty"`
	KeyID           string          `json:"key,omitempty"`
	Total           decimal.Decimal `json:"total"`
}

// VerifyPaymentRequest carries what the payment widget returned
type VerifyPaymentRequest struct {
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
	Signature      string `json:"signature"`
}

// ItemAction is a return or exchange request with its evidence video
type ItemAction struct {
	Action       domain.ActionType
	Reason       domain.ReasonCode
	EvidenceName string
	Evidence     io.Reader
}

type productList struct {
	Products []*domain.Product `json:"products"`
}

type orderList struct {
	Orders []*domain.Order `json:"orders"`
}

// GetProduct fetches a product by id or slug
func (c *Client) GetProduct(ctx context.Context, idOrSlug string) (*domain.Product, error) {
	var product domain.Product
	if err := c.getJSON(ctx, "/store/products/"+url.PathEscape(idOrSlug), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts fetches one page of the catalog. An empty category lists
// every product.
func (c *Client) ListProducts(ctx context.Context, category string, limit, offset int) ([]*domain.Product, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var out productList
	if err := c.getJSON(ctx, "/store/products?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// GetReviews fetches the review aggregate of a product
func (c *Client) GetReviews(ctx context.Context, idOrSlug string) (*domain.ReviewSummary, error) {
	var summary domain.ReviewSummary
	if err := c.getJSON(ctx, "/store/products/"+url.PathEscape(idOrSlug)+"/reviews", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// GetConfig fetches the site pricing configuration. The returned policy is
// marked loaded.
func (c *Client) GetConfig(ctx context.Context) (domain.ShippingPolicy, error) {
	var policy domain.ShippingPolicy
	if err := c.getJSON(ctx, "/store/config", &policy); err != nil {
		return domain.ShippingPolicy{}, err
	}
	policy.Loaded = true
	return policy, nil
}

// ValidateCoupon asks the server whether code applies to subtotal
func (c *Client) ValidateCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (*CouponResult, error) {
	body := map[string]interface{}{
		"code":        code,
		"order_total": subtotal,
	}
	var result CouponResult
	if err := c.postJSON(ctx, "/store/validate-coupon", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Checkout submits an order
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	var result CheckoutResult
	if err := c.postJSON(ctx, "/orders/checkout", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyPayment confirms a gateway payment and returns the paid order
func (c *Client) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*domain.Order, error) {
	var order domain.Order
	if err := c.postJSON(ctx, "/payments/verify", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders fetches the orders placed with email
func (c *Client) ListOrders(ctx context.Context, email string) ([]*domain.Order, error) {
	q := url.Values{}
	q.Set("buyer_email", email)

	var out orderList
	if err := c.getJSON(ctx, "/orders?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

// GetOrder fetches an order with its items
func (c *Client) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	if err := c.getJSON(ctx, "/orders/"+orderID.String(), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder asks the server to cancel an order
func (c *Client) CancelOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	if err := c.postJSON(ctx, "/orders/"+orderID.String()+"/cancel", nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SubmitItemAction uploads a return or exchange request as a multipart form.
// The evidence is streamed, never held in memory whole.
func (c *Client) SubmitItemAction(ctx context.Context, itemID uuid.UUID, action ItemAction) (*domain.OrderItem, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		err := writeActionForm(form, action)
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/order-items/"+itemID.String()+"/actions", pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var item domain.OrderItem
	if err := c.do(req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func writeActionForm(form *multipart.Writer, action ItemAction) error {
	if err := form.WriteField("action_type", string(action.Action)); err != nil {
		return err
	}
	if err := form.WriteField("reason", string(action.Reason)); err != nil {
		return err
	}
	if action.Evidence == nil {
		return nil
	}
	part, err := form.CreateFormFile("evidence", action.EvidenceName)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, action.Evidence)
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do executes req and decodes a 2xx body into out. Error bodies are turned
// back into the typed errors the server raised.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload errors.Payload
		if json.Unmarshal(body, &payload) != nil {
			payload = errors.Payload{Error: strings.TrimSpace(string(body))}
		}
		apiErr := errors.Decode(resp.StatusCode, payload)
		c.logger.Debug("Storefront API error",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.Error(apiErr),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
