package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/pkg/errors"
)

type orderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) *orderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

const orderColumns = `id, buyer_email, buyer, payment_method, payment_status, order_status,
	subtotal, discount, tax, shipping, cod_fee, total_amount, coupon_code,
	gateway_order_id, payment_id, delivered_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var o domain.Order
	var buyer []byte
	var couponCode, gatewayRef, paymentRef sql.NullString
	var deliveredAt sql.NullTime

	if err := row.Scan(
		&o.ID,
		&o.BuyerEmail,
		&buyer,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.Status,
		&o.Subtotal,
		&o.Discount,
		&o.Tax,
		&o.Shipping,
		&o.CODFee,
		&o.TotalAmount,
		&couponCode,
		&gatewayRef,
		&paymentRef,
		&deliveredAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(buyer, &o.Buyer); err != nil {
		return nil, fmt.Errorf("failed to decode buyer: %w", err)
	}
	o.CouponCode = nullString(couponCode)
	o.GatewayOrderRef = nullString(gatewayRef)
	o.PaymentReference = nullString(paymentRef)
	if deliveredAt.Valid {
		o.DeliveredAt = &deliveredAt.Time
	}
	return &o, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func (r *orderRepository) Place(ctx context.Context, order *domain.Order) error {
	now := time.Now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	buyer, err := json.Marshal(order.Buyer)
	if err != nil {
		return fmt.Errorf("failed to encode buyer: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin checkout transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	for _, item := range order.Items {
		if err := decrementStock(ctx, tx, item); err != nil {
			return err
		}
	}

	if order.CouponCode != nil {
		if err := redeemCoupon(ctx, tx, *order.CouponCode, now); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, buyer_email, buyer, payment_method, payment_status, order_status,
			subtotal, discount, tax, shipping, cod_fee, total_amount, coupon_code,
			gateway_order_id, payment_id, delivered_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		order.ID,
		order.BuyerEmail,
		buyer,
		order.PaymentMethod,
		order.PaymentStatus,
		order.Status,
		order.Subtotal,
		order.Discount,
		order.Tax,
		order.Shipping,
		order.CODFee,
		order.TotalAmount,
		order.CouponCode,
		order.GatewayOrderRef,
		order.PaymentReference,
		order.DeliveredAt,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert order", zap.Error(err))
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.ID = uuid.New()
		item.OrderID = order.ID
		item.CreatedAt = now
		item.UpdatedAt = now

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, color, size, image,
				price, quantity, item_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.ProductName,
			item.Color,
			item.Size,
			item.Image,
			item.Price,
			item.Quantity,
			item.Status,
			item.CreatedAt,
			item.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to insert order item", zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit checkout transaction", zap.Error(err))
		return err
	}
	return nil
}

// decrementStock takes item.Quantity units of the variant, failing with a
// StockError when fewer are left.
func decrementStock(ctx context.Context, tx *sql.Tx, item domain.OrderItem) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE product_sizes s
		SET stock = s.stock - $4
		FROM product_colors c
		WHERE s.color_id = c.id
		  AND c.product_id = $1 AND c.name = $2 AND s.label = $3
		  AND s.stock >= $4
	`, item.ProductID, item.Color, item.Size, item.Quantity)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	var available int
	err = tx.QueryRowContext(ctx, `
		SELECT s.stock
		FROM product_sizes s
		JOIN product_colors c ON s.color_id = c.id
		WHERE c.product_id = $1 AND c.name = $2 AND s.label = $3
	`, item.ProductID, item.Color, item.Size).Scan(&available)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	return &errors.StockError{ProductID: item.ProductID, Color: item.Color, Size: item.Size, Available: available}
}

// redeemCoupon counts one use of code, failing when it is exhausted
func redeemCoupon(ctx context.Context, tx *sql.Tx, code string, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = $2
		WHERE code = $1
		  AND is_active
		  AND (usage_limit IS NULL OR used_count < usage_limit)
		  AND (expires_at IS NULL OR expires_at > $2)
	`, code, now)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return &errors.CouponError{Code: code, Message: "coupon " + code + " is no longer available"}
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get order by ID", zap.Error(err))
		return nil, err
	}

	if order.Items, err = listItems(ctx, r.db, order.ID); err != nil {
		r.logger.Error("Failed to get order items", zap.Error(err))
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByGatewayRef(ctx context.Context, ref string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE gateway_order_id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, ref))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: ref}
	}
	if err != nil {
		r.logger.Error("Failed to get order by gateway reference", zap.Error(err))
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) ListByBuyerEmail(ctx context.Context, email string, limit, offset int) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE buyer_email = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, email, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error("Failed to scan order", zap.Error(err))
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		if order.Items, err = listItems(ctx, r.db, order.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) SetGatewayRef(ctx context.Context, id uuid.UUID, ref string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET gateway_order_id = $2, updated_at = $3 WHERE id = $1`,
		id, ref, time.Now())
	if err != nil {
		r.logger.Error("Failed to set gateway reference", zap.Error(err))
	}
	return err
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, deliveredAt *time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET order_status = $3, delivered_at = COALESCE($4, delivered_at), updated_at = $5
		WHERE id = $1 AND order_status = $2
	`, id, from, to, deliveredAt, time.Now())
	if err != nil {
		r.logger.Error("Failed to update order status", zap.Error(err))
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *orderRepository) UpdatePayment(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, paymentRef *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $2, payment_id = COALESCE($3, payment_id), updated_at = $4
		WHERE id = $1
	`, id, status, paymentRef, time.Now())
	if err != nil {
		r.logger.Error("Failed to update payment status", zap.Error(err))
	}
	return err
}

func (r *orderRepository) Cancel(ctx context.Context, id uuid.UUID, from domain.OrderStatus, payment domain.PaymentStatus) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET order_status = $3, payment_status = $4, updated_at = $5
		WHERE id = $1 AND order_status = $2
	`, id, from, domain.OrderStatusCancelled, payment, time.Now())
	if err != nil {
		r.logger.Error("Failed to cancel order", zap.Error(err))
		return false, err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE product_sizes s
		SET stock = s.stock + i.quantity
		FROM order_items i, product_colors c
		WHERE i.order_id = $1
		  AND c.product_id = i.product_id AND c.name = i.color
		  AND s.color_id = c.id AND s.label = i.size
	`, id)
	if err != nil {
		r.logger.Error("Failed to restock cancelled order", zap.Error(err))
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
