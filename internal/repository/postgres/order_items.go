package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/pkg/errors"
)

type orderItemRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderItemRepository creates a new order item repository
func NewOrderItemRepository(db *sql.DB, logger *zap.Logger) *orderItemRepository {
	return &orderItemRepository{
		db:     db,
		logger: logger,
	}
}

const orderItemColumns = `id, order_id, product_id, product_name, color, size, image, price, quantity,
	item_status, action_type, reason, evidence_path, admin_comment, exchange_coupon_code,
	refund_reference, refund_date, requested_at, created_at, updated_at`

func scanOrderItem(row interface{ Scan(...any) error }) (*domain.OrderItem, error) {
	var item domain.OrderItem
	var actionType, reason, evidencePath, adminComment, couponCode, refundRef sql.NullString
	var refundDate, requestedAt sql.NullTime

	if err := row.Scan(
		&item.ID,
		&item.OrderID,
		&item.ProductID,
		&item.ProductName,
		&item.Color,
		&item.Size,
		&item.Image,
		&item.Price,
		&item.Quantity,
		&item.Status,
		&actionType,
		&reason,
		&evidencePath,
		&adminComment,
		&couponCode,
		&refundRef,
		&refundDate,
		&requestedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if actionType.Valid {
		a := domain.ActionType(actionType.String)
		item.ActionType = &a
	}
	if reason.Valid {
		rc := domain.ReasonCode(reason.String)
		item.ReasonCode = &rc
	}
	item.EvidencePath = nullString(evidencePath)
	item.AdminComment = nullString(adminComment)
	item.ExchangeCouponCode = nullString(couponCode)
	item.RefundReference = nullString(refundRef)
	if refundDate.Valid {
		item.RefundDate = &refundDate.Time
	}
	if requestedAt.Valid {
		item.RequestedAt = &requestedAt.Time
	}
	return &item, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listItems(ctx context.Context, db queryer, orderID uuid.UUID) ([]domain.OrderItem, error) {
	query := `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY created_at, id`

	rows, err := db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *orderItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OrderItem, error) {
	query := `SELECT ` + orderItemColumns + ` FROM order_items WHERE id = $1`

	item, err := scanOrderItem(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order item", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get order item", zap.Error(err))
		return nil, err
	}
	return item, nil
}

func (r *orderItemRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	items, err := listItems(ctx, r.db, orderID)
	if err != nil {
		r.logger.Error("Failed to get order items", zap.Error(err))
		return nil, err
	}
	return items, nil
}

func (r *orderItemRepository) Transition(ctx context.Context, item *domain.OrderItem, from domain.ItemStatus, issued *domain.Coupon) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin item transition", zap.Error(err))
		return false, err
	}
	defer tx.Rollback()

	item.UpdatedAt = time.Now()
	res, err := tx.ExecContext(ctx, `
		UPDATE order_items
		SET item_status = $3,
		    action_type = $4,
		    reason = $5,
		    evidence_path = $6,
		    admin_comment = $7,
		    exchange_coupon_code = $8,
		    refund_reference = $9,
		    refund_date = $10,
		    requested_at = $11,
		    updated_at = $12
		WHERE id = $1 AND item_status = $2
	`,
		item.ID,
		from,
		item.Status,
		item.ActionType,
		item.ReasonCode,
		item.EvidencePath,
		item.AdminComment,
		item.ExchangeCouponCode,
		item.RefundReference,
		item.RefundDate,
		item.RequestedAt,
		item.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to transition order item", zap.Error(err))
		return false, err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return false, nil
	}

	if issued != nil {
		if err := insertCoupon(ctx, tx, issued); err != nil {
			r.logger.Error("Failed to issue exchange coupon", zap.Error(err))
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit item transition", zap.Error(err))
		return false, err
	}
	return true, nil
}
